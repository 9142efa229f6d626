// Package dataset loads the donor, recipient and inventory tables from
// local files, S3 or Postgres.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"blood-bank-matcher/internal/config"
	"blood-bank-matcher/internal/excel"
	"blood-bank-matcher/internal/models"
	"blood-bank-matcher/internal/services/database"
	s3service "blood-bank-matcher/internal/services/s3"
	"blood-bank-matcher/internal/utils"
)

// ErrNoStore is returned when an s3:// path is given without an object store.
var ErrNoStore = errors.New("no object store configured for s3 path")

// Dataset is one snapshot of the three input tables.
type Dataset struct {
	Donors     []models.Donor
	Recipients []models.Recipient
	Inventory  []models.InventoryEntry

	// RowErrors holds per-line problems for rows that were dropped.
	RowErrors map[utils.TableKind][]error
}

// Paths locates each table. Entries may be local .csv/.xlsx files or
// s3://bucket/key URIs.
type Paths struct {
	Donors     string
	Recipients string
	Inventory  string
}

// PathsFromConfig returns the table locations in cfg.
func PathsFromConfig(cfg *config.Config) Paths {
	return Paths{
		Donors:     cfg.DonorsPath,
		Recipients: cfg.RecipientsPath,
		Inventory:  cfg.InventoryPath,
	}
}

func (p Paths) hasURI() bool {
	return s3service.IsURI(p.Donors) || s3service.IsURI(p.Recipients) || s3service.IsURI(p.Inventory)
}

// ObjectStore fetches objects by s3:// location.
type ObjectStore interface {
	Download(ctx context.Context, location string) ([]byte, error)
}

// Loader reads tables through the CSV parser.
type Loader struct {
	store    ObjectStore
	defaults *Dataset
	logger   *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithStore sets the object store used for s3:// paths.
func WithStore(store ObjectStore) Option {
	return func(l *Loader) {
		l.store = store
	}
}

// WithDefaults sets tables used when a local file does not exist.
func WithDefaults(defaults *Dataset) Option {
	return func(l *Loader) {
		l.defaults = defaults
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) {
		l.logger = logger
	}
}

// NewLoader creates a Loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{logger: utils.GetLogger()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadWithFallback loads paths. A local file that does not exist is replaced
// by the same table read from fallback. If fallback itself cannot be read the
// failure is logged and missing files stay an error.
func (l *Loader) LoadWithFallback(ctx context.Context, paths, fallback Paths) (*Dataset, error) {
	if paths == fallback {
		return l.Load(ctx, paths)
	}

	defaults, err := l.Load(ctx, fallback)
	if err != nil {
		l.logger.Warn("Default tables unavailable",
			zap.String("donors", fallback.Donors),
			zap.String("recipients", fallback.Recipients),
			zap.String("inventory", fallback.Inventory),
			zap.Error(err),
		)
		return l.Load(ctx, paths)
	}

	withDefaults := *l
	withDefaults.defaults = defaults
	return withDefaults.Load(ctx, paths)
}

// Load reads all three tables. Rows that fail validation are dropped and
// reported in RowErrors.
func (l *Loader) Load(ctx context.Context, paths Paths) (*Dataset, error) {
	ds := &Dataset{RowErrors: make(map[utils.TableKind][]error)}
	parser := utils.NewCSVParser()

	records, err := l.readTable(ctx, paths.Donors, utils.TableDonors)
	switch {
	case errors.Is(err, os.ErrNotExist) && l.defaults != nil:
		ds.Donors = append([]models.Donor(nil), l.defaults.Donors...)
	case err != nil:
		return nil, err
	default:
		var errs []error
		ds.Donors, errs = parser.ParseDonorRecords(records)
		if err := l.noteRowErrors(ds, utils.TableDonors, paths.Donors, errs); err != nil {
			return nil, err
		}
	}

	records, err = l.readTable(ctx, paths.Recipients, utils.TableRecipients)
	switch {
	case errors.Is(err, os.ErrNotExist) && l.defaults != nil:
		ds.Recipients = append([]models.Recipient(nil), l.defaults.Recipients...)
	case err != nil:
		return nil, err
	default:
		var errs []error
		ds.Recipients, errs = parser.ParseRecipientRecords(records)
		if err := l.noteRowErrors(ds, utils.TableRecipients, paths.Recipients, errs); err != nil {
			return nil, err
		}
	}

	records, err = l.readTable(ctx, paths.Inventory, utils.TableInventory)
	switch {
	case errors.Is(err, os.ErrNotExist) && l.defaults != nil:
		ds.Inventory = append([]models.InventoryEntry(nil), l.defaults.Inventory...)
	case err != nil:
		return nil, err
	default:
		var errs []error
		ds.Inventory, errs = parser.ParseInventoryRecords(records)
		if err := l.noteRowErrors(ds, utils.TableInventory, paths.Inventory, errs); err != nil {
			return nil, err
		}
	}

	l.logger.Info("Dataset loaded",
		zap.Int("donors", len(ds.Donors)),
		zap.Int("recipients", len(ds.Recipients)),
		zap.Int("inventory_rows", len(ds.Inventory)),
	)

	return ds, nil
}

// readTable returns the raw rows at location, header first.
func (l *Loader) readTable(ctx context.Context, location string, kind utils.TableKind) ([][]string, error) {
	if s3service.IsURI(location) {
		if l.store == nil {
			return nil, fmt.Errorf("%w: %s", ErrNoStore, location)
		}
		data, err := l.store.Download(ctx, location)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s table: %w", kind, err)
		}
		if excel.IsWorkbook(location) {
			return excel.ReadRecordsFrom(bytes.NewReader(data), "")
		}
		return utils.ReadRecords(string(data))
	}

	if excel.IsWorkbook(location) {
		if _, err := os.Stat(location); err != nil {
			return nil, fmt.Errorf("failed to load %s table: %w", kind, err)
		}
		return excel.ReadRecords(location, "")
	}

	data, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("Table file not found", zap.String("table", string(kind)), zap.String("path", location))
		}
		return nil, fmt.Errorf("failed to load %s table: %w", kind, err)
	}
	return utils.ReadRecords(string(data))
}

// noteRowErrors records dropped rows. A header problem fails the whole table.
func (l *Loader) noteRowErrors(ds *Dataset, kind utils.TableKind, location string, errs []error) error {
	for _, err := range errs {
		if errors.Is(err, utils.ErrMissingColumns) || errors.Is(err, utils.ErrEmptyCSV) {
			return fmt.Errorf("failed to load %s table from %s: %w", kind, location, err)
		}
	}
	if len(errs) == 0 {
		return nil
	}

	ds.RowErrors[kind] = errs
	for _, err := range errs {
		l.logger.Warn("Dropped invalid row",
			zap.String("table", string(kind)),
			zap.String("path", location),
			zap.Error(err),
		)
	}
	return nil
}

// LoadFromDatabase reads the three tables from Postgres.
func LoadFromDatabase(ctx context.Context, db *database.DB) (*Dataset, error) {
	donors, err := database.NewDonorRepository(db).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	recipients, err := database.NewRecipientRepository(db).GetAll(ctx)
	if err != nil {
		return nil, err
	}
	inventory, err := database.NewInventoryRepository(db).GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Donors:     donors,
		Recipients: recipients,
		Inventory:  inventory,
		RowErrors:  map[utils.TableKind][]error{},
	}, nil
}

// SaveToDatabase upserts donors and recipients and replaces the inventory.
func SaveToDatabase(ctx context.Context, db *database.DB, ds *Dataset) (donors, recipients *models.BulkInsertResult, err error) {
	donors, err = database.NewDonorRepository(db).BulkUpsert(ctx, ds.Donors)
	if err != nil {
		return donors, nil, err
	}
	recipients, err = database.NewRecipientRepository(db).BulkUpsert(ctx, ds.Recipients)
	if err != nil {
		return donors, recipients, err
	}
	if err = database.NewInventoryRepository(db).Replace(ctx, ds.Inventory); err != nil {
		return donors, recipients, err
	}
	return donors, recipients, nil
}

// Source wraps whatever the configuration reads tables from.
type Source struct {
	cfg    *config.Config
	loader *Loader
	db     *database.DB
}

// OpenSource prepares the configured table source. It connects to Postgres
// when DATA_SOURCE=postgres and to S3 when any path is an s3:// URI.
func OpenSource(ctx context.Context, cfg *config.Config) (*Source, error) {
	src := &Source{cfg: cfg}

	if cfg.UsesDatabase() {
		db, err := database.New(ctx, cfg)
		if err != nil {
			return nil, err
		}
		src.db = db
		return src, nil
	}

	var opts []Option
	if PathsFromConfig(cfg).hasURI() {
		store, err := s3service.NewService(ctx, cfg)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithStore(store))
	}
	src.loader = NewLoader(opts...)

	return src, nil
}

// Load reads a fresh snapshot of the tables.
func (s *Source) Load(ctx context.Context) (*Dataset, error) {
	if s.db != nil {
		return LoadFromDatabase(ctx, s.db)
	}
	return s.loader.Load(ctx, PathsFromConfig(s.cfg))
}

// HealthCheck pings the database when one is in use.
func (s *Source) HealthCheck(ctx context.Context) error {
	if s.db != nil {
		return s.db.HealthCheck(ctx)
	}
	return nil
}

// Close releases the database pool, if any.
func (s *Source) Close() {
	if s.db != nil {
		s.db.Close()
	}
}
