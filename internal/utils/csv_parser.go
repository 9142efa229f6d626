// Package utils provides logging and table parsing helpers for the blood bank matcher.
package utils

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"blood-bank-matcher/internal/models"
)

// CSVParser errors
var (
	ErrEmptyCSV       = errors.New("CSV content is empty")
	ErrMissingColumns = errors.New("missing required columns")
	ErrNoDataRows     = errors.New("CSV file contains no data rows")
	ErrUnknownTable   = errors.New("unknown table kind")
)

// TableKind names one of the three input tables.
type TableKind string

const (
	TableDonors     TableKind = "donors"
	TableRecipients TableKind = "recipients"
	TableInventory  TableKind = "inventory"
)

// RequiredColumns defines the columns that must be present for each table.
var RequiredColumns = map[TableKind][]string{
	TableDonors:     {"id", "blood_type", "rh", "lat", "lon"},
	TableRecipients: {"id", "blood_type", "rh", "lat", "lon", "units_needed"},
	TableInventory:  {"blood_type", "rh", "units_available"},
}

// ColumnAliases maps alternative column names to standard names.
var ColumnAliases = map[string]string{
	// id aliases
	"donor_id":     "id",
	"donorid":      "id",
	"recipient_id": "id",
	"recipientid":  "id",
	"patient_id":   "id",

	// name aliases
	"full_name": "name",
	"fullname":  "name",
	"donor":     "name",

	// blood_type aliases
	"bloodtype":   "blood_type",
	"blood type":  "blood_type",
	"blood_group": "blood_type",
	"bloodgroup":  "blood_type",
	"abo":         "blood_type",

	// rh aliases
	"rh_factor": "rh",
	"rhfactor":  "rh",
	"rh factor": "rh",

	// coordinate aliases
	"latitude":  "lat",
	"longitude": "lon",
	"lng":       "lon",
	"long":      "lon",

	// availability aliases
	"is_available": "available",
	"availability": "available",

	// last donation aliases
	"last_donation":      "last_donation_date",
	"last_donated":       "last_donation_date",
	"lastdonationdate":   "last_donation_date",
	"last donation date": "last_donation_date",

	// units aliases
	"unitsneeded":    "units_needed",
	"units needed":   "units_needed",
	"units_required": "units_needed",
	"unitsavailable": "units_available",
	"stock":          "units_available",
}

// tableAliases resolves names whose meaning depends on the table.
var tableAliases = map[TableKind]map[string]string{
	TableRecipients: {"units": "units_needed"},
	TableInventory:  {"units": "units_available"},
}

// CSVParser handles parsing of donor, recipient and inventory tables.
type CSVParser struct {
	columnMapping map[string]int
}

// NewCSVParser creates a new CSV parser instance.
func NewCSVParser() *CSVParser {
	return &CSVParser{
		columnMapping: make(map[string]int),
	}
}

// ReadRecords splits CSV content into header and data records.
func ReadRecords(content string) ([][]string, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyCSV
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1 // Allow variable number of fields

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, ErrEmptyCSV
	}
	return records, nil
}

// ParseDonors parses CSV content into donors.
func (p *CSVParser) ParseDonors(content string) ([]models.Donor, []error) {
	records, err := ReadRecords(content)
	if err != nil {
		return nil, []error{err}
	}
	return p.ParseDonorRecords(records)
}

// ParseRecipients parses CSV content into recipients.
func (p *CSVParser) ParseRecipients(content string) ([]models.Recipient, []error) {
	records, err := ReadRecords(content)
	if err != nil {
		return nil, []error{err}
	}
	return p.ParseRecipientRecords(records)
}

// ParseInventory parses CSV content into inventory rows.
func (p *CSVParser) ParseInventory(content string) ([]models.InventoryEntry, []error) {
	records, err := ReadRecords(content)
	if err != nil {
		return nil, []error{err}
	}
	return p.ParseInventoryRecords(records)
}

// ParseDonorRecords parses a header row plus data rows into donors.
func (p *CSVParser) ParseDonorRecords(records [][]string) ([]models.Donor, []error) {
	var donors []models.Donor
	seen := make(map[int64]bool)

	errs := p.eachRow(TableDonors, records, func(get rowGetter) error {
		d, err := parseDonor(get)
		if err != nil {
			return err
		}
		if err := models.ValidateDonor(d); err != nil {
			return err
		}
		if seen[d.ID] {
			return fmt.Errorf("%w: %d", models.ErrDuplicateDonorID, d.ID)
		}
		seen[d.ID] = true
		donors = append(donors, *d)
		return nil
	})

	if len(donors) == 0 && len(errs) > 0 {
		return nil, append([]error{ErrNoDataRows}, errs...)
	}
	return donors, errs
}

// ParseRecipientRecords parses a header row plus data rows into recipients.
func (p *CSVParser) ParseRecipientRecords(records [][]string) ([]models.Recipient, []error) {
	var recipients []models.Recipient
	seen := make(map[int64]bool)

	errs := p.eachRow(TableRecipients, records, func(get rowGetter) error {
		r, err := parseRecipient(get)
		if err != nil {
			return err
		}
		if err := models.ValidateRecipient(r); err != nil {
			return err
		}
		if seen[r.ID] {
			return fmt.Errorf("%w: %d", models.ErrDuplicateRecipient, r.ID)
		}
		seen[r.ID] = true
		recipients = append(recipients, *r)
		return nil
	})

	if len(recipients) == 0 && len(errs) > 0 {
		return nil, append([]error{ErrNoDataRows}, errs...)
	}
	return recipients, errs
}

// ParseInventoryRecords parses a header row plus data rows into inventory
// entries. Duplicate groups are kept in order; lookups use the first.
func (p *CSVParser) ParseInventoryRecords(records [][]string) ([]models.InventoryEntry, []error) {
	var inventory []models.InventoryEntry

	errs := p.eachRow(TableInventory, records, func(get rowGetter) error {
		e, err := parseInventoryEntry(get)
		if err != nil {
			return err
		}
		if err := models.ValidateInventoryEntry(e); err != nil {
			return err
		}
		inventory = append(inventory, *e)
		return nil
	})

	if len(inventory) == 0 && len(errs) > 0 {
		return nil, append([]error{ErrNoDataRows}, errs...)
	}
	return inventory, errs
}

// rowGetter returns the trimmed cell for a standard column name. Missing
// optional columns come back as "" with ok=false.
type rowGetter func(column string) (value string, ok bool)

// eachRow maps the header and calls fn for every data row, collecting
// per-line errors.
func (p *CSVParser) eachRow(kind TableKind, records [][]string, fn func(get rowGetter) error) []error {
	if len(records) == 0 {
		return []error{ErrEmptyCSV}
	}

	if err := p.buildColumnMapping(kind, records[0]); err != nil {
		return []error{err}
	}

	var parseErrors []error
	for i, record := range records[1:] {
		lineNum := i + 2 // Header is line 1

		if isBlankRecord(record) {
			continue
		}

		get := func(column string) (string, bool) {
			idx, ok := p.columnMapping[column]
			if !ok || idx >= len(record) {
				return "", false
			}
			return strings.TrimSpace(record[idx]), true
		}

		if err := fn(get); err != nil {
			parseErrors = append(parseErrors, fmt.Errorf("line %d: %w", lineNum, err))
		}
	}

	return parseErrors
}

// buildColumnMapping creates a mapping of standard column names to their indices.
func (p *CSVParser) buildColumnMapping(kind TableKind, header []string) error {
	required, ok := RequiredColumns[kind]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, kind)
	}

	p.columnMapping = make(map[string]int)
	for i, col := range header {
		normalized := normalizeColumn(kind, col)
		if _, dup := p.columnMapping[normalized]; !dup {
			p.columnMapping[normalized] = i
		}
	}

	var missing []string
	for _, column := range required {
		if _, ok := p.columnMapping[column]; !ok {
			missing = append(missing, column)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}

	return nil
}

func normalizeColumn(kind TableKind, col string) string {
	normalized := strings.ToLower(strings.TrimSpace(col))
	normalized = strings.TrimPrefix(normalized, "\ufeff")
	if alias, ok := tableAliases[kind][normalized]; ok {
		return alias
	}
	if alias, ok := ColumnAliases[normalized]; ok {
		return alias
	}
	return normalized
}

func parseDonor(get rowGetter) (*models.Donor, error) {
	id, bt, rh, loc, err := parseCommon(get)
	if err != nil {
		return nil, err
	}

	name, _ := get("name")
	available, _ := get("available")

	rawDate, _ := get("last_donation_date")
	lastDonation, valid := models.ParseDonationDate(rawDate)
	if !valid && rawDate != "" {
		GetLogger().Debug("Unparseable last donation date, treating donor as never donated",
			zap.Int64("donor_id", id),
			zap.String("value", rawDate),
		)
	}

	return &models.Donor{
		ID:           id,
		Name:         name,
		BloodType:    bt,
		Rh:           rh,
		Location:     loc,
		Available:    models.ParseAvailability(available),
		LastDonation: lastDonation,
	}, nil
}

func parseRecipient(get rowGetter) (*models.Recipient, error) {
	id, bt, rh, loc, err := parseCommon(get)
	if err != nil {
		return nil, err
	}

	unitsStr, _ := get("units_needed")
	units, err := parseInt(unitsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid units_needed: %w", err)
	}

	name, _ := get("name")

	return &models.Recipient{
		ID:          id,
		Name:        name,
		BloodType:   bt,
		Rh:          rh,
		Location:    loc,
		UnitsNeeded: units,
	}, nil
}

func parseInventoryEntry(get rowGetter) (*models.InventoryEntry, error) {
	bt, rh, err := parseGroup(get)
	if err != nil {
		return nil, err
	}

	unitsStr, _ := get("units_available")
	units, err := parseInt(unitsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid units_available: %w", err)
	}

	return &models.InventoryEntry{
		BloodType:      bt,
		Rh:             rh,
		UnitsAvailable: units,
	}, nil
}

func parseCommon(get rowGetter) (int64, models.BloodType, models.RhFactor, models.GeoPoint, error) {
	idStr, _ := get("id")
	id, err := parseInt(idStr)
	if err != nil {
		return 0, "", "", models.GeoPoint{}, fmt.Errorf("invalid id: %w", err)
	}

	bt, rh, err := parseGroup(get)
	if err != nil {
		return 0, "", "", models.GeoPoint{}, err
	}

	latStr, _ := get("lat")
	lat, err := parseFloat(latStr)
	if err != nil {
		return 0, "", "", models.GeoPoint{}, fmt.Errorf("invalid lat: %w", err)
	}

	lonStr, _ := get("lon")
	lon, err := parseFloat(lonStr)
	if err != nil {
		return 0, "", "", models.GeoPoint{}, fmt.Errorf("invalid lon: %w", err)
	}

	return int64(id), bt, rh, models.GeoPoint{Lat: lat, Lon: lon}, nil
}

func parseGroup(get rowGetter) (models.BloodType, models.RhFactor, error) {
	btStr, _ := get("blood_type")
	rhStr, _ := get("rh")

	bt, err := models.ParseBloodType(btStr)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", err, btStr)
	}
	rh, err := models.ParseRhFactor(rhStr)
	if err != nil {
		return "", "", fmt.Errorf("%w: %q", err, rhStr)
	}
	return bt, rh, nil
}

func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// parseFloat parses a string to float64, accepting a comma decimal separator.
func parseFloat(s string) (float64, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))

	return strconv.ParseFloat(s, 64)
}

// parseInt parses a string to int, handling common formats.
func parseInt(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}

	s = strings.TrimSpace(s)

	// Handle float strings (e.g., "3.0")
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, err
		}
		if f != math.Trunc(f) {
			return 0, fmt.Errorf("%q is not a whole number", s)
		}
		return int(f), nil
	}

	return strconv.Atoi(s)
}

// ValidateCSVStructure performs a quick validation of CSV structure without full parsing.
func ValidateCSVStructure(content string, kind TableKind) (*CSVValidationResult, error) {
	required, ok := RequiredColumns[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTable, kind)
	}

	result := &CSVValidationResult{
		Table:          string(kind),
		Columns:        []string{},
		MissingColumns: []string{},
		Errors:         []string{},
	}

	if strings.TrimSpace(content) == "" {
		result.Errors = append(result.Errors, "empty file")
		return result, nil
	}

	reader := csv.NewReader(strings.NewReader(content))
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to read header: %v", err))
		return result, nil
	}

	normalizedColumns := make(map[string]bool)
	for _, col := range header {
		normalizedColumns[normalizeColumn(kind, col)] = true
		result.Columns = append(result.Columns, col)
	}

	for _, column := range required {
		if !normalizedColumns[column] {
			result.MissingColumns = append(result.MissingColumns, column)
		}
	}

	for {
		_, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("row error: %v", err))
			continue
		}
		result.RowCount++
	}

	result.Valid = len(result.MissingColumns) == 0 && result.RowCount > 0

	return result, nil
}

// CSVValidationResult contains the results of CSV validation.
type CSVValidationResult struct {
	Table          string   `json:"table"`
	Valid          bool     `json:"valid"`
	RowCount       int      `json:"row_count"`
	Columns        []string `json:"columns"`
	MissingColumns []string `json:"missing_columns"`
	Errors         []string `json:"errors"`
}
