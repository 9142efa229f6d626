package database

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"blood-bank-matcher/internal/models"
)

var donorColumns = []string{
	"id", "name", "blood_type", "rh", "lat", "lon", "available", "last_donation_date",
}

// DonorRepository handles donor database operations.
type DonorRepository struct {
	db *DB
}

// NewDonorRepository creates a new donor repository.
func NewDonorRepository(db *DB) *DonorRepository {
	return &DonorRepository{db: db}
}

// GetAll returns every donor ordered by id. A NULL last donation date
// becomes models.NeverDonated.
func (r *DonorRepository) GetAll(ctx context.Context) ([]models.Donor, error) {
	rows, err := r.db.query(ctx, psql.Select(donorColumns...).From("donors").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get donors: %w", err)
	}
	defer rows.Close()

	var donors []models.Donor
	for rows.Next() {
		var d models.Donor
		var bt, rh string
		var last *time.Time

		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&bt,
			&rh,
			&d.Location.Lat,
			&d.Location.Lon,
			&d.Available,
			&last,
		); err != nil {
			return nil, fmt.Errorf("failed to scan donor: %w", err)
		}

		d.BloodType = models.BloodType(bt)
		d.Rh = models.RhFactor(rh)
		d.LastDonation = models.NeverDonated
		if last != nil {
			d.LastDonation = last.UTC()
		}
		donors = append(donors, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating donors: %w", err)
	}

	return donors, nil
}

// BulkUpsert inserts or replaces donors by id. Rows that fail are counted
// and reported without aborting the rest of the batch.
func (r *DonorRepository) BulkUpsert(ctx context.Context, donors []models.Donor) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for i := range donors {
			d := &donors[i]

			var last interface{}
			if d.HasDonated() {
				last = d.LastDonation
			}

			stmt := psql.Insert("donors").
				Columns(donorColumns...).
				Values(d.ID, d.Name, string(d.BloodType), string(d.Rh),
					d.Location.Lat, d.Location.Lon, d.Available, last).
				Suffix(`ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					blood_type = EXCLUDED.blood_type,
					rh = EXCLUDED.rh,
					lat = EXCLUDED.lat,
					lon = EXCLUDED.lon,
					available = EXCLUDED.available,
					last_donation_date = EXCLUDED.last_donation_date`)

			if err := execSavepoint(ctx, tx, stmt); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("donor %d: %v", d.ID, err))
			} else {
				result.InsertedCount++
			}
		}
		return nil
	})

	if err != nil {
		return result, fmt.Errorf("bulk upsert failed: %w", err)
	}

	return result, nil
}

// execSavepoint runs one statement under a savepoint so a failing row does
// not abort the surrounding transaction.
func execSavepoint(ctx context.Context, tx pgx.Tx, b sq.Sqlizer) error {
	sp, err := tx.Begin(ctx)
	if err != nil {
		return err
	}
	if err := execBuilt(ctx, sp, b); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	return sp.Commit(ctx)
}
