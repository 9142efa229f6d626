package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blood-bank-matcher/internal/models"
)

var recipientColumns = []string{
	"id", "name", "blood_type", "rh", "lat", "lon", "units_needed",
}

// RecipientRepository handles recipient database operations.
type RecipientRepository struct {
	db *DB
}

// NewRecipientRepository creates a new recipient repository.
func NewRecipientRepository(db *DB) *RecipientRepository {
	return &RecipientRepository{db: db}
}

// GetAll returns every recipient ordered by id.
func (r *RecipientRepository) GetAll(ctx context.Context) ([]models.Recipient, error) {
	rows, err := r.db.query(ctx, psql.Select(recipientColumns...).From("recipients").OrderBy("id"))
	if err != nil {
		return nil, fmt.Errorf("failed to get recipients: %w", err)
	}
	defer rows.Close()

	var recipients []models.Recipient
	for rows.Next() {
		var rec models.Recipient
		var bt, rh string

		if err := rows.Scan(
			&rec.ID,
			&rec.Name,
			&bt,
			&rh,
			&rec.Location.Lat,
			&rec.Location.Lon,
			&rec.UnitsNeeded,
		); err != nil {
			return nil, fmt.Errorf("failed to scan recipient: %w", err)
		}

		rec.BloodType = models.BloodType(bt)
		rec.Rh = models.RhFactor(rh)
		recipients = append(recipients, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recipients: %w", err)
	}

	return recipients, nil
}

// BulkUpsert inserts or replaces recipients by id.
func (r *RecipientRepository) BulkUpsert(ctx context.Context, recipients []models.Recipient) (*models.BulkInsertResult, error) {
	result := &models.BulkInsertResult{Errors: []string{}}

	err := r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		for i := range recipients {
			rec := &recipients[i]

			stmt := psql.Insert("recipients").
				Columns(recipientColumns...).
				Values(rec.ID, rec.Name, string(rec.BloodType), string(rec.Rh),
					rec.Location.Lat, rec.Location.Lon, rec.UnitsNeeded).
				Suffix(`ON CONFLICT (id) DO UPDATE SET
					name = EXCLUDED.name,
					blood_type = EXCLUDED.blood_type,
					rh = EXCLUDED.rh,
					lat = EXCLUDED.lat,
					lon = EXCLUDED.lon,
					units_needed = EXCLUDED.units_needed`)

			if err := execSavepoint(ctx, tx, stmt); err != nil {
				result.FailedCount++
				result.Errors = append(result.Errors, fmt.Sprintf("recipient %d: %v", rec.ID, err))
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
