package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"blood-bank-matcher/internal/models"
)

// InventoryRepository handles blood stock operations.
type InventoryRepository struct {
	db *DB
}

// NewInventoryRepository creates a new inventory repository.
func NewInventoryRepository(db *DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

// GetAll returns inventory rows in insertion order, so the first row for a
// group stays the one that counts.
func (r *InventoryRepository) GetAll(ctx context.Context) ([]models.InventoryEntry, error) {
	rows, err := r.db.query(ctx, psql.Select("blood_type", "rh", "units_available").From("inventory").OrderBy("seq"))
	if err != nil {
		return nil, fmt.Errorf("failed to get inventory: %w", err)
	}
	defer rows.Close()

	var inventory []models.InventoryEntry
	for rows.Next() {
		var e models.InventoryEntry
		var bt, rh string

		if err := rows.Scan(&bt, &rh, &e.UnitsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan inventory row: %w", err)
		}

		e.BloodType = models.BloodType(bt)
		e.Rh = models.RhFactor(rh)
		inventory = append(inventory, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating inventory: %w", err)
	}

	return inventory, nil
}

// Replace swaps the whole inventory table for entries in one transaction.
func (r *InventoryRepository) Replace(ctx context.Context, entries []models.InventoryEntry) error {
	return r.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := execBuilt(ctx, tx, psql.Delete("inventory")); err != nil {
			return fmt.Errorf("failed to clear inventory: %w", err)
		}

		if len(entries) == 0 {
			return nil
		}

		stmt := psql.Insert("inventory").Columns("blood_type", "rh", "units_available")
		for _, e := range entries {
			stmt = stmt.Values(string(e.BloodType), string(e.Rh), e.UnitsAvailable)
		}

		if err := execBuilt(ctx, tx, stmt); err != nil {
			return fmt.Errorf("failed to insert inventory: %w", err)
		}
		return nil
	})
}
