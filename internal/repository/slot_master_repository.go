package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// SlotMasterRepository reads the static slot catalog.
type SlotMasterRepository struct {
	db *sqlx.DB
}

// NewSlotMasterRepository builds repository.
func NewSlotMasterRepository(db *sqlx.DB) *SlotMasterRepository {
	return &SlotMasterRepository{db: db}
}

// ListActive returns active, non-deleted catalog rows for the purpose, weekday and schools.
func (r *SlotMasterRepository) ListActive(ctx context.Context, purpose models.SlotPurpose, day string, schoolIDs []string) ([]models.SlotMaster, error) {
	const query = `SELECT id, slot_for, slot, day, school_id, is_active, is_deleted, created_at
FROM slot_masters
WHERE slot_for = $1 AND day = $2 AND school_id = ANY($3) AND is_active = TRUE AND is_deleted = FALSE
ORDER BY school_id ASC, slot ASC`
	var slots []models.SlotMaster
	if err := r.db.SelectContext(ctx, &slots, query, purpose, day, pq.Array(schoolIDs)); err != nil {
		return nil, fmt.Errorf("list slot masters: %w", err)
	}
	return slots, nil
}

// GetByID loads one catalog row. Missing rows surface as sql.ErrNoRows.
func (r *SlotMasterRepository) GetByID(ctx context.Context, id string) (*models.SlotMaster, error) {
	const query = `SELECT id, slot_for, slot, day, school_id, is_active, is_deleted, created_at
FROM slot_masters WHERE id = $1 AND is_deleted = FALSE`
	var slot models.SlotMaster
	if err := r.db.GetContext(ctx, &slot, query, id); err != nil {
		return nil, err
	}
	return &slot, nil
}
