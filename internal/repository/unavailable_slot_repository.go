package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// UnavailableSlotRepository stores per-date slot blocks.
type UnavailableSlotRepository struct {
	db *sqlx.DB
}

// NewUnavailableSlotRepository builds repository.
func NewUnavailableSlotRepository(db *sqlx.DB) *UnavailableSlotRepository {
	return &UnavailableSlotRepository{db: db}
}

// ListBySchoolAndDate returns blocks for a school on date, with the slot label joined in.
func (r *UnavailableSlotRepository) ListBySchoolAndDate(ctx context.Context, schoolID string, date time.Time) ([]models.UnavailableSlot, error) {
	const query = `SELECT us.id, us.slot_id, us.school_id, us.date, us.unavailability_of, sm.slot, us.created_by, us.created_at
FROM unavailable_slots us
JOIN slot_masters sm ON sm.id = us.slot_id
WHERE us.school_id = $1 AND us.date = $2`
	var rows []models.UnavailableSlot
	if err := r.db.SelectContext(ctx, &rows, query, schoolID, date); err != nil {
		return nil, fmt.Errorf("list unavailable slots: %w", err)
	}
	return rows, nil
}

// CreateBatch inserts blocks in one transaction. Rows that already exist are skipped.
func (r *UnavailableSlotRepository) CreateBatch(ctx context.Context, rows []models.UnavailableSlot) (inserted int, err error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin unavailable slot transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO unavailable_slots (id, slot_id, school_id, date, unavailability_of, created_by, created_at)
VALUES (:id, :slot_id, :school_id, :date, :unavailability_of, :created_by, :created_at)
ON CONFLICT (slot_id, date, unavailability_of) DO NOTHING`
	now := time.Now().UTC()
	for i := range rows {
		if rows[i].ID == "" {
			rows[i].ID = uuid.NewString()
		}
		if rows[i].CreatedAt.IsZero() {
			rows[i].CreatedAt = now
		}
		res, execErr := tx.NamedExecContext(ctx, query, rows[i])
		if execErr != nil {
			err = fmt.Errorf("insert unavailable slot: %w", execErr)
			return 0, err
		}
		if affected, affErr := res.RowsAffected(); affErr == nil {
			inserted += int(affected)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit unavailable slots: %w", err)
	}
	return inserted, nil
}
