package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// BookedSlotRepository manages the booked-slot ledger.
type BookedSlotRepository struct {
	db *sqlx.DB
}

// NewBookedSlotRepository builds repository.
func NewBookedSlotRepository(db *sqlx.DB) *BookedSlotRepository {
	return &BookedSlotRepository{db: db}
}

const insertBookedSlot = `INSERT INTO booked_slots (id, slot_id, slot_for, date, enquiry_id, created_at)
VALUES (:id, :slot_id, :slot_for, :date, :enquiry_id, :created_at)`

func prepareBooking(slot *models.BookedSlot) {
	if slot.ID == "" {
		slot.ID = uuid.NewString()
	}
	if slot.CreatedAt.IsZero() {
		slot.CreatedAt = time.Now().UTC()
	}
}

// Create inserts a booking row. No exclusivity check is made here.
func (r *BookedSlotRepository) Create(ctx context.Context, slot *models.BookedSlot) error {
	prepareBooking(slot)
	if _, err := r.db.NamedExecContext(ctx, insertBookedSlot, slot); err != nil {
		return fmt.Errorf("insert booked slot: %w", err)
	}
	return nil
}

// Rebook inserts the replacement booking and deletes the old one in a single
// transaction, so a failure leaves the original booking in place.
func (r *BookedSlotRepository) Rebook(ctx context.Context, oldID string, slot *models.BookedSlot) (err error) {
	prepareBooking(slot)

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin rebook transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.NamedExecContext(ctx, insertBookedSlot, slot); err != nil {
		return fmt.Errorf("insert replacement booked slot: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM booked_slots WHERE id = $1`, oldID); err != nil {
		return fmt.Errorf("delete superseded booked slot: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit rebook: %w", err)
	}
	return nil
}

// Delete removes a booking. Deleting a missing id is a no-op.
func (r *BookedSlotRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM booked_slots WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete booked slot: %w", err)
	}
	return nil
}

// GetDetail loads a booking joined with its catalog entry. Missing rows surface
// as sql.ErrNoRows.
func (r *BookedSlotRepository) GetDetail(ctx context.Context, id string) (*models.BookedSlotDetail, error) {
	const query = `SELECT bs.id, bs.slot_id, bs.slot_for, bs.date, bs.enquiry_id, bs.created_at,
       sm.slot, sm.day, sm.school_id
FROM booked_slots bs
JOIN slot_masters sm ON sm.id = bs.slot_id
WHERE bs.id = $1`
	var detail models.BookedSlotDetail
	if err := r.db.GetContext(ctx, &detail, query, id); err != nil {
		return nil, err
	}
	return &detail, nil
}

// CountBySlotTime aggregates bookings per slot label across the school pool.
func (r *BookedSlotRepository) CountBySlotTime(ctx context.Context, filter models.SlotCountFilter) (map[string]int, error) {
	const query = `SELECT sm.slot AS slot, COUNT(bs.id) AS booked
FROM booked_slots bs
JOIN slot_masters sm ON sm.id = bs.slot_id
WHERE sm.school_id = ANY($1)
  AND sm.day = $2
  AND bs.slot_for = $3
  AND bs.date = $4
  AND NOT (bs.slot_id = ANY($5))
GROUP BY sm.slot`
	exclude := filter.ExcludeSlotIDs
	if exclude == nil {
		exclude = []string{}
	}
	var rows []struct {
		Slot   string `db:"slot"`
		Booked int    `db:"booked"`
	}
	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(filter.SchoolIDs), filter.Day, filter.Purpose, filter.Date, pq.Array(exclude)); err != nil {
		return nil, fmt.Errorf("count booked slots: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Slot] = row.Booked
	}
	return counts, nil
}

// ListSlotIDsForDate returns catalog ids booked on date for a school and purpose.
func (r *BookedSlotRepository) ListSlotIDsForDate(ctx context.Context, schoolID string, purpose models.SlotPurpose, date time.Time) ([]string, error) {
	const query = `SELECT DISTINCT bs.slot_id
FROM booked_slots bs
JOIN slot_masters sm ON sm.id = bs.slot_id
WHERE sm.school_id = $1 AND bs.slot_for = $2 AND bs.date = $3`
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, schoolID, purpose, date); err != nil {
		return nil, fmt.Errorf("list booked slot ids: %w", err)
	}
	return ids, nil
}
