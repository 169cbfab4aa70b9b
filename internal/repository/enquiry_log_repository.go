package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// EnquiryLogRepository appends to the enquiry activity trail.
type EnquiryLogRepository struct {
	db *sqlx.DB
}

// NewEnquiryLogRepository builds repository.
func NewEnquiryLogRepository(db *sqlx.DB) *EnquiryLogRepository {
	return &EnquiryLogRepository{db: db}
}

// Create appends an activity entry.
func (r *EnquiryLogRepository) Create(ctx context.Context, entry *models.EnquiryLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if entry.Details == nil {
		entry.Details = models.Details{}
	}
	const query = `INSERT INTO enquiry_logs (id, enquiry_id, event, stage_name, slot, slot_date, details, created_by, created_at)
VALUES (:id, :enquiry_id, :event, :stage_name, :slot, :slot_date, :details, :created_by, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("insert enquiry log: %w", err)
	}
	return nil
}

// LatestByEvents returns the most recent entry matching any event, or nil.
func (r *EnquiryLogRepository) LatestByEvents(ctx context.Context, enquiryID string, events []models.EnquiryEvent) (*models.EnquiryLog, error) {
	names := make([]string, len(events))
	for i, e := range events {
		names[i] = string(e)
	}
	const query = `SELECT id, enquiry_id, event, stage_name, slot, slot_date, details, created_by, created_at
FROM enquiry_logs
WHERE enquiry_id = $1 AND event = ANY($2)
ORDER BY created_at DESC LIMIT 1`
	var entry models.EnquiryLog
	if err := r.db.GetContext(ctx, &entry, query, enquiryID, pq.Array(names)); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("latest enquiry log: %w", err)
	}
	return &entry, nil
}
