package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// SchoolVisitRepository persists school visit records.
type SchoolVisitRepository struct {
	db *sqlx.DB
}

// NewSchoolVisitRepository builds repository.
func NewSchoolVisitRepository(db *sqlx.DB) *SchoolVisitRepository {
	return &SchoolVisitRepository{db: db}
}

// GetByEnquiry returns the enquiry's visit or nil when none exists.
func (r *SchoolVisitRepository) GetByEnquiry(ctx context.Context, enquiryID string) (*models.SchoolVisit, error) {
	const query = `SELECT id, enquiry_id, booked_slot_id, status, activities, comment, cancel_reason, cancel_comment,
       created_by, is_deleted, created_at, updated_at
FROM school_visits WHERE enquiry_id = $1 AND is_deleted = FALSE`
	var visit models.SchoolVisit
	if err := r.db.GetContext(ctx, &visit, query, enquiryID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get school visit: %w", err)
	}
	return &visit, nil
}

// Create inserts a new visit record.
func (r *SchoolVisitRepository) Create(ctx context.Context, visit *models.SchoolVisit) error {
	if visit.ID == "" {
		visit.ID = uuid.NewString()
	}
	if visit.Activities == nil {
		visit.Activities = models.StringList{}
	}
	now := time.Now().UTC()
	visit.CreatedAt = now
	visit.UpdatedAt = now
	const query = `INSERT INTO school_visits (id, enquiry_id, booked_slot_id, status, activities, comment, cancel_reason,
    cancel_comment, created_by, is_deleted, created_at, updated_at)
VALUES (:id, :enquiry_id, :booked_slot_id, :status, :activities, :comment, :cancel_reason,
    :cancel_comment, :created_by, :is_deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, visit); err != nil {
		return fmt.Errorf("insert school visit: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a visit record.
func (r *SchoolVisitRepository) Update(ctx context.Context, visit *models.SchoolVisit) error {
	visit.UpdatedAt = time.Now().UTC()
	if visit.Activities == nil {
		visit.Activities = models.StringList{}
	}
	const query = `UPDATE school_visits SET booked_slot_id = :booked_slot_id, status = :status, activities = :activities,
    comment = :comment, cancel_reason = :cancel_reason, cancel_comment = :cancel_comment, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, visit)
	if err != nil {
		return fmt.Errorf("update school visit: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
