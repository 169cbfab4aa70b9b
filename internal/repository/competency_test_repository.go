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

// CompetencyTestRepository persists competency test records.
type CompetencyTestRepository struct {
	db *sqlx.DB
}

// NewCompetencyTestRepository builds repository.
func NewCompetencyTestRepository(db *sqlx.DB) *CompetencyTestRepository {
	return &CompetencyTestRepository{db: db}
}

// GetByEnquiry returns the enquiry's test record or nil when none exists.
func (r *CompetencyTestRepository) GetByEnquiry(ctx context.Context, enquiryID string) (*models.CompetencyTest, error) {
	const query = `SELECT id, enquiry_id, booked_slot_id, mode, status, result, cancel_reason, cancel_comment,
       created_by, is_deleted, created_at, updated_at
FROM competency_tests WHERE enquiry_id = $1 AND is_deleted = FALSE`
	var test models.CompetencyTest
	if err := r.db.GetContext(ctx, &test, query, enquiryID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get competency test: %w", err)
	}
	return &test, nil
}

// Create inserts a new test record.
func (r *CompetencyTestRepository) Create(ctx context.Context, test *models.CompetencyTest) error {
	if test.ID == "" {
		test.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	test.CreatedAt = now
	test.UpdatedAt = now
	const query = `INSERT INTO competency_tests (id, enquiry_id, booked_slot_id, mode, status, result, cancel_reason,
    cancel_comment, created_by, is_deleted, created_at, updated_at)
VALUES (:id, :enquiry_id, :booked_slot_id, :mode, :status, :result, :cancel_reason,
    :cancel_comment, :created_by, :is_deleted, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, test); err != nil {
		return fmt.Errorf("insert competency test: %w", err)
	}
	return nil
}

// Update overwrites the mutable columns of a test record.
func (r *CompetencyTestRepository) Update(ctx context.Context, test *models.CompetencyTest) error {
	test.UpdatedAt = time.Now().UTC()
	const query = `UPDATE competency_tests SET booked_slot_id = :booked_slot_id, mode = :mode, status = :status,
    result = :result, cancel_reason = :cancel_reason, cancel_comment = :cancel_comment, updated_at = :updated_at
WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, test)
	if err != nil {
		return fmt.Errorf("update competency test: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
