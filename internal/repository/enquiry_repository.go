package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

const enquiryColumns = `id, enquiry_number, enquiry_type, status, school_id, academic_year_id, grade_id, board_id,
student_first_name, student_last_name, parent_name, parent_email, parent_mobile, enrolment_number,
student_profile_id, assigned_to_id, employee_source_id, parent_source_id, school_source_id, corporate_source_id,
is_registered, registered_at, registration_fee_request_triggered, enquiry_stages, documents, subjects,
other_details, is_deleted, created_at, updated_at`

// EnquiryRepository persists the enquiry aggregate and its stage ledger.
type EnquiryRepository struct {
	db *sqlx.DB
}

// NewEnquiryRepository constructs the repository.
func NewEnquiryRepository(db *sqlx.DB) *EnquiryRepository {
	return &EnquiryRepository{db: db}
}

// GetByID loads a non-deleted enquiry. Missing rows surface as sql.ErrNoRows.
func (r *EnquiryRepository) GetByID(ctx context.Context, id string) (*models.Enquiry, error) {
	query := `SELECT ` + enquiryColumns + ` FROM enquiries WHERE id = $1 AND is_deleted = FALSE`
	var enquiry models.Enquiry
	if err := r.db.GetContext(ctx, &enquiry, query, id); err != nil {
		return nil, err
	}
	return &enquiry, nil
}

// UpdateStages overwrites the stage ledger. Concurrent writers race; the last
// write wins.
func (r *EnquiryRepository) UpdateStages(ctx context.Context, id string, stages models.StageLedger) error {
	const query = `UPDATE enquiries SET enquiry_stages = $2, updated_at = $3 WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "update enquiry stages", query, id, stages, time.Now().UTC())
}

// MarkRegistered flips is_registered and stamps registered_at.
func (r *EnquiryRepository) MarkRegistered(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE enquiries SET is_registered = TRUE, registered_at = $2, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "mark enquiry registered", query, id, at)
}

// MarkRegistrationFeeTriggered records that the registration fee request succeeded.
func (r *EnquiryRepository) MarkRegistrationFeeTriggered(ctx context.Context, id string) error {
	const query = `UPDATE enquiries SET registration_fee_request_triggered = TRUE, updated_at = $2 WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "mark registration fee triggered", query, id, time.Now().UTC())
}

// SetStudentProfile stores the student profile created in the academic directory.
func (r *EnquiryRepository) SetStudentProfile(ctx context.Context, id, profileID string) error {
	const query = `UPDATE enquiries SET student_profile_id = $2, updated_at = $3 WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "set student profile", query, id, profileID, time.Now().UTC())
}

// SetDetailFlag merges a boolean flag into other_details.
func (r *EnquiryRepository) SetDetailFlag(ctx context.Context, id, key string, value bool) error {
	const query = `UPDATE enquiries
SET other_details = COALESCE(other_details, '{}'::jsonb) || jsonb_build_object($2::text, $3::boolean),
    updated_at = $4
WHERE id = $1 AND is_deleted = FALSE`
	return r.execOne(ctx, "set enquiry detail flag", query, id, key, value, time.Now().UTC())
}

// FindPreviousEnrolment returns the latest registered enquiry sharing the
// enrolment number, excluding the given enquiry. It returns nil when none exists.
func (r *EnquiryRepository) FindPreviousEnrolment(ctx context.Context, enrolmentNumber, excludeID string) (*models.Enquiry, error) {
	query := `SELECT ` + enquiryColumns + ` FROM enquiries
WHERE enrolment_number = $1 AND id <> $2 AND is_registered = TRUE AND is_deleted = FALSE
ORDER BY created_at DESC LIMIT 1`
	var enquiry models.Enquiry
	if err := r.db.GetContext(ctx, &enquiry, query, enrolmentNumber, excludeID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("find previous enrolment: %w", err)
	}
	return &enquiry, nil
}

func (r *EnquiryRepository) execOne(ctx context.Context, op, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
