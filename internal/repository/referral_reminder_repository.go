package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// ReferralReminderRepository stores scheduled referrer reminders.
type ReferralReminderRepository struct {
	db *sqlx.DB
}

// NewReferralReminderRepository builds repository.
func NewReferralReminderRepository(db *sqlx.DB) *ReferralReminderRepository {
	return &ReferralReminderRepository{db: db}
}

// CreateBatch inserts reminders atomically.
func (r *ReferralReminderRepository) CreateBatch(ctx context.Context, reminders []models.ReferralReminder) (err error) {
	if len(reminders) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin referral reminder transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	const query = `INSERT INTO referral_reminders (id, enquiry_id, referrer_type, referrer_id, sequence, due_at, sent_at, created_at)
VALUES (:id, :enquiry_id, :referrer_type, :referrer_id, :sequence, :due_at, :sent_at, :created_at)`
	now := time.Now().UTC()
	for i := range reminders {
		if reminders[i].ID == "" {
			reminders[i].ID = uuid.NewString()
		}
		reminders[i].CreatedAt = now
		if _, err = tx.NamedExecContext(ctx, query, reminders[i]); err != nil {
			return fmt.Errorf("insert referral reminder: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit referral reminders: %w", err)
	}
	return nil
}

// ListDue returns unsent reminders due at or before now.
func (r *ReferralReminderRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.ReferralReminder, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT id, enquiry_id, referrer_type, referrer_id, sequence, due_at, sent_at, created_at
FROM referral_reminders
WHERE sent_at IS NULL AND due_at <= $1
ORDER BY due_at ASC LIMIT $2`
	var reminders []models.ReferralReminder
	if err := r.db.SelectContext(ctx, &reminders, query, now, limit); err != nil {
		return nil, fmt.Errorf("list due referral reminders: %w", err)
	}
	return reminders, nil
}

// MarkSent stamps the reminder as delivered. It reports false when another
// worker already claimed it.
func (r *ReferralReminderRepository) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE referral_reminders SET sent_at = $2 WHERE id = $1 AND sent_at IS NULL`, id, at)
	if err != nil {
		return false, fmt.Errorf("mark referral reminder sent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark referral reminder sent: %w", err)
	}
	return affected > 0, nil
}
