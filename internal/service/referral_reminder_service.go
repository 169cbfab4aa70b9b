package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/integration"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	"github.com/noah-isme/sma-admissions-api/pkg/config"
	"github.com/noah-isme/sma-admissions-api/pkg/jobs"
)

// JobTypeReferralReminder delivers one due referral reminder.
const JobTypeReferralReminder = "referral_reminder"

const (
	referralInitialSlug  = "referral-admission"
	referralReminderSlug = "referral-reminder"
)

var errNoReferralSource = errors.New("enquiry has no referral source")

type reminderStore interface {
	CreateBatch(ctx context.Context, reminders []models.ReferralReminder) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.ReferralReminder, error)
	MarkSent(ctx context.Context, id string, at time.Time) (bool, error)
}

type enquiryReader interface {
	GetByID(ctx context.Context, id string) (*models.Enquiry, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// ReferralReminderService schedules and delivers reminders to the people who
// referred an admitted enquiry.
type ReferralReminderService struct {
	reminders reminderStore
	enquiries enquiryReader
	notifier  notificationDispatcher
	queue     jobEnqueuer
	cfg       config.ReferralConfig
	clock     clock.Clock
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewReferralReminderService builds the service. queue may be set later with UseQueue.
func NewReferralReminderService(reminders reminderStore, enquiries enquiryReader, notifier notificationDispatcher, cfg config.ReferralConfig, clk clock.Clock, metrics *MetricsService, logger *zap.Logger) *ReferralReminderService {
	if cfg.ReminderCount <= 0 {
		cfg.ReminderCount = 3
	}
	if cfg.ReminderInterval <= 0 {
		cfg.ReminderInterval = 72 * time.Hour
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferralReminderService{reminders: reminders, enquiries: enquiries, notifier: notifier, cfg: cfg, clock: clk, metrics: metrics, logger: logger}
}

// UseQueue attaches the worker queue due reminders are handed to.
func (s *ReferralReminderService) UseQueue(queue jobEnqueuer) {
	s.queue = queue
}

// CreateReminderRecords schedules ReminderCount reminders per referral source.
func (s *ReferralReminderService) CreateReminderRecords(ctx context.Context, enquiry *models.Enquiry) ([]models.ReferralReminder, error) {
	sources := enquiry.ReferralSources()
	if len(sources) == 0 {
		return nil, errNoReferralSource
	}
	now := s.clock.Now().UTC()
	var reminders []models.ReferralReminder
	for _, source := range sources {
		for seq := 1; seq <= s.cfg.ReminderCount; seq++ {
			reminders = append(reminders, models.ReferralReminder{
				EnquiryID:    enquiry.ID,
				ReferrerType: source.Type,
				ReferrerID:   source.ID,
				Sequence:     seq,
				DueAt:        now.Add(time.Duration(seq) * s.cfg.ReminderInterval),
			})
		}
	}
	if err := s.reminders.CreateBatch(ctx, reminders); err != nil {
		return nil, fmt.Errorf("create referral reminders: %w", err)
	}
	return reminders, nil
}

// SendInitialNotification tells every referrer that the enquiry was admitted.
func (s *ReferralReminderService) SendInitialNotification(ctx context.Context, enquiry *models.Enquiry) error {
	sources := enquiry.ReferralSources()
	if len(sources) == 0 {
		return errNoReferralSource
	}
	var errs []error
	for _, source := range sources {
		if err := s.notifier.Dispatch(ctx, referralNotification(referralInitialSlug, enquiry, source, 0)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// EnqueueDue hands reminders due at now to the worker queue.
func (s *ReferralReminderService) EnqueueDue(ctx context.Context, now time.Time) error {
	if s.queue == nil {
		return errors.New("referral reminder queue not attached")
	}
	due, err := s.reminders.ListDue(ctx, now.UTC(), 100)
	if err != nil {
		return err
	}
	for _, reminder := range due {
		if err := s.queue.Enqueue(jobs.Job{Type: JobTypeReferralReminder, Payload: reminder}); err != nil {
			return fmt.Errorf("enqueue referral reminder %s: %w", reminder.ID, err)
		}
	}
	return nil
}

// Deliver is the queue handler for JobTypeReferralReminder. A reminder is
// claimed before it is sent so concurrent workers send it at most once.
func (s *ReferralReminderService) Deliver(ctx context.Context, job jobs.Job) error {
	reminder, ok := job.Payload.(models.ReferralReminder)
	if !ok {
		return fmt.Errorf("unexpected referral reminder payload %T", job.Payload)
	}
	claimed, err := s.reminders.MarkSent(ctx, reminder.ID, s.clock.Now().UTC())
	if err != nil {
		return err
	}
	if !claimed {
		return nil
	}

	enquiry, err := s.enquiries.GetByID(ctx, reminder.EnquiryID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	source := models.ReferralSource{Type: reminder.ReferrerType, ID: reminder.ReferrerID}
	if !lo.ContainsBy(enquiry.ReferralSources(), func(rs models.ReferralSource) bool { return rs == source }) {
		s.logger.Info("referral source removed; skipping reminder", zap.String("reminder_id", reminder.ID))
		return nil
	}
	err = s.notifier.Dispatch(ctx, referralNotification(referralReminderSlug, enquiry, source, reminder.Sequence))
	bestEffort(s.logger, s.metrics, "send_referral_reminder", err, zap.String("reminder_id", reminder.ID))
	return nil
}

func referralNotification(slug string, enquiry *models.Enquiry, source models.ReferralSource, sequence int) integration.Notification {
	params := map[string]interface{}{
		"referrer_type":  source.Type,
		"referrer_id":    source.ID,
		"student_name":   enquiry.StudentName(),
		"enquiry_number": enquiry.EnquiryNumber,
		"school_id":      enquiry.SchoolID,
	}
	if sequence > 0 {
		params["sequence"] = sequence
	}
	return integration.Notification{
		Slug:       slug,
		EnquiryID:  enquiry.ID,
		Recipients: []string{source.ID},
		Params:     params,
		Channel:    source.Type,
	}
}
