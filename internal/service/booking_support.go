package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/integration"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	applogger "github.com/noah-isme/sma-admissions-api/pkg/logger"
)

type slotBooker interface {
	ParseDate(raw string) (time.Time, error)
	BookSlot(ctx context.Context, enquiryID, slotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error)
	ReBookSlot(ctx context.Context, enquiryID, newSlotID, oldBookedSlotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error)
	ReleaseSlot(ctx context.Context, bookedSlotID string) error
	GetBookedSlot(ctx context.Context, bookedSlotID string) (*models.BookedSlotDetail, error)
	GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error)
	AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error)
}

type stageStatusSetter interface {
	SetStageStatus(ctx context.Context, enquiryID string, req dto.SetStageStatusRequest, actor string) (*dto.StageLedgerResponse, error)
}

type activityLog interface {
	Create(ctx context.Context, entry *models.EnquiryLog) error
	LatestByEvents(ctx context.Context, enquiryID string, events []models.EnquiryEvent) (*models.EnquiryLog, error)
}

// BookingDeps collects what the competency test and school visit services share.
type BookingDeps struct {
	Enquiries enquiryReader
	Slots     slotBooker
	Stages    stageStatusSetter
	Logs      activityLog
	Notifier  notificationDispatcher
	Metrics   *MetricsService
	Validator *validator.Validate
	Logger    *zap.Logger
}

// bookingSupport holds the record-keeping shared by slot-backed subjects.
type bookingSupport struct {
	BookingDeps
}

func newBookingSupport(deps BookingDeps) bookingSupport {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return bookingSupport{BookingDeps: deps}
}

func (b bookingSupport) validate(payload interface{}, message string) error {
	if err := b.Validator.Struct(payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	}
	return nil
}

func (b bookingSupport) loadEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	enquiry, err := b.Enquiries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEnquiryNotFound
		}
		return nil, appErrors.Internal(err, "failed to load enquiry")
	}
	return enquiry, nil
}

// ensureStageOpen fails when the subject's stage is missing or already closed.
// Callers check it before touching slots or records.
func ensureStageOpen(enquiry *models.Enquiry, stage models.StageName) error {
	idx := enquiry.Stages.IndexOf(stage)
	if idx < 0 {
		return appErrors.Clone(appErrors.ErrStageNotFound, fmt.Sprintf("stage %q not found in enquiry", stage))
	}
	if status := enquiry.Stages[idx].Status; status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage %q is already %s", stage, status))
	}
	return nil
}

func (b bookingSupport) setStage(ctx context.Context, enquiryID string, stage models.StageName, status models.StageStatus, actor string) error {
	_, err := b.Stages.SetStageStatus(ctx, enquiryID, dto.SetStageStatusRequest{StageName: stage, Status: status}, actor)
	return err
}

// record appends an activity entry; failures are logged only.
func (b bookingSupport) record(ctx context.Context, enquiryID string, event models.EnquiryEvent, stage models.StageName, label *string, date *time.Time, details models.Details, actor string) {
	entry := &models.EnquiryLog{
		EnquiryID: enquiryID,
		Event:     event,
		StageName: &stage,
		Slot:      label,
		SlotDate:  date,
		Details:   details,
		CreatedBy: actor,
	}
	bestEffort(applogger.For(ctx, b.Logger), b.Metrics, "write_enquiry_log", b.Logs.Create(ctx, entry), zap.String("enquiry_id", enquiryID))
}

// lastBooking returns the slot label and date of the most recent scheduling
// entry; cancelled records no longer reference a booking.
func (b bookingSupport) lastBooking(ctx context.Context, enquiryID string, events ...models.EnquiryEvent) (*string, *time.Time) {
	entry, err := b.Logs.LatestByEvents(ctx, enquiryID, events)
	if !bestEffort(applogger.For(ctx, b.Logger), b.Metrics, "read_enquiry_log", err, zap.String("enquiry_id", enquiryID)) || entry == nil {
		return nil, nil
	}
	return entry.Slot, entry.SlotDate
}

// notify dispatches a booking notification; failures never reach the caller.
func (b bookingSupport) notify(ctx context.Context, slug string, enquiry *models.Enquiry, label *string, date *time.Time, extra map[string]interface{}) {
	if b.Notifier == nil {
		return
	}
	params := map[string]interface{}{
		"student_name":   enquiry.StudentName(),
		"parent_name":    enquiry.ParentName,
		"enquiry_number": enquiry.EnquiryNumber,
	}
	if label != nil {
		params["slot"] = *label
	}
	if date != nil {
		params["date"] = date.Format(clock.DateLayout)
	}
	for k, v := range extra {
		params[k] = v
	}
	err := b.Notifier.Dispatch(ctx, integration.Notification{
		Slug:       slug,
		EnquiryID:  enquiry.ID,
		Recipients: recipientsOf(enquiry),
		Params:     params,
	})
	bestEffort(applogger.For(ctx, b.Logger), b.Metrics, "dispatch_notification", err, zap.String("slug", slug), zap.String("enquiry_id", enquiry.ID))
}

func bookingRef(detail *models.BookedSlotDetail) (*string, *time.Time) {
	if detail == nil {
		return nil, nil
	}
	label := detail.Slot
	date := detail.Date
	return &label, &date
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
