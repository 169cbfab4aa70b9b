package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	applogger "github.com/noah-isme/sma-admissions-api/pkg/logger"
)

type competencyTestStore interface {
	GetByEnquiry(ctx context.Context, enquiryID string) (*models.CompetencyTest, error)
	Create(ctx context.Context, test *models.CompetencyTest) error
	Update(ctx context.Context, test *models.CompetencyTest) error
}

type stageMover interface {
	MoveToNextStage(ctx context.Context, enquiryID string, req dto.MoveStageRequest, actor string) (*dto.StageLedgerResponse, error)
}

// CompetencyTestService schedules and records an enquiry's competency test.
type CompetencyTestService struct {
	bookingSupport
	tests competencyTestStore
	mover stageMover
}

// NewCompetencyTestService builds the service.
func NewCompetencyTestService(tests competencyTestStore, mover stageMover, deps BookingDeps) *CompetencyTestService {
	return &CompetencyTestService{bookingSupport: newBookingSupport(deps), tests: tests, mover: mover}
}

func (s *CompetencyTestService) existing(ctx context.Context, enquiryID string) (*models.CompetencyTest, error) {
	test, err := s.tests.GetByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load competency test")
	}
	return test, nil
}

// Schedule books a slot and creates or reuses the enquiry's single test record.
// Scheduling over a live booking releases the previous slot.
func (s *CompetencyTestService) Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.CompetencyTest, error) {
	if err := s.validate(req, "invalid competency test payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	date, err := s.Slots.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := ensureStageOpen(enquiry, models.StageCompetencyTest); err != nil {
		return nil, err
	}
	test, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if test != nil && test.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "competency test already has a result")
	}

	mode := req.Mode
	if mode == "" {
		mode = models.TestModeOffline
	}

	var booking *models.BookedSlotDetail
	if test == nil {
		booking, err = s.Slots.BookSlot(ctx, enquiry.ID, req.SlotID, date, models.SlotPurposeCompetencyTest)
		if err != nil {
			return nil, err
		}
		test = &models.CompetencyTest{
			EnquiryID:    enquiry.ID,
			BookedSlotID: &booking.ID,
			Mode:         mode,
			Status:       models.BookingStatusScheduled,
			CreatedBy:    actor,
		}
		if err := s.tests.Create(ctx, test); err != nil {
			return nil, appErrors.Internal(err, "failed to create competency test")
		}
	} else {
		previous := ""
		if test.Status == models.BookingStatusScheduled && test.BookedSlotID != nil {
			previous = *test.BookedSlotID
		}
		booking, err = s.Slots.ReBookSlot(ctx, enquiry.ID, req.SlotID, previous, date, models.SlotPurposeCompetencyTest)
		if err != nil {
			return nil, err
		}
		test.BookedSlotID = &booking.ID
		test.Mode = mode
		test.Status = models.BookingStatusScheduled
		test.CancelReason = nil
		test.CancelComment = nil
		if err := s.tests.Update(ctx, test); err != nil {
			return nil, appErrors.Internal(err, "failed to update competency test")
		}
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageCompetencyTest, models.StageStatusInProgress, actor); err != nil {
		return nil, err
	}

	label, at := bookingRef(booking)
	s.record(ctx, enquiry.ID, models.EventCompetencyTestScheduled, models.StageCompetencyTest, label, at, models.Details{"mode": mode}, actor)
	s.notify(ctx, "competency-test-scheduled", enquiry, label, at, map[string]interface{}{"mode": mode})
	applogger.For(ctx, s.Logger).Info("competency test scheduled", zap.String("enquiry_id", enquiry.ID), zap.String("booked_slot_id", booking.ID))
	return test, nil
}

// Cancel releases the booked slot and reopens the stage.
func (s *CompetencyTestService) Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.CompetencyTest, error) {
	if err := s.validate(req, "invalid cancel payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	if err := ensureStageOpen(enquiry, models.StageCompetencyTest); err != nil {
		return nil, err
	}
	test, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "competency test not found")
	}
	if test.Status != models.BookingStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a scheduled competency test can be cancelled")
	}

	if test.BookedSlotID != nil {
		if err := s.Slots.ReleaseSlot(ctx, *test.BookedSlotID); err != nil {
			return nil, err
		}
	}
	test.BookedSlotID = nil
	test.Status = models.BookingStatusCancelled
	test.CancelReason = optionalString(req.Reason)
	test.CancelComment = optionalString(req.Comment)
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, appErrors.Internal(err, "failed to update competency test")
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageCompetencyTest, models.StageStatusOpen, actor); err != nil {
		return nil, err
	}

	label, at := s.lastBooking(ctx, enquiry.ID, models.EventCompetencyTestScheduled, models.EventCompetencyTestRescheduled)
	s.record(ctx, enquiry.ID, models.EventCompetencyTestCancelled, models.StageCompetencyTest, label, at, models.Details{"reason": req.Reason, "comment": req.Comment}, actor)
	s.notify(ctx, "competency-test-cancelled", enquiry, label, at, map[string]interface{}{"reason": req.Reason})
	return test, nil
}

// Reschedule moves the test to a new slot, replacing any live booking.
func (s *CompetencyTestService) Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.CompetencyTest, error) {
	if err := s.validate(req, "invalid reschedule payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	date, err := s.Slots.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if err := ensureStageOpen(enquiry, models.StageCompetencyTest); err != nil {
		return nil, err
	}
	test, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "competency test not found")
	}
	if test.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "competency test already has a result")
	}

	previous := ""
	if test.BookedSlotID != nil {
		previous = *test.BookedSlotID
	}
	booking, err := s.Slots.ReBookSlot(ctx, enquiry.ID, req.SlotID, previous, date, models.SlotPurposeCompetencyTest)
	if err != nil {
		return nil, err
	}
	test.BookedSlotID = &booking.ID
	test.Status = models.BookingStatusScheduled
	test.CancelReason = nil
	test.CancelComment = nil
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, appErrors.Internal(err, "failed to update competency test")
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageCompetencyTest, models.StageStatusInProgress, actor); err != nil {
		return nil, err
	}

	label, at := bookingRef(booking)
	s.record(ctx, enquiry.ID, models.EventCompetencyTestRescheduled, models.StageCompetencyTest, label, at, nil, actor)
	s.notify(ctx, "competency-test-rescheduled", enquiry, label, at, nil)
	return test, nil
}

// GetDetails returns the test record with its live booking, if any.
func (s *CompetencyTestService) GetDetails(ctx context.Context, enquiryID string) (*dto.CompetencyTestDetails, error) {
	if _, err := s.loadEnquiry(ctx, enquiryID); err != nil {
		return nil, err
	}
	test, err := s.existing(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "competency test not found")
	}
	details := &dto.CompetencyTestDetails{Test: test}
	if test.BookedSlotID != nil {
		slot, err := s.Slots.GetBookedSlot(ctx, *test.BookedSlotID)
		if err != nil {
			return nil, err
		}
		details.Slot = slot
	}
	return details, nil
}

// RecordResult stores the outcome. A pass advances the pipeline; a fail closes
// the stage as Failed.
func (s *CompetencyTestService) RecordResult(ctx context.Context, enquiryID string, req dto.TestResultRequest, actor string) (*models.CompetencyTest, error) {
	if err := s.validate(req, "invalid result payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	test, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if test == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "competency test not found")
	}
	if test.Status != models.BookingStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a scheduled competency test can receive a result")
	}

	result := req.Result
	test.Result = &result
	test.Status = models.BookingStatusCompleted
	if err := s.tests.Update(ctx, test); err != nil {
		return nil, appErrors.Internal(err, "failed to update competency test")
	}

	if result == models.TestResultPassed {
		if _, err := s.mover.MoveToNextStage(ctx, enquiry.ID, dto.MoveStageRequest{CurrentStage: models.StageCompetencyTest}, actor); err != nil {
			return nil, err
		}
	} else if err := s.setStage(ctx, enquiry.ID, models.StageCompetencyTest, models.StageStatusFailed, actor); err != nil {
		return nil, err
	}

	s.record(ctx, enquiry.ID, models.EventCompetencyTestResult, models.StageCompetencyTest, nil, nil, models.Details{"result": result}, actor)
	s.notify(ctx, "competency-test-result", enquiry, nil, nil, map[string]interface{}{"result": result})
	return test, nil
}

// GetAvailableSlots lists competency test slots.
func (s *CompetencyTestService) GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error) {
	query.Purpose = models.SlotPurposeCompetencyTest
	return s.Slots.GetAvailableSlots(ctx, query)
}

// AddUnavailableSlots blocks competency test slots.
func (s *CompetencyTestService) AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error) {
	req.Purpose = models.SlotPurposeCompetencyTest
	return s.Slots.AddUnavailableSlots(ctx, req, actor)
}
