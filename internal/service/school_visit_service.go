package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	applogger "github.com/noah-isme/sma-admissions-api/pkg/logger"
)

type schoolVisitStore interface {
	GetByEnquiry(ctx context.Context, enquiryID string) (*models.SchoolVisit, error)
	Create(ctx context.Context, visit *models.SchoolVisit) error
	Update(ctx context.Context, visit *models.SchoolVisit) error
}

// SchoolVisitService schedules and closes an enquiry's school visit.
type SchoolVisitService struct {
	bookingSupport
	visits schoolVisitStore
}

// NewSchoolVisitService builds the service.
func NewSchoolVisitService(visits schoolVisitStore, deps BookingDeps) *SchoolVisitService {
	return &SchoolVisitService{bookingSupport: newBookingSupport(deps), visits: visits}
}

func (s *SchoolVisitService) existing(ctx context.Context, enquiryID string) (*models.SchoolVisit, error) {
	visit, err := s.visits.GetByEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load school visit")
	}
	return visit, nil
}

func (s *SchoolVisitService) save(ctx context.Context, visit *models.SchoolVisit) error {
	if err := s.visits.Update(ctx, visit); err != nil {
		return appErrors.Internal(err, "failed to update school visit")
	}
	return nil
}

// Schedule books a visit slot, reusing the enquiry's visit record when present.
func (s *SchoolVisitService) Schedule(ctx context.Context, enquiryID string, req dto.ScheduleRequest, actor string) (*models.SchoolVisit, error) {
	if err := s.validate(req, "invalid school visit payload"); err != nil {
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
	if err := ensureStageOpen(enquiry, models.StageSchoolVisit); err != nil {
		return nil, err
	}
	visit, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if visit != nil && visit.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "school visit already completed")
	}

	var booking *models.BookedSlotDetail
	if visit == nil {
		booking, err = s.Slots.BookSlot(ctx, enquiry.ID, req.SlotID, date, models.SlotPurposeSchoolVisit)
		if err != nil {
			return nil, err
		}
		visit = &models.SchoolVisit{
			EnquiryID:    enquiry.ID,
			BookedSlotID: &booking.ID,
			Status:       models.BookingStatusScheduled,
			CreatedBy:    actor,
		}
		if err := s.visits.Create(ctx, visit); err != nil {
			return nil, appErrors.Internal(err, "failed to create school visit")
		}
	} else {
		previous := ""
		if visit.Status == models.BookingStatusScheduled && visit.BookedSlotID != nil {
			previous = *visit.BookedSlotID
		}
		booking, err = s.Slots.ReBookSlot(ctx, enquiry.ID, req.SlotID, previous, date, models.SlotPurposeSchoolVisit)
		if err != nil {
			return nil, err
		}
		visit.BookedSlotID = &booking.ID
		visit.Status = models.BookingStatusScheduled
		visit.CancelReason = nil
		visit.CancelComment = nil
		if err := s.save(ctx, visit); err != nil {
			return nil, err
		}
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageSchoolVisit, models.StageStatusInProgress, actor); err != nil {
		return nil, err
	}

	label, at := bookingRef(booking)
	s.record(ctx, enquiry.ID, models.EventSchoolVisitScheduled, models.StageSchoolVisit, label, at, nil, actor)
	s.notify(ctx, "school-visit-scheduled", enquiry, label, at, nil)
	applogger.For(ctx, s.Logger).Info("school visit scheduled", zap.String("enquiry_id", enquiry.ID), zap.String("booked_slot_id", booking.ID))
	return visit, nil
}

// Cancel releases the visit slot and reopens the stage.
func (s *SchoolVisitService) Cancel(ctx context.Context, enquiryID string, req dto.CancelRequest, actor string) (*models.SchoolVisit, error) {
	if err := s.validate(req, "invalid cancel payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	if err := ensureStageOpen(enquiry, models.StageSchoolVisit); err != nil {
		return nil, err
	}
	visit, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school visit not found")
	}
	if visit.Status != models.BookingStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a scheduled school visit can be cancelled")
	}

	if visit.BookedSlotID != nil {
		if err := s.Slots.ReleaseSlot(ctx, *visit.BookedSlotID); err != nil {
			return nil, err
		}
	}
	visit.BookedSlotID = nil
	visit.Status = models.BookingStatusCancelled
	visit.CancelReason = optionalString(req.Reason)
	visit.CancelComment = optionalString(req.Comment)
	if err := s.save(ctx, visit); err != nil {
		return nil, err
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageSchoolVisit, models.StageStatusOpen, actor); err != nil {
		return nil, err
	}

	label, at := s.lastBooking(ctx, enquiry.ID, models.EventSchoolVisitScheduled, models.EventSchoolVisitRescheduled)
	s.record(ctx, enquiry.ID, models.EventSchoolVisitCancelled, models.StageSchoolVisit, label, at, models.Details{"reason": req.Reason, "comment": req.Comment}, actor)
	s.notify(ctx, "school-visit-cancelled", enquiry, label, at, map[string]interface{}{"reason": req.Reason})
	return visit, nil
}

// Reschedule moves the visit to another slot.
func (s *SchoolVisitService) Reschedule(ctx context.Context, enquiryID string, req dto.RescheduleRequest, actor string) (*models.SchoolVisit, error) {
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
	if err := ensureStageOpen(enquiry, models.StageSchoolVisit); err != nil {
		return nil, err
	}
	visit, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school visit not found")
	}
	if visit.Status == models.BookingStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrConflict, "school visit already completed")
	}

	previous := ""
	if visit.BookedSlotID != nil {
		previous = *visit.BookedSlotID
	}
	booking, err := s.Slots.ReBookSlot(ctx, enquiry.ID, req.SlotID, previous, date, models.SlotPurposeSchoolVisit)
	if err != nil {
		return nil, err
	}
	visit.BookedSlotID = &booking.ID
	visit.Status = models.BookingStatusScheduled
	visit.CancelReason = nil
	visit.CancelComment = nil
	if err := s.save(ctx, visit); err != nil {
		return nil, err
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageSchoolVisit, models.StageStatusInProgress, actor); err != nil {
		return nil, err
	}

	label, at := bookingRef(booking)
	s.record(ctx, enquiry.ID, models.EventSchoolVisitRescheduled, models.StageSchoolVisit, label, at, nil, actor)
	s.notify(ctx, "school-visit-rescheduled", enquiry, label, at, nil)
	return visit, nil
}

// Complete closes a scheduled visit, frees its slot and marks the stage Completed.
func (s *SchoolVisitService) Complete(ctx context.Context, enquiryID string, req dto.CompleteVisitRequest, actor string) (*models.SchoolVisit, error) {
	if err := s.validate(req, "invalid school visit completion payload"); err != nil {
		return nil, err
	}
	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	visit, err := s.existing(ctx, enquiry.ID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school visit not found")
	}
	if visit.Status != models.BookingStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "only a scheduled school visit can be completed")
	}

	var label *string
	var at *time.Time
	if visit.BookedSlotID != nil {
		detail, err := s.Slots.GetBookedSlot(ctx, *visit.BookedSlotID)
		if err != nil {
			return nil, err
		}
		label, at = bookingRef(detail)
		if err := s.Slots.ReleaseSlot(ctx, *visit.BookedSlotID); err != nil {
			return nil, err
		}
	}
	visit.BookedSlotID = nil
	visit.Status = models.BookingStatusCompleted
	visit.Activities = models.StringList(req.Activities)
	visit.Comment = optionalString(req.Comment)
	if err := s.save(ctx, visit); err != nil {
		return nil, err
	}

	if err := s.setStage(ctx, enquiry.ID, models.StageSchoolVisit, models.StageStatusCompleted, actor); err != nil {
		return nil, err
	}

	s.record(ctx, enquiry.ID, models.EventSchoolVisitCompleted, models.StageSchoolVisit, label, at, models.Details{"activities": req.Activities}, actor)
	s.notify(ctx, "school-visit-completed", enquiry, label, at, nil)
	return visit, nil
}

// GetDetails returns the visit record with its live booking, if any.
func (s *SchoolVisitService) GetDetails(ctx context.Context, enquiryID string) (*dto.SchoolVisitDetails, error) {
	if _, err := s.loadEnquiry(ctx, enquiryID); err != nil {
		return nil, err
	}
	visit, err := s.existing(ctx, enquiryID)
	if err != nil {
		return nil, err
	}
	if visit == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "school visit not found")
	}
	details := &dto.SchoolVisitDetails{Visit: visit}
	if visit.BookedSlotID != nil {
		slot, err := s.Slots.GetBookedSlot(ctx, *visit.BookedSlotID)
		if err != nil {
			return nil, err
		}
		details.Slot = slot
	}
	return details, nil
}

// GetAvailableSlots lists school visit slots.
func (s *SchoolVisitService) GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error) {
	query.Purpose = models.SlotPurposeSchoolVisit
	return s.Slots.GetAvailableSlots(ctx, query)
}

// AddUnavailableSlots blocks school visit slots.
func (s *SchoolVisitService) AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error) {
	req.Purpose = models.SlotPurposeSchoolVisit
	return s.Slots.AddUnavailableSlots(ctx, req, actor)
}
