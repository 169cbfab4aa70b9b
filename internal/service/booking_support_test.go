package service

import (
	"context"
	"time"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
)

type slotBookerStub struct {
	loc       *time.Location
	nextID    int
	booked    []string
	rebooked  []string
	released  []string
	bookErr   error
	details   map[string]*models.BookedSlotDetail
	lastQuery dto.AvailableSlotsQuery
	lastBlock dto.AddUnavailableSlotsRequest
}

func newSlotBookerStub() *slotBookerStub {
	loc, _ := clock.LoadLocation("Asia/Kolkata")
	return &slotBookerStub{loc: loc, details: map[string]*models.BookedSlotDetail{}}
}

func (s *slotBookerStub) ParseDate(raw string) (time.Time, error) {
	return clock.ParseDate(raw, s.loc)
}

func (s *slotBookerStub) detail(enquiryID, slotID string, date time.Time) *models.BookedSlotDetail {
	s.nextID++
	d := &models.BookedSlotDetail{
		BookedSlot: models.BookedSlot{
			ID:        "booked-" + string(rune('0'+s.nextID)),
			SlotID:    slotID,
			EnquiryID: enquiryID,
			Date:      clock.StorageDate(date, s.loc),
		},
		Slot: "10:00 AM",
		Day:  date.Weekday().String(),
	}
	s.details[d.ID] = d
	return d
}

func (s *slotBookerStub) BookSlot(ctx context.Context, enquiryID, slotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	s.booked = append(s.booked, slotID)
	return s.detail(enquiryID, slotID, date), nil
}

func (s *slotBookerStub) ReBookSlot(ctx context.Context, enquiryID, newSlotID, oldBookedSlotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error) {
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	s.rebooked = append(s.rebooked, oldBookedSlotID)
	delete(s.details, oldBookedSlotID)
	return s.detail(enquiryID, newSlotID, date), nil
}

func (s *slotBookerStub) ReleaseSlot(ctx context.Context, bookedSlotID string) error {
	s.released = append(s.released, bookedSlotID)
	delete(s.details, bookedSlotID)
	return nil
}

func (s *slotBookerStub) GetBookedSlot(ctx context.Context, bookedSlotID string) (*models.BookedSlotDetail, error) {
	return s.details[bookedSlotID], nil
}

func (s *slotBookerStub) GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error) {
	s.lastQuery = query
	return []dto.AvailableSlot{}, nil
}

func (s *slotBookerStub) AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error) {
	s.lastBlock = req
	return len(req.SlotIDs), nil
}

type stageSetterStub struct {
	calls []dto.SetStageStatusRequest
	err   error
}

func (s *stageSetterStub) SetStageStatus(ctx context.Context, enquiryID string, req dto.SetStageStatusRequest, actor string) (*dto.StageLedgerResponse, error) {
	s.calls = append(s.calls, req)
	return &dto.StageLedgerResponse{EnquiryID: enquiryID}, s.err
}

func (s *stageSetterStub) last() dto.SetStageStatusRequest {
	return s.calls[len(s.calls)-1]
}

type stageMoverStub struct {
	moved []models.StageName
}

func (s *stageMoverStub) MoveToNextStage(ctx context.Context, enquiryID string, req dto.MoveStageRequest, actor string) (*dto.StageLedgerResponse, error) {
	s.moved = append(s.moved, req.CurrentStage)
	return &dto.StageLedgerResponse{EnquiryID: enquiryID}, nil
}

type bookingFixture struct {
	enquiries *enquiryStoreStub
	slots     *slotBookerStub
	stages    *stageSetterStub
	logs      *logWriterStub
	notifier  *dispatcherStub
	deps      BookingDeps
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		enquiries: newEnquiryStoreStub(newTestEnquiry()),
		slots:     newSlotBookerStub(),
		stages:    &stageSetterStub{},
		logs:      &logWriterStub{},
		notifier:  &dispatcherStub{},
	}
	f.deps = BookingDeps{
		Enquiries: f.enquiries,
		Slots:     f.slots,
		Stages:    f.stages,
		Logs:      f.logs,
		Notifier:  f.notifier,
		Metrics:   NewMetricsService(),
	}
	return f
}

// closeStage marks one stage of the fixture enquiry with a terminal status.
func (f *bookingFixture) closeStage(stage models.StageName, status models.StageStatus) {
	idx := f.enquiries.enquiry.Stages.IndexOf(stage)
	f.enquiries.enquiry.Stages[idx].Status = status
}

func (f *bookingFixture) lastEvent() models.EnquiryEvent {
	return f.logs.entries[len(f.logs.entries)-1].Event
}
