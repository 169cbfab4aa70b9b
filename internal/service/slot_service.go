package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

type slotCatalog interface {
	ListActive(ctx context.Context, purpose models.SlotPurpose, day string, schoolIDs []string) ([]models.SlotMaster, error)
	GetByID(ctx context.Context, id string) (*models.SlotMaster, error)
}

type bookedSlotStore interface {
	Create(ctx context.Context, slot *models.BookedSlot) error
	Rebook(ctx context.Context, oldID string, slot *models.BookedSlot) error
	Delete(ctx context.Context, id string) error
	GetDetail(ctx context.Context, id string) (*models.BookedSlotDetail, error)
	CountBySlotTime(ctx context.Context, filter models.SlotCountFilter) (map[string]int, error)
	ListSlotIDsForDate(ctx context.Context, schoolID string, purpose models.SlotPurpose, date time.Time) ([]string, error)
}

type unavailableSlotStore interface {
	ListBySchoolAndDate(ctx context.Context, schoolID string, date time.Time) ([]models.UnavailableSlot, error)
	CreateBatch(ctx context.Context, rows []models.UnavailableSlot) (int, error)
}

type schoolPoolResolver interface {
	Resolve(ctx context.Context, schoolID string) []string
}

// SlotService computes availability and owns the booked-slot ledger.
type SlotService struct {
	catalog     slotCatalog
	booked      bookedSlotStore
	unavailable unavailableSlotStore
	schools     schoolPoolResolver
	clock       clock.Clock
	loc         *time.Location
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
}

// NewSlotService wires the allocator.
func NewSlotService(
	catalog slotCatalog,
	booked bookedSlotStore,
	unavailable unavailableSlotStore,
	schools schoolPoolResolver,
	clk clock.Clock,
	loc *time.Location,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *SlotService {
	if clk == nil {
		clk = clock.System{}
	}
	if loc == nil {
		loc, _ = clock.LoadLocation("Asia/Kolkata")
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SlotService{
		catalog:     catalog,
		booked:      booked,
		unavailable: unavailable,
		schools:     schools,
		clock:       clk,
		loc:         loc,
		validator:   validate,
		metrics:     metrics,
		logger:      logger,
	}
}

// Location returns the zone slot days are evaluated in.
func (s *SlotService) Location() *time.Location { return s.loc }

// ParseDate parses a wire date into a local calendar day.
func (s *SlotService) ParseDate(raw string) (time.Time, error) {
	date, err := clock.ParseDate(raw, s.loc)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, "date must use YYYY-MM-DD")
	}
	return date, nil
}

// GetAvailableSlots lists offerable slot times for a school, date and purpose,
// sorted chronologically.
func (s *SlotService) GetAvailableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.AvailableSlot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	date, err := s.ParseDate(query.Date)
	if err != nil {
		return nil, err
	}
	day := date.Weekday().String()

	masters, err := s.catalog.ListActive(ctx, query.Purpose, day, []string{query.SchoolID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load slot catalog")
	}
	if len(masters) == 0 {
		return []dto.AvailableSlot{}, nil
	}

	pool := s.schools.Resolve(ctx, query.SchoolID)
	storageDate := clock.StorageDate(date, s.loc)

	blocks, err := s.unavailable.ListBySchoolAndDate(ctx, query.SchoolID, storageDate)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load unavailable slots")
	}
	principalBlocks := lo.Filter(blocks, func(b models.UnavailableSlot, _ int) bool {
		return b.UnavailabilityOf == models.UnavailabilityPrincipal
	})
	blockedIDs := lo.Uniq(lo.Map(principalBlocks, func(b models.UnavailableSlot, _ int) string { return b.SlotID }))
	blockedLabels := lo.KeyBy(principalBlocks, func(b models.UnavailableSlot) string { return normalizeSlotLabel(b.Slot) })

	offered := lo.Filter(masters, func(m models.SlotMaster, _ int) bool {
		_, labelBlocked := blockedLabels[normalizeSlotLabel(m.Slot)]
		return !labelBlocked && !lo.Contains(blockedIDs, m.ID)
	})

	counts, err := s.booked.CountBySlotTime(ctx, models.SlotCountFilter{
		SchoolIDs:      pool,
		Day:            day,
		Purpose:        query.Purpose,
		Date:           storageDate,
		ExcludeSlotIDs: blockedIDs,
	})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to count booked slots")
	}

	now := s.clock.Now().In(s.loc)
	if clock.SameDay(date, now, s.loc) {
		offered = lo.Filter(offered, func(m models.SlotMaster, _ int) bool {
			start, ok := slotStart(date, m.Slot, s.loc)
			return ok && start.After(now)
		})
	}

	sortSlotMasters(offered)

	return lo.Map(offered, func(m models.SlotMaster, _ int) dto.AvailableSlot {
		return dto.AvailableSlot{
			SlotID:      m.ID,
			Slot:        m.Slot,
			Day:         m.Day,
			SchoolID:    m.SchoolID,
			BookedCount: counts[m.Slot],
		}
	}), nil
}

// BookSlot validates the catalog entry against the date and inserts a booking.
// Capacity is advisory; no exclusivity check is made.
func (s *SlotService) BookSlot(ctx context.Context, enquiryID, slotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error) {
	master, err := s.bookableSlot(ctx, slotID, date, purpose)
	if err != nil {
		return nil, err
	}
	detail := newBookingDetail(master, enquiryID, clock.StorageDate(date, s.loc))
	if err := s.booked.Create(ctx, &detail.BookedSlot); err != nil {
		return nil, appErrors.Internal(err, "failed to book slot")
	}
	s.metrics.RecordSlotOperation(string(purpose), "book")
	return detail, nil
}

// ReBookSlot replaces oldBookedSlotID with a booking on newSlotID atomically.
// An empty oldBookedSlotID books without releasing anything.
func (s *SlotService) ReBookSlot(ctx context.Context, enquiryID, newSlotID, oldBookedSlotID string, date time.Time, purpose models.SlotPurpose) (*models.BookedSlotDetail, error) {
	master, err := s.bookableSlot(ctx, newSlotID, date, purpose)
	if err != nil {
		return nil, err
	}
	detail := newBookingDetail(master, enquiryID, clock.StorageDate(date, s.loc))
	if oldBookedSlotID == "" {
		if err := s.booked.Create(ctx, &detail.BookedSlot); err != nil {
			return nil, appErrors.Internal(err, "failed to book slot")
		}
	} else if err := s.booked.Rebook(ctx, oldBookedSlotID, &detail.BookedSlot); err != nil {
		return nil, appErrors.Internal(err, "failed to rebook slot")
	}
	s.metrics.RecordSlotOperation(string(purpose), "rebook")
	return detail, nil
}

func newBookingDetail(master *models.SlotMaster, enquiryID string, date time.Time) *models.BookedSlotDetail {
	return &models.BookedSlotDetail{
		BookedSlot: models.BookedSlot{
			SlotID:    master.ID,
			SlotFor:   master.SlotFor,
			Date:      date,
			EnquiryID: enquiryID,
		},
		Slot:     master.Slot,
		Day:      master.Day,
		SchoolID: master.SchoolID,
	}
}

// ReleaseSlot hard-deletes a booking. Releasing a missing booking is a no-op.
func (s *SlotService) ReleaseSlot(ctx context.Context, bookedSlotID string) error {
	if bookedSlotID == "" {
		return nil
	}
	if err := s.booked.Delete(ctx, bookedSlotID); err != nil {
		return appErrors.Internal(err, "failed to release slot")
	}
	s.metrics.RecordSlotOperation("any", "release")
	return nil
}

// GetBookedSlot loads a booking with its catalog details; it returns nil when
// the booking no longer exists.
func (s *SlotService) GetBookedSlot(ctx context.Context, bookedSlotID string) (*models.BookedSlotDetail, error) {
	if bookedSlotID == "" {
		return nil, nil
	}
	detail, err := s.booked.GetDetail(ctx, bookedSlotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Internal(err, "failed to load booked slot")
	}
	return detail, nil
}

// AddUnavailableSlots blocks catalog slots of a school on a date. Existing
// blocks are kept; the number of new blocks is returned.
func (s *SlotService) AddUnavailableSlots(ctx context.Context, req dto.AddUnavailableSlotsRequest, actor string) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid unavailable slot payload")
	}
	date, err := s.ParseDate(req.Date)
	if err != nil {
		return 0, err
	}
	storageDate := clock.StorageDate(date, s.loc)

	rows := make([]models.UnavailableSlot, 0, len(req.SlotIDs))
	for _, slotID := range lo.Uniq(req.SlotIDs) {
		master, err := s.bookableSlot(ctx, slotID, date, req.Purpose)
		if err != nil {
			return 0, err
		}
		if master.SchoolID != req.SchoolID {
			return 0, appErrors.Clone(appErrors.ErrValidation, "slot does not belong to school")
		}
		rows = append(rows, models.UnavailableSlot{
			SlotID:           slotID,
			SchoolID:         req.SchoolID,
			Date:             storageDate,
			UnavailabilityOf: req.UnavailabilityOf,
			CreatedBy:        lo.ToPtr(actor),
		})
	}

	inserted, err := s.unavailable.CreateBatch(ctx, rows)
	if err != nil {
		return 0, appErrors.Internal(err, "failed to store unavailable slots")
	}
	return inserted, nil
}

// ListMarkableSlots lists catalog slots that are neither booked nor blocked on
// the date, so an operator cannot block a slot twice.
func (s *SlotService) ListMarkableSlots(ctx context.Context, query dto.AvailableSlotsQuery) ([]dto.MarkableSlot, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid slot query")
	}
	date, err := s.ParseDate(query.Date)
	if err != nil {
		return nil, err
	}
	day := date.Weekday().String()
	storageDate := clock.StorageDate(date, s.loc)

	masters, err := s.catalog.ListActive(ctx, query.Purpose, day, []string{query.SchoolID})
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load slot catalog")
	}
	bookedIDs, err := s.booked.ListSlotIDsForDate(ctx, query.SchoolID, query.Purpose, storageDate)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load booked slots")
	}
	blocks, err := s.unavailable.ListBySchoolAndDate(ctx, query.SchoolID, storageDate)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load unavailable slots")
	}
	blockedIDs := lo.Map(blocks, func(b models.UnavailableSlot, _ int) string { return b.SlotID })

	markable := lo.Filter(masters, func(m models.SlotMaster, _ int) bool {
		return !lo.Contains(bookedIDs, m.ID) && !lo.Contains(blockedIDs, m.ID)
	})
	sortSlotMasters(markable)

	return lo.Map(markable, func(m models.SlotMaster, _ int) dto.MarkableSlot {
		return dto.MarkableSlot{SlotID: m.ID, Slot: m.Slot, Day: m.Day}
	}), nil
}

func (s *SlotService) bookableSlot(ctx context.Context, slotID string, date time.Time, purpose models.SlotPurpose) (*models.SlotMaster, error) {
	master, err := s.catalog.GetByID(ctx, slotID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrSlotNotFound
		}
		return nil, appErrors.Internal(err, "failed to load slot")
	}
	if !master.IsActive {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is not active")
	}
	if master.SlotFor != purpose {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is not offered for "+string(purpose))
	}
	if master.Day != date.In(s.loc).Weekday().String() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "slot is not offered on "+date.In(s.loc).Weekday().String())
	}
	return master, nil
}

var slotLayouts = []string{"03:04 PM", "3:04 PM", "03:04PM", "3:04PM", "15:04"}

// slotMinutes converts a slot label such as "12:30 PM" to minutes after
// midnight. The start of a range label ("10:00 AM - 10:30 AM") is used.
func slotMinutes(label string) (int, bool) {
	raw := normalizeSlotLabel(label)
	if i := strings.Index(raw, "-"); i > 0 {
		raw = strings.TrimSpace(raw[:i])
	}
	for _, layout := range slotLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Hour()*60 + t.Minute(), true
		}
	}
	return 0, false
}

func normalizeSlotLabel(label string) string {
	return strings.ToUpper(strings.Join(strings.Fields(label), " "))
}

func slotStart(date time.Time, label string, loc *time.Location) (time.Time, bool) {
	minutes, ok := slotMinutes(label)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := date.In(loc).Date()
	return time.Date(y, m, d, minutes/60, minutes%60, 0, 0, loc), true
}

func slotLess(a, b string) bool {
	am, aok := slotMinutes(a)
	bm, bok := slotMinutes(b)
	switch {
	case aok && bok:
		return am < bm
	case aok != bok:
		return aok
	default:
		return a < b
	}
}

// sortSlots orders 12-hour labels chronologically; "12:xx PM" is early afternoon.
func sortSlots(labels []string) []string {
	out := append([]string(nil), labels...)
	sort.SliceStable(out, func(i, j int) bool { return slotLess(out[i], out[j]) })
	return out
}

func sortSlotMasters(slots []models.SlotMaster) {
	sort.SliceStable(slots, func(i, j int) bool { return slotLess(slots[i].Slot, slots[j].Slot) })
}
