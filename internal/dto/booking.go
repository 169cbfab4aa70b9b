package dto

import "github.com/noah-isme/sma-admissions-api/internal/models"

// ScheduleRequest books a slot for a competency test or school visit.
type ScheduleRequest struct {
	SlotID string          `json:"slot_id" validate:"required"`
	Date   string          `json:"date" validate:"required,datetime=2006-01-02"`
	Mode   models.TestMode `json:"mode,omitempty" validate:"omitempty,oneof=Online Offline"`
}

// RescheduleRequest moves an existing booking to another slot.
type RescheduleRequest struct {
	SlotID string `json:"slot_id" validate:"required"`
	Date   string `json:"date" validate:"required,datetime=2006-01-02"`
}

// CancelRequest cancels an existing booking.
type CancelRequest struct {
	Reason  string `json:"reason" validate:"required"`
	Comment string `json:"comment"`
}

// CompleteVisitRequest closes a school visit.
type CompleteVisitRequest struct {
	Activities []string `json:"activities" validate:"required,min=1"`
	Comment    string   `json:"comment"`
}

// TestResultRequest records a competency test outcome.
type TestResultRequest struct {
	Result models.TestResult `json:"result" validate:"required,oneof=Passed Failed"`
}

// CompetencyTestDetails is the competency test view.
type CompetencyTestDetails struct {
	Test *models.CompetencyTest   `json:"test"`
	Slot *models.BookedSlotDetail `json:"slot,omitempty"`
}

// SchoolVisitDetails is the school visit view.
type SchoolVisitDetails struct {
	Visit *models.SchoolVisit      `json:"visit"`
	Slot  *models.BookedSlotDetail `json:"slot,omitempty"`
}
