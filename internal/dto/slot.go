package dto

import "github.com/noah-isme/sma-admissions-api/internal/models"

// AvailableSlotsQuery selects the availability view.
type AvailableSlotsQuery struct {
	Date     string             `form:"date" json:"date" validate:"required,datetime=2006-01-02"`
	SchoolID string             `form:"schoolId" json:"school_id" validate:"required"`
	Purpose  models.SlotPurpose `form:"purpose" json:"purpose" validate:"required,oneof=school_visit competency_test"`
}

// AvailableSlot is one offerable slot time. BookedCount is informational; it
// pools bookings across equivalent schools and is not a capacity limit.
type AvailableSlot struct {
	SlotID      string `json:"slot_id"`
	Slot        string `json:"slot"`
	Day         string `json:"day"`
	SchoolID    string `json:"school_id"`
	BookedCount int    `json:"booked_count"`
}

// AddUnavailableSlotsRequest blocks catalog slots on a date.
type AddUnavailableSlotsRequest struct {
	SchoolID         string                  `json:"school_id" validate:"required"`
	Date             string                  `json:"date" validate:"required,datetime=2006-01-02"`
	Purpose          models.SlotPurpose      `json:"purpose" validate:"required,oneof=school_visit competency_test"`
	SlotIDs          []string                `json:"slot_ids" validate:"required,min=1,dive,required"`
	UnavailabilityOf models.UnavailabilityOf `json:"unavailability_of" validate:"required,oneof=Principal Counselor"`
}

// MarkableSlot is a catalog slot that can still be blocked for a date.
type MarkableSlot struct {
	SlotID string `json:"slot_id"`
	Slot   string `json:"slot"`
	Day    string `json:"day"`
}
