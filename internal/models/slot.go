package models

import "time"

// SlotPurpose identifies what a slot catalog entry is offered for.
type SlotPurpose string

const (
	SlotPurposeSchoolVisit    SlotPurpose = "school_visit"
	SlotPurposeCompetencyTest SlotPurpose = "competency_test"
)

// Valid reports whether the purpose is known.
func (p SlotPurpose) Valid() bool {
	return p == SlotPurposeSchoolVisit || p == SlotPurposeCompetencyTest
}

// UnavailabilityOf names who blocked a slot.
type UnavailabilityOf string

const (
	UnavailabilityPrincipal UnavailabilityOf = "Principal"
	UnavailabilityCounselor UnavailabilityOf = "Counselor"
)

// SlotMaster is a catalog entry keyed by (purpose, day, school, time).
type SlotMaster struct {
	ID        string      `db:"id" json:"id"`
	SlotFor   SlotPurpose `db:"slot_for" json:"slot_for"`
	Slot      string      `db:"slot" json:"slot"`
	Day       string      `db:"day" json:"day"`
	SchoolID  string      `db:"school_id" json:"school_id"`
	IsActive  bool        `db:"is_active" json:"is_active"`
	IsDeleted bool        `db:"is_deleted" json:"-"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// BookedSlot is a ledger entry for a concrete date booking.
type BookedSlot struct {
	ID        string      `db:"id" json:"id"`
	SlotID    string      `db:"slot_id" json:"slot_id"`
	SlotFor   SlotPurpose `db:"slot_for" json:"slot_for"`
	Date      time.Time   `db:"date" json:"date"`
	EnquiryID string      `db:"enquiry_id" json:"enquiry_id"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

// BookedSlotDetail joins a booking with its catalog entry for display.
type BookedSlotDetail struct {
	BookedSlot
	Slot     string `db:"slot" json:"slot"`
	Day      string `db:"day" json:"day"`
	SchoolID string `db:"school_id" json:"school_id"`
}

// UnavailableSlot blocks a catalog slot on a given date.
type UnavailableSlot struct {
	ID               string           `db:"id" json:"id"`
	SlotID           string           `db:"slot_id" json:"slot_id"`
	SchoolID         string           `db:"school_id" json:"school_id"`
	Date             time.Time        `db:"date" json:"date"`
	UnavailabilityOf UnavailabilityOf `db:"unavailability_of" json:"unavailability_of"`
	Slot             string           `db:"slot" json:"slot"`
	CreatedBy        *string          `db:"created_by" json:"created_by,omitempty"`
	CreatedAt        time.Time        `db:"created_at" json:"created_at"`
}

// SlotCountFilter scopes the pooled booked-count query.
type SlotCountFilter struct {
	SchoolIDs      []string
	Day            string
	Purpose        SlotPurpose
	Date           time.Time
	ExcludeSlotIDs []string
}
