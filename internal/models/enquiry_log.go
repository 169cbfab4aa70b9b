package models

import "time"

// EnquiryEvent names an entry in the enquiry's activity log.
type EnquiryEvent string

const (
	EventCompetencyTestScheduled   EnquiryEvent = "COMPETENCY_TEST_SCHEDULED"
	EventCompetencyTestRescheduled EnquiryEvent = "COMPETENCY_TEST_RESCHEDULED"
	EventCompetencyTestCancelled   EnquiryEvent = "COMPETENCY_TEST_CANCELLED"
	EventCompetencyTestResult      EnquiryEvent = "COMPETENCY_TEST_RESULT"
	EventSchoolVisitScheduled      EnquiryEvent = "SCHOOL_VISIT_SCHEDULED"
	EventSchoolVisitRescheduled    EnquiryEvent = "SCHOOL_VISIT_RESCHEDULED"
	EventSchoolVisitCancelled      EnquiryEvent = "SCHOOL_VISIT_CANCELLED"
	EventSchoolVisitCompleted      EnquiryEvent = "SCHOOL_VISIT_COMPLETED"
	EventStageTransition           EnquiryEvent = "STAGE_TRANSITION"
	EventStageStatusChanged        EnquiryEvent = "STAGE_STATUS_CHANGED"
)

// EnquiryLog records one activity on an enquiry.
type EnquiryLog struct {
	ID        string       `db:"id" json:"id"`
	EnquiryID string       `db:"enquiry_id" json:"enquiry_id"`
	Event     EnquiryEvent `db:"event" json:"event"`
	StageName *StageName   `db:"stage_name" json:"stage_name,omitempty"`
	Slot      *string      `db:"slot" json:"slot,omitempty"`
	SlotDate  *time.Time   `db:"slot_date" json:"slot_date,omitempty"`
	Details   Details      `db:"details" json:"details,omitempty"`
	CreatedBy string       `db:"created_by" json:"created_by"`
	CreatedAt time.Time    `db:"created_at" json:"created_at"`
}
