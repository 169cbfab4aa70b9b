package models

import "time"

// BookingStatus is shared by competency test and school visit records.
type BookingStatus string

const (
	BookingStatusScheduled BookingStatus = "Scheduled"
	BookingStatusCancelled BookingStatus = "Cancelled"
	BookingStatusCompleted BookingStatus = "Completed"
)

// TestMode is how a competency test is conducted.
type TestMode string

const (
	TestModeOnline  TestMode = "Online"
	TestModeOffline TestMode = "Offline"
)

// TestResult is the recorded outcome of a competency test.
type TestResult string

const (
	TestResultPassed TestResult = "Passed"
	TestResultFailed TestResult = "Failed"
)

// CompetencyTest is the single competency test record of an enquiry.
type CompetencyTest struct {
	ID            string        `db:"id" json:"id"`
	EnquiryID     string        `db:"enquiry_id" json:"enquiry_id"`
	BookedSlotID  *string       `db:"booked_slot_id" json:"booked_slot_id,omitempty"`
	Mode          TestMode      `db:"mode" json:"mode"`
	Status        BookingStatus `db:"status" json:"status"`
	Result        *TestResult   `db:"result" json:"result,omitempty"`
	CancelReason  *string       `db:"cancel_reason" json:"cancel_reason"`
	CancelComment *string       `db:"cancel_comment" json:"cancel_comment"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	IsDeleted     bool          `db:"is_deleted" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
