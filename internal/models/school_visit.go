package models

import "time"

// SchoolVisit is the single school visit record of an enquiry.
type SchoolVisit struct {
	ID            string        `db:"id" json:"id"`
	EnquiryID     string        `db:"enquiry_id" json:"enquiry_id"`
	BookedSlotID  *string       `db:"booked_slot_id" json:"booked_slot_id,omitempty"`
	Status        BookingStatus `db:"status" json:"status"`
	Activities    StringList    `db:"activities" json:"activities"`
	Comment       *string       `db:"comment" json:"comment,omitempty"`
	CancelReason  *string       `db:"cancel_reason" json:"cancel_reason"`
	CancelComment *string       `db:"cancel_comment" json:"cancel_comment"`
	CreatedBy     string        `db:"created_by" json:"created_by"`
	IsDeleted     bool          `db:"is_deleted" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
