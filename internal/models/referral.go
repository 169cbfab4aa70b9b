package models

import "time"

// ReferralReminder is one scheduled reminder to a referrer.
type ReferralReminder struct {
	ID           string     `db:"id" json:"id"`
	EnquiryID    string     `db:"enquiry_id" json:"enquiry_id"`
	ReferrerType string     `db:"referrer_type" json:"referrer_type"`
	ReferrerID   string     `db:"referrer_id" json:"referrer_id"`
	Sequence     int        `db:"sequence" json:"sequence"`
	DueAt        time.Time  `db:"due_at" json:"due_at"`
	SentAt       *time.Time `db:"sent_at" json:"sent_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
}
