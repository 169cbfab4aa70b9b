package models

import "time"

// MyTask is a follow-up reminder for the counsellor owning an enquiry.
type MyTask struct {
	ID                string     `db:"id" json:"id"`
	EnquiryID         string     `db:"enquiry_id" json:"enquiry_id"`
	CreatedForStage   StageName  `db:"created_for_stage" json:"created_for_stage"`
	ValidFrom         time.Time  `db:"valid_from" json:"valid_from"`
	ValidTill         time.Time  `db:"valid_till" json:"valid_till"`
	TaskCreationCount int        `db:"task_creation_count" json:"task_creation_count"`
	IsClosed          bool       `db:"is_closed" json:"is_closed"`
	AssignedToID      *string    `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	ClosedAt          *time.Time `db:"closed_at" json:"closed_at,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}
