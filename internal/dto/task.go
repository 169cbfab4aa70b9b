package dto

// TaskFilter lists follow-up tasks.
type TaskFilter struct {
	AssignedToID string `form:"assignedTo"`
	EnquiryID    string `form:"enquiryId"`
	Limit        int    `form:"limit"`
}
