package integration

import (
	"context"
	"net/http"
	"net/url"
)

// WorkflowActivity is the default approval activity configured for a stage.
type WorkflowActivity struct {
	ID         string `json:"id"`
	WorkflowID string `json:"workflow_id"`
	Name       string `json:"name"`
}

// WorkflowLogRequest posts an entry that kicks off human approval.
type WorkflowLogRequest struct {
	ActivityID string                 `json:"activity_id"`
	WorkflowID string                 `json:"workflow_id"`
	EnquiryID  string                 `json:"enquiry_id"`
	Module     string                 `json:"module"`
	Payload    map[string]interface{} `json:"payload"`
	CreatedBy  string                 `json:"created_by"`
}

// AdmissionRequestUpdate delegates admission of continuing students to the admin panel.
type AdmissionRequestUpdate struct {
	EnquiryID       string  `json:"enquiry_id"`
	EnquiryType     string  `json:"enquiry_type"`
	EnrolmentNumber *string `json:"enrolment_number,omitempty"`
	SchoolID        string  `json:"school_id"`
	AcademicYearID  string  `json:"academic_year_id"`
	RequestedBy     string  `json:"requested_by"`
}

// WorkflowClient talks to the admin-panel workflow service.
type WorkflowClient struct {
	client *Client
}

// NewWorkflowClient wraps a collaborator client.
func NewWorkflowClient(client *Client) *WorkflowClient {
	return &WorkflowClient{client: client}
}

// DefaultActivity resolves the activity configured for module at a school.
func (w *WorkflowClient) DefaultActivity(ctx context.Context, module, schoolID string) (*WorkflowActivity, error) {
	q := url.Values{}
	q.Set("module", module)
	q.Set("schoolId", schoolID)
	var out WorkflowActivity
	if _, err := w.client.Send(ctx, http.MethodGet, "/workflow/activities/default?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PostLog records a workflow log entry.
func (w *WorkflowClient) PostLog(ctx context.Context, req WorkflowLogRequest) error {
	_, err := w.client.Send(ctx, http.MethodPost, "/workflow/logs", req, nil)
	return err
}

// UpdateAdmissionRequest hands a continuing student's admission to the admin panel.
func (w *WorkflowClient) UpdateAdmissionRequest(ctx context.Context, req AdmissionRequestUpdate) error {
	_, err := w.client.Send(ctx, http.MethodPost, "/admission-requests", req, nil)
	return err
}
