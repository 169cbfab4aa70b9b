package integration

import (
	"context"
	"net/http"
)

// TransportAdmission informs the transport service of a newly admitted student.
type TransportAdmission struct {
	EnquiryID string `json:"enquiry_id"`
	StudentID string `json:"student_id"`
	SchoolID  string `json:"school_id"`
}

// TransportClient talks to the transport service.
type TransportClient struct {
	client *Client
}

// NewTransportClient wraps a collaborator client.
func NewTransportClient(client *Client) *TransportClient {
	return &TransportClient{client: client}
}

// NotifyAdmission posts the admission.
func (t *TransportClient) NotifyAdmission(ctx context.Context, req TransportAdmission) error {
	_, err := t.client.Send(ctx, http.MethodPost, "/admissions", req, nil)
	return err
}
