package integration

import (
	"context"
	"net/http"
)

// FeeTypeRegistration is the fee raised when an enquiry enters kit selling.
const FeeTypeRegistration = "registration"

// FeeRequest identifies the enquiry a fee record is raised for.
type FeeRequest struct {
	EnquiryID      string `json:"enquiry_id"`
	EnquiryNumber  string `json:"enquiry_number"`
	SchoolID       string `json:"school_id"`
	GradeID        string `json:"grade_id"`
	BoardID        string `json:"board_id"`
	AcademicYearID string `json:"academic_year_id"`
	FeeType        string `json:"fee_type"`
}

// FinanceClient creates fee records.
type FinanceClient struct {
	client *Client
}

// NewFinanceClient wraps a collaborator client.
func NewFinanceClient(client *Client) *FinanceClient {
	return &FinanceClient{client: client}
}

// CreateFee raises a fee record and returns the collaborator's HTTP status.
func (f *FinanceClient) CreateFee(ctx context.Context, req FeeRequest) (int, error) {
	return f.client.Send(ctx, http.MethodPost, "/fees", req, nil)
}
