package integration

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

// MDMClient talks to the academic/student directory.
type MDMClient struct {
	client *Client
}

// NewMDMClient wraps a collaborator client.
func NewMDMClient(client *Client) *MDMClient {
	return &MDMClient{client: client}
}

// StudentProfileRequest creates a student in the directory from an enquiry.
type StudentProfileRequest struct {
	EnquiryID       string  `json:"enquiry_id"`
	EnquiryNumber   string  `json:"enquiry_number"`
	FirstName       string  `json:"first_name"`
	LastName        string  `json:"last_name"`
	SchoolID        string  `json:"school_id"`
	GradeID         string  `json:"grade_id"`
	BoardID         string  `json:"board_id"`
	AcademicYearID  string  `json:"academic_year_id"`
	EnrolmentNumber *string `json:"enrolment_number,omitempty"`
	ParentName      string  `json:"parent_name"`
	ParentEmail     string  `json:"parent_email"`
	ParentMobile    string  `json:"parent_mobile"`
}

type studentProfile struct {
	ID string `json:"id"`
}

type equivalentSchools struct {
	SchoolIDs []string `json:"school_ids"`
}

// EquivalentSchools returns the sibling schools sharing a parent location with schoolID.
func (m *MDMClient) EquivalentSchools(ctx context.Context, schoolID string) ([]string, error) {
	var out equivalentSchools
	path := fmt.Sprintf("/schools/%s/equivalents", url.PathEscape(schoolID))
	if _, err := m.client.Send(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.SchoolIDs, nil
}

// CreateStudentProfile registers the student and returns its directory id.
func (m *MDMClient) CreateStudentProfile(ctx context.Context, req StudentProfileRequest) (string, error) {
	var out studentProfile
	if _, err := m.client.Send(ctx, http.MethodPost, "/students", req, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%s returned an empty student id", m.client.Name())
	}
	return out.ID, nil
}

// MapSubjects assigns the enquiry's chosen subjects to the student.
func (m *MDMClient) MapSubjects(ctx context.Context, studentID, academicYearID string, subjects []string) error {
	body := map[string]interface{}{
		"academic_year_id": academicYearID,
		"subjects":         subjects,
	}
	path := fmt.Sprintf("/students/%s/subjects", url.PathEscape(studentID))
	_, err := m.client.Send(ctx, http.MethodPost, path, body, nil)
	return err
}

// SubmitDocuments maps the enquiry's uploaded documents onto the student.
func (m *MDMClient) SubmitDocuments(ctx context.Context, studentID string, documents []models.Document) error {
	path := fmt.Sprintf("/students/%s/documents", url.PathEscape(studentID))
	_, err := m.client.Send(ctx, http.MethodPost, path, map[string]interface{}{"documents": documents}, nil)
	return err
}
