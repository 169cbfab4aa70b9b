package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// EnquiryType selects the stage pipeline and the approval path.
type EnquiryType string

const (
	EnquiryTypeNewAdmission    EnquiryType = "NEW_ADMISSION"
	EnquiryTypeReadmission     EnquiryType = "READMISSION"
	EnquiryTypeIVT             EnquiryType = "IVT"
	EnquiryTypeReadmission1011 EnquiryType = "READMISSION_10_11"
	EnquiryTypePSA             EnquiryType = "PSA"
)

// IsContinuingStudent reports the enquiry types whose admission is delegated to
// the admin panel's admission-request flow.
func (t EnquiryType) IsContinuingStudent() bool {
	switch t {
	case EnquiryTypeReadmission, EnquiryTypeIVT, EnquiryTypeReadmission1011:
		return true
	}
	return false
}

// EnquiryStatus is the enquiry-level lifecycle, independent of stage statuses.
type EnquiryStatus string

const (
	EnquiryStatusOpen   EnquiryStatus = "Open"
	EnquiryStatusClosed EnquiryStatus = "Closed"
	EnquiryStatusOnHold EnquiryStatus = "On-hold"
)

// Other-details flags.
const (
	DetailTATWorkflowTriggered = "tat_exceeded_workflow_triggered"
)

// Enquiry is the admissions root aggregate.
type Enquiry struct {
	ID                              string        `db:"id" json:"id"`
	EnquiryNumber                   string        `db:"enquiry_number" json:"enquiry_number"`
	EnquiryType                     EnquiryType   `db:"enquiry_type" json:"enquiry_type"`
	Status                          EnquiryStatus `db:"status" json:"status"`
	SchoolID                        string        `db:"school_id" json:"school_id"`
	AcademicYearID                  string        `db:"academic_year_id" json:"academic_year_id"`
	GradeID                         string        `db:"grade_id" json:"grade_id"`
	BoardID                         string        `db:"board_id" json:"board_id"`
	StudentFirstName                string        `db:"student_first_name" json:"student_first_name"`
	StudentLastName                 string        `db:"student_last_name" json:"student_last_name"`
	ParentName                      string        `db:"parent_name" json:"parent_name"`
	ParentEmail                     string        `db:"parent_email" json:"parent_email"`
	ParentMobile                    string        `db:"parent_mobile" json:"parent_mobile"`
	EnrolmentNumber                 *string       `db:"enrolment_number" json:"enrolment_number,omitempty"`
	StudentProfileID                *string       `db:"student_profile_id" json:"student_profile_id,omitempty"`
	AssignedToID                    *string       `db:"assigned_to_id" json:"assigned_to_id,omitempty"`
	EmployeeSourceID                *string       `db:"employee_source_id" json:"employee_source_id,omitempty"`
	ParentSourceID                  *string       `db:"parent_source_id" json:"parent_source_id,omitempty"`
	SchoolSourceID                  *string       `db:"school_source_id" json:"school_source_id,omitempty"`
	CorporateSourceID               *string       `db:"corporate_source_id" json:"corporate_source_id,omitempty"`
	IsRegistered                    bool          `db:"is_registered" json:"is_registered"`
	RegisteredAt                    *time.Time    `db:"registered_at" json:"registered_at,omitempty"`
	RegistrationFeeRequestTriggered bool          `db:"registration_fee_request_triggered" json:"registration_fee_request_triggered"`
	Stages                          StageLedger   `db:"enquiry_stages" json:"enquiry_stages"`
	Documents                       Documents     `db:"documents" json:"documents"`
	Subjects                        StringList    `db:"subjects" json:"subjects"`
	OtherDetails                    Details       `db:"other_details" json:"other_details"`
	IsDeleted                       bool          `db:"is_deleted" json:"-"`
	CreatedAt                       time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt                       time.Time     `db:"updated_at" json:"updated_at"`
}

// StudentName joins the student's names for notifications.
func (e *Enquiry) StudentName() string {
	if e.StudentLastName == "" {
		return e.StudentFirstName
	}
	return e.StudentFirstName + " " + e.StudentLastName
}

// ReferralSource identifies who referred the enquiry.
type ReferralSource struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// Referral source kinds.
const (
	ReferralEmployee  = "employee"
	ReferralParent    = "parent"
	ReferralSchool    = "school"
	ReferralCorporate = "corporate"
)

// ReferralSources lists every populated referral source.
func (e *Enquiry) ReferralSources() []ReferralSource {
	var out []ReferralSource
	add := func(kind string, id *string) {
		if id != nil && *id != "" {
			out = append(out, ReferralSource{Type: kind, ID: *id})
		}
	}
	add(ReferralEmployee, e.EmployeeSourceID)
	add(ReferralParent, e.ParentSourceID)
	add(ReferralSchool, e.SchoolSourceID)
	add(ReferralCorporate, e.CorporateSourceID)
	return out
}

// Document is one admission document requirement.
type Document struct {
	DocumentID  string  `json:"document_id"`
	Name        string  `json:"name"`
	IsMandatory bool    `json:"is_mandatory"`
	File        *string `json:"file"`
}

// Documents is stored as JSONB.
type Documents []Document

// Value implements driver.Valuer.
func (d Documents) Value() (driver.Value, error) { return jsonValue(d, "[]") }

// Scan implements sql.Scanner.
func (d *Documents) Scan(src interface{}) error { return jsonScan(src, d, "documents") }

// StringList is a JSONB array of strings.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) { return jsonValue(s, "[]") }

// Scan implements sql.Scanner.
func (s *StringList) Scan(src interface{}) error { return jsonScan(src, s, "string list") }

// Details is the free-form other_details bag.
type Details map[string]interface{}

// Flag reads a boolean flag.
func (d Details) Flag(key string) bool {
	v, ok := d[key].(bool)
	return ok && v
}

// Value implements driver.Valuer.
func (d Details) Value() (driver.Value, error) { return jsonValue(d, "{}") }

// Scan implements sql.Scanner.
func (d *Details) Scan(src interface{}) error { return jsonScan(src, d, "other details") }

func jsonValue(v interface{}, empty string) (driver.Value, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return []byte(empty), nil
	}
	return raw, nil
}

func jsonScan(src interface{}, dest interface{}, what string) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("scan %s: unsupported type %T", what, src)
	}
}
