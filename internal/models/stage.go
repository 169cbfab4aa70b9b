package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StageName is the display name of a pipeline stage as stored on the ledger.
type StageName string

const (
	StageEnquiry               StageName = "Enquiry"
	StageSchoolVisit           StageName = "School visit"
	StageAcademicKitSelling    StageName = "Academic Kit Selling"
	StageRegistration          StageName = "Registration"
	StageCompetencyTest        StageName = "Competency test"
	StageAdmissionStatus       StageName = "Admission Status"
	StagePayment               StageName = "Payment"
	StageAdmittedOrProvisional StageName = "Admitted or Provisional Approval"
)

// StageStatus is the per-stage status. The allowed domain depends on the stage.
type StageStatus string

const (
	StageStatusOpen                 StageStatus = "Open"
	StageStatusPending              StageStatus = "Pending"
	StageStatusInProgress           StageStatus = "In Progress"
	StageStatusCompleted            StageStatus = "Completed"
	StageStatusPassed               StageStatus = "Passed"
	StageStatusFailed               StageStatus = "Failed"
	StageStatusApproved             StageStatus = "Approved"
	StageStatusAdmitted             StageStatus = "Admitted"
	StageStatusProvisionalAdmission StageStatus = "Provisional Admission"
)

// IsTerminal reports whether the status closes its stage.
func (s StageStatus) IsTerminal() bool {
	switch s {
	case StageStatusCompleted, StageStatusPassed, StageStatusFailed, StageStatusApproved,
		StageStatusAdmitted, StageStatusProvisionalAdmission:
		return true
	}
	return false
}

// EnquiryStage is one entry of the enquiry's ordered stage ledger.
type EnquiryStage struct {
	StageID   string      `json:"stage_id"`
	StageName StageName   `json:"stage_name"`
	Status    StageStatus `json:"status"`
}

// StageLedger is the ordered stage list. Order is fixed at creation; only
// statuses mutate.
type StageLedger []EnquiryStage

// IndexOf returns the position of name, or -1.
func (l StageLedger) IndexOf(name StageName) int {
	for i, st := range l {
		if st.StageName == name {
			return i
		}
	}
	return -1
}

// Current returns the index of the stage in progress, falling back to the
// first Pending/Open stage. It returns -1 for an empty or fully closed ledger.
func (l StageLedger) Current() int {
	for i, st := range l {
		if st.Status == StageStatusInProgress {
			return i
		}
	}
	for i, st := range l {
		if st.Status == StageStatusPending || st.Status == StageStatusOpen {
			return i
		}
	}
	return -1
}

// Clone returns a copy safe to mutate.
func (l StageLedger) Clone() StageLedger {
	if l == nil {
		return nil
	}
	out := make(StageLedger, len(l))
	copy(out, l)
	return out
}

// Value implements driver.Valuer for the JSONB column.
func (l StageLedger) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for the JSONB column.
func (l *StageLedger) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("scan stage ledger: unsupported type %T", src)
	}
}
