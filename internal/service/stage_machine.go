package service

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/noah-isme/sma-admissions-api/internal/models"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

// StageKind enumerates the pipeline stages the engine knows how to enter.
type StageKind int

const (
	StageKindEnquiry StageKind = iota
	StageKindSchoolVisit
	StageKindAcademicKitSelling
	StageKindRegistration
	StageKindCompetencyTest
	StageKindAdmissionStatus
	StageKindPayment
	StageKindAdmittedOrProvisional
	stageKindCount
)

var stageKindNames = [stageKindCount]models.StageName{
	StageKindEnquiry:               models.StageEnquiry,
	StageKindSchoolVisit:           models.StageSchoolVisit,
	StageKindAcademicKitSelling:    models.StageAcademicKitSelling,
	StageKindRegistration:          models.StageRegistration,
	StageKindCompetencyTest:        models.StageCompetencyTest,
	StageKindAdmissionStatus:       models.StageAdmissionStatus,
	StageKindPayment:               models.StagePayment,
	StageKindAdmittedOrProvisional: models.StageAdmittedOrProvisional,
}

// completionStatuses is the terminal status each stage takes when it is
// completed by a forward move.
var completionStatuses = [stageKindCount]models.StageStatus{
	StageKindEnquiry:               models.StageStatusCompleted,
	StageKindSchoolVisit:           models.StageStatusCompleted,
	StageKindAcademicKitSelling:    models.StageStatusCompleted,
	StageKindRegistration:          models.StageStatusCompleted,
	StageKindCompetencyTest:        models.StageStatusPassed,
	StageKindAdmissionStatus:       models.StageStatusApproved,
	StageKindPayment:               models.StageStatusCompleted,
	StageKindAdmittedOrProvisional: models.StageStatusAdmitted,
}

// allowedStatuses lists the statuses each stage may be set to directly.
var allowedStatuses = [stageKindCount][]models.StageStatus{
	StageKindEnquiry:               {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusCompleted},
	StageKindSchoolVisit:           {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusCompleted},
	StageKindAcademicKitSelling:    {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusCompleted},
	StageKindRegistration:          {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusCompleted},
	StageKindCompetencyTest:        {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusPassed, models.StageStatusFailed},
	StageKindAdmissionStatus:       {models.StageStatusPending, models.StageStatusApproved},
	StageKindPayment:               {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusCompleted},
	StageKindAdmittedOrProvisional: {models.StageStatusOpen, models.StageStatusInProgress, models.StageStatusAdmitted, models.StageStatusProvisionalAdmission},
}

// Name returns the ledger stage name of k.
func (k StageKind) Name() models.StageName {
	if k < 0 || k >= stageKindCount {
		return ""
	}
	return stageKindNames[k]
}

func (k StageKind) String() string { return string(k.Name()) }

// ParseStageKind matches a ledger stage name exactly, case-sensitively.
func ParseStageKind(name models.StageName) (StageKind, bool) {
	for k := StageKind(0); k < stageKindCount; k++ {
		if stageKindNames[k] == name {
			return k, true
		}
	}
	return 0, false
}

func statusAllowed(kind StageKind, status models.StageStatus) bool {
	return lo.Contains(allowedStatuses[kind], status)
}

// NextStageResult is the pure outcome of locating a stage in a ledger.
type NextStageResult struct {
	CurrentIndex int
	Current      models.EnquiryStage
	CurrentKind  StageKind
	NextIndex    int
	Next         *models.EnquiryStage
	NextKind     StageKind
}

// Terminal reports whether the current stage is the last one in the ledger.
func (r NextStageResult) Terminal() bool { return r.Next == nil }

// checkOpen rejects a move whose stages were already closed by an earlier
// move. A closed current stage is accepted only when resuming an admission
// whose in-progress checkpoint was written.
func (r NextStageResult) checkOpen() error {
	if r.Next != nil && r.Next.Status.IsTerminal() {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage %q is already %s", r.Next.StageName, r.Next.Status))
	}
	if r.Current.Status.IsTerminal() && !r.resumesAdmission() {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage %q is already %s", r.Current.StageName, r.Current.Status))
	}
	return nil
}

func (r NextStageResult) resumesAdmission() bool {
	return r.Next != nil &&
		r.NextKind == StageKindAdmittedOrProvisional &&
		r.Current.Status == completionStatuses[r.CurrentKind] &&
		r.Next.Status == models.StageStatusInProgress
}

// computeNextStage finds current in the ledger and returns the stage after it.
func computeNextStage(ledger models.StageLedger, current models.StageName) (NextStageResult, error) {
	idx := ledger.IndexOf(current)
	if idx < 0 {
		return NextStageResult{}, appErrors.Clone(appErrors.ErrStageNotFound, fmt.Sprintf("stage %q not found in enquiry", current))
	}
	currentKind, ok := ParseStageKind(current)
	if !ok {
		return NextStageResult{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown stage %q", current))
	}

	result := NextStageResult{
		CurrentIndex: idx,
		Current:      ledger[idx],
		CurrentKind:  currentKind,
		NextIndex:    -1,
	}
	if idx == len(ledger)-1 {
		return result, nil
	}

	next := ledger[idx+1]
	nextKind, ok := ParseStageKind(next.StageName)
	if !ok {
		return NextStageResult{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown stage %q", next.StageName))
	}
	result.NextIndex = idx + 1
	result.Next = &next
	result.NextKind = nextKind
	return result, nil
}

// admissionStatusFor resolves full vs provisional admission: provisional when
// any mandatory document lacks an uploaded file.
func admissionStatusFor(documents models.Documents) models.StageStatus {
	missing := lo.ContainsBy(documents, func(d models.Document) bool {
		return d.IsMandatory && (d.File == nil || *d.File == "")
	})
	if missing {
		return models.StageStatusProvisionalAdmission
	}
	return models.StageStatusAdmitted
}
