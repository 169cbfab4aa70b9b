package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/integration"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
	applogger "github.com/noah-isme/sma-admissions-api/pkg/logger"
)

type transitionEnquiryStore interface {
	GetByID(ctx context.Context, id string) (*models.Enquiry, error)
	UpdateStages(ctx context.Context, id string, stages models.StageLedger) error
	MarkRegistered(ctx context.Context, id string, at time.Time) error
	MarkRegistrationFeeTriggered(ctx context.Context, id string) error
	SetStudentProfile(ctx context.Context, id, profileID string) error
	FindPreviousEnrolment(ctx context.Context, enrolmentNumber, excludeID string) (*models.Enquiry, error)
}

type enquiryLogWriter interface {
	Create(ctx context.Context, entry *models.EnquiryLog) error
}

type stageTaskTracker interface {
	CloseStageTasks(ctx context.Context, enquiryID string, stages []models.StageName) error
	OpenStageTask(ctx context.Context, enquiry *models.Enquiry, stage models.StageName) error
}

type feeCreator interface {
	CreateFee(ctx context.Context, req integration.FeeRequest) (int, error)
}

type studentDirectory interface {
	CreateStudentProfile(ctx context.Context, req integration.StudentProfileRequest) (string, error)
	MapSubjects(ctx context.Context, studentID, academicYearID string, subjects []string) error
	SubmitDocuments(ctx context.Context, studentID string, documents []models.Document) error
}

type admissionWorkflow interface {
	DefaultActivity(ctx context.Context, module, schoolID string) (*integration.WorkflowActivity, error)
	PostLog(ctx context.Context, req integration.WorkflowLogRequest) error
	UpdateAdmissionRequest(ctx context.Context, req integration.AdmissionRequestUpdate) error
}

type transportNotifier interface {
	NotifyAdmission(ctx context.Context, req integration.TransportAdmission) error
}

type referralScheduler interface {
	CreateReminderRecords(ctx context.Context, enquiry *models.Enquiry) ([]models.ReferralReminder, error)
	SendInitialNotification(ctx context.Context, enquiry *models.Enquiry) error
}

type notificationDispatcher interface {
	Dispatch(ctx context.Context, notification integration.Notification) error
}

// StageTransitionDeps collects the collaborators of the transition engine.
type StageTransitionDeps struct {
	Enquiries  transitionEnquiryStore
	Logs       enquiryLogWriter
	Tasks      stageTaskTracker
	Finance    feeCreator
	Directory  studentDirectory
	Workflow   admissionWorkflow
	Transport  transportNotifier
	Referrals  referralScheduler
	Notifier   notificationDispatcher
	Metrics    *MetricsService
	Clock      clock.Clock
	Validator  *validator.Validate
	Logger     *zap.Logger
	Production bool
}

// transitionContext is the immutable input of one stage-entry handler. ledger
// already carries the completed current stage.
type transitionContext struct {
	enquiry models.Enquiry
	actor   string
	step    NextStageResult
	ledger  models.StageLedger
	now     time.Time
}

// transitionOutcome is what a handler asks the engine to persist.
type transitionOutcome struct {
	ledger    models.StageLedger
	delegated bool
	entered   bool
}

type transitionHandler func(ctx context.Context, tc transitionContext) (transitionOutcome, error)

// StageTransitionService is the only writer of enquiry stage ledgers.
type StageTransitionService struct {
	deps     StageTransitionDeps
	handlers [stageKindCount]transitionHandler
	logger   *zap.Logger
}

// NewStageTransitionService wires the engine and its per-stage entry handlers.
func NewStageTransitionService(deps StageTransitionDeps) *StageTransitionService {
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	s := &StageTransitionService{deps: deps, logger: deps.Logger}
	s.handlers = [stageKindCount]transitionHandler{
		StageKindEnquiry:               s.enterInProgress,
		StageKindSchoolVisit:           s.enterInProgress,
		StageKindAcademicKitSelling:    s.enterAcademicKitSelling,
		StageKindRegistration:          s.enterInProgress,
		StageKindCompetencyTest:        s.enterCompetencyTest,
		StageKindAdmissionStatus:       s.enterAdmissionStatus,
		StageKindPayment:               s.enterInProgress,
		StageKindAdmittedOrProvisional: s.enterAdmittedOrProvisional,
	}
	for kind, handler := range s.handlers {
		if handler == nil {
			panic(fmt.Sprintf("no transition handler for stage kind %d", kind))
		}
	}
	return s
}

// MoveToNextStage completes currentStage and enters the stage after it.
func (s *StageTransitionService) MoveToNextStage(ctx context.Context, enquiryID string, req dto.MoveStageRequest, actor string) (*dto.StageLedgerResponse, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stage move payload")
	}

	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}

	step, err := computeNextStage(enquiry.Stages, req.CurrentStage)
	if err != nil {
		return nil, err
	}
	if step.Terminal() {
		return nil, appErrors.ErrTerminalStage
	}
	if err := step.checkOpen(); err != nil {
		return nil, err
	}

	logger := applogger.For(ctx, s.logger).With(zap.String("enquiry_id", enquiry.ID))
	logger.Info("stage transition started",
		zap.String("stage", string(step.Current.StageName)),
		zap.String("status", string(step.Current.Status)),
		zap.Int("index", step.CurrentIndex),
		zap.String("next_stage", string(step.Next.StageName)),
	)

	past := make([]models.StageName, 0, step.CurrentIndex+1)
	for _, st := range enquiry.Stages[:step.CurrentIndex+1] {
		past = append(past, st.StageName)
	}
	if s.deps.Tasks != nil {
		bestEffort(logger, s.deps.Metrics, "close_past_stage_tasks", s.deps.Tasks.CloseStageTasks(ctx, enquiry.ID, past))
	}

	tc := transitionContext{
		enquiry: *enquiry,
		actor:   actor,
		step:    step,
		ledger:  withStatus(enquiry.Stages, step.CurrentIndex, completionStatuses[step.CurrentKind]),
		now:     s.deps.Clock.Now().UTC(),
	}

	outcome, err := s.handlers[step.NextKind](ctx, tc)
	if err != nil {
		s.deps.Metrics.RecordStageTransition(step.NextKind.String(), "failed")
		logger.Warn("stage transition failed", zap.String("next_stage", string(step.Next.StageName)), zap.Error(err))
		return nil, err
	}

	entry := &models.EnquiryLog{
		EnquiryID: enquiry.ID,
		Event:     models.EventStageTransition,
		StageName: &step.Next.StageName,
		Details: models.Details{
			"from_stage":  step.Current.StageName,
			"from_status": outcome.ledger[step.CurrentIndex].Status,
			"to_status":   outcome.ledger[step.NextIndex].Status,
			"delegated":   outcome.delegated,
		},
		CreatedBy: actor,
	}
	if err := s.persist(ctx, logger, enquiry.ID, outcome.ledger, entry); err != nil {
		return nil, err
	}

	if outcome.entered && s.deps.Tasks != nil {
		bestEffort(logger, s.deps.Metrics, "open_stage_task", s.deps.Tasks.OpenStageTask(ctx, enquiry, step.Next.StageName))
	}

	result := "entered"
	if outcome.delegated {
		result = "delegated"
	}
	s.deps.Metrics.RecordStageTransition(step.NextKind.String(), result)

	current := outcome.ledger.Current()
	fields := []zap.Field{zap.Int("index", current), zap.Bool("delegated", outcome.delegated)}
	if current >= 0 {
		fields = append(fields,
			zap.String("stage", string(outcome.ledger[current].StageName)),
			zap.String("status", string(outcome.ledger[current].Status)))
	}
	logger.Info("stage transition finished", fields...)

	return &dto.StageLedgerResponse{
		EnquiryID:    enquiry.ID,
		Stages:       outcome.ledger,
		CurrentIndex: current,
		Delegated:    outcome.delegated,
	}, nil
}

// SetStageStatus flips one stage's status. Closed stages cannot be reopened.
func (s *StageTransitionService) SetStageStatus(ctx context.Context, enquiryID string, req dto.SetStageStatusRequest, actor string) (*dto.StageLedgerResponse, error) {
	if err := s.deps.Validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid stage status payload")
	}

	enquiry, err := s.loadEnquiry(ctx, enquiryID)
	if err != nil {
		return nil, err
	}

	idx := enquiry.Stages.IndexOf(req.StageName)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrStageNotFound, fmt.Sprintf("stage %q not found in enquiry", req.StageName))
	}
	kind, ok := ParseStageKind(req.StageName)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown stage %q", req.StageName))
	}
	if !statusAllowed(kind, req.Status) {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("status %q is not valid for stage %q", req.Status, req.StageName))
	}

	previous := enquiry.Stages[idx].Status
	if previous == req.Status {
		return &dto.StageLedgerResponse{EnquiryID: enquiry.ID, Stages: enquiry.Stages, CurrentIndex: enquiry.Stages.Current()}, nil
	}
	if previous.IsTerminal() {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("stage %q is already %s", req.StageName, previous))
	}

	logger := applogger.For(ctx, s.logger).With(zap.String("enquiry_id", enquiry.ID))
	ledger := withStatus(enquiry.Stages, idx, req.Status)
	entry := &models.EnquiryLog{
		EnquiryID: enquiry.ID,
		Event:     models.EventStageStatusChanged,
		StageName: &req.StageName,
		Details:   models.Details{"from_status": previous, "to_status": req.Status},
		CreatedBy: actor,
	}
	if err := s.persist(ctx, logger, enquiry.ID, ledger, entry); err != nil {
		return nil, err
	}

	if req.Status == models.StageStatusInProgress && s.deps.Tasks != nil {
		bestEffort(logger, s.deps.Metrics, "open_stage_task", s.deps.Tasks.OpenStageTask(ctx, enquiry, req.StageName))
	}

	logger.Info("stage status changed",
		zap.String("stage", string(req.StageName)),
		zap.String("from", string(previous)),
		zap.String("to", string(req.Status)),
	)

	return &dto.StageLedgerResponse{EnquiryID: enquiry.ID, Stages: ledger, CurrentIndex: ledger.Current()}, nil
}

func (s *StageTransitionService) loadEnquiry(ctx context.Context, id string) (*models.Enquiry, error) {
	enquiry, err := s.deps.Enquiries.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrEnquiryNotFound
		}
		return nil, appErrors.Internal(err, "failed to load enquiry")
	}
	return enquiry, nil
}

// persist writes the ledger and the activity entry concurrently. Only the
// ledger write can fail the call.
func (s *StageTransitionService) persist(ctx context.Context, logger *zap.Logger, enquiryID string, ledger models.StageLedger, entry *models.EnquiryLog) error {
	p := pool.New().WithContext(ctx)
	p.Go(func(ctx context.Context) error {
		return s.deps.Enquiries.UpdateStages(ctx, enquiryID, ledger)
	})
	if s.deps.Logs != nil && entry != nil {
		p.Go(func(ctx context.Context) error {
			bestEffort(logger, s.deps.Metrics, "write_enquiry_log", s.deps.Logs.Create(ctx, entry))
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return mapLedgerWriteError(err)
	}
	return nil
}

func mapLedgerWriteError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.ErrEnquiryNotFound
	}
	return appErrors.Internal(err, "failed to persist enquiry stages")
}

func (s *StageTransitionService) enterInProgress(_ context.Context, tc transitionContext) (transitionOutcome, error) {
	return transitionOutcome{
		ledger:  withStatus(tc.ledger, tc.step.NextIndex, models.StageStatusInProgress),
		entered: true,
	}, nil
}

// enterAcademicKitSelling raises the registration fee once per enquiry. The
// flag is stored only when Finance answers 200, so a retry re-attempts.
func (s *StageTransitionService) enterAcademicKitSelling(ctx context.Context, tc transitionContext) (transitionOutcome, error) {
	if !tc.enquiry.RegistrationFeeRequestTriggered {
		status, err := s.deps.Finance.CreateFee(ctx, integration.FeeRequest{
			EnquiryID:      tc.enquiry.ID,
			EnquiryNumber:  tc.enquiry.EnquiryNumber,
			SchoolID:       tc.enquiry.SchoolID,
			GradeID:        tc.enquiry.GradeID,
			BoardID:        tc.enquiry.BoardID,
			AcademicYearID: tc.enquiry.AcademicYearID,
			FeeType:        integration.FeeTypeRegistration,
		})
		if err != nil {
			return transitionOutcome{}, err
		}
		if status == http.StatusOK {
			if err := s.deps.Enquiries.MarkRegistrationFeeTriggered(ctx, tc.enquiry.ID); err != nil {
				return transitionOutcome{}, mapLedgerWriteError(err)
			}
		}
	}
	return s.enterInProgress(ctx, tc)
}

func (s *StageTransitionService) enterCompetencyTest(ctx context.Context, tc transitionContext) (transitionOutcome, error) {
	if !tc.enquiry.IsRegistered {
		if err := s.deps.Enquiries.MarkRegistered(ctx, tc.enquiry.ID, tc.now); err != nil {
			return transitionOutcome{}, mapLedgerWriteError(err)
		}
	}
	return s.enterInProgress(ctx, tc)
}

// enterAdmissionStatus triggers the approval workflow and leaves the stage
// Pending until the approval lands.
func (s *StageTransitionService) enterAdmissionStatus(ctx context.Context, tc transitionContext) (transitionOutcome, error) {
	continuing := tc.enquiry.EnquiryType.IsContinuingStudent()
	if continuing && !tc.enquiry.IsRegistered {
		if err := s.deps.Enquiries.MarkRegistered(ctx, tc.enquiry.ID, tc.now); err != nil {
			return transitionOutcome{}, mapLedgerWriteError(err)
		}
	}

	payload := map[string]interface{}{"enquiry": workflowEnquiry(&tc.enquiry)}
	if continuing && tc.enquiry.EnrolmentNumber != nil && *tc.enquiry.EnrolmentNumber != "" {
		previous, err := s.deps.Enquiries.FindPreviousEnrolment(ctx, *tc.enquiry.EnrolmentNumber, tc.enquiry.ID)
		if err != nil {
			return transitionOutcome{}, appErrors.Internal(err, "failed to load previous enrolment")
		}
		if previous != nil {
			payload["previous_enrolment"] = workflowEnquiry(previous)
		}
	}

	activity, err := s.deps.Workflow.DefaultActivity(ctx, string(models.StageAdmissionStatus), tc.enquiry.SchoolID)
	if err != nil {
		return transitionOutcome{}, err
	}
	if err := s.deps.Workflow.PostLog(ctx, integration.WorkflowLogRequest{
		ActivityID: activity.ID,
		WorkflowID: activity.WorkflowID,
		EnquiryID:  tc.enquiry.ID,
		Module:     string(models.StageAdmissionStatus),
		Payload:    payload,
		CreatedBy:  tc.actor,
	}); err != nil {
		return transitionOutcome{}, err
	}

	return transitionOutcome{
		ledger:  withStatus(tc.ledger, tc.step.NextIndex, models.StageStatusPending),
		entered: true,
	}, nil
}

// enterAdmittedOrProvisional either delegates continuing students to the admin
// panel or admits locally. The local path checkpoints InProgress before any
// external call so a retry resumes where it failed.
func (s *StageTransitionService) enterAdmittedOrProvisional(ctx context.Context, tc transitionContext) (transitionOutcome, error) {
	if tc.enquiry.EnquiryType.IsContinuingStudent() {
		if err := s.deps.Workflow.UpdateAdmissionRequest(ctx, integration.AdmissionRequestUpdate{
			EnquiryID:       tc.enquiry.ID,
			EnquiryType:     string(tc.enquiry.EnquiryType),
			EnrolmentNumber: tc.enquiry.EnrolmentNumber,
			SchoolID:        tc.enquiry.SchoolID,
			AcademicYearID:  tc.enquiry.AcademicYearID,
			RequestedBy:     tc.actor,
		}); err != nil {
			return transitionOutcome{}, err
		}
		return transitionOutcome{ledger: tc.ledger, delegated: true}, nil
	}

	ledger := withStatus(tc.ledger, tc.step.NextIndex, models.StageStatusInProgress)
	if err := s.deps.Enquiries.UpdateStages(ctx, tc.enquiry.ID, ledger); err != nil {
		return transitionOutcome{}, mapLedgerWriteError(err)
	}

	if err := s.ensureStudentProfile(ctx, tc); err != nil {
		return transitionOutcome{}, err
	}

	status := admissionStatusFor(tc.enquiry.Documents)
	ledger = withStatus(ledger, tc.step.NextIndex, status)
	s.announceAdmission(ctx, tc, status)

	return transitionOutcome{ledger: ledger}, nil
}

func (s *StageTransitionService) ensureStudentProfile(ctx context.Context, tc transitionContext) error {
	if tc.enquiry.StudentProfileID != nil && *tc.enquiry.StudentProfileID != "" {
		return nil
	}

	e := &tc.enquiry
	studentID, err := s.deps.Directory.CreateStudentProfile(ctx, integration.StudentProfileRequest{
		EnquiryID:       e.ID,
		EnquiryNumber:   e.EnquiryNumber,
		FirstName:       e.StudentFirstName,
		LastName:        e.StudentLastName,
		SchoolID:        e.SchoolID,
		GradeID:         e.GradeID,
		BoardID:         e.BoardID,
		AcademicYearID:  e.AcademicYearID,
		EnrolmentNumber: e.EnrolmentNumber,
		ParentName:      e.ParentName,
		ParentEmail:     e.ParentEmail,
		ParentMobile:    e.ParentMobile,
	})
	if err != nil {
		return err
	}
	if err := s.deps.Enquiries.SetStudentProfile(ctx, e.ID, studentID); err != nil {
		return mapLedgerWriteError(err)
	}
	if len(e.Subjects) > 0 {
		if err := s.deps.Directory.MapSubjects(ctx, studentID, e.AcademicYearID, e.Subjects); err != nil {
			return err
		}
	}
	if err := s.deps.Directory.SubmitDocuments(ctx, studentID, e.Documents); err != nil {
		return err
	}
	if !s.deps.Production && s.deps.Transport != nil {
		err := s.deps.Transport.NotifyAdmission(ctx, integration.TransportAdmission{EnquiryID: e.ID, StudentID: studentID, SchoolID: e.SchoolID})
		bestEffort(s.logger, s.deps.Metrics, "notify_transport", err, zap.String("enquiry_id", e.ID))
	}
	return nil
}

// announceAdmission notifies referrers or the family. Failures never fail the
// transition.
func (s *StageTransitionService) announceAdmission(ctx context.Context, tc transitionContext, status models.StageStatus) {
	logger := applogger.For(ctx, s.logger).With(zap.String("enquiry_id", tc.enquiry.ID))
	if len(tc.enquiry.ReferralSources()) > 0 && s.deps.Referrals != nil {
		_, err := s.deps.Referrals.CreateReminderRecords(ctx, &tc.enquiry)
		if bestEffort(logger, s.deps.Metrics, "create_referral_reminders", err) {
			bestEffort(logger, s.deps.Metrics, "send_referral_notification", s.deps.Referrals.SendInitialNotification(ctx, &tc.enquiry))
		}
		return
	}
	if s.deps.Notifier == nil {
		return
	}
	bestEffort(logger, s.deps.Metrics, "send_admission_notification", s.deps.Notifier.Dispatch(ctx, integration.Notification{
		Slug:       admissionSlug(status),
		EnquiryID:  tc.enquiry.ID,
		Recipients: recipientsOf(&tc.enquiry),
		Params: map[string]interface{}{
			"student_name":   tc.enquiry.StudentName(),
			"parent_name":    tc.enquiry.ParentName,
			"enquiry_number": tc.enquiry.EnquiryNumber,
			"admission_type": status,
		},
	}))
}

func admissionSlug(status models.StageStatus) string {
	if status == models.StageStatusProvisionalAdmission {
		return "admission-provisional"
	}
	return "admission-confirmed"
}

func workflowEnquiry(e *models.Enquiry) map[string]interface{} {
	return map[string]interface{}{
		"id":               e.ID,
		"enquiry_number":   e.EnquiryNumber,
		"enquiry_type":     e.EnquiryType,
		"school_id":        e.SchoolID,
		"grade_id":         e.GradeID,
		"board_id":         e.BoardID,
		"academic_year_id": e.AcademicYearID,
		"student_name":     e.StudentName(),
		"enrolment_number": e.EnrolmentNumber,
	}
}

func recipientsOf(e *models.Enquiry) []string {
	out := make([]string, 0, 2)
	if e.ParentEmail != "" {
		out = append(out, e.ParentEmail)
	}
	if e.ParentMobile != "" {
		out = append(out, e.ParentMobile)
	}
	return out
}

// withStatus returns a copy of ledger with stage idx set to status.
func withStatus(ledger models.StageLedger, idx int, status models.StageStatus) models.StageLedger {
	out := ledger.Clone()
	if idx >= 0 && idx < len(out) {
		out[idx].Status = status
	}
	return out
}
