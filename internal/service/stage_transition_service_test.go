package service

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/integration"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

type enquiryStoreStub struct {
	mu              sync.Mutex
	enquiry         *models.Enquiry
	previous        *models.Enquiry
	ledgerWrites    []models.StageLedger
	updateErr       error
	registeredCalls int
	feeFlagCalls    int
	profileID       string
	flags           map[string]bool
}

func newEnquiryStoreStub(e *models.Enquiry) *enquiryStoreStub {
	return &enquiryStoreStub{enquiry: e, flags: map[string]bool{}}
}

func (s *enquiryStoreStub) GetByID(ctx context.Context, id string) (*models.Enquiry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.enquiry == nil || s.enquiry.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *s.enquiry
	copied.Stages = s.enquiry.Stages.Clone()
	return &copied, nil
}

func (s *enquiryStoreStub) UpdateStages(ctx context.Context, id string, stages models.StageLedger) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	s.ledgerWrites = append(s.ledgerWrites, stages.Clone())
	s.enquiry.Stages = stages.Clone()
	return nil
}

func (s *enquiryStoreStub) MarkRegistered(ctx context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registeredCalls++
	s.enquiry.IsRegistered = true
	s.enquiry.RegisteredAt = &at
	return nil
}

func (s *enquiryStoreStub) MarkRegistrationFeeTriggered(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.feeFlagCalls++
	s.enquiry.RegistrationFeeRequestTriggered = true
	return nil
}

func (s *enquiryStoreStub) SetStudentProfile(ctx context.Context, id, profileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profileID = profileID
	s.enquiry.StudentProfileID = &profileID
	return nil
}

func (s *enquiryStoreStub) FindPreviousEnrolment(ctx context.Context, enrolmentNumber, excludeID string) (*models.Enquiry, error) {
	return s.previous, nil
}

func (s *enquiryStoreStub) SetDetailFlag(ctx context.Context, id, key string, value bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[key] = value
	if s.enquiry.OtherDetails == nil {
		s.enquiry.OtherDetails = models.Details{}
	}
	s.enquiry.OtherDetails[key] = value
	return nil
}

type logWriterStub struct {
	mu      sync.Mutex
	entries []*models.EnquiryLog
	latest  *models.EnquiryLog
	err     error
}

func (s *logWriterStub) Create(ctx context.Context, entry *models.EnquiryLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *logWriterStub) LatestByEvents(ctx context.Context, enquiryID string, events []models.EnquiryEvent) (*models.EnquiryLog, error) {
	return s.latest, nil
}

type taskTrackerStub struct {
	closed [][]models.StageName
	opened []models.StageName
}

func (s *taskTrackerStub) CloseStageTasks(ctx context.Context, enquiryID string, stages []models.StageName) error {
	s.closed = append(s.closed, stages)
	return nil
}

func (s *taskTrackerStub) OpenStageTask(ctx context.Context, enquiry *models.Enquiry, stage models.StageName) error {
	s.opened = append(s.opened, stage)
	return nil
}

type financeStub struct {
	status int
	err    error
	calls  []integration.FeeRequest
}

func (s *financeStub) CreateFee(ctx context.Context, req integration.FeeRequest) (int, error) {
	s.calls = append(s.calls, req)
	return s.status, s.err
}

type directoryStub struct {
	studentID    string
	createErr    error
	created      int
	mappedFor    string
	submittedFor string
}

func (s *directoryStub) CreateStudentProfile(ctx context.Context, req integration.StudentProfileRequest) (string, error) {
	s.created++
	return s.studentID, s.createErr
}

func (s *directoryStub) MapSubjects(ctx context.Context, studentID, academicYearID string, subjects []string) error {
	s.mappedFor = studentID
	return nil
}

func (s *directoryStub) SubmitDocuments(ctx context.Context, studentID string, documents []models.Document) error {
	s.submittedFor = studentID
	return nil
}

type workflowStub struct {
	modules  []string
	logs     []integration.WorkflowLogRequest
	requests []integration.AdmissionRequestUpdate
	err      error
}

func (s *workflowStub) DefaultActivity(ctx context.Context, module, schoolID string) (*integration.WorkflowActivity, error) {
	s.modules = append(s.modules, module)
	if s.err != nil {
		return nil, s.err
	}
	return &integration.WorkflowActivity{ID: "act-1", WorkflowID: "wf-1", Name: module}, nil
}

func (s *workflowStub) PostLog(ctx context.Context, req integration.WorkflowLogRequest) error {
	s.logs = append(s.logs, req)
	return nil
}

func (s *workflowStub) UpdateAdmissionRequest(ctx context.Context, req integration.AdmissionRequestUpdate) error {
	s.requests = append(s.requests, req)
	return s.err
}

type transportStub struct {
	calls int
	err   error
}

func (s *transportStub) NotifyAdmission(ctx context.Context, req integration.TransportAdmission) error {
	s.calls++
	return s.err
}

type referralSchedulerStub struct {
	created  int
	notified int
}

func (s *referralSchedulerStub) CreateReminderRecords(ctx context.Context, enquiry *models.Enquiry) ([]models.ReferralReminder, error) {
	s.created++
	return []models.ReferralReminder{{EnquiryID: enquiry.ID}}, nil
}

func (s *referralSchedulerStub) SendInitialNotification(ctx context.Context, enquiry *models.Enquiry) error {
	s.notified++
	return nil
}

type dispatcherStub struct {
	mu   sync.Mutex
	sent []integration.Notification
	err  error
}

func (s *dispatcherStub) Dispatch(ctx context.Context, n integration.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, n)
	return s.err
}

type transitionFixture struct {
	store     *enquiryStoreStub
	logs      *logWriterStub
	tasks     *taskTrackerStub
	finance   *financeStub
	directory *directoryStub
	workflow  *workflowStub
	transport *transportStub
	referrals *referralSchedulerStub
	notifier  *dispatcherStub
	svc       *StageTransitionService
}

func newTransitionFixture(e *models.Enquiry) *transitionFixture {
	f := &transitionFixture{
		store:     newEnquiryStoreStub(e),
		logs:      &logWriterStub{},
		tasks:     &taskTrackerStub{},
		finance:   &financeStub{status: http.StatusOK},
		directory: &directoryStub{studentID: "stu-1"},
		workflow:  &workflowStub{},
		transport: &transportStub{},
		referrals: &referralSchedulerStub{},
		notifier:  &dispatcherStub{},
	}
	f.svc = NewStageTransitionService(StageTransitionDeps{
		Enquiries: f.store,
		Logs:      f.logs,
		Tasks:     f.tasks,
		Finance:   f.finance,
		Directory: f.directory,
		Workflow:  f.workflow,
		Transport: f.transport,
		Referrals: f.referrals,
		Notifier:  f.notifier,
		Metrics:   NewMetricsService(),
		Clock:     clock.Fixed(time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)),
	})
	return f
}

func newTestEnquiry() *models.Enquiry {
	return &models.Enquiry{
		ID:               "enq-1",
		EnquiryNumber:    "ENQ-0001",
		EnquiryType:      models.EnquiryTypeNewAdmission,
		SchoolID:         "school-1",
		AcademicYearID:   "ay-2024",
		GradeID:          "grade-5",
		StudentFirstName: "Asha",
		StudentLastName:  "Rao",
		ParentName:       "Kiran Rao",
		ParentEmail:      "kiran@example.com",
		Stages:           newAdmissionLedger(),
	}
}

// ledgerAt returns a ledger where every stage before idx is closed and idx is in progress.
func ledgerAt(idx int) models.StageLedger {
	ledger := newAdmissionLedger()
	for i := range ledger {
		switch {
		case i < idx:
			ledger[i].Status = completionStatuses[StageKind(i)]
		case i == idx:
			ledger[i].Status = models.StageStatusInProgress
		default:
			ledger[i].Status = models.StageStatusOpen
		}
	}
	return ledger
}

func move(t *testing.T, f *transitionFixture, stage models.StageName) *dto.StageLedgerResponse {
	t.Helper()
	resp, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: stage}, "counsellor-1")
	require.NoError(t, err)
	return resp
}

func TestNewStageTransitionServiceRegistersEveryHandler(t *testing.T) {
	svc := NewStageTransitionService(StageTransitionDeps{})
	for kind, handler := range svc.handlers {
		assert.NotNil(t, handler, "kind %s", StageKind(kind))
	}
}

func TestMoveToNextStageEntersNextStage(t *testing.T) {
	f := newTransitionFixture(newTestEnquiry())

	resp := move(t, f, models.StageEnquiry)

	assert.Equal(t, models.StageStatusCompleted, resp.Stages[0].Status)
	assert.Equal(t, models.StageStatusInProgress, resp.Stages[1].Status)
	assert.Equal(t, 1, resp.CurrentIndex)
	assert.False(t, resp.Delegated)

	require.Len(t, f.store.ledgerWrites, 1)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.EventStageTransition, f.logs.entries[0].Event)
	assert.Equal(t, [][]models.StageName{{models.StageEnquiry}}, f.tasks.closed)
	assert.Equal(t, []models.StageName{models.StageSchoolVisit}, f.tasks.opened)
}

func TestMoveToNextStageKeepsStageOrder(t *testing.T) {
	e := newTestEnquiry()
	f := newTransitionFixture(e)

	before := e.Stages.Clone()
	resp := move(t, f, models.StageEnquiry)

	require.Len(t, resp.Stages, len(before))
	for i := range before {
		assert.Equal(t, before[i].StageName, resp.Stages[i].StageName)
		assert.Equal(t, before[i].StageID, resp.Stages[i].StageID)
	}
}

func TestMoveToNextStageWalksWholePipeline(t *testing.T) {
	e := newTestEnquiry()
	file := "s3://docs/tc.pdf"
	e.Documents = models.Documents{{Name: "TC", IsMandatory: true, File: &file}}
	f := newTransitionFixture(e)

	prev := 0
	for i := 0; i < len(e.Stages)-1; i++ {
		resp := move(t, f, e.Stages[i].StageName)
		if resp.CurrentIndex >= 0 {
			assert.Greater(t, resp.CurrentIndex, prev)
			prev = resp.CurrentIndex
		}
	}

	final := f.store.enquiry.Stages
	assert.Equal(t, models.StageStatusAdmitted, final[len(final)-1].Status)
	for _, st := range final[:len(final)-1] {
		assert.True(t, st.Status.IsTerminal(), "stage %s left %s", st.StageName, st.Status)
	}
	assert.Equal(t, 1, f.store.registeredCalls)
	assert.Len(t, f.finance.calls, 1)
}

func TestMoveToNextStageTerminal(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(7)
	f := newTransitionFixture(e)

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StageAdmittedOrProvisional}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrTerminalStage)
	assert.Empty(t, f.store.ledgerWrites)
}

func TestMoveToNextStageRejectsStaleMove(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(3)
	f := newTransitionFixture(e)

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StageEnquiry}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	_, err = f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StageAcademicKitSelling}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrConflict)

	assert.Empty(t, f.store.ledgerWrites)
	assert.Empty(t, f.logs.entries)
	assert.Empty(t, f.tasks.closed)
	assert.Equal(t, models.StageStatusCompleted, f.store.enquiry.Stages[1].Status)
	assert.Equal(t, models.StageStatusInProgress, f.store.enquiry.Stages[3].Status)
}

func TestMoveToNextStageUnknownStage(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = e.Stages[:2]
	f := newTransitionFixture(e)

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StagePayment}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrStageNotFound)
}

func TestMoveToNextStageMissingEnquiry(t *testing.T) {
	f := newTransitionFixture(newTestEnquiry())

	_, err := f.svc.MoveToNextStage(context.Background(), "missing", dto.MoveStageRequest{CurrentStage: models.StageEnquiry}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrEnquiryNotFound)
}

func TestMoveToNextStageValidatesPayload(t *testing.T) {
	f := newTransitionFixture(newTestEnquiry())

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestAcademicKitSellingTriggersFeeOnce(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(1)
	f := newTransitionFixture(e)

	move(t, f, models.StageSchoolVisit)
	require.Len(t, f.finance.calls, 1)
	assert.Equal(t, integration.FeeTypeRegistration, f.finance.calls[0].FeeType)
	assert.Equal(t, 1, f.store.feeFlagCalls)

	// Re-entering the stage after a reset must not raise a second fee.
	f.store.enquiry.Stages = ledgerAt(1)
	move(t, f, models.StageSchoolVisit)
	assert.Len(t, f.finance.calls, 1)
	assert.Equal(t, 1, f.store.feeFlagCalls)
}

func TestAcademicKitSellingLeavesFlagUnsetOnNonOK(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(1)
	f := newTransitionFixture(e)
	f.finance.status = http.StatusAccepted

	resp := move(t, f, models.StageSchoolVisit)
	assert.Equal(t, models.StageStatusInProgress, resp.Stages[2].Status)
	assert.Equal(t, 0, f.store.feeFlagCalls)
	assert.False(t, f.store.enquiry.RegistrationFeeRequestTriggered)
}

func TestHandlerErrorAbortsTransition(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(1)
	f := newTransitionFixture(e)
	f.finance.err = appErrors.Upstream(errors.New("timeout"), "finance")

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StageSchoolVisit}, "u")
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrUpstream)
	assert.Empty(t, f.store.ledgerWrites)
	assert.Equal(t, models.StageStatusInProgress, f.store.enquiry.Stages[1].Status)
}

func TestCompetencyTestEntryRegistersEnquiry(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(3)
	f := newTransitionFixture(e)

	resp := move(t, f, models.StageRegistration)
	assert.Equal(t, models.StageStatusInProgress, resp.Stages[4].Status)
	assert.Equal(t, 1, f.store.registeredCalls)
	require.NotNil(t, f.store.enquiry.RegisteredAt)
}

func TestAdmissionStatusEntryStartsWorkflow(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(4)
	f := newTransitionFixture(e)

	resp := move(t, f, models.StageCompetencyTest)

	assert.Equal(t, models.StageStatusPassed, resp.Stages[4].Status)
	assert.Equal(t, models.StageStatusPending, resp.Stages[5].Status)
	assert.Equal(t, 5, resp.CurrentIndex)
	require.Len(t, f.workflow.logs, 1)
	assert.Equal(t, string(models.StageAdmissionStatus), f.workflow.logs[0].Module)
	assert.Equal(t, "act-1", f.workflow.logs[0].ActivityID)
	assert.NotContains(t, f.workflow.logs[0].Payload, "previous_enrolment")
	assert.Equal(t, 0, f.store.registeredCalls)
}

func TestAdmissionStatusEntryIncludesPreviousEnrolment(t *testing.T) {
	enrolment := "EN-77"
	e := newTestEnquiry()
	e.EnquiryType = models.EnquiryTypeReadmission
	e.EnrolmentNumber = &enrolment
	e.Stages = ledgerAt(4)
	f := newTransitionFixture(e)
	f.store.previous = &models.Enquiry{ID: "enq-old", EnquiryNumber: "ENQ-0000"}

	move(t, f, models.StageCompetencyTest)

	require.Len(t, f.workflow.logs, 1)
	assert.Contains(t, f.workflow.logs[0].Payload, "previous_enrolment")
	assert.Equal(t, 1, f.store.registeredCalls)
}

func TestAdmittedEntryAdmitsLocally(t *testing.T) {
	e := newTestEnquiry()
	e.Subjects = models.StringList{"Maths", "Science"}
	e.Documents = models.Documents{{Name: "TC", IsMandatory: true}}
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)

	resp := move(t, f, models.StagePayment)

	assert.Equal(t, models.StageStatusProvisionalAdmission, resp.Stages[7].Status)
	assert.False(t, resp.Delegated)
	// Checkpoint write plus final write.
	require.Len(t, f.store.ledgerWrites, 2)
	assert.Equal(t, models.StageStatusInProgress, f.store.ledgerWrites[0][7].Status)
	assert.Equal(t, "stu-1", f.store.profileID)
	assert.Equal(t, "stu-1", f.directory.mappedFor)
	assert.Equal(t, "stu-1", f.directory.submittedFor)
	assert.Equal(t, 1, f.transport.calls)
	require.Len(t, f.notifier.sent, 1)
	assert.Equal(t, "admission-provisional", f.notifier.sent[0].Slug)
	assert.Equal(t, 0, f.referrals.created)
}

func TestAdmittedEntryReusesStudentProfile(t *testing.T) {
	profile := "stu-existing"
	e := newTestEnquiry()
	e.StudentProfileID = &profile
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)

	resp := move(t, f, models.StagePayment)
	assert.Equal(t, models.StageStatusAdmitted, resp.Stages[7].Status)
	assert.Equal(t, 0, f.directory.created)
	assert.Equal(t, 0, f.transport.calls)
}

func TestAdmittedEntryNotifiesReferrers(t *testing.T) {
	parent := "parent-9"
	e := newTestEnquiry()
	e.ParentSourceID = &parent
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)

	move(t, f, models.StagePayment)
	assert.Equal(t, 1, f.referrals.created)
	assert.Equal(t, 1, f.referrals.notified)
	assert.Empty(t, f.notifier.sent)
}

func TestAdmittedEntryIgnoresNotificationFailure(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)
	f.notifier.err = errors.New("bus closed")
	f.transport.err = errors.New("transport down")

	resp := move(t, f, models.StagePayment)
	assert.Equal(t, models.StageStatusAdmitted, resp.Stages[7].Status)
}

func TestAdmittedEntryProfileFailureKeepsCheckpoint(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)
	f.directory.createErr = appErrors.Upstream(errors.New("500"), "mdm")

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StagePayment}, "u")
	require.Error(t, err)
	require.Len(t, f.store.ledgerWrites, 1)
	assert.Equal(t, models.StageStatusInProgress, f.store.enquiry.Stages[7].Status)
	assert.Equal(t, models.StageStatusCompleted, f.store.enquiry.Stages[6].Status)
}

func TestAdmittedEntryResumesFromCheckpoint(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)
	f.directory.createErr = appErrors.Upstream(errors.New("500"), "mdm")

	_, err := f.svc.MoveToNextStage(context.Background(), "enq-1", dto.MoveStageRequest{CurrentStage: models.StagePayment}, "u")
	require.Error(t, err)

	f.directory.createErr = nil
	resp := move(t, f, models.StagePayment)
	assert.Equal(t, models.StageStatusCompleted, resp.Stages[6].Status)
	assert.True(t, resp.Stages[7].Status.IsTerminal())
	assert.Equal(t, 2, f.directory.created)
	assert.Len(t, f.store.ledgerWrites, 3)
}

func TestAdmittedEntryDelegatesContinuingStudents(t *testing.T) {
	e := newTestEnquiry()
	e.EnquiryType = models.EnquiryTypeIVT
	e.Stages = ledgerAt(6)
	f := newTransitionFixture(e)

	resp := move(t, f, models.StagePayment)

	assert.True(t, resp.Delegated)
	assert.Equal(t, models.StageStatusCompleted, resp.Stages[6].Status)
	assert.Equal(t, models.StageStatusOpen, resp.Stages[7].Status)
	require.Len(t, f.workflow.requests, 1)
	assert.Equal(t, string(models.EnquiryTypeIVT), f.workflow.requests[0].EnquiryType)
	assert.Equal(t, 0, f.directory.created)
	assert.Empty(t, f.tasks.opened)
}

func TestSetStageStatus(t *testing.T) {
	e := newTestEnquiry()
	e.Stages = ledgerAt(4)
	f := newTransitionFixture(e)
	ctx := context.Background()

	_, err := f.svc.SetStageStatus(ctx, "enq-1", dto.SetStageStatusRequest{StageName: models.StageCompetencyTest, Status: models.StageStatusCompleted}, "u")
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	resp, err := f.svc.SetStageStatus(ctx, "enq-1", dto.SetStageStatusRequest{StageName: models.StageCompetencyTest, Status: models.StageStatusInProgress}, "u")
	require.NoError(t, err)
	assert.Equal(t, 4, resp.CurrentIndex)
	assert.Empty(t, f.store.ledgerWrites)

	resp, err = f.svc.SetStageStatus(ctx, "enq-1", dto.SetStageStatusRequest{StageName: models.StageCompetencyTest, Status: models.StageStatusFailed}, "u")
	require.NoError(t, err)
	assert.Equal(t, models.StageStatusFailed, resp.Stages[4].Status)
	require.Len(t, f.logs.entries, 1)
	assert.Equal(t, models.EventStageStatusChanged, f.logs.entries[0].Event)

	_, err = f.svc.SetStageStatus(ctx, "enq-1", dto.SetStageStatusRequest{StageName: models.StageCompetencyTest, Status: models.StageStatusOpen}, "u")
	assert.ErrorIs(t, err, appErrors.ErrConflict)
}

func TestSetStageStatusInProgressOpensTask(t *testing.T) {
	f := newTransitionFixture(newTestEnquiry())

	_, err := f.svc.SetStageStatus(context.Background(), "enq-1", dto.SetStageStatusRequest{StageName: models.StageSchoolVisit, Status: models.StageStatusInProgress}, "u")
	require.NoError(t, err)
	assert.Equal(t, []models.StageName{models.StageSchoolVisit}, f.tasks.opened)
}
