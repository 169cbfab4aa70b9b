package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	"github.com/noah-isme/sma-admissions-api/pkg/config"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

type taskStoreStub struct {
	open       bool
	created    []*models.MyTask
	closedFor  []models.StageName
	overdue    []models.MyTask
	escalated  []string
	escalateTo time.Time
	closed     []string
	closeOK    bool
	listed     []models.MyTask
}

func (s *taskStoreStub) Create(ctx context.Context, task *models.MyTask) error {
	s.created = append(s.created, task)
	return nil
}

func (s *taskStoreStub) HasOpen(ctx context.Context, enquiryID string, stage models.StageName) (bool, error) {
	return s.open, nil
}

func (s *taskStoreStub) CloseForStages(ctx context.Context, enquiryID string, stages []models.StageName, at time.Time) (int64, error) {
	s.closedFor = append(s.closedFor, stages...)
	return int64(len(stages)), nil
}

func (s *taskStoreStub) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.MyTask, error) {
	return s.overdue, nil
}

func (s *taskStoreStub) Escalate(ctx context.Context, id string, validFrom, validTill time.Time) error {
	s.escalated = append(s.escalated, id)
	s.escalateTo = validTill
	return nil
}

func (s *taskStoreStub) Close(ctx context.Context, id string, at time.Time) (bool, error) {
	s.closed = append(s.closed, id)
	return s.closeOK, nil
}

func (s *taskStoreStub) List(ctx context.Context, filter dto.TaskFilter) ([]models.MyTask, error) {
	return s.listed, nil
}

var followUpNow = time.Date(2024, 6, 3, 6, 0, 0, 0, time.UTC)

func newFollowUpFixture(tasks *taskStoreStub, enquiry *models.Enquiry, wf *workflowStub) (*FollowUpService, *enquiryStoreStub) {
	store := newEnquiryStoreStub(enquiry)
	svc := NewFollowUpService(tasks, store, wf, config.FollowUpConfig{TAT: 48 * time.Hour, MaxEscalations: 3}, clock.Fixed(followUpNow), NewMetricsService(), nil)
	return svc, store
}

func TestOpenStageTask(t *testing.T) {
	assigned := "counsellor-1"
	e := newTestEnquiry()
	e.AssignedToID = &assigned
	tasks := &taskStoreStub{}
	svc, _ := newFollowUpFixture(tasks, e, &workflowStub{})

	require.NoError(t, svc.OpenStageTask(context.Background(), e, models.StageSchoolVisit))
	require.Len(t, tasks.created, 1)
	task := tasks.created[0]
	assert.Equal(t, models.StageSchoolVisit, task.CreatedForStage)
	assert.Equal(t, followUpNow.Add(48*time.Hour), task.ValidTill)
	assert.Equal(t, 1, task.TaskCreationCount)
	assert.Equal(t, &assigned, task.AssignedToID)

	tasks.open = true
	require.NoError(t, svc.OpenStageTask(context.Background(), e, models.StageSchoolVisit))
	assert.Len(t, tasks.created, 1)
}

func TestSweepEscalatesAndAutoCloses(t *testing.T) {
	tasks := &taskStoreStub{overdue: []models.MyTask{
		{ID: "t-1", EnquiryID: "enq-1", TaskCreationCount: 1},
		{ID: "t-2", EnquiryID: "enq-1", TaskCreationCount: 3},
	}}
	wf := &workflowStub{}
	svc, store := newFollowUpFixture(tasks, newTestEnquiry(), wf)

	require.NoError(t, svc.Sweep(context.Background(), followUpNow))
	assert.Equal(t, []string{"t-1"}, tasks.escalated)
	assert.Equal(t, followUpNow.Add(48*time.Hour), tasks.escalateTo)
	assert.Equal(t, []string{"t-2"}, tasks.closed)

	require.Len(t, wf.logs, 1)
	assert.Equal(t, tatWorkflowModule, wf.logs[0].Module)
	assert.True(t, store.flags[models.DetailTATWorkflowTriggered])
}

func TestSweepTriggersTATWorkflowOnce(t *testing.T) {
	tasks := &taskStoreStub{overdue: []models.MyTask{{ID: "t-1", EnquiryID: "enq-1", TaskCreationCount: 1}}}
	wf := &workflowStub{}
	svc, _ := newFollowUpFixture(tasks, newTestEnquiry(), wf)

	require.NoError(t, svc.Sweep(context.Background(), followUpNow))
	require.NoError(t, svc.Sweep(context.Background(), followUpNow))
	assert.Len(t, tasks.escalated, 2)
	assert.Len(t, wf.logs, 1)
}

func TestSweepSurvivesWorkflowFailure(t *testing.T) {
	tasks := &taskStoreStub{overdue: []models.MyTask{{ID: "t-1", EnquiryID: "enq-1", TaskCreationCount: 1}}}
	wf := &workflowStub{err: errors.New("workflow down")}
	svc, store := newFollowUpFixture(tasks, newTestEnquiry(), wf)

	require.NoError(t, svc.Sweep(context.Background(), followUpNow))
	assert.Equal(t, []string{"t-1"}, tasks.escalated)
	assert.False(t, store.flags[models.DetailTATWorkflowTriggered])
}

func TestListAndCloseTask(t *testing.T) {
	tasks := &taskStoreStub{listed: []models.MyTask{{ID: "t-1"}, {ID: "t-2", IsClosed: true}}}
	svc, _ := newFollowUpFixture(tasks, newTestEnquiry(), nil)

	open, err := svc.List(context.Background(), dto.TaskFilter{})
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "t-1", open[0].ID)

	err = svc.CloseTask(context.Background(), "t-9")
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	tasks.closeOK = true
	require.NoError(t, svc.CloseTask(context.Background(), "t-1"))
}
