package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/integration"
	"github.com/noah-isme/sma-admissions-api/internal/models"
	"github.com/noah-isme/sma-admissions-api/pkg/clock"
	"github.com/noah-isme/sma-admissions-api/pkg/config"
	appErrors "github.com/noah-isme/sma-admissions-api/pkg/errors"
)

// tatWorkflowModule is the workflow module raised when a follow-up breaches its TAT.
const tatWorkflowModule = "Enquiry TAT Exceeded"

type taskStore interface {
	Create(ctx context.Context, task *models.MyTask) error
	HasOpen(ctx context.Context, enquiryID string, stage models.StageName) (bool, error)
	CloseForStages(ctx context.Context, enquiryID string, stages []models.StageName, at time.Time) (int64, error)
	ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.MyTask, error)
	Escalate(ctx context.Context, id string, validFrom, validTill time.Time) error
	Close(ctx context.Context, id string, at time.Time) (bool, error)
	List(ctx context.Context, filter dto.TaskFilter) ([]models.MyTask, error)
}

type followUpEnquiryStore interface {
	GetByID(ctx context.Context, id string) (*models.Enquiry, error)
	SetDetailFlag(ctx context.Context, id, key string, value bool) error
}

type tatWorkflow interface {
	DefaultActivity(ctx context.Context, module, schoolID string) (*integration.WorkflowActivity, error)
	PostLog(ctx context.Context, req integration.WorkflowLogRequest) error
}

// FollowUpService manages counsellor follow-up tasks and their TAT escalation.
type FollowUpService struct {
	tasks     taskStore
	enquiries followUpEnquiryStore
	workflow  tatWorkflow
	cfg       config.FollowUpConfig
	clock     clock.Clock
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewFollowUpService builds the service.
func NewFollowUpService(tasks taskStore, enquiries followUpEnquiryStore, workflow tatWorkflow, cfg config.FollowUpConfig, clk clock.Clock, metrics *MetricsService, logger *zap.Logger) *FollowUpService {
	if cfg.TAT <= 0 {
		cfg.TAT = 48 * time.Hour
	}
	if cfg.MaxEscalations <= 0 {
		cfg.MaxEscalations = 3
	}
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FollowUpService{tasks: tasks, enquiries: enquiries, workflow: workflow, cfg: cfg, clock: clk, metrics: metrics, logger: logger}
}

// OpenStageTask creates a follow-up for stage unless one is already open.
func (s *FollowUpService) OpenStageTask(ctx context.Context, enquiry *models.Enquiry, stage models.StageName) error {
	open, err := s.tasks.HasOpen(ctx, enquiry.ID, stage)
	if err != nil {
		return err
	}
	if open {
		return nil
	}
	now := s.clock.Now().UTC()
	return s.tasks.Create(ctx, &models.MyTask{
		EnquiryID:         enquiry.ID,
		CreatedForStage:   stage,
		ValidFrom:         now,
		ValidTill:         now.Add(s.cfg.TAT),
		TaskCreationCount: 1,
		AssignedToID:      enquiry.AssignedToID,
	})
}

// CloseStageTasks closes open follow-ups for stages the enquiry has moved past.
func (s *FollowUpService) CloseStageTasks(ctx context.Context, enquiryID string, stages []models.StageName) error {
	_, err := s.tasks.CloseForStages(ctx, enquiryID, stages, s.clock.Now().UTC())
	return err
}

// Sweep escalates overdue follow-ups, auto-closing those already escalated the
// maximum number of times. The TAT workflow fires once per enquiry.
func (s *FollowUpService) Sweep(ctx context.Context, now time.Time) error {
	overdue, err := s.tasks.ListOverdue(ctx, now.UTC(), 200)
	if err != nil {
		return err
	}

	for _, task := range overdue {
		if task.TaskCreationCount >= s.cfg.MaxEscalations {
			_, err := s.tasks.Close(ctx, task.ID, now.UTC())
			bestEffort(s.logger, s.metrics, "auto_close_task", err, zap.String("task_id", task.ID))
			continue
		}
		err := s.tasks.Escalate(ctx, task.ID, now.UTC(), now.UTC().Add(s.cfg.TAT))
		if !bestEffort(s.logger, s.metrics, "escalate_task", err, zap.String("task_id", task.ID)) {
			continue
		}
		bestEffort(s.logger, s.metrics, "tat_workflow", s.triggerTATWorkflow(ctx, task.EnquiryID), zap.String("enquiry_id", task.EnquiryID))
	}
	return nil
}

func (s *FollowUpService) triggerTATWorkflow(ctx context.Context, enquiryID string) error {
	if s.workflow == nil {
		return nil
	}
	enquiry, err := s.enquiries.GetByID(ctx, enquiryID)
	if err != nil {
		return err
	}
	if enquiry.OtherDetails.Flag(models.DetailTATWorkflowTriggered) {
		return nil
	}
	activity, err := s.workflow.DefaultActivity(ctx, tatWorkflowModule, enquiry.SchoolID)
	if err != nil {
		return err
	}
	if err := s.workflow.PostLog(ctx, integration.WorkflowLogRequest{
		ActivityID: activity.ID,
		WorkflowID: activity.WorkflowID,
		EnquiryID:  enquiry.ID,
		Module:     tatWorkflowModule,
		Payload:    map[string]interface{}{"enquiry": workflowEnquiry(enquiry)},
		CreatedBy:  "system",
	}); err != nil {
		return err
	}
	return s.enquiries.SetDetailFlag(ctx, enquiry.ID, models.DetailTATWorkflowTriggered, true)
}

// List returns open follow-ups.
func (s *FollowUpService) List(ctx context.Context, filter dto.TaskFilter) ([]models.MyTask, error) {
	tasks, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list tasks")
	}
	return lo.Filter(tasks, func(t models.MyTask, _ int) bool { return !t.IsClosed }), nil
}

// CloseTask closes one follow-up.
func (s *FollowUpService) CloseTask(ctx context.Context, id string) error {
	closed, err := s.tasks.Close(ctx, id, s.clock.Now().UTC())
	if err != nil {
		return appErrors.Internal(err, "failed to close task")
	}
	if !closed {
		return appErrors.Clone(appErrors.ErrNotFound, "open task not found")
	}
	return nil
}
