package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
)

const taskColumns = `id, enquiry_id, created_for_stage, valid_from, valid_till, task_creation_count, is_closed,
assigned_to_id, closed_at, created_at, updated_at`

// TaskRepository stores follow-up tasks.
type TaskRepository struct {
	db *sqlx.DB
}

// NewTaskRepository builds repository.
func NewTaskRepository(db *sqlx.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a follow-up task.
func (r *TaskRepository) Create(ctx context.Context, task *models.MyTask) error {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	task.CreatedAt = now
	task.UpdatedAt = now
	if task.TaskCreationCount == 0 {
		task.TaskCreationCount = 1
	}
	const query = `INSERT INTO my_tasks (` + taskColumns + `)
VALUES (:id, :enquiry_id, :created_for_stage, :valid_from, :valid_till, :task_creation_count, :is_closed,
    :assigned_to_id, :closed_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, task); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// HasOpen reports whether an open task exists for the enquiry stage.
func (r *TaskRepository) HasOpen(ctx context.Context, enquiryID string, stage models.StageName) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM my_tasks WHERE enquiry_id = $1 AND created_for_stage = $2 AND is_closed = FALSE)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, enquiryID, stage); err != nil {
		return false, fmt.Errorf("check open task: %w", err)
	}
	return exists, nil
}

// CloseForStages closes open tasks of an enquiry created for any of the stages.
func (r *TaskRepository) CloseForStages(ctx context.Context, enquiryID string, stages []models.StageName, at time.Time) (int64, error) {
	if len(stages) == 0 {
		return 0, nil
	}
	names := make([]string, len(stages))
	for i, s := range stages {
		names[i] = string(s)
	}
	const query = `UPDATE my_tasks SET is_closed = TRUE, closed_at = $3, updated_at = $3
WHERE enquiry_id = $1 AND created_for_stage = ANY($2) AND is_closed = FALSE`
	res, err := r.db.ExecContext(ctx, query, enquiryID, pq.Array(names), at)
	if err != nil {
		return 0, fmt.Errorf("close tasks: %w", err)
	}
	return res.RowsAffected()
}

// ListOverdue returns open tasks whose window ended before now.
func (r *TaskRepository) ListOverdue(ctx context.Context, now time.Time, limit int) ([]models.MyTask, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `SELECT ` + taskColumns + ` FROM my_tasks
WHERE is_closed = FALSE AND valid_till < $1
ORDER BY valid_till ASC LIMIT $2`
	var tasks []models.MyTask
	if err := r.db.SelectContext(ctx, &tasks, query, now, limit); err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	return tasks, nil
}

// Escalate renews the task window and bumps its creation count.
func (r *TaskRepository) Escalate(ctx context.Context, id string, validFrom, validTill time.Time) error {
	const query = `UPDATE my_tasks SET valid_from = $2, valid_till = $3, task_creation_count = task_creation_count + 1,
    updated_at = $2
WHERE id = $1 AND is_closed = FALSE`
	if _, err := r.db.ExecContext(ctx, query, id, validFrom, validTill); err != nil {
		return fmt.Errorf("escalate task: %w", err)
	}
	return nil
}

// Close marks one task closed. It reports false when the task was missing or already closed.
func (r *TaskRepository) Close(ctx context.Context, id string, at time.Time) (bool, error) {
	const query = `UPDATE my_tasks SET is_closed = TRUE, closed_at = $2, updated_at = $2 WHERE id = $1 AND is_closed = FALSE`
	res, err := r.db.ExecContext(ctx, query, id, at)
	if err != nil {
		return false, fmt.Errorf("close task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("close task: %w", err)
	}
	return affected > 0, nil
}

// List returns open tasks filtered by assignee or enquiry.
func (r *TaskRepository) List(ctx context.Context, filter dto.TaskFilter) ([]models.MyTask, error) {
	var (
		conditions = []string{"is_closed = FALSE"}
		args       []interface{}
	)
	if filter.AssignedToID != "" {
		args = append(args, filter.AssignedToID)
		conditions = append(conditions, fmt.Sprintf("assigned_to_id = $%d", len(args)))
	}
	if filter.EnquiryID != "" {
		args = append(args, filter.EnquiryID)
		conditions = append(conditions, fmt.Sprintf("enquiry_id = $%d", len(args)))
	}
	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	args = append(args, limit)

	query := fmt.Sprintf(`SELECT %s FROM my_tasks WHERE %s ORDER BY valid_till ASC LIMIT $%d`,
		taskColumns, strings.Join(conditions, " AND "), len(args))
	var tasks []models.MyTask
	if err := r.db.SelectContext(ctx, &tasks, query, args...); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}
