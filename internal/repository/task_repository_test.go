package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admissions-api/internal/dto"
	"github.com/noah-isme/sma-admissions-api/internal/models"
)

func TestTaskRepositoryListFiltersByAssignee(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "enquiry_id", "created_for_stage", "valid_from", "valid_till", "task_creation_count", "is_closed", "assigned_to_id", "closed_at", "created_at", "updated_at"}).
		AddRow("task-1", "enq-1", "School visit", now, now.Add(time.Hour), 1, false, "counsellor-1", nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM my_tasks WHERE is_closed = FALSE AND assigned_to_id = $1 ORDER BY valid_till ASC LIMIT $2")).
		WithArgs("counsellor-1", 50).
		WillReturnRows(rows)

	tasks, err := repo.List(context.Background(), dto.TaskFilter{AssignedToID: "counsellor-1"})
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, models.StageSchoolVisit, tasks[0].CreatedForStage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTaskRepositoryCloseReportsMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE my_tasks SET is_closed = TRUE")).
		WithArgs("task-1", at).
		WillReturnResult(sqlmock.NewResult(0, 0))

	closed, err := repo.Close(context.Background(), "task-1", at)
	require.NoError(t, err)
	assert.False(t, closed)
}

func TestTaskRepositoryCloseForStages(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewTaskRepository(db)

	at := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("created_for_stage = ANY($2)")).
		WithArgs("enq-1", sqlmock.AnyArg(), at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	closed, err := repo.CloseForStages(context.Background(), "enq-1", []models.StageName{models.StageEnquiry, models.StageSchoolVisit}, at)
	require.NoError(t, err)
	assert.EqualValues(t, 2, closed)
	assert.NoError(t, mock.ExpectationsWereMet())
}
