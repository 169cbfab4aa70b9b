package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-admissions-api/internal/models"
)

func TestBookedSlotRepositoryRebookCommits(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookedSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booked_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booked_slots WHERE id = $1")).
		WithArgs("old-booking").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	slot := &models.BookedSlot{SlotID: "slot-2", SlotFor: models.SlotPurposeSchoolVisit, Date: time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), EnquiryID: "enq-1"}
	require.NoError(t, repo.Rebook(context.Background(), "old-booking", slot))
	assert.NotEmpty(t, slot.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedSlotRepositoryRebookRollsBackOnDeleteFailure(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookedSlotRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO booked_slots")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booked_slots")).
		WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	err := repo.Rebook(context.Background(), "old-booking", &models.BookedSlot{SlotID: "slot-2", EnquiryID: "enq-1"})
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedSlotRepositoryCountBySlotTime(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookedSlotRepository(db)

	date := time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"slot", "booked"}).
		AddRow("10:00 AM", 2).
		AddRow("11:30 AM", 1)
	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY sm.slot")).
		WithArgs(sqlmock.AnyArg(), "Monday", models.SlotPurposeSchoolVisit, date, sqlmock.AnyArg()).
		WillReturnRows(rows)

	counts, err := repo.CountBySlotTime(context.Background(), models.SlotCountFilter{
		SchoolIDs: []string{"school-1", "school-2"},
		Day:       "Monday",
		Purpose:   models.SlotPurposeSchoolVisit,
		Date:      date,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"10:00 AM": 2, "11:30 AM": 1}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBookedSlotRepositoryDeleteIsIdempotent(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewBookedSlotRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM booked_slots WHERE id = $1")).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, repo.Delete(context.Background(), "missing"))
}
