package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/roadready/drivemis-api/internal/models"
)

func newSessionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func countsRows(scheduled, completed, missed, cancelled int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"scheduled", "completed", "missed", "cancelled"}).
		AddRow(scheduled, completed, missed, cancelled)
}

func TestApplySessionChangeCascadeOrder(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions s SET session_nth")).
		WithArgs("100001", models.SessionNthExtension, models.SessionNthAssessment).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE enrollment_id")).
		WithArgs("100001").
		WillReturnRows(countsRows(2, 0, 0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE enrollments SET status")).
		WithArgs("100001", models.EnrollmentAwaitingFollowUp, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	var derivedFrom models.SessionCounts
	counts, err := repo.ApplySessionChange(context.Background(), &models.Session{
		ID:             "S-1",
		Nth:            "0",
		Date:           "2026-06-01",
		StartTime:      "09:00",
		EndTime:        "11:00",
		EnrollmentID:   "100001",
		InstructorCode: "INS-0001",
		Status:         models.SessionScheduled,
	}, func(c models.SessionCounts) models.EnrollmentStatus {
		derivedFrom = c
		return models.EnrollmentAwaitingFollowUp
	})
	require.NoError(t, err)
	require.Equal(t, models.SessionCounts{Scheduled: 2}, counts)
	require.Equal(t, counts, derivedFrom, "derive must see the post-save counts")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApplySessionChangeRollsBackOnFailure(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sessions")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sessions s SET session_nth")).
		WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	_, err := repo.ApplySessionChange(context.Background(), &models.Session{
		ID:           "S-1",
		EnrollmentID: "100001",
		Status:       models.SessionScheduled,
	}, func(models.SessionCounts) models.EnrollmentStatus {
		t.Fatal("derive must not run when the save fails")
		return models.EnrollmentAwaitingAction
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBusyResourceCodesThreadsExclusion(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	rows := sqlmock.NewRows([]string{"resource_code"}).AddRow("M4-001").AddRow("M4-002")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT f.resource_code FROM sessions")).
		WithArgs(models.FacilityKindVehicle, "2026-06-01", "09:00", "11:00", "S-9").
		WillReturnRows(rows)

	codes, err := repo.BusyResourceCodes(context.Background(), models.FacilityKindVehicle, "2026-06-01", "09:00", "11:00", "S-9")
	require.NoError(t, err)
	require.Equal(t, []string{"M4-001", "M4-002"}, codes)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestBusyWindowExcludesTouchingSessions(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	// Sessions that merely touch the query window at an endpoint are not
	// busy: the window is half-open, start < queryEnd and end > queryStart.
	mock.ExpectQuery(regexp.QuoteMeta("s.start_time < $4 AND s.end_time > $3")).
		WithArgs(models.FacilityKindVehicle, "2026-06-01", "11:00", "13:00", "").
		WillReturnRows(sqlmock.NewRows([]string{"resource_code"}))
	mock.ExpectQuery(regexp.QuoteMeta("s.start_time < $3 AND s.end_time > $2")).
		WithArgs("2026-06-01", "11:00", "13:00", "").
		WillReturnRows(sqlmock.NewRows([]string{"instructor_code"}))

	codes, err := repo.BusyResourceCodes(context.Background(), models.FacilityKindVehicle, "2026-06-01", "11:00", "13:00", "")
	require.NoError(t, err)
	require.Empty(t, codes)

	instructors, err := repo.BusyInstructorCodes(context.Background(), "2026-06-01", "11:00", "13:00", "")
	require.NoError(t, err)
	require.Empty(t, instructors)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCountsForEnrollmentExcludesArchived(t *testing.T) {
	db, mock, cleanup := newSessionRepoMock(t)
	defer cleanup()

	repo := NewSessionRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("FROM sessions WHERE enrollment_id")).
		WithArgs("100001").
		WillReturnRows(countsRows(1, 2, 1, 0))

	counts, err := repo.CountsForEnrollment(context.Background(), "100001")
	require.NoError(t, err)
	require.Equal(t, models.SessionCounts{Scheduled: 1, Completed: 2, Missed: 1}, counts)
	require.Equal(t, 3, counts.Booked())
	require.NoError(t, mock.ExpectationsWereMet())
}
