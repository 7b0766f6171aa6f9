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

	"github.com/noah-isme/class-points-api/internal/models"
)

func TestSubmissionRepositoryLoadSubmissions(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	week, err := models.NewWeekRange("2024-09-02", 5)
	require.NoError(t, err)

	submitted := time.Date(2024, 9, 2, 8, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "student_id", "class_id", "date", "task_id", "category", "status", "approved", "submitted_at", "quiz_score", "outcome", "created_at"}).
		AddRow("r1", "s1", "class-10-A", "2024-09-02", "hw-1", "homework", "completed", true, submitted, nil, "Completed on time", submitted).
		AddRow("r2", "s2", "class-10-A", "2024-09-02", "quiz-1", "quiz", "completed", nil, nil, 72.5, nil, submitted)
	mock.ExpectQuery(regexp.QuoteMeta("FROM submissions WHERE class_id = $1 AND date BETWEEN $2 AND $3")).
		WithArgs("class-10-A", "2024-09-02", "2024-09-06").
		WillReturnRows(rows)

	records, err := repo.LoadSubmissions(context.Background(), "class-10-A", week)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Completed on time", records[0].OutcomeLabel())
	assert.True(t, records[0].IsApproved())
	assert.Nil(t, records[1].Approved)
	require.NotNil(t, records[1].QuizScore)
	assert.Equal(t, 72.5, *records[1].QuizScore)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryLoadSubmissionsError(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	week, _ := models.NewWeekRange("2024-09-02", 5)
	mock.ExpectQuery("FROM submissions").WillReturnError(errors.New("connection refused"))

	_, err := repo.LoadSubmissions(context.Background(), "class-9-A", week)
	assert.ErrorContains(t, err, "class-9-A")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryEnrolledStudents(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM users WHERE class_id = $1 AND role = 'student'")).
		WithArgs("class-9-B").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("s1").AddRow("s2"))

	ids, err := repo.EnrolledStudents(context.Background(), "class-9-B")
	require.NoError(t, err)
	assert.Equal(t, []string{"s1", "s2"}, ids)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySaveSubmissions(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	outcome := "Participated"
	records := []models.SubmissionRecord{
		{ID: "r1", StudentID: "s1", ClassID: "class-10-A", Date: "2024-09-02", TaskID: "t", Category: models.CategoryTeamNonCurricular, Status: models.SubmissionCompleted, Outcome: &outcome},
		{ID: "r2", StudentID: "s2", ClassID: "class-10-A", Date: "2024-09-02", TaskID: "t", Category: models.CategoryTeamNonCurricular, Status: models.SubmissionCompleted, Outcome: &outcome},
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO submissions")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (class_id, date, student_id, task_id)")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.SaveSubmissions(context.Background(), records))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositorySaveSubmissionsRollsBack(t *testing.T) {
	db, mock, cleanup := newSQLMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO submissions").WillReturnError(errors.New("deadlock"))
	mock.ExpectRollback()

	err := repo.SaveSubmissions(context.Background(), []models.SubmissionRecord{{ID: "r1", StudentID: "s1", TaskID: "t"}})
	assert.ErrorContains(t, err, "deadlock")
	require.NoError(t, mock.ExpectationsWereMet())
}
