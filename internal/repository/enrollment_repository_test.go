package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
)

func newEnrollmentRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func enrollmentRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "student_id", "period_id", "type", "is_registered", "created_at", "updated_at"})
}

func TestEnrollmentRepositoryEnsureCreatesOnce(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("INSERT INTO enrollments").
		WithArgs(sqlmock.AnyArg(), "s1", "p1", models.EnrollmentTypeNone, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery("SELECT .+ FROM enrollments WHERE student_id = \\$1 AND period_id = \\$2").
		WithArgs("s1", "p1").
		WillReturnRows(enrollmentRows().AddRow("e1", "s1", "p1", "NONE", false, time.Now(), time.Now()))

	record, err := repo.Ensure(context.Background(), "s1", "p1", models.EnrollmentTypeNone)
	require.NoError(t, err)
	assert.False(t, record.IsRegistered)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkRegistered(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	mock.ExpectExec("UPDATE enrollments").
		WithArgs("s1", "p1", models.EnrollmentTypePreThesis, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.MarkRegistered(context.Background(), db, "s1", "p1", models.EnrollmentTypePreThesis)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryMarkRegisteredFlipsOnce(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	// Second flip matches zero rows because of the is_registered = FALSE guard.
	mock.ExpectExec("UPDATE enrollments").
		WithArgs("s1", "p1", models.EnrollmentTypePreThesis, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkRegistered(context.Background(), db, "s1", "p1", models.EnrollmentTypePreThesis)
	require.Error(t, err)
	assert.True(t, IsAlreadyRegistered(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnrollmentRepositoryLockBatchOrdersByStudent(t *testing.T) {
	db, mock, cleanup := newEnrollmentRepoMock(t)
	defer cleanup()
	repo := NewEnrollmentRepository(db)

	rows := enrollmentRows().
		AddRow("e1", "s1", "p1", "NONE", false, time.Now(), time.Now()).
		AddRow("e2", "s2", "p1", "NONE", false, time.Now(), time.Now())
	mock.ExpectQuery("ORDER BY student_id FOR UPDATE").
		WithArgs("p1", "s1", "s2").
		WillReturnRows(rows)

	records, err := repo.LockByStudentsAndPeriod(context.Background(), db, []string{"s1", "s2"}, "p1")
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
