package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
)

func newCapacityRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func capacityRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "teacher_id", "period_id",
		"max_pre_thesis_slots", "remaining_pre_thesis_slots",
		"max_thesis_slots", "remaining_thesis_slots",
		"created_at", "updated_at",
	})
}

func TestCapacityRepositoryLockByTeacherAndPeriod(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	rows := capacityRows().AddRow("g1", "t1", "p1", 5, 3, 2, 2, time.Now(), time.Now())
	mock.ExpectQuery("SELECT .+ FROM capacity_grants WHERE teacher_id = \\$1 AND period_id = \\$2 FOR UPDATE").
		WithArgs("t1", "p1").
		WillReturnRows(rows)

	grant, err := repo.LockByTeacherAndPeriod(context.Background(), db, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 3, grant.Remaining(models.CaseKindPreThesis))
	assert.Equal(t, 2, grant.InUse(models.CaseKindPreThesis))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryReserveSlot(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	mock.ExpectExec("UPDATE capacity_grants").
		WithArgs("g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.ReserveSlot(context.Background(), db, "g1", models.CaseKindPreThesis)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryReserveSlotExhausted(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	mock.ExpectExec("UPDATE capacity_grants").
		WithArgs("g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReserveSlot(context.Background(), db, "g1", models.CaseKindThesis)
	require.Error(t, err)
	assert.True(t, IsCapacityExhausted(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryReleaseSlotAtMax(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	mock.ExpectExec("UPDATE capacity_grants").
		WithArgs("g1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.ReleaseSlot(context.Background(), db, "g1", models.CaseKindPreThesis)
	require.Error(t, err)
	assert.True(t, IsCapacityFull(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryResizeBelowInUse(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	mock.ExpectExec("UPDATE capacity_grants").
		WithArgs("g1", 1, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Resize(context.Background(), db, "g1", models.CaseKindPreThesis, 1)
	require.Error(t, err)
	assert.True(t, IsResizeBelowInUse(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryCreateInitializesRemaining(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	mock.ExpectExec("INSERT INTO capacity_grants").
		WithArgs(sqlmock.AnyArg(), "t1", "p1", 5, 5, 2, 2, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	grant := &models.CapacityGrant{
		TeacherID:         "t1",
		PeriodID:          "p1",
		MaxPreThesisSlots: 5,
		MaxThesisSlots:    2,
	}
	require.NoError(t, repo.Create(context.Background(), grant))
	assert.Equal(t, 5, grant.RemainingPreThesisSlots)
	assert.Equal(t, 2, grant.RemainingThesisSlots)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCapacityRepositoryLockAvailableForPeriod(t *testing.T) {
	db, mock, cleanup := newCapacityRepoMock(t)
	defer cleanup()
	repo := NewCapacityRepository(db)

	rows := capacityRows().
		AddRow("g1", "t1", "p1", 5, 2, 2, 0, time.Now(), time.Now()).
		AddRow("g2", "t2", "p1", 5, 1, 2, 1, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("remaining_pre_thesis_slots > 0 ORDER BY teacher_id FOR UPDATE")).
		WithArgs("p1").
		WillReturnRows(rows)

	grants, err := repo.LockAvailableForPeriod(context.Background(), db, "p1", models.CaseKindPreThesis)
	require.NoError(t, err)
	require.Len(t, grants, 2)
	assert.Equal(t, "t1", grants[0].TeacherID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
