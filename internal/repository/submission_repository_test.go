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

func newSubmissionRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestSubmissionRepositoryCreateAppends(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	mock.ExpectExec("INSERT INTO submissions").
		WithArgs(sqlmock.AnyArg(), models.CaseKindPreThesis, "c1", models.SubmissionKindReport, "files/report-v2.pdf", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	sub := &models.Submission{
		CaseKind: models.CaseKindPreThesis,
		CaseID:   "c1",
		Kind:     models.SubmissionKindReport,
		FileRef:  "files/report-v2.pdf",
	}
	require.NoError(t, repo.Create(context.Background(), sub))
	assert.NotEmpty(t, sub.ID)
	assert.False(t, sub.SubmittedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryLatestPicksNewestPerKind(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	newest := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "case_kind", "case_id", "kind", "file_ref", "submitted_at"}).
		AddRow("sub9", "PRE_THESIS", "c1", "REPORT", "files/report-v3.pdf", newest).
		AddRow("sub4", "PRE_THESIS", "c1", "PROJECT", "files/project-v1.zip", newest.Add(-48*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT DISTINCT ON (kind)")).
		WithArgs(models.CaseKindPreThesis, "c1").
		WillReturnRows(rows)

	latest, err := repo.Latest(context.Background(), models.CaseKindPreThesis, "c1")
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "files/report-v3.pdf", latest[0].FileRef)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmissionRepositoryHistoryNewestFirst(t *testing.T) {
	db, mock, cleanup := newSubmissionRepoMock(t)
	defer cleanup()
	repo := NewSubmissionRepository(db)

	rows := sqlmock.NewRows([]string{"id", "case_kind", "case_id", "kind", "file_ref", "submitted_at"}).
		AddRow("sub2", "THESIS", "c2", "REPORT", "files/r2.pdf", time.Now()).
		AddRow("sub1", "THESIS", "c2", "REPORT", "files/r1.pdf", time.Now().Add(-time.Hour))
	mock.ExpectQuery("ORDER BY submitted_at DESC, id DESC").
		WithArgs(models.CaseKindThesis, "c2").
		WillReturnRows(rows)

	history, err := repo.History(context.Background(), models.CaseKindThesis, "c2")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "sub2", history[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
