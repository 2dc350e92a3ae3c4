package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriadp/supervision-api/internal/models"
	appErrors "github.com/satriadp/supervision-api/pkg/errors"
)

func TestDeadlineGateAllowsWhenUnconfigured(t *testing.T) {
	repo := &mockDeadlineRepo{deadlines: map[string]models.Deadline{}}
	gate := NewDeadlineGate(repo, nil, time.Minute, nil, nil)

	err := gate.Check(context.Background(), "period-1", models.ArtifactThesisReport, time.Now().UTC())
	require.NoError(t, err)

	due, err := gate.DueAt(context.Background(), "period-1", models.ArtifactThesisReport)
	require.NoError(t, err)
	assert.Nil(t, due)
}

func TestDeadlineGateCutsOffAfterDue(t *testing.T) {
	due := time.Now().Add(-time.Minute).UTC()
	repo := &mockDeadlineRepo{deadlines: map[string]models.Deadline{
		deadlineKey("period-1", models.ArtifactThesisReport): {
			PeriodID: "period-1", Artifact: models.ArtifactThesisReport, DueAt: due,
		},
	}}
	gate := NewDeadlineGate(repo, nil, time.Minute, nil, nil)

	err := gate.Check(context.Background(), "period-1", models.ArtifactThesisReport, time.Now().UTC())
	requireErrCode(t, err, appErrors.ErrDeadlinePassed.Code)

	// A write exactly at or before the cutoff is still accepted.
	err = gate.Check(context.Background(), "period-1", models.ArtifactThesisReport, due)
	require.NoError(t, err)
}

func TestDeadlineServiceSetRequiresOperator(t *testing.T) {
	repo := &mockDeadlineRepo{deadlines: map[string]models.Deadline{}}
	gate := NewDeadlineGate(repo, nil, time.Minute, nil, nil)
	svc := NewDeadlineService(repo, gate, nil)

	_, err := svc.Set(context.Background(), studentActor("student-1"), SetDeadlineRequest{
		PeriodID: "period-1", Artifact: models.ArtifactThesisReport, DueAt: time.Now().Add(time.Hour),
	})
	requireErrCode(t, err, appErrors.ErrForbidden.Code)

	deadline, err := svc.Set(context.Background(), operatorActor(), SetDeadlineRequest{
		PeriodID: "period-1", Artifact: models.ArtifactThesisReport, DueAt: time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, repo.upserted, 1)
	assert.Equal(t, models.ArtifactThesisReport, deadline.Artifact)
}
