package session

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"quantboard/internal/domain"
)

func TestBeginResumeEstimated(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/5/estimate-calls-resume", domain.CallEstimate{
		DataLength: 60, Window: 20, PerModelCalls: 12, ModelCount: 1, TotalCalls: 12,
	})

	s := newTestSession(t, f)
	conf := s.BeginResume(context.Background(), 5)

	assert.Equal(t, int64(5), conf.RunID)
	assert.Equal(t, NarrativeEstimated, conf.Narrative)
	require.NotNil(t, conf.Estimate)
	assert.Equal(t, 12, conf.Estimate.TotalCalls)
	assert.Equal(t, StageConfirming, s.ResumeStage())
}

func TestBeginResumeEstimateUnavailable(t *testing.T) {
	f := newFakeBackend(t)
	f.respondError("POST /run/5/estimate-calls-resume", http.StatusInternalServerError, "estimator down")

	s := newTestSession(t, f)
	conf := s.BeginResume(context.Background(), 5)

	// An estimate failure never blocks the workflow.
	assert.Equal(t, NarrativeNoEstimate, conf.Narrative)
	assert.Nil(t, conf.Estimate)
	assert.Equal(t, StageConfirming, s.ResumeStage())
}

func TestBeginResumeNoRemainingSteps(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/5/estimate-calls-resume", domain.CallEstimate{TotalCalls: 0})

	s := newTestSession(t, f)
	conf := s.BeginResume(context.Background(), 5)

	assert.Equal(t, NarrativeNoSteps, conf.Narrative)
	require.NotNil(t, conf.Estimate)
	assert.Equal(t, StageConfirming, s.ResumeStage())
}

func TestCancelResumeHasNoSideEffects(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/5/estimate-calls-resume", domain.CallEstimate{TotalCalls: 12})

	s := newTestSession(t, f)
	ctx := context.Background()
	s.BeginResume(ctx, 5)
	before := len(f.requests())

	s.CancelResume()
	assert.Equal(t, StageIdle, s.ResumeStage())
	assert.Len(t, f.requests(), before, "cancel issues no requests")
	assert.Zero(t, s.SelectedRun())

	_, err := s.ConfirmResume(ctx, "")
	assert.ErrorIs(t, err, ErrNotConfirming)
}

func TestConfirmResumeWithoutDialog(t *testing.T) {
	f := newFakeBackend(t)
	s := newTestSession(t, f)

	_, err := s.ConfirmResume(context.Background(), "child")
	assert.ErrorIs(t, err, ErrNotConfirming)
	assert.Empty(t, f.requests())
}

func TestConfirmResumeFailureCommitsNothing(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("GET /run/1", successDetail(1))
	f.respondJSON("GET /run/1/records", sampleRecords(1))
	f.respondJSON("POST /run/1/estimate-calls-resume", domain.CallEstimate{TotalCalls: 12})
	f.respondError("POST /run/1/resume", http.StatusInternalServerError, "engine busy")

	s := newTestSession(t, f)
	ctx := context.Background()
	_, err := s.SelectRun(ctx, 1)
	require.NoError(t, err)

	s.BeginResume(ctx, 1)
	_, err = s.ConfirmResume(ctx, "child")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "engine busy")

	assert.Equal(t, StageFailed, s.ResumeStage())
	assert.Equal(t, int64(1), s.SelectedRun(), "failed resume keeps the parent selected")
	assert.Equal(t, 1, s.Snapshot().RecordCount)
}

func TestConfirmResumeSelectsChildRun(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/5/estimate-calls-resume", domain.CallEstimate{TotalCalls: 12})
	f.respondJSON("POST /run/5/resume", successDetail(6))
	f.respondJSON("GET /run/6", successDetail(6))
	f.respondJSON("GET /run/6/records", sampleRecords(6))
	f.respondJSON("GET /runs", []domain.Run{{ID: 6, Name: "demo"}, {ID: 5, Name: "parent"}})

	s := newTestSession(t, f)
	ctx := context.Background()
	s.BeginResume(ctx, 5)

	snap, err := s.ConfirmResume(ctx, "demo")
	require.NoError(t, err)

	assert.Equal(t, int64(6), snap.RunID)
	assert.Equal(t, 1, snap.RecordCount)
	assert.Equal(t, StageIdle, s.ResumeStage())
	assert.Len(t, s.Runs(), 2)
}

func TestConfirmResumeRefreshesAreIndependent(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/5/estimate-calls-resume", domain.CallEstimate{TotalCalls: 12})
	f.respondJSON("POST /run/5/resume", successDetail(6))
	f.respondError("GET /run/6", http.StatusInternalServerError, "detail broke")
	f.respondJSON("GET /run/6/records", sampleRecords(6))
	f.respondJSON("GET /runs", []domain.Run{{ID: 6}})

	s := newTestSession(t, f)
	ctx := context.Background()
	s.BeginResume(ctx, 5)

	snap, err := s.ConfirmResume(ctx, "")
	require.NoError(t, err, "post-resume refreshes are best-effort")

	assert.Equal(t, int64(6), snap.RunID)
	assert.Equal(t, 1, snap.RecordCount, "records landed despite the detail failure")
	assert.Equal(t, StageIdle, s.ResumeStage())
}

func TestBeginResumeLeavesFailedStage(t *testing.T) {
	f := newFakeBackend(t)
	f.respondJSON("POST /run/1/estimate-calls-resume", domain.CallEstimate{TotalCalls: 3})
	f.respondError("POST /run/1/resume", http.StatusInternalServerError, "engine busy")

	s := newTestSession(t, f)
	ctx := context.Background()
	s.BeginResume(ctx, 1)
	_, err := s.ConfirmResume(ctx, "")
	require.Error(t, err)
	require.Equal(t, StageFailed, s.ResumeStage())

	s.BeginResume(ctx, 1)
	assert.Equal(t, StageConfirming, s.ResumeStage())
}
