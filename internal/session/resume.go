package session

import (
	"context"
	"errors"

	"quantboard/internal/domain"
)

// ResumeStage names the resume workflow's position.
type ResumeStage string

// Workflow stages. Failed is reachable from any step; a new BeginResume
// or a CancelResume leaves it.
const (
	StageIdle       ResumeStage = "idle"
	StageEstimating ResumeStage = "estimating"
	StageConfirming ResumeStage = "confirming"
	StageResuming   ResumeStage = "resuming"
	StageRefreshing ResumeStage = "refreshing"
	StageFailed     ResumeStage = "failed"
)

// ErrNotConfirming is returned when confirm is called outside the
// confirmation step.
var ErrNotConfirming = errors.New("no resume confirmation pending")

// Narrative identifies which of the three mutually exclusive stories
// the confirmation dialog tells.
type Narrative string

// Confirmation narratives.
const (
	NarrativeNoEstimate Narrative = "estimate_unavailable"
	NarrativeNoSteps    Narrative = "no_remaining_steps"
	NarrativeEstimated  Narrative = "estimated"
)

// Confirmation is what the confirm dialog renders. Estimate is nil when
// the narrative is estimate_unavailable.
type Confirmation struct {
	RunID     int64                `json:"run_id"`
	Narrative Narrative            `json:"narrative"`
	Estimate  *domain.CallEstimate `json:"estimate,omitempty"`
}

type resumeFlow struct {
	stage ResumeStage
	runID int64
}

// ResumeStage returns the workflow's current stage.
func (s *Session) ResumeStage() ResumeStage {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resume.stage == "" {
		return StageIdle
	}
	return s.resume.stage
}

// BeginResume starts the resume workflow for a run: estimate the
// remaining AI calls, then wait for confirmation. Estimation failure is
// not fatal: the dialog opens with the estimate marked unavailable.
func (s *Session) BeginResume(ctx context.Context, runID int64) Confirmation {
	s.mu.Lock()
	s.resume = resumeFlow{stage: StageEstimating, runID: runID}
	s.mu.Unlock()

	est, err := s.api.EstimateResumeCalls(ctx, runID)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.resume = resumeFlow{stage: StageConfirming, runID: runID}
	if err != nil {
		s.log.Warn("resume call estimate unavailable", "run_id", runID, "error", err)
		return Confirmation{RunID: runID, Narrative: NarrativeNoEstimate}
	}
	narrative := NarrativeEstimated
	if est.TotalCalls == 0 {
		// Zero remaining steps: the dialog still shows and is still
		// confirmable, but tells the no-further-predictions story.
		narrative = NarrativeNoSteps
	}
	return Confirmation{RunID: runID, Narrative: narrative, Estimate: &est}
}

// CancelResume closes the confirmation dialog with no side effects.
func (s *Session) CancelResume() {
	s.mu.Lock()
	s.resume = resumeFlow{stage: StageIdle}
	s.mu.Unlock()
}

// ConfirmResume issues the resume request for the run pending
// confirmation. On request failure nothing is committed. On success the
// child run becomes the active selection and its detail, records, and
// the run list are re-fetched, each independently; one failure does
// not roll back the others.
func (s *Session) ConfirmResume(ctx context.Context, name string) (Snapshot, error) {
	s.mu.Lock()
	if s.resume.stage != StageConfirming {
		s.mu.Unlock()
		return s.Snapshot(), ErrNotConfirming
	}
	runID := s.resume.runID
	s.resume.stage = StageResuming
	s.mu.Unlock()

	detail, err := s.api.ResumeRun(ctx, runID, name)
	if err != nil {
		s.mu.Lock()
		s.resume = resumeFlow{stage: StageFailed, runID: runID}
		s.mu.Unlock()
		return s.Snapshot(), err
	}

	s.mu.Lock()
	s.resume.stage = StageRefreshing
	s.selectedID = detail.RunID
	s.clearRunDataLocked()
	s.mu.Unlock()

	if refreshed, err := s.api.RunDetail(ctx, detail.RunID); err != nil {
		s.log.Warn("post-resume detail refresh failed", "run_id", detail.RunID, "error", err)
	} else {
		s.mu.Lock()
		s.applyDetailLocked(refreshed)
		s.mu.Unlock()
	}
	s.refreshRecords(ctx, detail.RunID)
	if _, err := s.RefreshRuns(ctx); err != nil {
		s.log.Warn("post-resume run list refresh failed", "error", err)
	}

	s.mu.Lock()
	s.resume = resumeFlow{stage: StageIdle}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	return snap, nil
}
