// Package session owns the dashboard's transient state: the run list,
// the active run's records/metrics/equity/price series, the log query,
// and the resume workflow. State is mutated only on fetch completion
// under one mutex; in-flight flags drive loading indicators but do not
// deduplicate or cancel requests, so overlapping requests resolve to
// whichever response lands last.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"quantboard/internal/backend"
	"quantboard/internal/chart"
	"quantboard/internal/domain"
)

// Fetch categories with independent in-flight flags.
const (
	LoadRuns    = "runs"
	LoadDetail  = "detail"
	LoadRecords = "records"
	LoadLogs    = "logs"
	LoadPrompt  = "prompt"
)

// ErrNoSelection is returned by operations that need an active run.
var ErrNoSelection = errors.New("no run selected")

// Session is the dashboard controller for one process. It owns
// transient copies of exactly one active run's data; selecting another
// run discards them, nothing is cached across selections.
type Session struct {
	mu  sync.Mutex
	log *slog.Logger
	api *backend.Client

	runs []domain.Run

	selectedID  int64
	runName     string
	runSymbol   string
	metrics     map[string]domain.Metrics
	equity      map[string][]domain.EquityPoint
	priceSeries []domain.PricePoint
	records     []domain.Record

	// Derived; recomputed whenever metrics, equity, or records change.
	modelOrder  []string
	priceChart  chart.Data
	equityChart chart.Data

	logView LogView
	resume  resumeFlow

	loading map[string]bool
}

// New creates an empty session backed by the given backend client.
func New(api *backend.Client, log *slog.Logger) *Session {
	return &Session{
		api:     api,
		log:     log,
		loading: make(map[string]bool),
	}
}

// Snapshot is a consistent copy of the selection state for rendering.
type Snapshot struct {
	RunID       int64                     `json:"run_id"`
	Name        string                    `json:"name"`
	Symbol      string                    `json:"symbol"`
	ModelOrder  []string                  `json:"model_order"`
	Metrics     map[string]domain.Metrics `json:"metrics"`
	RecordCount int                       `json:"record_count"`
	PriceChart  chart.Data                `json:"price_chart"`
	EquityChart chart.Data                `json:"equity_chart"`
}

// Runs returns the last fetched run list.
func (s *Session) Runs() []domain.Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.runs
}

// Records returns the active run's records.
func (s *Session) Records() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.records
}

// SelectedRun returns the active run id, zero when nothing is selected.
func (s *Session) SelectedRun() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedID
}

// Loading reports whether a fetch category has a request in flight.
func (s *Session) Loading(category string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[category]
}

// Snapshot returns the current selection state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// RefreshRuns re-fetches the run list. On failure the previous list is
// kept.
func (s *Session) RefreshRuns(ctx context.Context) ([]domain.Run, error) {
	s.setLoading(LoadRuns, true)
	runs, err := s.api.ListRuns(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[LoadRuns] = false
	if err != nil {
		return nil, err
	}
	s.runs = runs
	return runs, nil
}

// SelectRun makes the run the active selection and loads its detail and
// records. The previous run's data is discarded up front. The two
// fetches fail independently; the first error is returned alongside
// whatever state did load.
func (s *Session) SelectRun(ctx context.Context, runID int64) (Snapshot, error) {
	s.mu.Lock()
	s.selectedID = runID
	s.clearRunDataLocked()
	s.loading[LoadDetail] = true
	s.loading[LoadRecords] = true
	s.mu.Unlock()

	detail, detailErr := s.api.RunDetail(ctx, runID)
	s.mu.Lock()
	s.loading[LoadDetail] = false
	if detailErr == nil {
		s.applyDetailLocked(detail)
	} else {
		s.log.Warn("run detail fetch failed", "run_id", runID, "error", detailErr)
	}
	s.mu.Unlock()

	records, recordsErr := s.api.RunRecords(ctx, runID)
	s.mu.Lock()
	s.loading[LoadRecords] = false
	if recordsErr == nil {
		s.records = records
		s.rebuildLocked()
	} else {
		s.log.Warn("records fetch failed", "run_id", runID, "error", recordsErr)
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if detailErr != nil {
		return snap, detailErr
	}
	return snap, recordsErr
}

// RecordsFor returns the records for runID: the in-memory copy when it
// is the active selection, otherwise a direct fetch that leaves the
// selection untouched.
func (s *Session) RecordsFor(ctx context.Context, runID int64) ([]domain.Record, error) {
	s.mu.Lock()
	if s.selectedID == runID && s.records != nil {
		records := s.records
		s.mu.Unlock()
		return records, nil
	}
	s.mu.Unlock()
	return s.api.RunRecords(ctx, runID)
}

// DeleteRun removes a run. On success, local state referencing the
// deleted run is cleared and the run list refreshed.
func (s *Session) DeleteRun(ctx context.Context, runID int64) error {
	if err := s.api.DeleteRun(ctx, runID); err != nil {
		return err
	}

	s.mu.Lock()
	if s.selectedID == runID {
		s.selectedID = 0
		s.clearRunDataLocked()
	}
	if s.logView.RunID == runID {
		s.logView = LogView{}
	}
	s.mu.Unlock()

	_, err := s.RefreshRuns(ctx)
	return err
}

// ---------------------------------------------------------------------------
// Internal state maintenance (callers hold s.mu)
// ---------------------------------------------------------------------------

func (s *Session) clearRunDataLocked() {
	s.runName = ""
	s.runSymbol = ""
	s.metrics = nil
	s.equity = nil
	s.priceSeries = nil
	s.records = nil
	s.rebuildLocked()
}

func (s *Session) applyDetailLocked(detail domain.RunDetail) {
	s.runName = detail.Name
	s.runSymbol = detail.Symbol
	s.metrics = detail.Metrics
	s.equity = detail.EquityCurves
	s.priceSeries = detail.PriceSeries
	s.rebuildLocked()
}

// rebuildLocked recomputes everything derived from the fetched data.
func (s *Session) rebuildLocked() {
	s.modelOrder = chart.ModelOrder(s.metrics, s.equity, s.records)
	s.priceChart = chart.Build(s.priceSeries, s.records, s.modelOrder)
	s.equityChart = chart.BuildEquity(s.equity, s.modelOrder)
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		RunID:       s.selectedID,
		Name:        s.runName,
		Symbol:      s.runSymbol,
		ModelOrder:  s.modelOrder,
		Metrics:     s.metrics,
		RecordCount: len(s.records),
		PriceChart:  s.priceChart,
		EquityChart: s.equityChart,
	}
}

func (s *Session) setLoading(category string, v bool) {
	s.mu.Lock()
	s.loading[category] = v
	s.mu.Unlock()
}
