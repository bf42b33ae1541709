package session

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"quantboard/internal/domain"
)

// ErrInvalidForm marks a local validation failure: the request never
// reaches the backend.
var ErrInvalidForm = errors.New("invalid run form")

// Defaults applied to a launch form wherever the field is unset.
const (
	DefaultInitialCapital = 100000.0
	DefaultBuyThreshold   = 0.002
	DefaultSellThreshold  = -0.002
	DefaultStopLossPct    = 0.05
	DefaultTakeProfitPct  = 0.10
	DefaultWindow         = 20
	DefaultCommissionRate = 0.0015
	DefaultSlippageRate   = 0.001
)

// DataSourceDatabase is the canonical daily-bar source.
const DataSourceDatabase = "database"

// FrequencyOptions returns the frequency ladder for a data source: the
// daily-bar source only offers daily bars, everything else offers the
// fixed minute ladder. The first option is the default.
func FrequencyOptions(dataSource string) []string {
	if dataSource == "" || dataSource == DataSourceDatabase {
		return []string{"1d"}
	}
	return []string{"1m", "5m", "15m", "30m", "60m"}
}

// LaunchForm is the user-supplied run configuration before defaulting.
// Zero-valued numeric fields take their defaults.
type LaunchForm struct {
	Name           string      `json:"name"`
	Symbol         string      `json:"symbol"`
	DataSource     string      `json:"data_source"`
	Frequency      string      `json:"frequency"`
	Start          domain.Time `json:"start_time"`
	End            domain.Time `json:"end_time"`
	Models         []string    `json:"models"`
	InitialCapital float64     `json:"initial_capital"`
	BuyThreshold   float64     `json:"buy_threshold"`
	SellThreshold  float64     `json:"sell_threshold"`
	StopLossPct    float64     `json:"stop_loss_pct"`
	TakeProfitPct  float64     `json:"take_profit_pct"`
	Window         int         `json:"window"`
	CommissionRate float64     `json:"commission_rate"`
	SlippageRate   float64     `json:"slippage_rate"`
}

// BuildRunConfig merges the form with the default table into a
// complete, backend-ready configuration. Symbol, start time, and a
// non-empty model set are required; failures are local and nothing is
// submitted.
func BuildRunConfig(f LaunchForm) (domain.RunConfig, error) {
	if strings.TrimSpace(f.Symbol) == "" {
		return domain.RunConfig{}, fmt.Errorf("%w: symbol is required", ErrInvalidForm)
	}
	if f.Start.IsZero() {
		return domain.RunConfig{}, fmt.Errorf("%w: time range is required", ErrInvalidForm)
	}
	if len(f.Models) == 0 {
		return domain.RunConfig{}, fmt.Errorf("%w: at least one model is required", ErrInvalidForm)
	}

	cfg := domain.RunConfig{
		Name:           f.Name,
		Symbol:         strings.TrimSpace(f.Symbol),
		DataSource:     f.DataSource,
		Frequency:      f.Frequency,
		Models:         f.Models,
		StartTime:      f.Start.Format("2006-01-02T15:04:05"),
		InitialCapital: orDefault(f.InitialCapital, DefaultInitialCapital),
		BuyThreshold:   orDefault(f.BuyThreshold, DefaultBuyThreshold),
		SellThreshold:  orDefault(f.SellThreshold, DefaultSellThreshold),
		StopLossPct:    orDefault(f.StopLossPct, DefaultStopLossPct),
		TakeProfitPct:  orDefault(f.TakeProfitPct, DefaultTakeProfitPct),
		Window:         f.Window,
		CommissionRate: orDefault(f.CommissionRate, DefaultCommissionRate),
		SlippageRate:   orDefault(f.SlippageRate, DefaultSlippageRate),
	}
	if cfg.DataSource == "" {
		cfg.DataSource = DataSourceDatabase
	}
	if cfg.Frequency == "" {
		cfg.Frequency = FrequencyOptions(cfg.DataSource)[0]
	}
	if cfg.Window == 0 {
		cfg.Window = DefaultWindow
	}
	if !f.End.IsZero() {
		cfg.EndTime = f.End.Format("2006-01-02T15:04:05")
	}
	return cfg, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// Launch validates and submits a run, then adopts the completed run as
// the active selection: the launch response carries the full detail,
// records are fetched, and the run list refreshed (both best-effort).
func (s *Session) Launch(ctx context.Context, form LaunchForm) (Snapshot, error) {
	cfg, err := BuildRunConfig(form)
	if err != nil {
		return s.Snapshot(), err
	}

	s.setLoading(LoadDetail, true)
	detail, err := s.api.LaunchRun(ctx, cfg)
	s.mu.Lock()
	s.loading[LoadDetail] = false
	if err != nil {
		s.mu.Unlock()
		return s.Snapshot(), err
	}
	s.selectedID = detail.RunID
	s.records = nil
	s.applyDetailLocked(detail)
	s.mu.Unlock()

	s.refreshRecords(ctx, detail.RunID)
	if _, err := s.RefreshRuns(ctx); err != nil {
		s.log.Warn("run list refresh failed", "error", err)
	}
	return s.Snapshot(), nil
}

// EstimateCalls validates the form and asks the backend for the AI call
// count the configuration would trigger.
func (s *Session) EstimateCalls(ctx context.Context, form LaunchForm) (domain.CallEstimate, error) {
	cfg, err := BuildRunConfig(form)
	if err != nil {
		return domain.CallEstimate{}, err
	}
	return s.api.EstimateCalls(ctx, cfg)
}

// refreshRecords re-fetches the active run's records, best-effort.
func (s *Session) refreshRecords(ctx context.Context, runID int64) {
	s.setLoading(LoadRecords, true)
	records, err := s.api.RunRecords(ctx, runID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[LoadRecords] = false
	if err != nil {
		s.log.Warn("records fetch failed", "run_id", runID, "error", err)
		return
	}
	s.records = records
	s.rebuildLocked()
}
