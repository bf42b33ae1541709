// Package domain defines the entities exchanged with the backtest
// backend: runs, prediction/trade records, price and equity series,
// performance metrics, and structured run logs.
package domain

// Trade actions carried on a Record.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"
	ActionHold = "HOLD"
)

// Log categories used by the backend. CategoryAICall entries may carry a
// record_id linking the log line to a specific prediction record.
const (
	CategoryRun    = "run"
	CategoryTrade  = "trade"
	CategoryAICall = "ai_call"
	CategorySystem = "system"
)

// Run is one backtest/replay execution over a symbol, time range, and
// model set. Status transitions are owned by the backend; the dashboard
// only observes snapshots.
type Run struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Symbol      string   `json:"symbol"`
	Models      []string `json:"models"`
	Status      string   `json:"status"`
	CreatedAt   Time     `json:"created_at"`
	CompletedAt *Time    `json:"completed_at"`
}

// Record is one model's prediction/trade outcome at a timestamp within
// a run. Records for a given model arrive non-decreasing in timestamp.
type Record struct {
	ID               int64   `json:"id"`
	RunID            int64   `json:"run_id"`
	ModelType        string  `json:"model_type"`
	Timestamp        Time    `json:"timestamp"`
	PredictedPrice   float64 `json:"predicted_price"`
	ActualPrice      float64 `json:"actual_price"`
	Action           string  `json:"action"`
	Position         float64 `json:"position"`
	PnL              float64 `json:"pnl"`
	CumulativePnL    float64 `json:"cumulative_pnl"`
	Equity           float64 `json:"equity"`
	TriggerReason    string  `json:"trigger_reason,omitempty"`
	PredictionReason string  `json:"prediction_reason,omitempty"`
}

// PricePoint is one close of the ground-truth price series, independent
// of any model.
type PricePoint struct {
	Date  Time    `json:"date"`
	Close float64 `json:"close"`
}

// EquityPoint is one point of a per-model equity curve.
type EquityPoint struct {
	Date   Time    `json:"date"`
	Equity float64 `json:"equity"`
}

// Metrics is the terminal performance summary for one model.
type Metrics struct {
	TotalReturn float64 `json:"total_return"`
	MaxDrawdown float64 `json:"max_drawdown"`
	SharpeRatio float64 `json:"sharpe_ratio"`
}

// RunLog is one structured log entry belonging to a run. Entries in the
// ai_call category may reference a record via extra["record_id"].
type RunLog struct {
	ID        int64          `json:"id"`
	Timestamp Time           `json:"timestamp"`
	Level     string         `json:"level"`
	Category  string         `json:"category"`
	Message   string         `json:"message"`
	AIInput   map[string]any `json:"ai_input,omitempty"`
	AIOutput  map[string]any `json:"ai_output,omitempty"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// LogPage is one page of a run's log stream.
type LogPage struct {
	Total int      `json:"total"`
	Items []RunLog `json:"items"`
}

// RunDetail is the full payload for a run: the detail endpoint, the
// launch response, and the resume response all share this shape. The
// Status field is the backend's success discriminator.
type RunDetail struct {
	Status         string                   `json:"status"`
	Message        string                   `json:"message"`
	RunID          int64                    `json:"run_id"`
	Metrics        map[string]Metrics       `json:"metrics"`
	EquityCurves   map[string][]EquityPoint `json:"equity_curves"`
	PriceSeries    []PricePoint             `json:"price_series"`
	Name           string                   `json:"name"`
	Symbol         string                   `json:"symbol"`
	DataSource     string                   `json:"data_source"`
	Frequency      string                   `json:"frequency"`
	Models         []string                 `json:"models"`
	InitialCapital float64                  `json:"initial_capital"`
	Config         map[string]any           `json:"config"`
}

// RunConfig is the complete, backend-ready configuration for launching
// a run or estimating its call count.
type RunConfig struct {
	Name           string   `json:"name,omitempty"`
	Symbol         string   `json:"symbol"`
	StartTime      string   `json:"start_time"`
	EndTime        string   `json:"end_time,omitempty"`
	DataSource     string   `json:"data_source"`
	Frequency      string   `json:"frequency"`
	Models         []string `json:"models"`
	InitialCapital float64  `json:"initial_capital"`
	BuyThreshold   float64  `json:"buy_threshold"`
	SellThreshold  float64  `json:"sell_threshold"`
	StopLossPct    float64  `json:"stop_loss_pct"`
	TakeProfitPct  float64  `json:"take_profit_pct"`
	Window         int      `json:"window"`
	CommissionRate float64  `json:"commission_rate"`
	SlippageRate   float64  `json:"slippage_rate"`
}

// CallEstimate is the backend's AI call-count estimate for a run
// configuration, either fresh or scoped to a resume's remaining steps.
type CallEstimate struct {
	DataLength    int    `json:"data_length"`
	Window        int    `json:"window"`
	EngineWindow  int    `json:"engine_window"`
	PerModelCalls int    `json:"per_model_calls"`
	ModelCount    int    `json:"model_count"`
	TotalCalls    int    `json:"total_calls"`
	Formula       string `json:"formula"`
	Message       string `json:"message"`
}

// PromptSetting is a per-model system prompt stored by the backend.
type PromptSetting struct {
	ID           int64  `json:"id"`
	ModelType    string `json:"model_type"`
	Scene        string `json:"scene"`
	SystemPrompt string `json:"system_prompt"`
	Description  string `json:"description,omitempty"`
	CreatedAt    Time   `json:"created_at"`
	UpdatedAt    Time   `json:"updated_at"`
}
