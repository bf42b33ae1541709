// Package backend is the REST client for the AI-investment backtest
// backend. Every endpoint speaks JSON over HTTP; run-detail shaped
// responses additionally carry a "status" discriminator which is folded
// into the error return, so callers only ever branch on error.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quantboard/internal/domain"
)

// ErrNotFound is returned when the backend reports a missing run or
// resource.
var ErrNotFound = errors.New("not found")

// Client talks to the backtest backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a client for the backend rooted at baseURL, e.g.
// "http://localhost:8000/api/ai-investment".
func NewClient(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// LogQuery selects and pages a run's log stream.
type LogQuery struct {
	Page     int    `json:"page"`
	Size     int    `json:"size"`
	Level    string `json:"level,omitempty"`
	Category string `json:"category,omitempty"`
	Keyword  string `json:"keyword,omitempty"`
	RecordID *int64 `json:"record_id,omitempty"`
}

func (q LogQuery) values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.Size > 0 {
		v.Set("size", strconv.Itoa(q.Size))
	}
	if q.Level != "" {
		v.Set("level", q.Level)
	}
	if q.Category != "" {
		v.Set("category", q.Category)
	}
	if q.Keyword != "" {
		v.Set("keyword", q.Keyword)
	}
	if q.RecordID != nil {
		v.Set("record_id", strconv.FormatInt(*q.RecordID, 10))
	}
	return v
}

// ListRuns retrieves all runs, newest first.
func (c *Client) ListRuns(ctx context.Context) ([]domain.Run, error) {
	var runs []domain.Run
	if err := c.do(ctx, http.MethodGet, "/runs", nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// RunDetail retrieves the full payload for one run: metrics, equity
// curves, price series, config, and display fields.
func (c *Client) RunDetail(ctx context.Context, runID int64) (domain.RunDetail, error) {
	var detail domain.RunDetail
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/run/%d", runID), nil, &detail); err != nil {
		return domain.RunDetail{}, err
	}
	return detail, checkStatus(detail)
}

// RunRecords retrieves a run's prediction/trade records in timestamp
// order as delivered by the backend.
func (c *Client) RunRecords(ctx context.Context, runID int64) ([]domain.Record, error) {
	var records []domain.Record
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/run/%d/records", runID), nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// RunLogs retrieves one page of a run's log stream.
func (c *Client) RunLogs(ctx context.Context, runID int64, q LogQuery) (domain.LogPage, error) {
	path := fmt.Sprintf("/run/%d/logs", runID)
	if enc := q.values().Encode(); enc != "" {
		path += "?" + enc
	}
	var page domain.LogPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return domain.LogPage{}, err
	}
	return page, nil
}

// LaunchRun submits a complete run configuration and blocks until the
// backend has executed it, returning the resulting run detail.
func (c *Client) LaunchRun(ctx context.Context, cfg domain.RunConfig) (domain.RunDetail, error) {
	var detail domain.RunDetail
	if err := c.do(ctx, http.MethodPost, "/run", cfg, &detail); err != nil {
		return domain.RunDetail{}, err
	}
	return detail, checkStatus(detail)
}

// EstimateCalls asks the backend how many AI calls the given
// configuration would trigger.
func (c *Client) EstimateCalls(ctx context.Context, cfg domain.RunConfig) (domain.CallEstimate, error) {
	var est domain.CallEstimate
	if err := c.do(ctx, http.MethodPost, "/estimate-calls", cfg, &est); err != nil {
		return domain.CallEstimate{}, err
	}
	return est, nil
}

// EstimateResumeCalls estimates the calls remaining if the run were
// resumed from its last record.
func (c *Client) EstimateResumeCalls(ctx context.Context, runID int64) (domain.CallEstimate, error) {
	var est domain.CallEstimate
	path := fmt.Sprintf("/run/%d/estimate-calls-resume", runID)
	if err := c.do(ctx, http.MethodPost, path, struct{}{}, &est); err != nil {
		return domain.CallEstimate{}, err
	}
	return est, nil
}

// ResumeRun continues a completed run under an optional new name and
// returns the child run's detail.
func (c *Client) ResumeRun(ctx context.Context, runID int64, name string) (domain.RunDetail, error) {
	body := struct {
		Name string `json:"name,omitempty"`
	}{Name: name}
	var detail domain.RunDetail
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/run/%d/resume", runID), body, &detail); err != nil {
		return domain.RunDetail{}, err
	}
	return detail, checkStatus(detail)
}

// DeleteRun removes a run and everything belonging to it.
func (c *Client) DeleteRun(ctx context.Context, runID int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/run/%d", runID), nil, nil)
}

// PromptSettings lists stored system prompts, optionally filtered by
// model type and scene. Scene fallback semantics live in the backend.
func (c *Client) PromptSettings(ctx context.Context, modelType, scene string) ([]domain.PromptSetting, error) {
	v := url.Values{}
	if modelType != "" {
		v.Set("model_type", modelType)
	}
	if scene != "" {
		v.Set("scene", scene)
	}
	path := "/prompt-settings"
	if enc := v.Encode(); enc != "" {
		path += "?" + enc
	}
	var settings []domain.PromptSetting
	if err := c.do(ctx, http.MethodGet, path, nil, &settings); err != nil {
		return nil, err
	}
	return settings, nil
}

// SavePromptSetting creates or updates the system prompt for a
// (model_type, scene) pair.
func (c *Client) SavePromptSetting(ctx context.Context, modelType, scene, systemPrompt string) (domain.PromptSetting, error) {
	body := struct {
		ModelType    string `json:"model_type"`
		Scene        string `json:"scene,omitempty"`
		SystemPrompt string `json:"system_prompt"`
	}{ModelType: modelType, Scene: scene, SystemPrompt: systemPrompt}
	var setting domain.PromptSetting
	if err := c.do(ctx, http.MethodPost, "/prompt-settings", body, &setting); err != nil {
		return domain.PromptSetting{}, err
	}
	return setting, nil
}

// checkStatus folds the backend's status discriminator into an error.
func checkStatus(d domain.RunDetail) error {
	if d.Status != "" && d.Status != "success" {
		if d.Message != "" {
			return fmt.Errorf("backend: %s", d.Message)
		}
		return fmt.Errorf("backend: status %q", d.Status)
	}
	return nil
}

// do performs one request against the backend. Error bodies follow the
// backend's {"detail": "..."} convention.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: reading response: %w", method, path, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Detail string `json:"detail"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("backend: %s", apiErr.Detail)
		}
		return fmt.Errorf("backend: %s %s: status %d", method, path, resp.StatusCode)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", method, path, err)
		}
	}
	return nil
}
