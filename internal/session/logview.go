package session

import (
	"context"
	"fmt"

	"quantboard/internal/backend"
	"quantboard/internal/domain"
)

// Page size bounds accepted by the backend's log endpoint.
const (
	defaultLogPageSize = 50
	maxLogPageSize     = 200
)

// LogView is the log panel's state: which run it is scoped to, the
// current query, and the last fetched page. When scoped to one record,
// Record carries that record's own fields for header display,
// independent of the log rows returned.
type LogView struct {
	RunID  int64            `json:"run_id"`
	Query  backend.LogQuery `json:"query"`
	Total  int              `json:"total"`
	Items  []domain.RunLog  `json:"items"`
	Record *domain.Record   `json:"record,omitempty"`
}

// FilterUpdate is a partial filter change. A nil field leaves the
// stored value untouched; a non-nil field overwrites it even when it
// points at the empty value.
type FilterUpdate struct {
	Level    *string
	Category *string
	Keyword  *string
	RecordID *int64
}

// LogView returns the current log panel state.
func (s *Session) LogView() LogView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logView
}

// OpenRunLogs opens the log view for a whole run: all filters cleared,
// record scope dropped, first page fetched.
func (s *Session) OpenRunLogs(ctx context.Context, runID int64) (LogView, error) {
	s.mu.Lock()
	s.logView = LogView{
		RunID: runID,
		Query: backend.LogQuery{Page: 1, Size: defaultLogPageSize},
	}
	q := s.logView.Query
	s.mu.Unlock()

	return s.fetchLogs(ctx, runID, q)
}

// OpenRecordLogs scopes the log view to one record's AI calls: category
// forced to ai_call, record_id set, level and keyword cleared. The
// record must belong to the active run's loaded records.
func (s *Session) OpenRecordLogs(ctx context.Context, recordID int64) (LogView, error) {
	s.mu.Lock()
	var rec *domain.Record
	for i := range s.records {
		if s.records[i].ID == recordID {
			r := s.records[i]
			rec = &r
			break
		}
	}
	if rec == nil {
		s.mu.Unlock()
		return LogView{}, fmt.Errorf("record %d not in active run: %w", recordID, ErrNoSelection)
	}
	id := rec.ID
	s.logView = LogView{
		RunID:  rec.RunID,
		Record: rec,
		Query: backend.LogQuery{
			Page:     1,
			Size:     defaultLogPageSize,
			Category: domain.CategoryAICall,
			RecordID: &id,
		},
	}
	runID := rec.RunID
	q := s.logView.Query
	s.mu.Unlock()

	return s.fetchLogs(ctx, runID, q)
}

// UpdateLogFilter merges a partial filter change into the stored query
// and re-fetches with the merged value, never the pre-update state.
// Any filter change resets the page to 1.
func (s *Session) UpdateLogFilter(ctx context.Context, u FilterUpdate) (LogView, error) {
	s.mu.Lock()
	if s.logView.RunID == 0 {
		s.mu.Unlock()
		return LogView{}, ErrNoSelection
	}
	q := &s.logView.Query
	changed := false
	if u.Level != nil {
		q.Level = *u.Level
		changed = true
	}
	if u.Category != nil {
		q.Category = *u.Category
		changed = true
	}
	if u.Keyword != nil {
		q.Keyword = *u.Keyword
		changed = true
	}
	if u.RecordID != nil {
		id := *u.RecordID
		q.RecordID = &id
		changed = true
	}
	if changed {
		q.Page = 1
	}
	runID := s.logView.RunID
	merged := *q
	s.mu.Unlock()

	return s.fetchLogs(ctx, runID, merged)
}

// SetLogPage changes pagination only; filters are left untouched.
func (s *Session) SetLogPage(ctx context.Context, page, size int) (LogView, error) {
	s.mu.Lock()
	if s.logView.RunID == 0 {
		s.mu.Unlock()
		return LogView{}, ErrNoSelection
	}
	if page > 0 {
		s.logView.Query.Page = page
	}
	if size > 0 {
		s.logView.Query.Size = min(size, maxLogPageSize)
	}
	runID := s.logView.RunID
	q := s.logView.Query
	s.mu.Unlock()

	return s.fetchLogs(ctx, runID, q)
}

// fetchLogs issues the query it is handed. On failure the stored page
// is left as it was; the loading flag is cleared either way.
func (s *Session) fetchLogs(ctx context.Context, runID int64, q backend.LogQuery) (LogView, error) {
	s.setLoading(LoadLogs, true)
	page, err := s.api.RunLogs(ctx, runID, q)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading[LoadLogs] = false
	if err != nil {
		return s.logView, err
	}
	s.logView.Total = page.Total
	s.logView.Items = page.Items
	return s.logView, nil
}
