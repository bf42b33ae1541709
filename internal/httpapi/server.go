// Package httpapi exposes the dashboard session over a JSON HTTP API,
// serving chart-ready structures and workflow endpoints to the
// rendering client.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"quantboard/internal/backend"
	"quantboard/internal/export"
	"quantboard/internal/session"
)

// Server serves the dashboard HTTP API.
type Server struct {
	session *session.Session
	log     *slog.Logger
}

// NewServer creates a new dashboard HTTP server over the session.
func NewServer(sess *session.Session, log *slog.Logger) *Server {
	return &Server{session: sess, log: log}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/runs", s.handleRuns)
	mux.HandleFunc("POST /api/runs/{id}/select", s.handleSelect)
	mux.HandleFunc("DELETE /api/runs/{id}", s.handleDelete)
	mux.HandleFunc("GET /api/runs/{id}/export", s.handleExport)
	mux.HandleFunc("GET /api/chart", s.handleChart)
	mux.HandleFunc("GET /api/equity-chart", s.handleEquityChart)
	mux.HandleFunc("POST /api/launch", s.handleLaunch)
	mux.HandleFunc("POST /api/estimate", s.handleEstimate)
	mux.HandleFunc("POST /api/runs/{id}/resume", s.handleBeginResume)
	mux.HandleFunc("POST /api/resume/confirm", s.handleConfirmResume)
	mux.HandleFunc("POST /api/resume/cancel", s.handleCancelResume)
	mux.HandleFunc("GET /api/logs", s.handleLogs)
	mux.HandleFunc("POST /api/logs/open", s.handleOpenLogs)
	mux.HandleFunc("POST /api/logs/record", s.handleRecordLogs)
	mux.HandleFunc("POST /api/logs/filter", s.handleLogFilter)
	mux.HandleFunc("POST /api/logs/page", s.handleLogPage)
	mux.HandleFunc("GET /api/prompt-settings", s.handleGetPrompts)
	mux.HandleFunc("POST /api/prompt-settings", s.handleSavePrompt)
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// writeFailure maps session/backend errors onto HTTP statuses: local
// validation stays 400, missing resources 404, everything reaching the
// backend surfaces as 502 with the backend's message.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrInvalidForm):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, backend.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, session.ErrNoSelection), errors.Is(err, session.ErrNotConfirming):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid run id %q", r.PathValue("id"))
	}
	return id, nil
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.session.RefreshRuns(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, RunsResponse{Runs: runs})
}

func (s *Server) handleSelect(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snap, err := s.session.SelectRun(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.session.DeleteRun(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	records, err := s.session.RecordsFor(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=run-%d-records.parquet", id))
	if err := export.WriteRecords(w, records); err != nil {
		s.log.Error("records export failed", "run_id", id, "error", err)
	}
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.Snapshot().PriceChart)
}

func (s *Server) handleEquityChart(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.Snapshot().EquityChart)
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	var form session.LaunchForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid launch form: "+err.Error())
		return
	}
	snap, err := s.session.Launch(r.Context(), form)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var form session.LaunchForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeError(w, http.StatusBadRequest, "invalid launch form: "+err.Error())
		return
	}
	est, err := s.session.EstimateCalls(r.Context(), form)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, est)
}

func (s *Server) handleBeginResume(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, s.session.BeginResume(r.Context(), id))
}

func (s *Server) handleConfirmResume(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid confirm body: "+err.Error())
		return
	}
	snap, err := s.session.ConfirmResume(r.Context(), body.Name)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, snap)
}

func (s *Server) handleCancelResume(w http.ResponseWriter, r *http.Request) {
	s.session.CancelResume()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.session.LogView())
}

func (s *Server) handleOpenLogs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RunID int64 `json:"run_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	view, err := s.session.OpenRunLogs(r.Context(), body.RunID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleRecordLogs(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RecordID int64 `json:"record_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body: "+err.Error())
		return
	}
	view, err := s.session.OpenRecordLogs(r.Context(), body.RecordID)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleLogFilter(w http.ResponseWriter, r *http.Request) {
	var body FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid filter: "+err.Error())
		return
	}
	view, err := s.session.UpdateLogFilter(r.Context(), session.FilterUpdate{
		Level:    body.Level,
		Category: body.Category,
		Keyword:  body.Keyword,
		RecordID: body.RecordID,
	})
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleLogPage(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Page int `json:"page"`
		Size int `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid page body: "+err.Error())
		return
	}
	view, err := s.session.SetLogPage(r.Context(), body.Page, body.Size)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, view)
}

func (s *Server) handleGetPrompts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	settings, err := s.session.PromptSettings(r.Context(), q.Get("model_type"), q.Get("scene"))
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, PromptSettingsResponse{Settings: settings})
}

func (s *Server) handleSavePrompt(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ModelType    string `json:"model_type"`
		Scene        string `json:"scene"`
		SystemPrompt string `json:"system_prompt"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid prompt body: "+err.Error())
		return
	}
	if body.ModelType == "" || body.SystemPrompt == "" {
		writeError(w, http.StatusBadRequest, "model_type and system_prompt are required")
		return
	}
	setting, err := s.session.SavePromptSetting(r.Context(), body.ModelType, body.Scene, body.SystemPrompt)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, setting)
}
