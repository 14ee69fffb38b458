package paced

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GoSim-25-26J-441/pacing-core/pkg/logger"
	"github.com/GoSim-25-26J-441/pacing-core/pkg/models"
)

type HTTPServer struct {
	mux *http.ServeMux
	api *API
}

func NewHTTPServer(api *API) *HTTPServer {
	s := &HTTPServer{
		mux: http.NewServeMux(),
		api: api,
	}

	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/v1/runs", s.handleRuns)
	s.mux.HandleFunc("/v1/runs/", s.handleRunByID)
	registerConnectHandlers(s.mux, api)

	return s
}

func (s *HTTPServer) Handler() http.Handler {
	return s.mux
}

func (s *HTTPServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// handleRuns handles /v1/runs endpoint
func (s *HTTPServer) handleRuns(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateRun(w, r)
	case http.MethodGet:
		s.handleListRuns(w, r)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleRunByID handles /v1/runs/{id} and related endpoints
func (s *HTTPServer) handleRunByID(w http.ResponseWriter, r *http.Request) {
	// /v1/runs/{id}, /v1/runs/{id}:start, /v1/runs/{id}:stop, /v1/runs/{id}/{trace|metrics|export}
	path := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if path == "" {
		s.writeError(w, http.StatusBadRequest, "run ID is required")
		return
	}

	route := func(suffix, method string, h func(http.ResponseWriter, *http.Request, string)) bool {
		if !strings.HasSuffix(path, suffix) {
			return false
		}
		if r.Method != method {
			s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return true
		}
		h(w, r, strings.TrimSuffix(path, suffix))
		return true
	}

	switch {
	case route(":start", http.MethodPost, s.handleStartRun):
	case route(":stop", http.MethodPost, s.handleStopRun):
	case route("/trace", http.MethodGet, s.handleGetTrace):
	case route("/metrics", http.MethodGet, s.handleGetRunMetrics):
	case route("/export", http.MethodGet, s.handleExportRun):
	case strings.Contains(path, "/"):
		s.writeError(w, http.StatusNotFound, "not found")
	case r.Method == http.MethodGet:
		s.handleGetRun(w, r, path)
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleCreateRun handles POST /v1/runs
func (s *HTTPServer) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req createRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	run, err := s.api.CreateRun(req)
	if err != nil {
		s.writeErr(w, err)
		return
	}

	logger.Info("run created (HTTP)", "run_id", run.ID)
	s.writeJSON(w, http.StatusCreated, map[string]any{"run": run})
}

// handleListRuns handles GET /v1/runs?limit=&status=
func (s *HTTPServer) handleListRuns(w http.ResponseWriter, r *http.Request) {
	req := listRunsRequest{Limit: 50}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			req.Limit = parsed
		}
	}
	req.Status = models.RunStatus(r.URL.Query().Get("status"))

	runs, err := s.api.ListRuns(r.Context(), req)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (s *HTTPServer) handleGetRun(w http.ResponseWriter, r *http.Request, runID string) {
	run, err := s.api.GetRun(r.Context(), runID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *HTTPServer) handleStartRun(w http.ResponseWriter, _ *http.Request, runID string) {
	run, err := s.api.StartRun(runID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	logger.Info("run started (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *HTTPServer) handleStopRun(w http.ResponseWriter, _ *http.Request, runID string) {
	run, err := s.api.StopRun(runID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	logger.Info("run cancelled (HTTP)", "run_id", runID)
	s.writeJSON(w, http.StatusOK, map[string]any{"run": run})
}

func (s *HTTPServer) handleGetRunMetrics(w http.ResponseWriter, r *http.Request, runID string) {
	view, err := s.api.Metrics(r.Context(), runID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *HTTPServer) handleGetTrace(w http.ResponseWriter, r *http.Request, runID string) {
	view, err := s.api.Trace(r.Context(), runID)
	if err != nil {
		s.writeErr(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

// handleExportRun handles GET /v1/runs/{id}/export?format=csv|fit
func (s *HTTPServer) handleExportRun(w http.ResponseWriter, r *http.Request, runID string) {
	data, format, err := s.api.Export(r.Context(), runID, r.URL.Query().Get("format"))
	if err != nil {
		s.writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", `attachment; filename="`+runID+format.Extension()+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		logger.Error("failed to write export", "run_id", runID, "error", err)
	}
}

func (s *HTTPServer) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("failed to encode JSON response", "error", err)
	}
}

func (s *HTTPServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]any{
		"error": message,
	})
}

func (s *HTTPServer) writeErr(w http.ResponseWriter, err error) {
	s.writeError(w, httpStatusOf(err), err.Error())
}
