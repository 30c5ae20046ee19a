package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/light-bringer/metasync-service/internal/app/propagation/domain"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/queries/list_runs"
	"github.com/light-bringer/metasync-service/internal/app/propagation/trigger"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/clear_error_log"
	"github.com/light-bringer/metasync-service/internal/app/propagation/usecases/propagate_definition"
	"github.com/light-bringer/metasync-service/internal/pkg/obs"
)

// AdminHandler serves the operator endpoints.
type AdminHandler struct {
	propagator    trigger.Propagator
	listErrorLog  *list_error_log.Query
	clearErrorLog *clear_error_log.Interactor
	listRuns      *list_runs.Query
	logger        *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(
	propagator trigger.Propagator,
	listErrorLog *list_error_log.Query,
	clearErrorLog *clear_error_log.Interactor,
	listRuns *list_runs.Query,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		propagator:    propagator,
		listErrorLog:  listErrorLog,
		clearErrorLog: clearErrorLog,
		listRuns:      listRuns,
		logger:        obs.OrNop(logger),
	}
}

// ErrorLogResponse is the body of GET /api/v1/error-log.
type ErrorLogResponse struct {
	Entries    []string `json:"entries"`
	TotalCount int      `json:"total_count"`
}

// Counts is the per-outcome tally of a run.
type Counts struct {
	Resolved int `json:"resolved"`
	Applied  int `json:"applied"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
	Skipped  int `json:"skipped"`
}

// Run is one propagation run.
type Run struct {
	RunID        string  `json:"run_id"`
	DefinitionID string  `json:"definition_id"`
	Category     string  `json:"category"`
	State        string  `json:"state"`
	Counts       Counts  `json:"counts"`
	Error        string  `json:"error,omitempty"`
	StartedAt    string  `json:"started_at"`
	FinishedAt   *string `json:"finished_at,omitempty"`
}

// ListRunsResponse is the body of GET /api/v1/runs.
type ListRunsResponse struct {
	Runs []Run `json:"runs"`
}

// PropagateRequest is the body of POST /api/v1/propagate.
type PropagateRequest struct {
	DefinitionID string `json:"definition_id"`
	Category     string `json:"category"`
}

// ListErrorLog handles GET /api/v1/error-log.
func (h *AdminHandler) ListErrorLog(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &list_error_log.Request{}
	if category := query.Get("category"); category != "" {
		req.Category = &category
	}
	if definitionID := query.Get("definition_id"); definitionID != "" {
		req.DefinitionID = &definitionID
	}
	req.Limit = intParam(query.Get("limit"))
	req.Offset = intParam(query.Get("offset"))

	result, err := h.listErrorLog.Execute(r.Context(), req)
	if err != nil {
		h.fail(w, r, "failed to list error log", err)
		return
	}
	entries := result.Entries
	if entries == nil {
		entries = []string{}
	}
	writeJSON(w, http.StatusOK, ErrorLogResponse{Entries: entries, TotalCount: result.TotalCount})
}

// ClearErrorLog handles DELETE /api/v1/error-log?cleared_by=<operator>.
func (h *AdminHandler) ClearErrorLog(w http.ResponseWriter, r *http.Request) {
	clearedBy := r.URL.Query().Get("cleared_by")
	if clearedBy == "" {
		writeJSONError(w, http.StatusBadRequest, "cleared_by is required", "")
		return
	}
	if err := h.clearErrorLog.Execute(r.Context(), &clear_error_log.Request{ClearedBy: clearedBy}); err != nil {
		h.fail(w, r, "failed to clear error log", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListRuns handles GET /api/v1/runs.
func (h *AdminHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	runs, err := h.listRuns.Execute(r.Context(), &list_runs.Request{
		DefinitionID: query.Get("definition_id"),
		State:        query.Get("state"),
		Limit:        intParam(query.Get("limit")),
	})
	if err != nil {
		h.fail(w, r, "failed to list runs", err)
		return
	}

	resp := ListRunsResponse{Runs: make([]Run, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, toRun(run))
	}
	writeJSON(w, http.StatusOK, resp)
}

// Propagate handles POST /api/v1/propagate. The run executes within the request.
func (h *AdminHandler) Propagate(w http.ResponseWriter, r *http.Request) {
	var req PropagateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return
	}
	if req.DefinitionID == "" {
		writeJSONError(w, http.StatusBadRequest, "definition_id is required", "")
		return
	}

	completion := h.propagator.Execute(r.Context(), &propagate_definition.Request{
		DefinitionID: req.DefinitionID,
		Category:     req.Category,
	})
	status := http.StatusOK
	if completion.State == domain.RunAborted && errors.Is(completion.Err, domain.ErrDefinitionNotFound) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, toRun(domain.RunFromCompletion(completion)))
}

// Healthz handles GET /healthz.
func (h *AdminHandler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AdminHandler) fail(w http.ResponseWriter, r *http.Request, message string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(message, "error", err, "request_id", RequestIDFromContext(r.Context()))
	}
	writeJSONError(w, status, message, err.Error())
}

func toRun(run *domain.Run) Run {
	out := Run{
		RunID:        run.RunID,
		DefinitionID: run.DefinitionID,
		Category:     run.Category,
		State:        string(run.State),
		Counts: Counts{
			Resolved: run.Counts.Resolved,
			Applied:  run.Counts.Applied,
			Rejected: run.Counts.Rejected,
			Failed:   run.Counts.Failed,
			Skipped:  run.Counts.Skipped,
		},
		Error:     run.ErrorMessage,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if !run.FinishedAt.IsZero() {
		finishedAt := run.FinishedAt.Format(time.RFC3339)
		out.FinishedAt = &finishedAt
	}
	return out
}

func intParam(raw string) int {
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
