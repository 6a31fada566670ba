package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/service"
)

// RunsHandler exposes asynchronous execution and run history.
type RunsHandler struct {
	svc    *service.ExecutionService
	logger *slog.Logger
}

// NewRunsHandler creates a new RunsHandler.
func NewRunsHandler(svc *service.ExecutionService, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{svc: svc, logger: logger}
}

// HandleSubmit queues a run and returns without waiting for it.
//
// HTTP: POST /api/runs
// RESPONSE: 202 Accepted with the queued run; poll GET /api/runs/{id}.
func (h *RunsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	var req executor.ExecutionRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	run, err := h.svc.Submit(r.Context(), req.Code, req.Language)
	if err != nil {
		writeError(w, err)
		return
	}

	h.logger.Info("run queued",
		slog.String("run_id", run.ID),
		slog.String("language", run.Language),
		clientAttr(r),
	)
	w.Header().Set("Location", "/api/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

// HandleGet returns one run.
//
// HTTP: GET /api/runs/{id}
func (h *RunsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// HandleList returns recent runs.
//
// HTTP: GET /api/runs?limit=20&offset=0&language=python
func (h *RunsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.History(r.Context(),
		queryInt(r, "limit", 0),
		queryInt(r, "offset", 0),
		r.URL.Query().Get("language"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
