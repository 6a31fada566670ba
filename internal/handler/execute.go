package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/codesphere/internal/executor"
	"github.com/sakif/codesphere/internal/report"
	"github.com/sakif/codesphere/internal/service"
)

// ExecuteHandler runs code synchronously.
type ExecuteHandler struct {
	svc    *service.ExecutionService
	logger *slog.Logger
}

// NewExecuteHandler creates a new ExecuteHandler.
func NewExecuteHandler(svc *service.ExecutionService, logger *slog.Logger) *ExecuteHandler {
	return &ExecuteHandler{
		svc:    svc,
		logger: logger,
	}
}

// ExecuteResponse carries the rendered report in Output and sets Error when
// the run did not succeed. Result is the structured outcome; it is absent
// when the executor returned an error.
type ExecuteResponse struct {
	Output string                    `json:"output"`
	Error  bool                      `json:"error"`
	Result *executor.ExecutionResult `json:"result,omitempty"`
}

// HandleExecute runs a program and returns its report.
//
// HTTP: POST /api/execute
// REQUEST BODY: {"code": "print('hi')", "language": "python"}
//
// Only malformed or oversized bodies get a 4xx. Every execution outcome, including an
// unsupported language or a missing toolchain, is a 200 whose output is the
// text the user would see.
func (h *ExecuteHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	var req executor.ExecutionRequest
	if err := readJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid execution request body", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.logger.Debug("execute request",
		slog.String("language", req.Language),
		slog.Int("code_bytes", len(req.Code)),
		clientAttr(r),
	)

	res, err := h.svc.Execute(r.Context(), req.Code, req.Language)
	writeJSON(w, http.StatusOK, ExecuteResponse{
		Output: report.Of(res, err),
		Error:  report.Failed(res, err),
		Result: res,
	})
}
