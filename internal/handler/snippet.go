package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/codesphere/internal/service"
)

// SnippetHandler manages CRUD operations for saved programs.
//
// It only parses HTTP and writes responses; validation lives in
// service.SnippetService so the CLI gets the same rules.
//
// REQUEST FLOW:
//
//	readJSON        → 400 on malformed or oversized bodies
//	h.svc.<Method>  → apperror on bad fields or unknown IDs
//	writeError      → maps the apperror sentinel to a status code
//	writeJSON       → 200 / 201 with the stored snippet
//
// REST MAPPING:
//
//	GET    /api/snippets       list
//	POST   /api/snippets       create  (201 Created)
//	GET    /api/snippets/{id}  get
//	PUT    /api/snippets/{id}  update
//	DELETE /api/snippets/{id}  delete  (204 No Content)
type SnippetHandler struct {
	svc    *service.SnippetService
	logger *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(svc *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{svc: svc, logger: logger}
}

// snippetRequest is the body of create and update requests.
type snippetRequest struct {
	Name        string `json:"name"`
	Language    string `json:"language"`
	Code        string `json:"code"`
	Description string `json:"description"`
}

// HandleList returns saved snippets, newest first.
//
// HTTP: GET /api/snippets?limit=20&offset=0&language=python
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	snippets, err := h.svc.List(r.Context(),
		queryInt(r, "limit", 0),
		queryInt(r, "offset", 0),
		r.URL.Query().Get("language"),
	)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/snippets
// REQUEST BODY: {"name": "hello", "language": "python", "code": "print('hello')"}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := readJSON(w, r, &req); err != nil {
		h.logger.Warn("invalid snippet JSON", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	snippet, err := h.svc.Create(r.Context(), req.Name, req.Language, req.Code, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleGet returns one snippet.
//
// HTTP: GET /api/snippets/{id}
//
// chi.URLParam reads the {id} segment of the route pattern.
func (h *SnippetHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleUpdate replaces a snippet's fields.
//
// HTTP: PUT /api/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req snippetRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"),
		req.Name, req.Language, req.Code, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a saved snippet.
//
// HTTP: DELETE /api/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent) // 204: deleted, no body
}
