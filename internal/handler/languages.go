package handler

import (
	"net/http"

	"github.com/sakif/codesphere/internal/language"
)

// LanguagesHandler lists the configured toolchains.
type LanguagesHandler struct {
	toolchains *language.Registry
}

// NewLanguagesHandler creates a new LanguagesHandler.
func NewLanguagesHandler(toolchains *language.Registry) *LanguagesHandler {
	return &LanguagesHandler{toolchains: toolchains}
}

// HandleList returns every language with its commands and starter template.
//
// HTTP: GET /api/languages
func (h *LanguagesHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.toolchains.All())
}
