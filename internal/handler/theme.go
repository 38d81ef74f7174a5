package handler

import (
	"net/http"

	"inkflow/internal/httputil"
	"inkflow/internal/service/llm"
)

// ThemeHandler serves the list of supported novel themes.
type ThemeHandler struct {
	prompts *llm.PromptLibrary
}

// NewThemeHandler creates a theme handler.
func NewThemeHandler(prompts *llm.PromptLibrary) *ThemeHandler {
	return &ThemeHandler{prompts: prompts}
}

// List handles GET /api/v1/themes
func (h *ThemeHandler) List(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string][]llm.Theme{
		"themes": h.prompts.Themes(),
	})
}
