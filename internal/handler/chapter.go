package handler

import (
	"log/slog"
	"net/http"

	"inkflow/internal/httputil"
	"inkflow/internal/service"
)

// ChapterHandler serves chapter reads and choice recording.
type ChapterHandler struct {
	chapters *service.ChapterService
	logger   *slog.Logger
}

// NewChapterHandler creates a chapter handler.
func NewChapterHandler(chapters *service.ChapterService, logger *slog.Logger) *ChapterHandler {
	return &ChapterHandler{chapters: chapters, logger: logger}
}

// Get handles GET /api/v1/chapters/{id}
func (h *ChapterHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.chapters.Get(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, detail)
}

type choiceRequest struct {
	OptionID string `json:"option_id"`
}

// Choose handles POST /api/v1/chapters/{id}/choice
func (h *ChapterHandler) Choose(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.OptionID == "" {
		httputil.RespondError(w, http.StatusBadRequest, "option_id is required")
		return
	}

	choice, err := h.chapters.RecordChoice(r.Context(), r.PathValue("id"), req.OptionID, httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, choice)
}
