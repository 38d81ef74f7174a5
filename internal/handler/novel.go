package handler

import (
	"log/slog"
	"net/http"

	"inkflow/internal/httputil"
	"inkflow/internal/service"
	"inkflow/internal/service/generation"
)

// NovelHandler serves novel CRUD and chapter generation kickoff.
type NovelHandler struct {
	novels     *service.NovelService
	chapters   *service.ChapterService
	generation *generation.Service
	logger     *slog.Logger
}

// NewNovelHandler creates a novel handler.
func NewNovelHandler(
	novels *service.NovelService,
	chapters *service.ChapterService,
	gen *generation.Service,
	logger *slog.Logger,
) *NovelHandler {
	return &NovelHandler{
		novels:     novels,
		chapters:   chapters,
		generation: gen,
		logger:     logger,
	}
}

// Create handles POST /api/v1/novels
func (h *NovelHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.CreateNovelInput
	if err := httputil.ParseJSON(w, r, &input); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	novel, err := h.novels.Create(r.Context(), httputil.GetUserID(r), input)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, novel)
}

// List handles GET /api/v1/novels
func (h *NovelHandler) List(w http.ResponseWriter, r *http.Request) {
	novels, err := h.novels.List(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, novels)
}

// Get handles GET /api/v1/novels/{id}
func (h *NovelHandler) Get(w http.ResponseWriter, r *http.Request) {
	novel, err := h.novels.Get(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, novel)
}

// Delete handles DELETE /api/v1/novels/{id}
//
// Removes the novel and everything hanging off it: chapters, options and
// recorded choices.
func (h *NovelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.novels.Delete(r.Context(), r.PathValue("id"), httputil.GetUserID(r)); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListChapters handles GET /api/v1/novels/{id}/chapters
func (h *NovelHandler) ListChapters(w http.ResponseWriter, r *http.Request) {
	chapters, err := h.chapters.List(r.Context(), r.PathValue("id"), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, chapters)
}

type generateRequest struct {
	OptionID string `json:"option_id"`
}

// Generate handles POST /api/v1/novels/{id}/chapters/generate
//
// Responds 202 with the new chapter row as soon as generation is kicked off;
// the client follows up on the stream endpoint for content.
func (h *NovelHandler) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if r.ContentLength > 0 {
		if err := httputil.ParseJSON(w, r, &req); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	chapter, err := h.generation.StartGeneration(r.Context(), r.PathValue("id"), httputil.GetUserID(r), req.OptionID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, chapter)
}
