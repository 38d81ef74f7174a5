package handler

import (
	"log/slog"
	"net/http"
	"time"

	"inkflow/internal/handler/sse"
	"inkflow/internal/httputil"
	"inkflow/internal/service/generation"
)

// StreamHandler serves SSE streams: live chapter streaming and token-based
// reconnection.
type StreamHandler struct {
	generation *generation.Service
	keepAlive  time.Duration
	logger     *slog.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(gen *generation.Service, cfg *sse.Config, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		generation: gen,
		keepAlive:  cfg.KeepAliveInterval,
		logger:     logger,
	}
}

// Stream handles GET /api/v1/chapters/{id}/stream
//
// Errors before the stream is established (unknown chapter, foreign chapter)
// are ordinary JSON errors; once SSE headers are out, failures become error
// events on the stream.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	chapterID := r.PathValue("id")
	userID := httputil.GetUserID(r)

	events, err := h.generation.StreamChapter(r.Context(), chapterID, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("stream opened", "chapter_id", chapterID, "user_id", userID)
	h.serve(w, r, events, chapterID)
}

type reconnectRequest struct {
	ResumeToken string `json:"resume_token"`
}

// Reconnect handles POST /api/v1/novels/{id}/chapters/reconnect
//
// The resume token alone locates the chapter, session, and cursor; the novel
// id in the path is only a routing anchor.
func (h *StreamHandler) Reconnect(w http.ResponseWriter, r *http.Request) {
	var req reconnectRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.ResumeToken == "" {
		httputil.RespondError(w, http.StatusBadRequest, "resume_token is required")
		return
	}

	userID := httputil.GetUserID(r)
	events, err := h.generation.Resume(r.Context(), req.ResumeToken, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.logger.Info("reconnect stream opened", "user_id", userID)
	h.serve(w, r, events, "")
}

// serve pumps events onto the SSE connection until the stream ends or the
// client goes away.
func (h *StreamHandler) serve(w http.ResponseWriter, r *http.Request, events <-chan generation.Event, chapterID string) {
	writer, err := sse.NewWriter(w)
	if err != nil {
		httputil.RespondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				h.logger.Debug("stream finished", "chapter_id", chapterID)
				return
			}
			if err := writer.WriteEvent(ev.Name, ev.Data); err != nil {
				h.logger.Info("client disconnected during event write",
					"chapter_id", chapterID, "error", err)
				return
			}

		case <-ticker.C:
			if err := writer.WriteKeepAlive(); err != nil {
				h.logger.Info("client disconnected during keepalive",
					"chapter_id", chapterID, "error", err)
				return
			}

		case <-r.Context().Done():
			h.logger.Debug("stream context cancelled", "chapter_id", chapterID)
			return
		}
	}
}
