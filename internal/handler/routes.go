package handler

import (
	"net/http"

	"inkflow/internal/httputil"
)

// Handlers groups everything the router needs.
type Handlers struct {
	Auth    *AuthHandler
	Novel   *NovelHandler
	Chapter *ChapterHandler
	Stream  *StreamHandler
	Theme   *ThemeHandler
}

// NewRouter builds the API route table. Auth, recovery, and CORS wrap the
// returned mux in main.
func NewRouter(h Handlers) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /api/v1/auth/register", h.Auth.Register)
	mux.HandleFunc("POST /api/v1/auth/login", h.Auth.Login)

	mux.HandleFunc("GET /api/v1/themes", h.Theme.List)

	mux.HandleFunc("POST /api/v1/novels", h.Novel.Create)
	mux.HandleFunc("GET /api/v1/novels", h.Novel.List)
	mux.HandleFunc("GET /api/v1/novels/{id}", h.Novel.Get)
	mux.HandleFunc("DELETE /api/v1/novels/{id}", h.Novel.Delete)
	mux.HandleFunc("GET /api/v1/novels/{id}/chapters", h.Novel.ListChapters)
	mux.HandleFunc("POST /api/v1/novels/{id}/chapters/generate", h.Novel.Generate)
	mux.HandleFunc("POST /api/v1/novels/{id}/chapters/reconnect", h.Stream.Reconnect)

	mux.HandleFunc("GET /api/v1/chapters/{id}", h.Chapter.Get)
	mux.HandleFunc("POST /api/v1/chapters/{id}/choice", h.Chapter.Choose)
	mux.HandleFunc("GET /api/v1/chapters/{id}/stream", h.Stream.Stream)

	return mux
}
