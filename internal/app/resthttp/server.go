// Package resthttp — публичный REST API аудиохранилища.
package resthttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/internal/repo"
	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
)

// Check — зависимость, опрашиваемая в /ready.
type Check struct {
	Name   string
	Pinger blobstore.Pinger
}

type Deps struct {
	Audio  audiosvc.Service
	Docs   repo.Documents
	Log    zerolog.Logger
	Checks []Check
}

type Server struct {
	Deps
}

// NewServer конструктор
func NewServer(deps Deps) http.Handler {
	srv := &Server{Deps: deps}

	rtr := chi.NewRouter()
	rtr.Use(middleware.RequestID)
	rtr.Use(middleware.RealIP)
	rtr.Use(requestLogger(deps.Log))
	rtr.Use(middleware.Recoverer)

	rtr.Post("/api/upload/audio", srv.uploadAudio)
	rtr.Route("/api/files", func(r chi.Router) {
		r.Get("/", srv.listFiles)
		r.Get("/{id}/stream", srv.streamFile)
		r.Get("/{id}/download", srv.downloadFile)
		r.Patch("/{id}", srv.patchFile)
		r.Delete("/{id}", srv.deleteFile)
	})
	rtr.Get("/health", srv.health)
	rtr.Get("/ready", srv.ready)

	return rtr
}
