package storagehttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
)

// Server serves the storage node HTTP API on top of fsstore.
type Server struct {
	store *fsstore.Store
	log   zerolog.Logger
}

// New создаёт HTTP-обработчик стоража поверх дискового хранилища.
func New(store *fsstore.Store, log zerolog.Logger) http.Handler {
	srv := &Server{
		store: store,
		log:   log,
	}

	return srv.routes()
}

// routes регистрирует обработчики для блобов, здоровья и GC.
func (a *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Route("/blobs/{id}", func(br chi.Router) {
		br.Put("/", a.insertBlob)
		br.Get("/", a.fetchBlob)
		br.Head("/", a.inspectBlob)
		br.Delete("/", a.deleteBlob)
	})

	r.Get("/health", a.health)
	r.Post("/admin/gc", a.gcOnce)

	return r
}
