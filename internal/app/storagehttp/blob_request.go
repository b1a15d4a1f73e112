package storagehttp

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/audiostore/internal/models"
)

// requireBlobID валидирует path-параметр и возвращает идентификатор блоба.
func (a *Server) requireBlobID(w http.ResponseWriter, r *http.Request) (models.BlobID, bool) {
	id, err := models.ParseBlobID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return models.BlobID{}, false
	}

	return id, true
}

// storeError переводит ошибки хранилища в статусы протокола.
func (a *Server) storeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, models.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		a.log.Error().Err(err).Msg("storage: store failure")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
