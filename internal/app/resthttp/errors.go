package resthttp

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/httperrors"
)

// fail пишет ответ с ошибкой и логирует её на уровне, соответствующем статусу.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := httperrors.Status(err)

	ev := s.Log.Debug()
	if status >= http.StatusInternalServerError && !errors.Is(err, models.ErrClientAborted) {
		ev = s.Log.Error()
	}
	ev.Err(err).
		Str("req_id", middleware.GetReqID(r.Context())).
		Int("status", status).
		Msg("request failed")

	httperrors.Write(w, err)
}

// blobID достаёт идентификатор из пути.
func blobID(r *http.Request) (models.BlobID, error) {
	return models.ParseBlobID(chi.URLParam(r, "id"))
}
