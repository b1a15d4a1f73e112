package resthttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/sir_venger/audiostore/internal/models"
	"github.com/sir_venger/audiostore/pkg/httperrors"
)

const maxPatchBody = 64 * 1024

// listFiles ищет документы по подстроке ?q=; некорректный limit заменяется значением по умолчанию.
func (s *Server) listFiles(w http.ResponseWriter, r *http.Request) {
	q := models.ListQuery{Q: r.URL.Query().Get("q")}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			q.Limit = n
		}
	}

	docs, err := s.Docs.List(r.Context(), q.Normalize())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}

	httperrors.JSON(w, http.StatusOK, docs)
}

func (s *Server) patchFile(w http.ResponseWriter, r *http.Request) {
	id, err := blobID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var patch models.DocumentPatch
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPatchBody)).Decode(&patch); err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", models.ErrInvalidPayload, err))
		return
	}
	if patch.Empty() {
		s.fail(w, r, models.ErrNoFieldsToUpdate)
		return
	}

	doc, err := s.Docs.Update(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	httperrors.JSON(w, http.StatusOK, doc)
}

// deleteFile удаляет блоб и его документ. Документ без блоба тоже удаляется, ответ в этом случае 204.
func (s *Server) deleteFile(w http.ResponseWriter, r *http.Request) {
	id, err := blobID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	blobErr := s.Audio.Delete(r.Context(), id)
	if blobErr != nil && !errors.Is(blobErr, models.ErrNotFound) {
		s.fail(w, r, blobErr)
		return
	}

	docErr := s.Docs.Delete(r.Context(), id)
	switch {
	case docErr == nil:
	case errors.Is(docErr, models.ErrNotFound):
		if blobErr != nil {
			s.fail(w, r, blobErr)
			return
		}
	default:
		s.Log.Warn().Err(docErr).Str("id", id.String()).Msg("delete: document not removed")
	}

	w.WriteHeader(http.StatusNoContent)
}
