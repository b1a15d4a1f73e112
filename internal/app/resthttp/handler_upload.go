package resthttp

import (
	"net/http"

	"github.com/sir_venger/audiostore/pkg/httperrors"
)

// uploadResp — тело ответа на успешную загрузку.
type uploadResp struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
}

// uploadAudio передаёт тело запроса сервису потоком и после коммита блоба заводит документ каталога.
func (s *Server) uploadAudio(w http.ResponseWriter, r *http.Request) {
	res, err := s.Audio.Upload(r.Context(), r.Header.Get("Content-Type"), r.Body)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	// блоб уже закоммичен: клиент получает 201, расхождение с каталогом только в логе
	if err := s.Docs.Create(r.Context(), res.Document()); err != nil {
		s.Log.Error().Err(err).Str("id", res.ID.String()).Msg("upload: document not created")
	}

	httperrors.JSON(w, http.StatusCreated, uploadResp{
		ID:          res.ID.String(),
		Filename:    res.Filename,
		ContentType: res.ContentType,
	})
}
