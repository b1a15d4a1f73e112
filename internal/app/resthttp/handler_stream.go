package resthttp

import (
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/sir_venger/audiostore/internal/usecase/audiosvc"
)

const copyBufSize = 32 * 1024

func (s *Server) streamFile(w http.ResponseWriter, r *http.Request) {
	id, err := blobID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := s.Audio.Open(r.Context(), id, r.Header.Get("Range"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer c.Close()

	s.serveContent(w, r, c)
}

// downloadFile отдаёт блоб целиком как вложение; Range игнорируется.
func (s *Server) downloadFile(w http.ResponseWriter, r *http.Request) {
	id, err := blobID(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	c, err := s.Audio.OpenAttachment(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer c.Close()

	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": c.AttachmentName(),
	}))
	s.serveContent(w, r, c)
}

// serveContent пишет заголовки и копирует тело. После WriteHeader ошибку уже не отправить,
// поэтому при сбое источника соединение обрывается.
func (s *Server) serveContent(w http.ResponseWriter, r *http.Request, c *audiosvc.Content) {
	h := w.Header()
	h.Set("Accept-Ranges", "bytes")
	h.Set("Content-Type", c.Info.ContentTypeOrDefault())
	h.Set("Content-Length", strconv.FormatInt(c.Length(), 10))

	status := http.StatusOK
	if c.Window != nil {
		h.Set("Content-Range", c.Window.ContentRange())
		status = http.StatusPartialContent
	}
	w.WriteHeader(status)

	buf := make([]byte, copyBufSize)
	if _, err := io.CopyBuffer(w, c.Body, buf); err != nil {
		if r.Context().Err() != nil {
			s.Log.Debug().Err(err).Str("id", c.Info.ID.String()).Msg("stream: client gone")
			return
		}
		s.Log.Error().Err(err).Str("id", c.Info.ID.String()).Msg("stream: copy failed")
		panic(http.ErrAbortHandler)
	}
}
