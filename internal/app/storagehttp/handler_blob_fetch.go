package storagehttp

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/sir_venger/audiostore/pkg/byterange"
	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// fetchBlob обслуживает GET-запросы, возвращая блоб или его окно.
func (a *Server) fetchBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBlobID(w, r)
	if !ok {
		return
	}

	info, err := a.store.Stat(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}

	status := http.StatusOK
	length := info.Length
	var win *byterange.Window
	if h := r.Header.Get("Range"); h != "" {
		parsed, err := byterange.Parse(h, info.Length)
		if err != nil {
			var rerr *byterange.Error
			if errors.As(err, &rerr) {
				w.Header().Set("Content-Range", rerr.Unsatisfied())
			}
			w.WriteHeader(http.StatusRequestedRangeNotSatisfiable)
			return
		}
		win = &parsed
		status = http.StatusPartialContent
		length = parsed.Length()
		w.Header().Set("Content-Range", parsed.ContentRange())
	}

	body, err := a.store.OpenRead(r.Context(), id, win)
	if err != nil {
		a.storeError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Length", strconv.FormatInt(length, 10))
	w.Header().Set(storageproto.HeaderChecksum, info.SHA256)
	w.WriteHeader(status)

	if _, err := io.Copy(w, body); err != nil {
		if r.Context().Err() != nil {
			return
		}
		a.log.Warn().Err(err).Stringer("id", id).Msg("storage: read failed mid-stream")
		panic(http.ErrAbortHandler)
	}
}
