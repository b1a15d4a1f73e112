package storagehttp

import (
	"net/http"
	"strconv"

	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// inspectBlob отвечает на HEAD-запросы описанием блоба.
func (a *Server) inspectBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBlobID(w, r)
	if !ok {
		return
	}

	info, err := a.store.Stat(r.Context(), id)
	if err != nil {
		a.storeError(w, err)
		return
	}

	w.Header().Set(storageproto.HeaderBlobInfo, storageproto.EncodeInfo(info))
	w.Header().Set(storageproto.HeaderChecksum, info.SHA256)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Length, 10))
	w.WriteHeader(http.StatusOK)
}

func (a *Server) deleteBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBlobID(w, r)
	if !ok {
		return
	}

	if err := a.store.Delete(r.Context(), id); err != nil {
		a.storeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
