package storagehttp

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/sir_venger/audiostore/internal/blobstore"
	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// insertBlob принимает PUT с телом блоба. Если тело оборвалось, загрузка отбрасывается.
func (a *Server) insertBlob(w http.ResponseWriter, r *http.Request) {
	id, ok := a.requireBlobID(w, r)
	if !ok {
		return
	}

	md, err := storageproto.DecodeMetadata(r.Header.Get(storageproto.HeaderBlobMetadata))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	sink, err := a.store.OpenWriteID(r.Context(), id, r.Header.Get(storageproto.HeaderBlobName), blobstore.WriteOptions{
		ContentType: r.Header.Get(storageproto.HeaderBlobContentType),
		Metadata:    md,
	})
	if err != nil {
		a.storeError(w, err)
		return
	}

	if _, err := io.Copy(sink, r.Body); err != nil {
		_ = sink.Abort()
		a.log.Debug().Err(err).Stringer("id", id).Msg("storage: upload interrupted")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Трейлер заполнен только после того, как тело дочитано до EOF.
	if v := r.Trailer.Get(storageproto.HeaderBlobMetadata); v != "" {
		late, err := storageproto.DecodeMetadata(v)
		if err != nil {
			_ = sink.Abort()
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		sink.SetMetadata(late)
	}

	if err := sink.Close(); err != nil {
		a.storeError(w, err)
		return
	}

	info := sink.Info()
	a.log.Debug().Stringer("id", id).Int64("length", info.Length).Int("chunks", info.Chunks).Msg("storage: blob stored")

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(storageproto.HeaderChecksum, info.SHA256)
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(info)
}
