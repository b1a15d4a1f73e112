package storagehttp

import (
	"encoding/json"
	"net/http"

	"github.com/sir_venger/audiostore/pkg/storageproto"
)

// health возвращает агрегированную статистику по данным стоража.
func (a *Server) health(w http.ResponseWriter, _ *http.Request) {
	usage, err := a.store.Usage()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(storageproto.Health{
		OK:         true,
		Blobs:      usage.Blobs,
		TotalBytes: usage.Bytes,
	})
	if err != nil {
		a.log.Warn().Err(err).Msg("storage: write health")
	}
}
