package storagehttp

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sir_venger/audiostore/internal/blobstore/fsstore"
)

const manualGCTTL = 24 * time.Hour

type gcResult struct {
	Removed int `json:"removed"`
}

// gcOnce вручную запускает сбор брошенных загрузок. ?ttl=1h переопределяет порог.
func (a *Server) gcOnce(w http.ResponseWriter, r *http.Request) {
	ttl := manualGCTTL
	if v := r.URL.Query().Get("ttl"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			http.Error(w, "invalid ttl", http.StatusBadRequest)
			return
		}
		ttl = d
	}

	removed, err := a.store.Sweep(ttl)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(gcResult{Removed: removed})
}

// StartGC стартует периодическую очистку каталога.
func StartGC(store *fsstore.Store, ttl time.Duration, every time.Duration, log zerolog.Logger) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				if _, err := store.Sweep(ttl); err != nil {
					log.Warn().Err(err).Msg("gc: sweep failed")
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}
