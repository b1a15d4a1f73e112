package resthttp

import (
	"context"
	"net/http"
	"time"

	"github.com/sir_venger/audiostore/pkg/httperrors"
)

const readyTimeout = 2 * time.Second

type statusResp struct {
	Status string   `json:"status"`
	Failed []string `json:"failed,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	httperrors.JSON(w, http.StatusOK, statusResp{Status: "ok"})
}

// ready опрашивает все зависимости; хотя бы один сбой даёт 503.
func (s *Server) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	var failed []string
	for _, c := range s.Checks {
		if err := c.Pinger.Ping(ctx); err != nil {
			s.Log.Warn().Err(err).Str("dependency", c.Name).Msg("ready: ping failed")
			failed = append(failed, c.Name)
		}
	}

	if len(failed) > 0 {
		httperrors.JSON(w, http.StatusServiceUnavailable, statusResp{Status: "unavailable", Failed: failed})
		return
	}
	httperrors.JSON(w, http.StatusOK, statusResp{Status: "ready"})
}
