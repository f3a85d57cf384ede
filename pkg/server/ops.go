package server

import (
	"net/http"
	"time"

	"github.com/gettrapd/trapd/pkg/httputil"
	"github.com/gettrapd/trapd/pkg/metrics"
)

// HealthResponse is the payload served by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Uptime  int    `json:"uptime,omitempty"`
	Sink    string `json:"sink,omitempty"`
}

// opsHandler builds the operational endpoint mux. Start calls it while
// holding s.mu, so the handlers capture the health payload here instead
// of locking server state on every request.
func (s *Server) opsHandler() http.Handler {
	base := HealthResponse{Status: "ok", Version: s.version}
	if s.snk != nil {
		base.Sink = s.snk.Kind()
	}
	started := s.startTime

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			httputil.WriteMethodNotAllowed(w, http.MethodGet)
			return
		}
		resp := base
		resp.Uptime = int(time.Since(started).Seconds())
		httputil.WriteJSON(w, http.StatusOK, resp)
	})
	mux.Handle("/metrics", metrics.DefaultRegistry().Handler())
	return mux
}
