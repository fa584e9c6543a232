// Package ops exposes the operational HTTP surface: health, metrics and
// a pipeline status snapshot for the speaker crew's laptop.
package ops

import (
	"encoding/json"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/klasvik/prewarn/pkg/metrics"
)

// StatusProvider supplies the pipeline status snapshot.
type StatusProvider interface {
	Status() map[string]interface{}
}

// Server wires the operational HTTP routes.
type Server struct {
	status StatusProvider
}

// NewServer creates the ops server.
func NewServer(status StatusProvider) *Server {
	return &Server{status: status}
}

// Register attaches the operational routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/status", s.handleStatus)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(s.status.Status())
}
