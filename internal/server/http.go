package server

import (
	"encoding/json"
	"net/http"

	"github.com/zeusync/flatsim/internal/core/observability/log"
)

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /snapshot", s.handleSnapshot)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	health := s.Health()
	code := http.StatusOK
	if health.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	s.writeJSON(w, code, health)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.world.Snapshot())
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("Failed to write response", log.Error(err))
	}
}
