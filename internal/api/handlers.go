package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// handleRunRequest triggers a snapshot run. Runs are strictly one at a
// time; a trigger while one is in flight gets 409.
func (s *Server) handleRunRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.respondWithError(w, http.StatusConflict, "A run is already in progress")
		return
	}
	s.running = true
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		}()

		summary, err := s.runner.Run(context.Background())
		s.mu.Lock()
		s.lastRun = summary
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("manual run failed", zap.Error(err))
		}
	}()

	s.respondWithJSON(w, http.StatusAccepted, map[string]string{"message": "Snapshot run started"})
}

func (s *Server) handleStatusRequest(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	running := s.running
	last := s.lastRun
	s.mu.Unlock()

	if last == nil && !running {
		s.respondWithError(w, http.StatusNotFound, "No run has been executed yet")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"running":  running,
		"last_run": last,
	})
}

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	// Check Postgres
	if err := s.pgStore.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	// Check Redis when the run guard is configured
	isHealthy := healthStatus["postgres"] == "healthy"
	if s.guard != nil {
		if err := s.guard.Ping(ctx); err != nil {
			healthStatus["redis"] = "unhealthy"
			s.logger.Error("health check failed for redis", zap.Error(err))
			isHealthy = false
		} else {
			healthStatus["redis"] = "healthy"
		}
	}

	if !isHealthy {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}

	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
