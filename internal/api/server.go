package api

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/config"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/domain"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/monitoring"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/runner"
	"github.com/TroyBWP/Scrape-Outstanding-Followups/internal/storage"
)

// Server exposes the ops surface for serve mode: health, metrics, manual
// run triggering and the last run's outcome.
type Server struct {
	config     *config.Config
	router     http.Handler
	httpServer *http.Server
	runner     *runner.Runner
	pgStore    *storage.SnapshotStore
	guard      *storage.RunGuard
	metrics    *monitoring.Metrics
	logger     *zap.Logger

	mu      sync.Mutex
	running bool
	lastRun *domain.RunSummary
}

func NewServer(cfg *config.Config, r *runner.Runner, ps *storage.SnapshotStore, g *storage.RunGuard, m *monitoring.Metrics, l *zap.Logger) *Server {
	s := &Server{
		config:  cfg,
		runner:  r,
		pgStore: ps,
		guard:   g,
		metrics: m,
		logger:  l,
	}
	s.router = s.setupRouter()
	return s
}

func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%s", s.config.ServerPort),
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
