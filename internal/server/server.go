// Package server provides the status/control HTTP API: run status lookup
// and watch-directory management (spec §6), successor to the teacher's
// search API at internal/server. Router construction and graceful
// shutdown are kept in the teacher's shape (chi + middleware.Logger/
// Recoverer/Timeout/Compress, http.Server with Start/Stop).
package server

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hyperjump/paperflow/internal/config"
)

// WatchDirectoryService provides list/add/remove of ingest_path drop-folders.
type WatchDirectoryService interface {
	Directories() []string
	AddDirectory(path string) error
	RemoveDirectory(path string) error
}

// Server is the status/control HTTP API for a paperflow run.
type Server struct {
	tracker *Tracker
	config  *config.ServerConfig
	logger  *zap.Logger
	server  *http.Server

	watch         WatchDirectoryService
	configPath    string
	watchConfig   *config.Config
	watchConfigMu sync.Mutex
}

// New constructs a Server. watchSvc, configPath, and fullCfg are optional;
// when configPath and fullCfg are both set, watch add/remove save the config
// file with the first watched directory as ingest_path; other watched
// directories are not persisted.
func New(tracker *Tracker, cfg *config.ServerConfig, logger *zap.Logger, watchSvc WatchDirectoryService, configPath string, fullCfg *config.Config) *Server {
	return &Server{
		tracker:     tracker,
		config:      cfg,
		logger:      logger,
		watch:       watchSvc,
		configPath:  configPath,
		watchConfig: fullCfg,
	}
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	r.Get("/api/v1/status", s.handleStatus)
	r.Get("/api/v1/runs/{run_id}", s.handleRunStatus)
	r.Get("/api/v1/watch/directories", s.handleWatchDirectoriesList)
	r.Post("/api/v1/watch/directories", s.handleWatchDirectoriesAdd)
	r.Delete("/api/v1/watch/directories", s.handleWatchDirectoriesRemove)

	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: r,
	}
	if s.logger != nil {
		s.logger.Info("server: listening", zap.String("addr", addr))
	}
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
