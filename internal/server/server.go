// Package server exposes the HTTP API: the post list with poller state,
// refresh and polling controls, feed config CRUD, the NSFW setting, and
// profiles.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/davidnys/redgrid/internal/configstore"
	"github.com/davidnys/redgrid/internal/domain"
	"github.com/davidnys/redgrid/internal/poller"
	"github.com/davidnys/redgrid/internal/query"
	"github.com/davidnys/redgrid/internal/ratelimit"
	"github.com/davidnys/redgrid/pkg/config"
	"github.com/davidnys/redgrid/pkg/errors"
	"github.com/davidnys/redgrid/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/fx"
)

// Server is the HTTP API server.
type Server struct {
	poller  *poller.Poller
	configs *configstore.Service
	limiter ratelimit.Limiter
	logger  logger.Logger
	port    int
	router  chi.Router
}

type Opts struct {
	fx.In

	Poller  *poller.Poller
	Configs *configstore.Service
	Limiter ratelimit.Limiter
	Logger  logger.Logger
	Config  *config.Config
}

func New(opts Opts) *Server {
	s := &Server{
		poller:  opts.Poller,
		configs: opts.Configs,
		limiter: opts.Limiter,
		logger:  opts.Logger.WithComponent("Server"),
		port:    opts.Config.App.Port,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/healthz", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Get("/posts", s.handlePosts)
		r.Post("/refresh", s.handleRefresh)
		r.Delete("/cache", s.handleClearCache)

		r.Post("/polling/start", s.handlePollingStart)
		r.Post("/polling/stop", s.handlePollingStop)
		r.Post("/polling/pause", s.handlePollingPause)
		r.Post("/polling/resume", s.handlePollingResume)
		r.Post("/activity", s.handleActivity)

		r.Get("/configs", s.handleListConfigs)
		r.Post("/configs", s.handleAddConfig)
		r.Put("/configs/{id}", s.handleUpdateConfig)
		r.Delete("/configs/{id}", s.handleDeleteConfig)
		r.Post("/configs/reset", s.handleResetConfigs)

		r.Get("/nsfw", s.handleGetNsfw)
		r.Put("/nsfw", s.handleSetNsfw)

		r.Get("/profiles", s.handleListProfiles)
		r.Post("/profiles", s.handleCreateProfile)
		r.Delete("/profiles/{id}", s.handleDeleteProfile)
		r.Post("/profiles/{id}/switch", s.handleSwitchProfile)
	})

	s.router = r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the listener and shuts it down when ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shut down HTTP server", "error", err)
		}
	}()

	s.logger.Info("HTTP server listening", "port", s.port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handlePosts(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, s.poller.Snapshot())
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow(clientKey(r)) {
		s.respondError(w, http.StatusTooManyRequests, "refresh rate limit exceeded")
		return
	}
	s.poller.Refresh(r.Context())
	s.respondJSON(w, http.StatusOK, s.poller.Snapshot())
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.poller.ClearCache(r.Context()); err != nil {
		s.logger.Error("Failed to clear cache", "error", err)
		s.respondError(w, http.StatusInternalServerError, "failed to clear cache")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePollingStart(w http.ResponseWriter, _ *http.Request) {
	s.poller.StartPolling()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePollingStop(w http.ResponseWriter, _ *http.Request) {
	s.poller.StopPolling()
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePollingPause(w http.ResponseWriter, _ *http.Request) {
	s.poller.SetPaused(true)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handlePollingResume(w http.ResponseWriter, _ *http.Request) {
	s.poller.SetPaused(false)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleActivity toggles the transient scroll-activity pause owned by the
// presentation layer.
func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.poller.SetBusy(req.Active)
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.List(r.Context())
	if err != nil {
		s.fail(w, err, "failed to list feed configs")
		return
	}
	s.respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleAddConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.FeedConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	added, err := s.configs.Add(r.Context(), cfg)
	if err != nil {
		s.fail(w, err, "failed to add feed config")
		return
	}
	s.respondJSON(w, http.StatusCreated, added)
}

func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	var cfg domain.FeedConfig
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	cfg.ID = chi.URLParam(r, "id")
	if err := s.configs.Update(r.Context(), cfg); err != nil {
		s.fail(w, err, "failed to update feed config")
		return
	}
	s.respondJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDeleteConfig(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.Remove(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err, "failed to delete feed config")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleResetConfigs(w http.ResponseWriter, r *http.Request) {
	configs, err := s.configs.ResetToDefaults(r.Context())
	if err != nil {
		s.fail(w, err, "failed to reset feed configs")
		return
	}
	s.respondJSON(w, http.StatusOK, configs)
}

func (s *Server) handleGetNsfw(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"mode": string(s.configs.NsfwMode(r.Context())),
	})
}

func (s *Server) handleSetNsfw(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Mode string `json:"mode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.configs.SetNsfwMode(r.Context(), domain.NsfwMode(req.Mode)); err != nil {
		s.fail(w, err, "failed to set nsfw mode")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"mode": req.Mode})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := s.configs.ListProfiles(r.Context())
	if err != nil {
		s.fail(w, err, "failed to list profiles")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{
		"profiles": profiles,
		"current":  s.configs.CurrentProfileID(r.Context()),
	})
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	prof, err := s.configs.CreateProfile(r.Context(), req.Name, req.Description)
	if err != nil {
		s.fail(w, err, "failed to create profile")
		return
	}
	s.respondJSON(w, http.StatusCreated, prof)
}

func (s *Server) handleDeleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := s.configs.DeleteProfile(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.fail(w, err, "failed to delete profile")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSwitchProfile(w http.ResponseWriter, r *http.Request) {
	prof, err := s.configs.SwitchProfile(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, err, "failed to switch profile")
		return
	}
	s.respondJSON(w, http.StatusOK, prof)
}

// fail maps service errors onto HTTP statuses.
func (s *Server) fail(w http.ResponseWriter, err error, msg string) {
	var queryErr *query.ValidationError
	switch {
	case errors.Is(err, errors.ErrNotFound):
		s.respondError(w, http.StatusNotFound, "not found")
	case errors.As(err, &queryErr):
		s.respondError(w, http.StatusBadRequest, queryErr.Error())
	case errors.Is(err, errors.ErrInvalidInput):
		s.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, errors.ErrAlreadyExists):
		s.respondError(w, http.StatusConflict, "already exists")
	default:
		s.logger.Error(msg, "error", err)
		s.respondError(w, http.StatusInternalServerError, msg)
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, msg string) {
	s.respondJSON(w, status, map[string]string{"error": msg})
}

func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
