package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/mehedi/hookpulse/internal/config"
	"github.com/mehedi/hookpulse/internal/delivery"
	"github.com/mehedi/hookpulse/internal/metrics"
	"github.com/mehedi/hookpulse/internal/notify"
	"github.com/mehedi/hookpulse/internal/storage"
)

// Deps bundles the wired components the API serves.
type Deps struct {
	Store      storage.Storage
	Dispatcher *delivery.Dispatcher
	Fanout     *delivery.Fanout
	Recorder   *metrics.Recorder
	Hub        *notify.Hub
}

type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	router *chi.Mux
	log    zerolog.Logger
	http   *http.Server
}

func NewServer(cfg config.ServerConfig, deps Deps, log zerolog.Logger) *Server {
	s := &Server{
		cfg:  cfg,
		deps: deps,
		log:  log,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.log))

	accHandler := NewAccountHandler(s.deps.Store)
	whHandler := NewWebhookHandler(s.deps.Store, s.deps.Dispatcher)
	metricsHandler := NewMetricsHandler(s.deps.Recorder)
	notifHandler := NewNotificationHandler(s.deps.Store, s.deps.Hub)
	eventHandler := NewEventHandler(s.deps.Fanout)

	// Health check — no auth
	r.Get("/health", s.health)

	r.Route("/api/v1", func(r chi.Router) {
		// Account management — admin routes, no bearer auth
		r.Post("/accounts", accHandler.Create)
		r.Get("/accounts", accHandler.List)
		r.Get("/accounts/{id}", accHandler.Get)
		r.Delete("/accounts/{id}", accHandler.Delete)
		r.Post("/accounts/{id}/rotate-key", accHandler.RotateKey)

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(s.deps.Store))

			// Webhook registry
			r.Post("/webhooks", whHandler.Create)
			r.Get("/webhooks", whHandler.List)
			r.Get("/webhooks/{id}", whHandler.Get)
			r.Put("/webhooks/{id}", whHandler.Update)
			r.Delete("/webhooks/{id}", whHandler.Delete)
			r.Patch("/webhooks/{id}/status", whHandler.SetStatus)

			// Dispatch
			r.Post("/webhooks/{id}/dispatch", whHandler.Dispatch)
			r.Post("/webhooks/{id}/test", whHandler.Test)
			r.Post("/events", eventHandler.Publish)

			// Monitoring
			r.Get("/webhooks/{id}/metrics", metricsHandler.Metrics)
			r.Get("/webhooks/{id}/executions", metricsHandler.Executions)
			r.Get("/webhooks/{id}/daily", metricsHandler.DailyStats)

			// Notifications
			r.Get("/notifications", notifHandler.List)
			r.Post("/notifications/read", notifHandler.MarkRead)
			r.Get("/notifications/unread-count", notifHandler.UnreadCount)
			r.Get("/notifications/stream", notifHandler.Stream)
		})
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": "hookpulse",
	})
}

// Router exposes the handler tree for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	s.http = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.log.Info().Str("addr", addr).Msg("starting HTTP server")
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return s.http.Shutdown(ctx)
}
