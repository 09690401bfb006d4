// Package mockapi is a development stand-in for the Kairon backend REST API.
// Availability is a fixed daily grid and is not the production algorithm.
package mockapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"kairon/internal/config"
	"kairon/internal/database"
	"kairon/internal/logging"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg    config.MockServerConfig
	db     *database.DB
	auth   *Auth
	grid   database.SlotGrid
	logger *zerolog.Logger
	server *http.Server
}

func NewServer(cfg config.MockServerConfig, db *database.DB, logger *zerolog.Logger) *Server {
	step := time.Duration(cfg.SlotStepMins) * time.Minute
	if step <= 0 {
		step = 30 * time.Minute
	}
	s := &Server{
		cfg:    cfg,
		db:     db,
		auth:   NewAuth(cfg),
		grid:   database.SlotGrid{Opening: cfg.OpeningTime, Closing: cfg.ClosingTime, Step: step},
		logger: logging.Component(logger, "mockapi"),
	}
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return s
}

// Router builds the HTTP routes. Exposed for httptest.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(loggingMiddleware(s.logger))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(api chi.Router) {
		api.Use(s.auth.Authenticate)

		// Каталог и слоты доступны без токена: ими пользуется публичная запись
		api.Get("/services", s.handleListServices)
		api.Get("/professionals", s.handleListProfessionals)
		api.Get("/appointments/availability", s.handleAvailability)
		api.Post("/public/appointments", s.handleCreatePublicAppointment)

		api.Group(func(private chi.Router) {
			private.Use(s.auth.Require)
			private.Post("/auth/token", s.handleIssueToken)
			private.Get("/appointments", s.handleListAppointments)
			private.Post("/appointments", s.handleCreateAppointment)
			private.Put("/appointments/{id}/status", s.handleUpdateStatus)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Bool("auth", s.auth.Enabled()).Msg("mock API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
