// Package api exposes the intake flow, health and metrics over HTTP.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/mauka-works/intake-engine/internal/config"
	"github.com/mauka-works/intake-engine/internal/metrics"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// Deps carries the handler collaborators the router wires up. Health checkers
// and the match/resume backends may be nil.
type Deps struct {
	Session *SessionHandler
	DB      DBChecker
	Broker  BrokerChecker
	Version string
}

func NewServer(cfg *config.Config, deps Deps, log zerolog.Logger) *Server {
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(log))
	r.Use(CORS)
	r.Use(metrics.InstrumentHandler)

	// Health and metrics — no auth
	health := NewHealthHandler(deps.DB, deps.Broker, deps.Version, time.Now())
	r.Get("/api/v1/health", health.ServeHTTP)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))

		s := deps.Session
		r.Route("/api/v1/session", func(r chi.Router) {
			r.Post("/", s.Create)
			r.Get("/", s.Get)
			r.Post("/language", s.SelectLanguage)
			r.Post("/record/start", s.StartRecording)
			r.Post("/record/chunk", s.PushChunk)
			r.Post("/record/stop", s.StopRecording)
			r.Post("/answer", s.SubmitAnswer)
			r.Post("/confirm", s.Confirm)
			r.Post("/reject", s.Reject)
			r.Post("/reset", s.Reset)
			r.Post("/speak", s.Speak)
			r.Get("/matches", s.Matches)
			r.Get("/resume", s.Resume)
		})
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: log,
	}
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}
