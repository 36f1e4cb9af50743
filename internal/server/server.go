// Package server exposes propagation over HTTP alongside Prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/san-kum/orbprop/internal/automation"
	"github.com/san-kum/orbprop/internal/config"
	"github.com/san-kum/orbprop/internal/metrics"
	"github.com/san-kum/orbprop/internal/orbit"
	"github.com/san-kum/orbprop/internal/origin"
	"github.com/san-kum/orbprop/internal/propagate"
	"github.com/san-kum/orbprop/internal/timescale"
)

const maxBodyBytes = 8 << 20

// Envelope is the body of every JSON response.
type Envelope struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Error      string            `json:"error,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	Data       *propagate.Result `json:"data,omitempty"`
}

// Server wraps a chi router and an http.Server.
type Server struct {
	runner automation.Runner
	cfg    *config.Config
	log    zerolog.Logger
	mux    *chi.Mux
	srv    *http.Server
}

func New(runner automation.Runner, cfg *config.Config, log zerolog.Logger) *Server {
	s := &Server{
		runner: runner,
		cfg:    cfg,
		log:    log.With().Str("component", "http").Logger(),
		mux:    chi.NewRouter(),
	}
	s.mux.Use(middleware.RequestID, middleware.Recoverer)
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s.mux.Handle("/metrics", metrics.Handler())
	s.mux.Post("/v1/propagate", s.handlePropagate)

	s.srv = &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler { return s.mux }

func (s *Server) Addr() string { return s.srv.Addr }

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.srv.Addr).Msg("http listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}

// handlePropagate accepts one scenario step as JSON. Orbits must be inline.
func (s *Server) handlePropagate(w http.ResponseWriter, r *http.Request) {
	var step automation.ScenarioStep
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&step); err != nil {
		s.respondError(w, r, http.StatusBadRequest, fmt.Errorf("decode body: %w", err))
		return
	}
	if step.OrbitsFile != "" || step.SaveAs != "" {
		s.respondError(w, r, http.StatusBadRequest, errors.New("orbits_file and save_as are not accepted over HTTP"))
		return
	}

	req, err := step.Request("", s.cfg)
	if err != nil {
		s.respondError(w, r, http.StatusBadRequest, err)
		return
	}
	res, err := s.runner.Propagate(req)
	if err != nil {
		s.respondError(w, r, statusFor(err), err)
		return
	}
	respond(w, r, http.StatusOK, Envelope{Data: res})
}

// statusFor maps caller mistakes to 400 and backend failures to 422.
func statusFor(err error) int {
	for _, target := range []error{
		propagate.ErrInvalidTimeInput,
		propagate.ErrInvalidOrbits,
		propagate.ErrInvalidConfiguration,
		propagate.ErrUnsupportedBackend,
		automation.ErrInvalidScenario,
		config.ErrInvalidConfig,
		orbit.ErrUnknownElements,
		origin.ErrUnknownOrigin,
		timescale.ErrInvalidTimeInput,
	} {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	return http.StatusUnprocessableEntity
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Warn().Err(err).Int("status", status).Str("request_id", middleware.GetReqID(r.Context())).Msg("request failed")
	respond(w, r, status, Envelope{Error: err.Error()})
}

func respond(w http.ResponseWriter, r *http.Request, status int, env Envelope) {
	env.StatusCode = status
	env.Status = http.StatusText(status)
	env.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}
