package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"archivist/internal/platform/config"
	"archivist/internal/platform/logger"

	"github.com/go-chi/chi/v5"
)

// Server serves a chi mux and shuts down when its run context ends
type Server struct {
	mux      *chi.Mux
	srv      *http.Server
	shutdown time.Duration
}

// NewServer reads ADDR (":8080"), READ_TIMEOUT, WRITE_TIMEOUT and SHUTDOWN_TIMEOUT from cfg
func NewServer(cfg config.Conf) *Server {
	m := chi.NewRouter()
	return &Server{
		mux: m,
		srv: &http.Server{
			Addr:              cfg.MayString("ADDR", ":8080"),
			Handler:           m,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       cfg.MayDuration("READ_TIMEOUT", 15*time.Second),
			WriteTimeout:      cfg.MayDuration("WRITE_TIMEOUT", 60*time.Second),
			IdleTimeout:       2 * time.Minute,
		},
		shutdown: cfg.MayDuration("SHUTDOWN_TIMEOUT", 5*time.Second),
	}
}

// Router is the seam to mount routes on
func (s *Server) Router() Router { return AdaptChi(s.mux) }

// Handler is the root handler, for tests
func (s *Server) Handler() http.Handler { return s.mux }

// Addr is the configured listen address
func (s *Server) Addr() string { return s.srv.Addr }

// Run listens until ctx ends, then drains in-flight requests for up to the shutdown timeout
func (s *Server) Run(ctx context.Context) error {
	log := logger.Named("http")
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http listening")
		errc <- s.srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), s.shutdown)
	defer cancel()
	if err := s.srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	log.Info().Msg("http stopped")
	return nil
}
