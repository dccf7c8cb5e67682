package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(service Service) http.Handler {
	return newRouter(service, time.Now)
}

func newRouter(service Service, now func() time.Time) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Get("/departures/{station}", NextDepartures(service, now))
	router.Get("/stations", FindStations(service))
	router.Handle("/metrics", promhttp.Handler())

	return router
}

type Server struct {
	server *http.Server
}

func New(listenAddr string, service Service) *Server {
	return &Server{
		server: &http.Server{
			Addr:              listenAddr,
			Handler:           NewRouter(service),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	errs := make(chan error, 1)

	go func() {
		slog.Info("starting HTTP server", "addr", s.server.Addr)
		errs <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		slog.Info("shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		return s.server.Shutdown(shutdownCtx)
	}
}
