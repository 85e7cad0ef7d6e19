package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	httpmiddleware "github.com/clinicboard/clinicboard/internal/http/middleware"
	"github.com/clinicboard/clinicboard/internal/view"
	"github.com/clinicboard/clinicboard/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	ViewHandler    *view.Handler
	MetricsHandler http.Handler
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	if cfg.ViewHandler != nil {
		r.Route("/api/v1", cfg.ViewHandler.Routes)
	}

	return r
}
