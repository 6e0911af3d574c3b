package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ryanbastic/go-shticell/internal/engine"
	"github.com/ryanbastic/go-shticell/internal/metrics"
)

// NewServer creates an HTTP server with all routes configured. backends are
// the archive databases pinged by /readyz.
func NewServer(logger *slog.Logger, eng *engine.Engine, backends map[string]Pinger) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(metrics.Metrics)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))

	health := NewHealthHandler(backends, logger)
	mux.Get("/livez", health.Livez)
	mux.Get("/readyz", health.Readyz)
	mux.Handle("/metrics", promhttp.Handler())

	api := humachi.New(mux, huma.DefaultConfig("Shticell API", "1.0.0"))

	registerSessionRoutes(api, NewSessionHandler(eng, logger))
	registerSheetRoutes(api, NewSheetHandler(eng, logger))
	registerRangeRoutes(api, NewRangeHandler(eng, logger))
	registerPermissionRoutes(api, NewPermissionHandler(eng, logger))
	registerFunctionRoutes(api, NewFunctionHandler(eng))

	return mux
}
