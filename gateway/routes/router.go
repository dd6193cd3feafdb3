// Package routes exposes the engine and reward distributor over HTTP.
package routes

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	gwmiddleware "synthmint/gateway/middleware"
	"synthmint/native/mint"
	"synthmint/native/oracle"
	"synthmint/native/reward"
)

// Deps carries everything the gateway serves.
type Deps struct {
	Engine      *mint.Engine
	Distributor *reward.Distributor
	Oracle      *oracle.Oracle
	Log         *slog.Logger

	RateLimit    gwmiddleware.RateLimit
	MaxBodyBytes int64
	// Persist, when set, is invoked after every successful mutation so the
	// daemon can snapshot state. Failures are logged, not surfaced.
	Persist func() error
}

func (d Deps) logger() *slog.Logger {
	if d.Log != nil {
		return d.Log
	}
	return slog.Default()
}

func (d Deps) persist() {
	if d.Persist == nil {
		return
	}
	if err := d.Persist(); err != nil {
		d.logger().Error("state snapshot failed", "error", err)
	}
}

// NewRouter builds the full gateway router.
func NewRouter(deps Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if deps.RateLimit.RequestsPerMinute > 0 {
		r.Use(gwmiddleware.NewRateLimiter(deps.RateLimit).Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/mint", (&mintRoutes{deps: deps}).mount)
	r.Route("/reward", (&rewardRoutes{deps: deps}).mount)
	r.Route("/oracle", (&oracleRoutes{deps: deps}).mount)
	return r
}
