// Package httpapi is a small chi-based inspection surface for the five
// index engines: build one over a posted key set, then issue ad hoc
// lookups and range queries against it during development. It mirrors
// the shape of a production REST service (middleware, Prometheus
// metrics, swagger docs) without adding persistence or multi-tenant
// concerns the engines themselves don't have.
package httpapi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/indexlab/learnedindex/pkg/index"
	"github.com/indexlab/learnedindex/pkg/metrics"
)

// Config configures the demo HTTP server.
type Config struct {
	Bind string
	Port int
}

// NewRouter builds the full chi router: middleware, the Prometheus
// scrape endpoint, swagger docs, and the engine inspection routes under
// /api/v1.
func NewRouter(server *Server, port int) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	m := server.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", server.handleHealth))
		r.Get("/engines", m.InstrumentHandler("GET", "/api/v1/engines", server.handleListEngines))
		r.Post("/engines/{kind}/build", m.InstrumentHandler("POST", "/api/v1/engines/{kind}/build", server.handleBuild))
		r.Get("/engines/{kind}/lookup", m.InstrumentHandler("GET", "/api/v1/engines/{kind}/lookup", server.handleLookup))
		r.Get("/engines/{kind}/range", m.InstrumentHandler("GET", "/api/v1/engines/{kind}/range", server.handleRangeQuery))
		r.Post("/engines/{kind}/insert", m.InstrumentHandler("POST", "/api/v1/engines/{kind}/insert", server.handleInsert))
		r.Delete("/engines/{kind}/delete", m.InstrumentHandler("DELETE", "/api/v1/engines/{kind}/delete", server.handleDelete))
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL(fmt.Sprintf("http://localhost:%d/swagger/doc.json", port)),
	))

	return r
}

// StartServer wires a Server with a fresh registry, builds the router,
// and blocks serving on cfg.Bind:cfg.Port.
func StartServer(p index.Params, cfg Config) error {
	m := metrics.New(prometheus.DefaultRegisterer)
	server, err := NewServer(p, m)
	if err != nil {
		return fmt.Errorf("httpapi: %w", err)
	}

	router := NewRouter(server, cfg.Port)
	addr := fmt.Sprintf("%s:%d", cfg.Bind, cfg.Port)
	fmt.Printf("indexlab inspection server listening on %s\n", addr)
	fmt.Printf("metrics available at http://%s/metrics\n", addr)
	return http.ListenAndServe(addr, router)
}
