package main

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type healthResponse struct {
	Status string `json:"status"`
	hubStats
}

// registerRoutes wires the HTTP surface. rel and reg may be nil.
func registerRoutes(mux *http.ServeMux, hub *wsHub, rel *relay, reg *prometheus.Registry, staticDir string, logger *slog.Logger) {
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(healthResponse{Status: "ok", hubStats: hub.stats()})
	})

	mux.HandleFunc("/ws", hub.handleWebSocket)

	if rel != nil {
		mux.Handle("/socket.io/", rel.server)
	}
	if reg != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	}

	fs := http.FileServer(http.Dir(staticDir))
	mux.Handle("/", withLogging(fs, logger))
}

func withLogging(h http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("http request", "method", r.Method, "path", r.URL.Path)
		h.ServeHTTP(w, r)
	})
}
