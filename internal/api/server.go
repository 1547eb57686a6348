// Package api exposes the prediction pipeline over HTTP: the predict and
// prediction-retrieval endpoints, user account CRUD, a live WebSocket
// feed of created predictions, and the health and metrics endpoints.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"modelserve/internal/metrics"
	"modelserve/internal/serving"
	"modelserve/internal/storage"
)

type Server struct {
	server *http.Server
	hub    *Hub
}

// New wires the handlers and middleware. The returned server is not yet
// listening; the hub starts with Start.
func New(port int, svc *serving.Service, store *storage.Store, m *metrics.Metrics) *Server {
	hub := NewHub(metrics.NewWrapper(m))
	svc.SetBroadcaster(hub)

	h := &handlers{svc: svc, store: store}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /models/{model}/version/{version}/predict", h.createPrediction)
	mux.HandleFunc("GET /prediction/{id}", h.getPrediction)
	mux.HandleFunc("PATCH /prediction/{id}", h.recordActual)

	mux.HandleFunc("POST /users", h.createUser)
	mux.HandleFunc("GET /users", h.listUsers)
	mux.HandleFunc("GET /users/{id}", h.getUser)
	mux.HandleFunc("PATCH /users/{id}", h.modifyUser)
	mux.HandleFunc("DELETE /users/{id}", h.deleteUser)

	mux.HandleFunc("GET /ws/predictions", hub.handleConnect)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	handler := recoveryMiddleware(requestMetricsMiddleware(m, mux))

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		hub: hub,
	}
}

// Start begins serving HTTP requests and runs the feed hub until the
// context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)

	log.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
