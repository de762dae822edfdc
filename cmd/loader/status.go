package main

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/diewo77/go-sales-loader/internal/batch"
	"github.com/diewo77/go-sales-loader/internal/db"
	"github.com/diewo77/go-sales-loader/internal/httpx"
	"github.com/diewo77/go-sales-loader/internal/metrics"
)

// tickSource is satisfied by *batch.Poller.
type tickSource interface {
	LastTick() *batch.TickSummary
}

// StatusServer exposes health, the last poll summary and metrics.
type StatusServer struct {
	mux     *http.ServeMux
	db      *gorm.DB
	poller  tickSource
	metrics *metrics.Registry
	log     *zap.Logger
}

// NewStatusServer creates the status handler with its routes registered.
func NewStatusServer(conn *gorm.DB, poller tickSource, m *metrics.Registry, log *zap.Logger) *StatusServer {
	s := &StatusServer{
		mux:     http.NewServeMux(),
		db:      conn,
		poller:  poller,
		metrics: m,
		log:     log,
	}
	s.setupRoutes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *StatusServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.withLogging(s.mux).ServeHTTP(w, r)
}

func (s *StatusServer) setupRoutes() {
	s.mux.HandleFunc("GET /healthz", s.healthz)
	s.mux.HandleFunc("GET /status", s.status)
	s.mux.Handle("GET /metrics", s.metrics.Handler())
}

func (s *StatusServer) healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := db.Ping(ctx, s.db); err != nil {
		httpx.JSONError(w, http.StatusServiceUnavailable, "database unavailable", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, httpx.MessageResponse{Message: "ok"})
}

func (s *StatusServer) status(w http.ResponseWriter, _ *http.Request) {
	last := s.poller.LastTick()
	if last == nil {
		httpx.JSON(w, http.StatusOK, httpx.MessageResponse{Message: "no tick yet"})
		return
	}
	httpx.JSON(w, http.StatusOK, last)
}

func (s *StatusServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("duration", time.Since(start)))
	})
}
