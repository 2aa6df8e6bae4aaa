// Package server serves the canonical signal database and the AEHA codec
// over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/derktes/ir-signal-codec/config"
	"github.com/derktes/ir-signal-codec/pulse"
	"github.com/derktes/ir-signal-codec/store"
)

// Server owns the signal database and its HTTP API.
type Server struct {
	db      *signalDatabase
	metrics *metrics
	unit    int
	address string
	origins []string
	done    chan struct{}
	log     *slog.Logger
}

// New builds a server over st. Call Load before serving.
func New(cfg *config.Config, st store.Store, log *slog.Logger) *Server {
	m := newMetrics()
	return &Server{
		db:      newDatabase(st, pulse.NewTidier(cfg.ToleranceWindow()), m, log),
		metrics: m,
		unit:    cfg.UnitTime,
		address: cfg.Server.Address,
		origins: cfg.Server.Origins,
		done:    make(chan struct{}),
		log:     log,
	}
}

// Load reads the stored database.
func (s *Server) Load(ctx context.Context) error {
	return s.db.load(ctx)
}

// Handler returns the URL mapping:
//
//	GET    /signal               list of stored signals
//	POST   /signal               publish a signal
//	GET    /signal/stream        websocket of inserts and deletes
//	GET    /signal/{id}          one signal
//	DELETE /signal/{id}          remove a signal
//	GET    /signal/{id}/decode   decode a stored signal, ?unit=
//	GET    /decode               decode every stored signal, ?unit=
//	POST   /decode               decode a posted capture
//	POST   /encode               encode an air conditioner state
//	GET    /metrics              prometheus
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Handle("/metrics", s.metrics.handler())

	api := r.NewRoute().Subrouter()
	api.Use(s.metrics.middleware)
	api.HandleFunc("/signal", s.signalListHandler).Methods(http.MethodGet)
	api.HandleFunc("/signal", s.signalPublishHandler).Methods(http.MethodPost)
	api.HandleFunc("/signal/stream", s.signalStreamHandler).Methods(http.MethodGet)
	api.HandleFunc("/signal/{id}", s.signalQueryHandler).Methods(http.MethodGet)
	api.HandleFunc("/signal/{id}", s.signalDeleteHandler).Methods(http.MethodDelete)
	api.HandleFunc("/signal/{id}/decode", s.signalDecodeHandler).Methods(http.MethodGet)
	api.HandleFunc("/decode", s.batchDecodeHandler).Methods(http.MethodGet)
	api.HandleFunc("/decode", s.decodeHandler).Methods(http.MethodPost)
	api.HandleFunc("/encode", s.encodeHandler).Methods(http.MethodPost)
	return r
}

// Start listens on the configured address until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Start(ctx context.Context) error {
	signalServer := http.Server{
		Addr:              s.address,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	signalServer.RegisterOnShutdown(func() {
		s.log.Info("Shutting down server")
		close(s.done)
	})

	errc := make(chan error, 1)
	go func() {
		s.log.Info("Server started", "address", s.address)
		errc <- signalServer.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := signalServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
