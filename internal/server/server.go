// Package server — keep-alive HTTP-обёртка: хостинг будит сервис
// по HTTP, пока бот работает через long polling.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	log "github.com/sirupsen/logrus"
)

// Server — маленький HTTP-сервер для health-check и keep-alive пингов.
type Server struct {
	srv *http.Server
}

// New создаёт сервер на адресе addr.
func New(addr string) *Server {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("Bot is running!"))
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start запускает сервер; блокируется до остановки.
func (s *Server) Start() {
	log.WithField("addr", s.srv.Addr).Info("Keep-alive HTTP сервер запущен")
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("HTTP сервер остановился с ошибкой")
	}
}

// Stop мягко гасит сервер.
func (s *Server) Stop(ctx context.Context) {
	if err := s.srv.Shutdown(ctx); err != nil {
		log.WithError(err).Warn("Ошибка остановки HTTP сервера")
	}
}
