// Package http expone el servidor del servicio.
package http

import (
	"context"
	"net/http"
	"time"
)

// Server envuelve http.Server con defaults sanos y shutdown graceful.
type Server struct {
	srv *http.Server
}

// NewServer crea el servidor sobre el handler dado.
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{srv: &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}}
}

// Start bloquea sirviendo requests hasta que el listener falle o cierre.
func (s *Server) Start() error {
	return s.srv.ListenAndServe()
}

// Shutdown drena conexiones en vuelo respetando el deadline del contexto.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
