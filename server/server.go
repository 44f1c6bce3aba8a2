package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

// Server serves the trust chain HTTP API
type Server struct {
	server *http.Server
}

// NewServer creates a new HTTP server listening on addr
func NewServer(addr string, handler http.Handler) *Server {
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
	}
	return &Server{server: server}
}

// Stop stops the http server
func (s *Server) Stop(ctx context.Context) error {
	err := s.server.Shutdown(ctx)
	if err != nil {
		return err
	}
	return nil
}

// Start starts the http server. Blocks until server is shutdown.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		log.Errorf("failed to listen on %s: %v", s.server.Addr, err)
		return err
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener. Blocks until server is shutdown.
func (s *Server) Serve(listener net.Listener) error {
	log.Infof("http server listening on %s", listener.Addr())
	if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Errorf("failed to serve http server: %v", err)
		return err
	}
	return nil
}
