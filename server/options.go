//go:build unix

// File: server/options.go
// Package server defines functional options for the socket server.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"time"

	"github.com/momentics/cnet/api"
	"github.com/momentics/cnet/pool"
	"github.com/momentics/cnet/transport"
)

// Option customizes server initialization.
type Option func(*Server)

// WithLogger sets the logger shared by the server, its pool and its factory.
func WithLogger(l api.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

// WithHandler replaces the default LogHandler.
func WithHandler(h Handler) Option {
	return func(s *Server) {
		s.handler = h
	}
}

// WithFactory supplies the socket factory used by Start.
func WithFactory(f *transport.Factory) Option {
	return func(s *Server) {
		s.factory = f
	}
}

// WithPool supplies the descriptor pool polled by Run.
func WithPool(p *pool.FDPool) Option {
	return func(s *Server) {
		s.pool = p
	}
}

// WithRecorder overrides the metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Server) {
		if r != nil {
			s.metrics = r
		}
	}
}

// WithIdleBackoff sets how long Run sleeps after a poll finds nothing ready.
func WithIdleBackoff(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.idle = d
		}
	}
}

// WithReadTimeout bounds blocking reads on accepted connections. Zero
// disables the bound.
func WithReadTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d >= 0 {
			s.readTimeout = d
		}
	}
}
