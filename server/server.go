//go:build unix

// File: server/server.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Server binds one listening socket, tracks it in a descriptor pool and
// drives accept/read through a bounded worker group.

package server

import (
	"context"
	"sync"
	"time"

	"github.com/eapache/queue"
	"github.com/momentics/cnet/api"
	"github.com/momentics/cnet/control"
	"github.com/momentics/cnet/pool"
	"github.com/momentics/cnet/transport"
)

// DefaultIdleBackoff is the pause after a poll that found nothing ready.
const DefaultIdleBackoff = 10 * time.Millisecond

// DefaultReadTimeout bounds blocking reads on accepted connections.
const DefaultReadTimeout = 5 * time.Second

// Server is the socket server driver.
type Server struct {
	cfg         *control.Config
	spec        api.AddressSpec
	proto       api.Protocol
	opts        []api.SocketOption
	idle        time.Duration
	readTimeout time.Duration

	log     api.Logger
	handler Handler
	factory *transport.Factory
	pool    *pool.FDPool
	buffers *pool.BytePool
	metrics Recorder
	probes  *control.DebugProbes

	mu      sync.Mutex
	lfd     int
	started bool
	closed  bool

	qmu     sync.Mutex
	pending *queue.Queue
}

// New validates cfg and assembles a server. Nothing is bound until Start.
func New(cfg *control.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = control.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	spec, _ := cfg.AddressSpec()
	proto, _ := cfg.ProtocolValue()
	sockOpts, _ := cfg.SocketOptions()
	readBuf, _ := cfg.ReadBufferBytes()
	timeout, _ := cfg.PollTimeoutDuration()

	s := &Server{
		cfg:         cfg.Clone(),
		spec:        spec,
		proto:       proto,
		opts:        sockOpts,
		idle:        DefaultIdleBackoff,
		readTimeout: DefaultReadTimeout,
		log:         api.NopLogger(),
		metrics:     control.Metrics{},
		probes:      control.NewDebugProbes(),
		buffers:     pool.NewBytePool(readBuf),
		lfd:         api.InvalidFD,
		pending:     queue.New(),
	}
	for _, o := range opts {
		o(s)
	}
	if s.factory == nil {
		s.factory = transport.New(transport.WithLogger(s.log), transport.WithBacklog(cfg.Backlog))
	}
	if s.pool == nil {
		s.pool = pool.New(pool.WithLogger(s.log), pool.WithPollTimeout(timeout))
	}
	if s.handler == nil {
		s.handler = &LogHandler{Log: s.log, Buffers: s.buffers, OnReceive: s.metrics.Received}
	}
	s.registerProbes()
	return s, nil
}

func (s *Server) registerProbes() {
	s.probes.RegisterProbe("pool.tcp", func() any { return s.pool.Count(api.ProtocolTCP) })
	s.probes.RegisterProbe("pool.udp", func() any { return s.pool.Count(api.ProtocolUDP) })
	s.probes.RegisterProbe("listener.fd", func() any { return s.ListenerFD() })
	s.probes.RegisterProbe("listener.spec", func() any { return s.spec.String() })
	s.probes.RegisterProbe("queue.depth", func() any { return s.QueueDepth() })
	control.RegisterPlatformProbes(s.probes)
}

// Start creates the listening socket and registers it in the pool under the
// configured protocol.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyRunning
	}
	s.log.Log(api.LevelInfo, 0, "using %s", s.proto)
	fd, err := s.factory.Listen(ctx, s.spec, s.opts...)
	if err != nil {
		s.log.Log(api.LevelError, int(api.CodeOf(err)), "failed to get a socket to listen on")
		return err
	}
	s.log.Log(api.LevelInfo, 0, "using socket %d", fd)
	s.pool.Register(fd, s.proto)
	s.lfd = fd
	s.started = true
	s.metrics.SocketCreated()
	s.metrics.SetRegistered(s.proto, s.pool.Count(s.proto))
	return nil
}

// ListenerFD returns the listening descriptor, or api.InvalidFD before Start.
func (s *Server) ListenerFD() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lfd
}

// Addr returns the bound address as host:port.
func (s *Server) Addr() (string, error) {
	sa, err := transport.LocalAddr(s.ListenerFD())
	if err != nil {
		return "", err
	}
	return transport.SockaddrString(sa), nil
}

// QueueDepth reports accepted connections waiting for a worker.
func (s *Server) QueueDepth() int {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	return s.pending.Length()
}

// DumpState returns the output of every debug probe. It is valid until Close.
func (s *Server) DumpState() map[string]any {
	return s.probes.DumpState()
}

// Close frees the pool and closes the listener. The pool never closes
// descriptors itself. Close is idempotent; Run must have returned first.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.pool.Free()
	s.metrics.SetRegistered(s.proto, 0)

	s.qmu.Lock()
	for s.pending.Length() > 0 {
		s.pending.Remove().(*transport.Session).Close()
	}
	s.qmu.Unlock()

	if s.lfd == api.InvalidFD {
		return nil
	}
	fd := s.lfd
	s.lfd = api.InvalidFD
	return transport.Close(fd)
}
