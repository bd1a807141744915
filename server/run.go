//go:build unix

// File: server/run.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Poll loop: wait for readiness on the registered descriptors, accept or
// receive, then hand the work to the bounded worker group.

package server

import (
	"context"
	"time"

	"github.com/momentics/cnet/api"
	"github.com/momentics/cnet/transport"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
)

// Run polls until ctx is cancelled, then waits for in-flight handlers.
// Transient poll failures are counted and retried; any other poll failure
// stops the loop and is returned. Handler errors are logged only.
func (s *Server) Run(ctx context.Context) error {
	if s.ListenerFD() == api.InvalidFD {
		return ErrNotStarted
	}
	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)

	err := s.loop(ctx, &g)
	werr := g.Wait()
	if err != nil {
		return err
	}
	return werr
}

func (s *Server) loop(ctx context.Context, g *errgroup.Group) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		s.dispatch(ctx, g)
		if s.saturated() {
			// The listener stays readable while connections wait in the
			// backlog, so polling it now would spin.
			s.backoff(ctx)
			continue
		}

		ready, err := s.pool.Ready(s.proto, api.DirectionRead)
		if err != nil {
			s.metrics.PollError()
			if api.IsTransient(err) {
				continue
			}
			return err
		}
		if len(ready) == 0 {
			s.backoff(ctx)
			continue
		}
		for _, fd := range ready {
			if s.proto == api.ProtocolTCP {
				s.accept(fd)
			} else {
				s.receive(ctx, g, fd)
			}
		}
	}
}

func (s *Server) backoff(ctx context.Context) {
	t := time.NewTimer(s.idle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// saturated reports whether the stream queue is full.
func (s *Server) saturated() bool {
	return s.proto == api.ProtocolTCP && s.QueueDepth() >= s.cfg.QueueLimit
}

// accept takes one pending connection off fd and queues it. A full queue
// leaves the connection in the kernel backlog.
func (s *Server) accept(fd int) {
	if s.saturated() {
		return
	}
	sess, err := s.factory.AcceptSession(fd)
	if err != nil {
		return
	}
	s.metrics.Accepted()
	s.qmu.Lock()
	s.pending.Add(sess)
	s.qmu.Unlock()
}

// dispatch moves queued sessions to idle workers in FIFO order.
func (s *Server) dispatch(ctx context.Context, g *errgroup.Group) {
	s.qmu.Lock()
	defer s.qmu.Unlock()
	for s.pending.Length() > 0 {
		sess := s.pending.Peek().(*transport.Session)
		if !g.TryGo(func() error {
			s.serve(ctx, sess)
			return nil
		}) {
			return
		}
		s.pending.Remove()
	}
}

func (s *Server) serve(ctx context.Context, sess *transport.Session) {
	defer sess.Close()
	if err := transport.SetBlocking(sess.FD(), true); err != nil {
		s.log.Log(api.LevelWarn, int(api.ErrCodeOS), "socket %d: %v", sess.FD(), err)
	}
	if s.readTimeout > 0 {
		if err := transport.SetReadTimeout(sess.FD(), s.readTimeout); err != nil {
			s.log.Log(api.LevelWarn, int(api.CodeOf(err)), "socket %d: %v", sess.FD(), err)
		}
	}
	if err := s.handler.ServeStream(ctx, sess); err != nil {
		s.log.Log(api.LevelError, int(api.CodeOf(err)), "read error encountered %v", err)
	}
}

// receive reads one datagram from fd and hands it to a worker.
func (s *Server) receive(ctx context.Context, g *errgroup.Group, fd int) {
	buf := s.buffers.GetBuffer()
	n, from, err := unix.Recvfrom(fd, *buf, unix.MSG_DONTWAIT)
	payload := append([]byte(nil), (*buf)[:max(n, 0)]...)
	s.buffers.PutBuffer(buf)
	if err != nil {
		if err != unix.EAGAIN && err != unix.EWOULDBLOCK && err != unix.EINTR {
			s.log.Log(api.LevelError, int(api.ErrCodeOS), "read error encountered %v", err)
		}
		return
	}
	s.metrics.Received(n)
	peer := transport.SockaddrString(from)
	g.Go(func() error {
		if err := s.handler.ServeDatagram(ctx, payload, peer); err != nil {
			s.log.Log(api.LevelError, int(api.CodeOf(err)), "datagram from %s: %v", peer, err)
		}
		return nil
	})
}
