//go:build unix

// File: server/types.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"
	"io"

	"github.com/momentics/cnet/api"
	"github.com/momentics/cnet/pool"
	"github.com/momentics/cnet/transport"
	"github.com/pkg/errors"
)

// ErrAlreadyRunning is returned by Start on a started server.
var ErrAlreadyRunning = errors.New("server already running")

// ErrNotStarted is returned by Run before Start.
var ErrNotStarted = errors.New("server not started")

// Handler consumes traffic picked up by the poll loop. Handlers run on the
// worker group and must be safe for concurrent use.
type Handler interface {
	// ServeStream handles one accepted connection. The server closes the
	// session after ServeStream returns.
	ServeStream(ctx context.Context, s *transport.Session) error
	// ServeDatagram handles one datagram read from the bound socket. payload
	// is owned by the handler.
	ServeDatagram(ctx context.Context, payload []byte, from string) error
}

// Recorder receives server metrics. control.Metrics implements it.
type Recorder interface {
	SetRegistered(p api.Protocol, n int)
	SocketCreated()
	Accepted()
	PollError()
	Received(n int)
}

// LogHandler reads one message per connection and logs it.
type LogHandler struct {
	Log api.Logger
	// Buffers supplies read buffers; nil means 1KiB buffers allocated per
	// connection.
	Buffers *pool.BytePool
	// OnReceive, if set, is told the size of every stream payload. The
	// server counts datagram bytes itself.
	OnReceive func(n int)
}

func (h *LogHandler) logger() api.Logger {
	if h.Log == nil {
		return api.NopLogger()
	}
	return h.Log
}

func (h *LogHandler) received(n int) {
	if h.OnReceive != nil {
		h.OnReceive(n)
	}
}

// ServeStream reads one buffer worth of bytes and logs them. A peer that closes
// without sending is not an error.
func (h *LogHandler) ServeStream(_ context.Context, s *transport.Session) error {
	var buf []byte
	if h.Buffers != nil {
		pb := h.Buffers.GetBuffer()
		defer h.Buffers.PutBuffer(pb)
		buf = *pb
	} else {
		buf = make([]byte, 1024)
	}
	n, err := s.Read(buf)
	if err == io.EOF {
		h.logger().Log(api.LevelDebug, 0, "peer %s closed without payload", s.PeerString())
		return nil
	}
	if err != nil {
		return api.NewError(api.ErrCodeOS, "read "+s.PeerString(), err)
	}
	h.received(n)
	h.logger().Log(api.LevelInfo, 0, "received message %s", buf[:n])
	return nil
}

// ServeDatagram logs the payload.
func (h *LogHandler) ServeDatagram(_ context.Context, payload []byte, from string) error {
	h.logger().Log(api.LevelInfo, 0, "received message %s from %s", payload, from)
	return nil
}
