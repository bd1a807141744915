//go:build unix

// File: transport/session.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Session pairs a connected descriptor with its peer address.

package transport

import (
	"io"
	"sync"

	"github.com/momentics/cnet/api"
	"golang.org/x/sys/unix"
)

// State is a socket lifecycle state.
type State int

const (
	StateUnbound State = iota
	StateBound
	StateListening
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateUnbound:
		return "unbound"
	case StateBound:
		return "bound"
	case StateListening:
		return "listening"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Session owns exactly one descriptor and its resolved peer address; Close
// releases both. A Session may be handed to another goroutine but must have a
// single owner at a time.
type Session struct {
	fd    int
	peer  unix.Sockaddr
	state State

	once     sync.Once
	closeErr error
}

var _ io.ReadWriteCloser = (*Session)(nil)

func newSession(fd int, peer unix.Sockaddr, state State) *Session {
	return &Session{fd: fd, peer: peer, state: state}
}

// FD returns the owned descriptor, or api.InvalidFD after Close.
func (s *Session) FD() int { return s.fd }

// Peer returns the resolved peer address.
func (s *Session) Peer() unix.Sockaddr { return s.peer }

// PeerString returns the peer as host:port.
func (s *Session) PeerString() string { return SockaddrString(s.peer) }

// State reports StateConnected for stream sessions and StateUnbound for
// datagram client sessions, which are never connected.
func (s *Session) State() State { return s.state }

// Read reads from the descriptor. A zero-byte read on a stream is io.EOF.
func (s *Session) Read(b []byte) (int, error) {
	if s.fd < 0 {
		return 0, unix.EBADF
	}
	if s.state != StateConnected {
		n, _, err := unix.Recvfrom(s.fd, b, 0)
		return n, err
	}
	n, err := unix.Read(s.fd, b)
	if err != nil {
		return 0, err
	}
	if n == 0 && len(b) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write writes to the connected peer, or sends one datagram to the peer
// address when the session is not connected.
func (s *Session) Write(b []byte) (int, error) {
	if s.fd < 0 {
		return 0, unix.EBADF
	}
	if s.state != StateConnected {
		if err := unix.Sendto(s.fd, b, 0, s.peer); err != nil {
			return 0, err
		}
		return len(b), nil
	}
	return unix.Write(s.fd, b)
}

// Close closes the descriptor and drops the peer address. It is idempotent.
func (s *Session) Close() error {
	s.once.Do(func() {
		if err := unix.Close(s.fd); err != nil {
			s.closeErr = api.NewError(api.ErrCodeOS, "close", err)
		}
		s.fd = api.InvalidFD
		s.peer = nil
	})
	return s.closeErr
}
