//go:build unix

// File: transport/socket.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket lifecycle: create, configure, bind, listen, connect, accept.
//
//	Unbound -> Bound -> Listening   (Listen, stream)
//	Unbound -> Bound                (Listen, datagram)
//	Unbound -> Connected            (Dial, stream)

package transport

import (
	"context"
	"syscall"

	"github.com/momentics/cnet/api"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// socket creates a close-on-exec descriptor matching spec's family and transport.
func (f *Factory) socket(spec api.AddressSpec) (int, error) {
	syscall.ForkLock.RLock()
	fd, err := unix.Socket(domain(spec.Family), sockType(spec.Transport), 0)
	if err == nil {
		unix.CloseOnExec(fd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		return api.InvalidFD, f.fail(api.NewError(api.ErrCodeOS, "socket", err))
	}
	f.log.Log(api.LevelInfo, 0, "socket %d created (%s %s)", fd, spec.Family, spec.Transport)
	return fd, nil
}

// prepare resolves spec, creates the socket and applies opts. On failure no
// descriptor is left open.
func (f *Factory) prepare(ctx context.Context, op string, spec api.AddressSpec, opts []api.SocketOption) (int, unix.Sockaddr, error) {
	if len(opts) == 0 {
		return api.InvalidFD, nil, f.fail(api.NewError(api.ErrCodeContractViolation, op, errEmptyOptions))
	}
	sa, err := f.Resolve(ctx, spec)
	if err != nil {
		return api.InvalidFD, nil, err
	}
	fd, err := f.socket(spec)
	if err != nil {
		return api.InvalidFD, nil, err
	}
	if err := f.ApplyOptions(fd, opts...); err != nil {
		unix.Close(fd)
		return api.InvalidFD, nil, err
	}
	return fd, sa, nil
}

var errEmptyOptions = errors.New("empty socket opts")

// Listen creates a socket for spec, applies opts, binds it and, for stream
// transport, starts listening with the factory backlog. Datagram sockets are
// returned bound. On any failure it returns api.InvalidFD and an error; the
// partially created socket is closed.
//
// At least one option is required.
func (f *Factory) Listen(ctx context.Context, spec api.AddressSpec, opts ...api.SocketOption) (int, error) {
	fd, sa, err := f.prepare(ctx, "listen", spec, opts)
	if err != nil {
		return api.InvalidFD, err
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return api.InvalidFD, f.fail(api.NewError(api.ErrCodeOS, "bind "+SockaddrString(sa), err))
	}
	f.log.Log(api.LevelDebug, 0, "socket %d %s on %s", fd, StateBound, SockaddrString(sa))
	if spec.Transport != api.TransportStream {
		return fd, nil
	}
	if err := unix.Listen(fd, f.backlog); err != nil {
		unix.Close(fd)
		return api.InvalidFD, f.fail(api.NewError(api.ErrCodeOS, "listen", err))
	}
	f.log.Log(api.LevelInfo, 0, "socket %d %s on %s", fd, StateListening, SockaddrString(sa))
	return fd, nil
}

// Dial creates a client socket for spec and applies opts. Stream sockets are
// connected to the resolved peer; datagram sockets are only created and send
// to the peer address on Write. A non-blocking connect that is still in
// progress counts as success. On connect failure the descriptor is closed.
func (f *Factory) Dial(ctx context.Context, spec api.AddressSpec, opts ...api.SocketOption) (*Session, error) {
	fd, sa, err := f.prepare(ctx, "dial", spec, opts)
	if err != nil {
		return nil, err
	}
	if spec.Transport != api.TransportStream {
		return newSession(fd, sa, StateUnbound), nil
	}
	if err := unix.Connect(fd, sa); err != nil && err != unix.EINPROGRESS {
		unix.Close(fd)
		return nil, f.fail(api.NewError(api.ErrCodeOS, "connect "+SockaddrString(sa), err))
	}
	f.log.Log(api.LevelInfo, 0, "socket %d %s to %s", fd, StateConnected, SockaddrString(sa))
	return newSession(fd, sa, StateConnected), nil
}

// Accept performs a single accept on a listening descriptor and returns the
// connected descriptor. It blocks or not according to fd's blocking mode; a
// non-blocking listener with nothing pending yields an ErrTransient error.
func (f *Factory) Accept(fd int) (int, error) {
	s, err := f.AcceptSession(fd)
	if err != nil {
		return api.InvalidFD, err
	}
	return s.fd, nil
}

// AcceptSession is Accept returning the new descriptor with its peer address.
func (f *Factory) AcceptSession(fd int) (*Session, error) {
	syscall.ForkLock.RLock()
	nfd, sa, err := unix.Accept(fd)
	if err == nil {
		unix.CloseOnExec(nfd)
	}
	syscall.ForkLock.RUnlock()
	if err != nil {
		if err == unix.EAGAIN || err == unix.EWOULDBLOCK || err == unix.EINTR {
			e := api.NewError(api.ErrCodeTransient, "accept", err)
			f.log.Log(api.LevelDebug, int(e.Code), "%s", e)
			return nil, e
		}
		return nil, f.fail(api.NewError(api.ErrCodeOS, "accept", err))
	}
	f.log.Log(api.LevelInfo, 0, "socket %d accepted connection %d from %s", fd, nfd, SockaddrString(sa))
	return newSession(nfd, sa, StateConnected), nil
}

// Close closes a descriptor returned by Listen or Accept.
func Close(fd int) error {
	if err := unix.Close(fd); err != nil {
		return api.NewError(api.ErrCodeOS, "close", err)
	}
	return nil
}
