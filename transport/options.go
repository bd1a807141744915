//go:build unix

// File: transport/options.go
// Author: momentics <momentics@gmail.com>
//
// Socket option interpreter.

package transport

import (
	"time"

	"github.com/momentics/cnet/api"
	"golang.org/x/sys/unix"
)

// ApplyOptions applies opts to fd in order. ReuseAddress must precede bind to
// have any effect; Blocking and NonBlocking may be given together, the last
// one wins. An option outside the known set is a contract violation.
func (f *Factory) ApplyOptions(fd int, opts ...api.SocketOption) error {
	for _, opt := range opts {
		var err error
		switch opt {
		case api.ReuseAddress:
			err = unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1)
		case api.Blocking:
			err = SetBlocking(fd, true)
		case api.NonBlocking:
			err = SetBlocking(fd, false)
		default:
			return f.fail(api.NewError(api.ErrCodeContractViolation, "apply "+opt.String(), nil))
		}
		if err != nil {
			return f.fail(api.NewError(api.ErrCodeOS, "apply "+opt.String(), err))
		}
		f.log.Log(api.LevelInfo, 0, "socket %d: set socket opt %s", fd, opt)
	}
	return nil
}

// SetBlocking toggles O_NONBLOCK on fd.
func SetBlocking(fd int, blocking bool) error {
	if fd < 0 {
		return unix.EBADF
	}
	return unix.SetNonblock(fd, !blocking)
}

// IsBlocking reports whether O_NONBLOCK is clear on fd.
func IsBlocking(fd int) (bool, error) {
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		return false, err
	}
	return flags&unix.O_NONBLOCK == 0, nil
}

// SetReadTimeout bounds blocking reads on fd with SO_RCVTIMEO. Zero disables
// the bound.
func SetReadTimeout(fd int, d time.Duration) error {
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return api.NewError(api.ErrCodeOS, "set read timeout", err)
	}
	return nil
}
