// Package api
// Author: momentics <momentics@gmail.com>
//
// Error taxonomy shared by the descriptor pool and the socket lifecycle layer.

package api

import (
	cerrdefs "github.com/containerd/errdefs"
	"github.com/pkg/errors"
)

// Error classes. Every failure returned by cnet matches exactly one of these
// through errors.Is, and the containerd errdefs class it wraps.
var (
	// ErrContractViolation marks caller bugs: empty option lists, unknown
	// option values, descriptors outside the tracked range.
	ErrContractViolation = errors.WithMessage(cerrdefs.ErrInvalidArgument, "contract violation")
	// ErrResolution is returned when an address spec yields no usable candidate.
	ErrResolution = errors.WithMessage(cerrdefs.ErrNotFound, "address resolution failed")
	// ErrOS wraps socket, bind, listen, connect, accept and option failures.
	ErrOS = errors.WithMessage(cerrdefs.ErrInternal, "socket operation failed")
	// ErrTransient is the only retryable class: interrupted readiness waits
	// and accepts that would block.
	ErrTransient = errors.WithMessage(cerrdefs.ErrUnavailable, "transient failure")
)

// ErrorCode is the numeric code attached to errors and log records.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeContractViolation
	ErrCodeResolution
	ErrCodeOS
	ErrCodeTransient
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeContractViolation:
		return "contract violation"
	case ErrCodeResolution:
		return "resolution"
	case ErrCodeOS:
		return "os"
	case ErrCodeTransient:
		return "transient"
	default:
		return "unknown"
	}
}

func (c ErrorCode) class() error {
	switch c {
	case ErrCodeContractViolation:
		return ErrContractViolation
	case ErrCodeResolution:
		return ErrResolution
	case ErrCodeOS:
		return ErrOS
	case ErrCodeTransient:
		return ErrTransient
	default:
		return nil
	}
}

// Error is a structured failure carrying its code, the operation that failed
// and the underlying cause (usually a unix.Errno).
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

// NewError creates a structured error.
func NewError(code ErrorCode, op string, cause error) *Error {
	return &Error{Code: code, Op: op, Err: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Op + ": " + e.Code.String()
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes both the error class and the cause, so errors.Is matches
// ErrTransient as well as unix.EINTR for an interrupted wait.
func (e *Error) Unwrap() []error {
	out := make([]error, 0, 2)
	if class := e.Code.class(); class != nil {
		out = append(out, class)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// CodeOf returns the code of the first *Error in err's chain.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ErrCodeOK
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeOS
}

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return cerrdefs.IsUnavailable(err)
}

// IsContractViolation reports whether err signals a caller bug.
func IsContractViolation(err error) bool {
	return cerrdefs.IsInvalidArgument(err)
}
