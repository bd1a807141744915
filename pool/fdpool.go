//go:build unix

// File: pool/fdpool.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Protocol-partitioned descriptor pool with select(2) readiness polling.

package pool

import (
	"sync"
	"time"

	"github.com/momentics/cnet/api"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// MaxTracked is the classic select(2) descriptor-set capacity. Descriptors
// must lie in [0, MaxTracked).
const MaxTracked = 1024

// DefaultPollTimeout bounds every readiness wait.
const DefaultPollTimeout = 50 * time.Microsecond

// memberSet is one protocol partition. count is the number of Register calls
// and is only touched under mu.
type memberSet struct {
	mu    sync.RWMutex
	set   unix.FdSet
	count int
}

// highest returns the largest member, or -1 when the set is empty.
// Caller holds mu.
func (m *memberSet) highest() int {
	for fd := MaxTracked - 1; fd >= 0; fd-- {
		if m.set.IsSet(fd) {
			return fd
		}
	}
	return -1
}

// FDPool tracks socket descriptors split into TCP and UDP partitions, each
// behind its own RWMutex. Operations on one partition never wait on the other.
//
// The pool never closes descriptors; their lifetime belongs to the caller.
// There is no single-member removal: membership only shrinks through Free.
type FDPool struct {
	tcp memberSet
	udp memberSet

	timeout time.Duration
	log     api.Logger
}

// Option customizes pool construction.
type Option func(*FDPool)

// WithLogger sets the logger used for readiness wait failures.
func WithLogger(l api.Logger) Option {
	return func(p *FDPool) {
		if l != nil {
			p.log = l
		}
	}
}

// WithPollTimeout overrides DefaultPollTimeout. Non-positive values are ignored.
func WithPollTimeout(d time.Duration) Option {
	return func(p *FDPool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// New returns an empty pool.
func New(opts ...Option) *FDPool {
	p := &FDPool{
		timeout: DefaultPollTimeout,
		log:     api.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *FDPool) members(proto api.Protocol) *memberSet {
	switch proto {
	case api.ProtocolTCP:
		return &p.tcp
	case api.ProtocolUDP:
		return &p.udp
	}
	panic(errors.Wrapf(api.ErrContractViolation, "unknown protocol %d", int(proto)))
}

// Register adds fd to the proto partition. The partition counter is bumped on
// every call, so registering the same descriptor twice counts it twice.
//
// fd outside [0, MaxTracked) is a contract violation and panics.
func (p *FDPool) Register(fd int, proto api.Protocol) {
	if fd < 0 || fd >= MaxTracked {
		panic(errors.Wrapf(api.ErrContractViolation, "descriptor %d outside [0, %d)", fd, MaxTracked))
	}
	m := p.members(proto)
	m.mu.Lock()
	m.set.Set(fd)
	m.count++
	m.mu.Unlock()
}

// IsSet reports whether fd is a member of the proto partition.
func (p *FDPool) IsSet(fd int, proto api.Protocol) bool {
	if fd < 0 || fd >= MaxTracked {
		return false
	}
	m := p.members(proto)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.set.IsSet(fd)
}

// Count returns the number of Register calls made for proto.
func (p *FDPool) Count(proto api.Protocol) int {
	m := p.members(proto)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.count
}

// All writes the members of proto into buf in ascending order and returns how
// many were written. At most len(buf) descriptors are returned.
func (p *FDPool) All(proto api.Protocol, buf []int) int {
	m := p.members(proto)
	m.mu.RLock()
	defer m.mu.RUnlock()
	return collect(&m.set, buf)
}

// Enumerate is All with a freshly allocated result of at most max entries.
func (p *FDPool) Enumerate(proto api.Protocol, max int) []int {
	if max <= 0 {
		return nil
	}
	if max > MaxTracked {
		max = MaxTracked
	}
	buf := make([]int, max)
	return buf[:p.All(proto, buf)]
}

// Active waits up to the poll timeout for members of proto to become ready
// in direction d. out receives the ready subset and is overwritten on every
// call.
//
// It returns 0 when nothing became ready and -1 with an ErrTransient-classed
// error when the wait itself failed. The partition lock is held only while the
// membership is copied; select(2) runs on the copy, so Register is never held
// up by a wait in progress.
func (p *FDPool) Active(proto api.Protocol, d api.Direction, out *unix.FdSet) (int, error) {
	m := p.members(proto)
	m.mu.RLock()
	*out = m.set
	highest := m.highest()
	m.mu.RUnlock()

	if highest < 0 {
		return 0, nil
	}

	var rset, wset *unix.FdSet
	if d == api.DirectionWrite {
		wset = out
	} else {
		rset = out
	}
	tv := unix.NsecToTimeval(p.timeout.Nanoseconds())
	n, err := unix.Select(highest+1, rset, wset, nil, &tv)
	if err != nil {
		out.Zero()
		p.log.Log(api.LevelWarn, int(api.ErrCodeTransient), "%s readiness wait failed: %s", proto, err)
		return -1, api.NewError(api.ErrCodeTransient, "select", err)
	}
	return n, nil
}

// Ready runs Active and lists the ready descriptors in ascending order.
func (p *FDPool) Ready(proto api.Protocol, d api.Direction) ([]int, error) {
	var out unix.FdSet
	n, err := p.Active(proto, d, &out)
	if err != nil || n == 0 {
		return nil, err
	}
	buf := make([]int, n)
	return buf[:collect(&out, buf)], nil
}

// Free clears both partitions. It takes the TCP lock before the UDP lock;
// no other method holds more than one partition lock. Descriptors are not
// closed. The pool must not be used after Free.
func (p *FDPool) Free() {
	p.tcp.mu.Lock()
	p.udp.mu.Lock()
	p.tcp.set.Zero()
	p.udp.set.Zero()
	p.tcp.count = 0
	p.udp.count = 0
	p.udp.mu.Unlock()
	p.tcp.mu.Unlock()
}

// collect scans set in increasing descriptor order.
func collect(set *unix.FdSet, buf []int) int {
	n := 0
	for fd := 0; fd < MaxTracked && n < len(buf); fd++ {
		if set.IsSet(fd) {
			buf[n] = fd
			n++
		}
	}
	return n
}
