//go:build unix

// File: transport/factory.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Factory holds the collaborators shared by every socket lifecycle call.

package transport

import (
	"net"

	"github.com/momentics/cnet/api"
)

// DefaultBacklog is the listen(2) backlog for stream listeners.
const DefaultBacklog = 10

// Factory creates, configures, binds, connects and accepts raw sockets.
// It is safe for concurrent use; it holds no per-socket state.
type Factory struct {
	log      api.Logger
	backlog  int
	resolver *net.Resolver
}

// Option customizes a Factory.
type Option func(*Factory)

// WithLogger injects the logger used for lifecycle transitions and failures.
func WithLogger(l api.Logger) Option {
	return func(f *Factory) {
		if l != nil {
			f.log = l
		}
	}
}

// WithBacklog overrides DefaultBacklog. Non-positive values are ignored.
func WithBacklog(n int) Option {
	return func(f *Factory) {
		if n > 0 {
			f.backlog = n
		}
	}
}

// WithResolver replaces net.DefaultResolver for address resolution.
func WithResolver(r *net.Resolver) Option {
	return func(f *Factory) {
		if r != nil {
			f.resolver = r
		}
	}
}

// New returns a Factory with defaults applied.
func New(opts ...Option) *Factory {
	f := &Factory{
		log:      api.NopLogger(),
		backlog:  DefaultBacklog,
		resolver: net.DefaultResolver,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// fail logs err at error level with its code and returns it unchanged.
func (f *Factory) fail(err *api.Error) *api.Error {
	f.log.Log(api.LevelError, int(err.Code), "%s", err.Error())
	return err
}
