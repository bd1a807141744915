// File: transport/doc.go
// Package transport
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0
//
// Socket lifecycle layer for cnet. A Factory resolves address specs, creates
// raw sockets, applies the requested options in order and either binds and
// listens (server role) or connects (client role). Accept hands out connected
// descriptors, and Session ties a client descriptor to its peer address.
//
// The layer works on plain descriptors from golang.org/x/sys/unix so that they
// can be tracked in a pool.FDPool and polled with select(2). No call retries
// internally; every failure is returned as an *api.Error.
package transport
