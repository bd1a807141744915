// Package pool
// Author: momentics <momentics@gmail.com>
//
// Descriptor pool for cnet servers.
// FDPool keeps TCP and UDP socket descriptors in two select(2) sets, each
// guarded by its own RWMutex, and answers "which of these are ready" with a
// short bounded wait. Membership snapshots are taken under the read lock and
// the wait itself runs unlocked.
//
// The pool is a registry, not an owner: it never closes descriptors.
// See fdpool.go for the implementation.
package pool
