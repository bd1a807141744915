// File: api/types.go
// Author: momentics <momentics@gmail.com>
//
// Shared API-level type declarations and constants.

package api

import (
	"fmt"
	"net"
	"strings"

	"github.com/pkg/errors"
)

// InvalidFD is returned in place of a descriptor whenever creation fails.
const InvalidFD = -1

// Protocol selects one of the two independently locked descriptor partitions.
type Protocol int

const (
	ProtocolTCP Protocol = iota
	ProtocolUDP
)

func (p Protocol) String() string {
	switch p {
	case ProtocolTCP:
		return "tcp"
	case ProtocolUDP:
		return "udp"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// ParseProtocol maps "tcp" or "udp" to a Protocol.
func ParseProtocol(s string) (Protocol, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "tcp":
		return ProtocolTCP, nil
	case "udp":
		return ProtocolUDP, nil
	}
	return 0, errors.Wrapf(ErrContractViolation, "unknown protocol %q", s)
}

// Transport returns the socket type that carries p.
func (p Protocol) Transport() Transport {
	if p == ProtocolUDP {
		return TransportDatagram
	}
	return TransportStream
}

// Direction selects the readiness being polled for.
type Direction int

const (
	DirectionRead Direction = iota
	DirectionWrite
)

func (d Direction) String() string {
	if d == DirectionWrite {
		return "write"
	}
	return "read"
}

// SocketOption is a configuration flag applied to a freshly created socket.
// Options are applied in the order given; for Blocking/NonBlocking the last
// one wins.
type SocketOption int

const (
	// ReuseAddress sets SO_REUSEADDR; it is applied before bind.
	ReuseAddress SocketOption = iota
	// NonBlocking sets O_NONBLOCK on the descriptor.
	NonBlocking
	// Blocking clears O_NONBLOCK on the descriptor.
	Blocking
)

func (o SocketOption) String() string {
	switch o {
	case ReuseAddress:
		return "REUSEADDR"
	case NonBlocking:
		return "NOBLOCK"
	case Blocking:
		return "BLOCK"
	default:
		return fmt.Sprintf("SocketOption(%d)", int(o))
	}
}

// ParseSocketOption accepts the names used in configuration files.
func ParseSocketOption(s string) (SocketOption, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "reuseaddr", "reuse-address", "reuse_address":
		return ReuseAddress, nil
	case "nonblock", "noblock", "non-blocking", "nonblocking":
		return NonBlocking, nil
	case "block", "blocking":
		return Blocking, nil
	}
	return 0, errors.Wrapf(ErrContractViolation, "unknown socket option %q", s)
}

// DefaultSocketOptions mirrors the options used by the socket-server command.
var DefaultSocketOptions = []SocketOption{ReuseAddress, Blocking}

// Family is the address family selector.
type Family int

const (
	FamilyIPv4 Family = iota
	FamilyIPv6
)

func (f Family) String() string {
	if f == FamilyIPv6 {
		return "ipv6"
	}
	return "ipv4"
}

// Transport is the socket type selector.
type Transport int

const (
	TransportStream Transport = iota
	TransportDatagram
)

func (t Transport) String() string {
	if t == TransportDatagram {
		return "datagram"
	}
	return "stream"
}

// Protocol returns the pool partition for sockets of this transport.
func (t Transport) Protocol() Protocol {
	if t == TransportDatagram {
		return ProtocolUDP
	}
	return ProtocolTCP
}

// AddressSpec is the input to address resolution.
type AddressSpec struct {
	Host      string // empty means the wildcard address
	Port      string // numeric port or service name
	Family    Family
	Transport Transport
}

// Network returns the Go network name, e.g. "tcp4" or "udp6".
func (a AddressSpec) Network() string {
	n := "tcp"
	if a.Transport == TransportDatagram {
		n = "udp"
	}
	if a.Family == FamilyIPv6 {
		return n + "6"
	}
	return n + "4"
}

// IPNetwork returns "ip4" or "ip6" for host lookups.
func (a AddressSpec) IPNetwork() string {
	if a.Family == FamilyIPv6 {
		return "ip6"
	}
	return "ip4"
}

func (a AddressSpec) String() string {
	return a.Network() + "://" + net.JoinHostPort(a.Host, a.Port)
}
