//go:build unix

// File: transport/resolve.go
// Author: momentics <momentics@gmail.com>
//
// Address resolution and sockaddr formatting.

package transport

import (
	"context"
	"net"
	"strconv"

	"github.com/momentics/cnet/api"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Resolve turns spec into a socket address. Only the first candidate returned
// by the resolver is used. An empty host resolves to the wildcard address of
// the requested family.
func (f *Factory) Resolve(ctx context.Context, spec api.AddressSpec) (unix.Sockaddr, error) {
	port, err := f.resolver.LookupPort(ctx, spec.Network(), spec.Port)
	if err != nil {
		return nil, f.fail(api.NewError(api.ErrCodeResolution, "resolve port "+spec.Port, err))
	}

	var ip net.IP
	if spec.Host == "" {
		ip = net.IPv4zero
		if spec.Family == api.FamilyIPv6 {
			ip = net.IPv6unspecified
		}
	} else {
		ips, err := f.resolver.LookupIP(ctx, spec.IPNetwork(), spec.Host)
		if err != nil {
			return nil, f.fail(api.NewError(api.ErrCodeResolution, "resolve host "+spec.Host, err))
		}
		if len(ips) == 0 {
			return nil, f.fail(api.NewError(api.ErrCodeResolution, "resolve host "+spec.Host,
				errors.Errorf("no %s candidates", spec.IPNetwork())))
		}
		ip = ips[0]
	}

	sa, err := sockaddr(ip, port, spec.Family)
	if err != nil {
		return nil, f.fail(api.NewError(api.ErrCodeResolution, "resolve "+spec.String(), err))
	}
	return sa, nil
}

func sockaddr(ip net.IP, port int, family api.Family) (unix.Sockaddr, error) {
	if family == api.FamilyIPv6 {
		ip16 := ip.To16()
		if ip16 == nil || ip.To4() != nil {
			return nil, errors.Errorf("%s is not an IPv6 address", ip)
		}
		sa := &unix.SockaddrInet6{Port: port}
		copy(sa.Addr[:], ip16)
		return sa, nil
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return nil, errors.Errorf("%s is not an IPv4 address", ip)
	}
	sa := &unix.SockaddrInet4{Port: port}
	copy(sa.Addr[:], ip4)
	return sa, nil
}

func domain(family api.Family) int {
	if family == api.FamilyIPv6 {
		return unix.AF_INET6
	}
	return unix.AF_INET
}

func sockType(t api.Transport) int {
	if t == api.TransportDatagram {
		return unix.SOCK_DGRAM
	}
	return unix.SOCK_STREAM
}

// NameInfo returns the numeric host of sa, or "" for unsupported families.
func NameInfo(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.IP(a.Addr[:]).String()
	case *unix.SockaddrInet6:
		return net.IP(a.Addr[:]).String()
	case *unix.SockaddrUnix:
		return a.Name
	}
	return ""
}

// SockaddrString formats sa as host:port.
func SockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return net.JoinHostPort(NameInfo(a), strconv.Itoa(a.Port))
	case *unix.SockaddrInet6:
		return net.JoinHostPort(NameInfo(a), strconv.Itoa(a.Port))
	}
	return NameInfo(sa)
}

// LocalAddr returns the address fd is bound to.
func LocalAddr(fd int) (unix.Sockaddr, error) {
	sa, err := unix.Getsockname(fd)
	if err != nil {
		return nil, api.NewError(api.ErrCodeOS, "getsockname", err)
	}
	return sa, nil
}

// LocalPort returns the port fd is bound to, useful after binding port 0.
func LocalPort(fd int) (int, error) {
	sa, err := LocalAddr(fd)
	if err != nil {
		return 0, err
	}
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return a.Port, nil
	case *unix.SockaddrInet6:
		return a.Port, nil
	}
	return 0, api.NewError(api.ErrCodeOS, "getsockname", errors.Errorf("unexpected address %T", sa))
}
