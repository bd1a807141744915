//go:build unix

package main

import (
	"github.com/momentics/cnet/control"
	"github.com/spf13/pflag"
)

// addressFlags are shared by both commands.
type addressFlags struct {
	ip    string
	port  string
	proto string
	ipv6  bool
}

func (a *addressFlags) install(flags *pflag.FlagSet) {
	flags.StringVar(&a.ip, "ip-address", "", "ip address of host")
	flags.StringVar(&a.port, "port", control.DefaultPort, "port of host")
	flags.StringVar(&a.proto, "proto", "tcp", "network protocol (tcp, udp)")
	flags.BoolVar(&a.ipv6, "ipv6", false, "use IPv6")
}

// apply copies the flags the user set onto cfg, so a config file keeps its
// values unless overridden on the command line.
func (a *addressFlags) apply(flags *pflag.FlagSet, cfg *control.Config) {
	if flags.Changed("ip-address") {
		cfg.Address = a.ip
	}
	if flags.Changed("port") {
		cfg.Port = a.port
	}
	if flags.Changed("proto") {
		cfg.Protocol = a.proto
	}
	if flags.Changed("ipv6") {
		cfg.IPv6 = a.ipv6
	}
}
