//go:build unix

package main

import (
	"github.com/momentics/cnet/api"
	"github.com/momentics/cnet/control"
	"github.com/momentics/cnet/logging"
	"github.com/momentics/cnet/transport"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newClientCommand() *cobra.Command {
	var (
		addr     addressFlags
		message  string
		logLevel string
	)
	cmd := &cobra.Command{
		Use:   "socket-client",
		Short: "Connect to a socket server and send one message",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := control.DefaultConfig()
			cfg.Address = "127.0.0.1"
			addr.apply(cmd.Flags(), cfg)
			spec, err := cfg.AddressSpec()
			if err != nil {
				return err
			}

			zl, _, err := logging.New(logLevel, false)
			if err != nil {
				return err
			}
			defer zl.Sync() //nolint:errcheck

			f := transport.New(transport.WithLogger(logging.NewZap(zl)))
			s, err := f.Dial(cmd.Context(), spec, api.DefaultSocketOptions...)
			if err != nil {
				return err
			}
			defer s.Close()
			if _, err := s.Write([]byte(message)); err != nil {
				return errors.Wrapf(err, "send to %s", s.PeerString())
			}
			return nil
		},
	}
	flags := cmd.Flags()
	addr.install(flags)
	flags.StringVar(&message, "message", "hello", "message to send")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	return cmd
}
