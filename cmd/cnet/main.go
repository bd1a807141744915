//go:build unix

// Command cnet runs a select(2)-driven socket server or sends a single
// message to one.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "v0.0.1"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "cnet [command]",
		Short:         "Socket lifecycle and descriptor pool utilities",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServerCommand(), newClientCommand())
	return cmd
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
