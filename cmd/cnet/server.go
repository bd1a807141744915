//go:build unix

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/momentics/cnet/control"
	"github.com/momentics/cnet/logging"
	"github.com/momentics/cnet/server"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

type serverOptions struct {
	addr        addressFlags
	configFile  string
	logLevel    string
	metricsAddr string
}

func newServerCommand() *cobra.Command {
	var opts serverOptions
	cmd := &cobra.Command{
		Use:   "socket-server",
		Short: "Listen on an address and log every message received",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.config(cmd)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), cfg, opts.configFile)
		},
	}
	opts.install(cmd.Flags())
	return cmd
}

func (o *serverOptions) install(flags *pflag.FlagSet) {
	o.addr.install(flags)
	flags.StringVar(&o.configFile, "config", "", "TOML configuration file")
	flags.StringVar(&o.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&o.metricsAddr, "metrics-addr", "", "serve /metrics on this address")
}

// config loads the config file, if any, and applies explicit flags on top.
func (o *serverOptions) config(cmd *cobra.Command) (*control.Config, error) {
	cfg := control.DefaultConfig()
	if o.configFile != "" {
		var err error
		if cfg, err = control.LoadFile(o.configFile); err != nil {
			return nil, err
		}
	}
	flags := cmd.Flags()
	o.addr.apply(flags, cfg)
	if flags.Changed("log-level") {
		cfg.LogLevel = o.logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = o.metricsAddr
	}
	return cfg, cfg.Validate()
}

func runServer(ctx context.Context, cfg *control.Config, configFile string) error {
	zl, level, err := logging.New(cfg.LogLevel, false)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck
	log := logging.NewZap(zl)

	store := control.NewConfigStore(cfg)
	store.OnReload(func(c *control.Config) {
		lvl, err := logging.ParseLevel(c.LogLevel)
		if err != nil {
			return
		}
		level.SetLevel(lvl)
		zl.Info("configuration reloaded", zap.String("log_level", lvl.String()))
	})

	srv, err := server.New(cfg, server.WithLogger(log))
	if err != nil {
		return err
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		return errors.Wrap(err, "failed to get a socket to listen on")
	}

	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", control.MetricsHandler())
		hs := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := hs.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				zl.Error("metrics server", zap.Error(err))
			}
		}()
		defer hs.Close()
	}

	if configFile != "" {
		hup := make(chan os.Signal, 1)
		signal.Notify(hup, syscall.SIGHUP)
		defer signal.Stop(hup)
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-hup:
					if err := store.Reload(configFile); err != nil {
						zl.Warn("configuration reload failed", zap.Error(err))
					}
				}
			}
		}()
	}

	return srv.Run(ctx)
}
