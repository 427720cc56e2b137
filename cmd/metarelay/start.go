package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/metarelay/metarelay/internal/metrics"
	"github.com/metarelay/metarelay/internal/redact"
	"github.com/metarelay/metarelay/internal/rlog"
	"github.com/spf13/cobra"
)

func init() {
	startCmd.Flags().String("metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090); disabled if empty and config has no metrics_addr")
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the relay supervisor in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")
		metricsAddr, _ := cmd.Flags().GetString("metrics-addr")

		d, err := buildDaemon(configPath)
		if err != nil {
			return redact.Error(err)
		}
		defer d.store.Close()

		reinitLoggingFromConfig(d.cfg.LogLevel, verbose)

		if metricsAddr == "" {
			metricsAddr = d.cfg.MetricsAddr
		}
		if stop := startMetricsServer(metricsAddr); stop != nil {
			defer stop()
		}

		if err := d.supervisor.Run(context.Background()); err != nil {
			redacted := redact.Error(err)
			rlog.WithComponent("cmd").Error().Err(redacted).Msg("supervisor exited with a fatal error")
			return redacted
		}
		return nil
	},
}

// startMetricsServer mounts metrics.Handler() on addr and serves it in the
// background, returning a func to shut it down. Returns nil if addr is
// empty (metrics stay disabled, the default).
func startMetricsServer(addr string) (stop func()) {
	if addr == "" {
		return nil
	}
	logger := rlog.WithComponent("metrics")

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("metrics server failed")
		}
	}()
	logger.Info().Str("addr", addr).Msg("serving metrics")

	return func() {
		_ = srv.Shutdown(context.Background())
	}
}
