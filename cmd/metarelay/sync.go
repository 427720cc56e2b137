package main

import (
	"context"

	"github.com/metarelay/metarelay/internal/redact"
	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run a one-shot catch-up against every configured repo, then exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		verbose, _ := cmd.Flags().GetBool("verbose")

		d, err := buildDaemon(configPath)
		if err != nil {
			return redact.Error(err)
		}
		defer d.store.Close()

		reinitLoggingFromConfig(d.cfg.LogLevel, verbose)

		if err := d.supervisor.RunSync(context.Background()); err != nil {
			return redact.Error(err)
		}
		return nil
	},
}
