// Command metarelay is the relay daemon's CLI entry point: start runs the
// supervisor in the foreground, status reports each repo's cursor, sync
// performs a one-shot catch-up. The root cobra command wires persistent
// logging flags through cobra.OnInitialize and sets a version template in
// init.
package main

import (
	"fmt"
	"os"

	"github.com/metarelay/metarelay/internal/redact"
	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", redact.Error(err))
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "metarelay",
	Short: "metarelay relays cloud-published repository events to local handler commands",
	Long: `metarelay is a long-running relay daemon that bridges a remote event
stream to local subprocess invocations: it catches up on missed events,
subscribes to a live push channel, matches each event against configured
handler rules, and executes the matching command with the event's fields
substituted into its template.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"metarelay version %s\ncommit: %s\nbuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringP("config", "c", "config.yaml", "Path to the YAML configuration file")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug-level logging")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncCmd)
}
