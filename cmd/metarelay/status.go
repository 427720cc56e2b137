package main

import (
	"fmt"

	"github.com/metarelay/metarelay/internal/redact"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Print each configured repo and its cursor",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		d, err := buildDaemon(configPath)
		if err != nil {
			return redact.Error(err)
		}
		defer d.store.Close()

		for _, repo := range d.cfg.RepoNames() {
			cursor, err := d.store.GetCursor(repo)
			if err != nil {
				return redact.Error(err)
			}
			if cursor == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: no cursor\n", repo)
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: last_event_id=%d updated_at=%s\n", repo, cursor.LastEventID, cursor.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
		}
		return nil
	},
}
