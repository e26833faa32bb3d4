package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newBackfillCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Generate embeddings for entities that lack them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			if !a.pipeline.Sync(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "A backfill run is already in progress.")
				return nil
			}
			a.pipeline.Wait()

			stats, err := a.pipeline.GetStats(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Backfill complete: %d scanned, %d embedded, %d errors, %d still pending.\n",
				stats.LastRun.Scanned, stats.LastRun.Embedded, stats.LastRun.Errors, stats.Pending)
			return nil
		},
	}
	return cmd
}
