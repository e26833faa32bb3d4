package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbridge/kbsearch/internal/embed"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show embedding provider and backfill status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			stats, err := a.pipeline.GetStats(ctx)
			if err != nil {
				return err
			}
			desc := embed.Describe(ctx, a.service.Provider())

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Provider:    %s (model %s, %d dimensions)\n", desc.Provider, desc.Model, desc.Dimensions)
			fmt.Fprintf(out, "Available:   %v\n", desc.Available)
			fmt.Fprintf(out, "Pending:     %d entities without embeddings\n", stats.Pending)
			fmt.Fprintf(out, "Backfilling: %v\n", stats.Running)
			return nil
		},
	}
	return cmd
}
