package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newSearchCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "search <domain> <query...>",
		Short: "Run a hybrid search within one content domain",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := parseDomain(args[0])
			if err != nil {
				return err
			}
			query := strings.Join(args[1:], " ")

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.engine.Search(ctx, domain, query, limit)
			if err != nil {
				return err
			}
			if len(results) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No results.")
				return nil
			}

			for i, r := range results {
				e, err := a.store.FindByID(ctx, r.ID)
				if err != nil {
					return err
				}
				title := ""
				if e != nil {
					title = e.Title
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. [%d] %s (score %.5f)\n", i+1, r.ID, title, r.Score)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of results (0 = default)")
	return cmd
}
