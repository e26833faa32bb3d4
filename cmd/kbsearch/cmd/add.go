package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kbridge/kbsearch/internal/store"
)

func newAddCmd() *cobra.Command {
	var title string
	var content string

	cmd := &cobra.Command{
		Use:   "add <domain>",
		Short: "Add an entity to the corpus",
		Long: `Add an entity to the corpus. Content comes from --content or, when
omitted, from stdin. The entity is immediately keyword-searchable; its
embedding is populated by the next backfill run.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			domain, err := parseDomain(args[0])
			if err != nil {
				return err
			}

			if content == "" {
				data, err := io.ReadAll(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("failed to read content from stdin: %w", err)
				}
				content = string(data)
			}
			if strings.TrimSpace(content) == "" {
				return fmt.Errorf("content is empty")
			}

			ctx := cmd.Context()
			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			e := &store.Entity{Domain: domain, Title: title, Content: content}
			if err := a.store.SaveEntity(ctx, e); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Added entity %d to %s.\n", e.ID, domain)
			return nil
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Entity title")
	cmd.Flags().StringVarP(&content, "content", "c", "", "Entity content (default: read stdin)")
	return cmd
}
