package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/booking-crawler/internal/app"
)

func newCrawlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawl",
		Short: "Run one crawl and print its summary",
		Long: `Resolves the seed partition, fetches every candidate booking page,
persists the raw HTML and writes one row per extracted booking to the
configured sinks. Per-page failures are counted, not fatal.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				summary, err := a.Orchestrator().Run(ctx)
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if encErr := enc.Encode(summary); encErr != nil {
					return fmt.Errorf("print summary: %w", encErr)
				}
				if err != nil {
					return fmt.Errorf("crawl: %w", err)
				}
				return nil
			})
		},
	}
}
