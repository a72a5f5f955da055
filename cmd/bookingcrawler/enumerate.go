package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/booking-crawler/internal/app"
	"github.com/JakeFAU/booking-crawler/internal/calendar"
	"github.com/JakeFAU/booking-crawler/internal/config"
	"github.com/JakeFAU/booking-crawler/internal/enumerate"
)

func newEnumerateCmd() *cobra.Command {
	var idsOnly bool
	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "Print the candidate URLs the next crawl would fetch",
		Long: `Resolves the seed partition and prints one candidate per line without
fetching anything. Output sinks are not opened.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withAppConfig(cmd.Context(), dryRun, func(ctx context.Context, a *app.App) error {
				plan, err := a.Orchestrator().Plan(ctx)
				if err != nil {
					return fmt.Errorf("plan crawl: %w", err)
				}
				a.Logger().Info("enumerated candidates",
					zap.String("today", calendar.FormatDay(plan.Today)),
					zap.String("seed_date", calendar.FormatDay(plan.Seed.Date)),
					zap.Int("candidates", len(plan.Candidates)),
				)
				out := cmd.OutOrStdout()
				for _, id := range plan.Candidates {
					line := id
					if !idsOnly {
						line = enumerate.URL(a.Config().Crawl.URLTemplate, id)
					}
					if _, err := fmt.Fprintln(out, line); err != nil {
						return fmt.Errorf("write candidate: %w", err)
					}
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "print identifiers instead of URLs")
	return cmd
}

// dryRun disables every row sink so planning never truncates output files.
func dryRun(cfg config.Config) config.Config {
	cfg.Output = config.OutputConfig{}
	return cfg
}
