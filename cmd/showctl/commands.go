package main

import (
	"context"
	"fmt"
	"showservice/internal/app"
	"showservice/internal/controller"
	"showservice/internal/model"
	"showservice/internal/retry"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Start and inspect bulk imports",
	}

	var page, estimated int
	startCmd := &cobra.Command{
		Use:   "start",
		Short: "Queue the first index page of a new import",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				importID, err := a.Imports.StartImport(c, page, estimated)
				if err != nil {
					return err
				}
				result := map[string]interface{}{"import_id": importID, "page": page}
				return ctx.output(cmd, result, func() string {
					return fmt.Sprintf("Started import %s from page %d", importID, page)
				})
			})
		},
	}
	startCmd.Flags().IntVar(&page, "page", 0, "Index page to start from")
	startCmd.Flags().IntVar(&estimated, "estimated-pages", model.UnknownPageCount, "Expected number of pages, if known")

	statusCmd := &cobra.Command{
		Use:   "status <import-id>",
		Short: "Show the progress of one import",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				run, err := a.Imports.GetImportStatus(c, args[0])
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				return ctx.output(cmd, run, func() string {
					return renderImportRuns([]*model.ImportRun{run})
				})
			})
		},
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List the most recent imports",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				runs := a.Imports.ListImports(c, limit)
				return ctx.output(cmd, runs, func() string { return renderImportRuns(runs) })
			})
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of imports to list")

	var finalStatus string
	completeCmd := &cobra.Command{
		Use:   "complete <import-id>",
		Short: "Force a stuck import into a terminal status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := model.ImportStatus(finalStatus)
			if !status.IsTerminal() {
				return fmt.Errorf("%w: %q", controller.ErrInvalidStatus, finalStatus)
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				run, err := a.Imports.CompleteImport(c, args[0], status)
				if err != nil {
					return fmt.Errorf("import %s: %w", args[0], err)
				}
				return ctx.output(cmd, run, func() string {
					return renderImportRuns([]*model.ImportRun{run})
				})
			})
		},
	}
	completeCmd.Flags().StringVar(&finalStatus, "status", string(model.ImportCompleted), "Terminal status (completed or failed)")

	importCmd.AddCommand(startCmd, statusCmd, listCmd, completeCmd)
	return importCmd
}

func newRetryCommand(ctx *commandContext) *cobra.Command {
	retryCmd := &cobra.Command{
		Use:   "retry",
		Short: "Re-inject failed operations",
	}

	var operationType string
	var maxAgeHours int
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Requeue unresolved failures of one operation type",
		RunE: func(cmd *cobra.Command, args []string) error {
			op, ok := model.ParseOperationType(operationType)
			if !ok {
				return fmt.Errorf("%w: %q", retry.ErrUnknownOperation, operationType)
			}
			if maxAgeHours <= 0 {
				return fmt.Errorf("max-age-hours must be positive")
			}

			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				summary := a.Operations.RetryFailedOperations(c, op, maxAgeHours)
				return ctx.output(cmd, summary, func() string { return renderRetrySummary(summary) })
			})
		},
	}
	runCmd.Flags().StringVar(&operationType, "operation-type", "", "Operation type to retry (index_page, show_details, ...)")
	runCmd.Flags().IntVar(&maxAgeHours, "max-age-hours", 24, "Only retry failures newer than this")
	_ = runCmd.MarkFlagRequired("operation-type")

	retryCmd.AddCommand(runCmd)
	return retryCmd
}

func newDeadLetterCommand(ctx *commandContext) *cobra.Command {
	dlqCmd := &cobra.Command{
		Use:     "deadletter",
		Aliases: []string{"dlq"},
		Short:   "Inspect and replay dead-letter queues",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show message counts for every dead-letter queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				stats := a.Operations.DeadLetterStatistics(c)
				return ctx.output(cmd, stats, func() string { return renderDeadLetterStats(stats) })
			})
		},
	}

	var maxMessages int
	replayCmd := &cobra.Command{
		Use:   "replay <queue>",
		Short: "Move dead letters back onto their primary queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxMessages <= 0 {
				return fmt.Errorf("max must be positive")
			}
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				replayed, err := a.Operations.ReplayDeadLetters(c, args[0], maxMessages)
				if err != nil {
					return err
				}
				result := map[string]interface{}{"queue": args[0], "replayed": replayed}
				return ctx.output(cmd, result, func() string {
					return fmt.Sprintf("Replayed %d message(s) from %s", replayed, args[0])
				})
			})
		},
	}
	replayCmd.Flags().IntVar(&maxMessages, "max", 10, "Maximum number of messages to replay")

	dlqCmd.AddCommand(statsCmd, replayCmd)
	return dlqCmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var freshness bool
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Show the aggregated pipeline health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd, func(c context.Context, a *app.App) error {
				if freshness {
					a.Operations.CheckDataFreshness(c)
				}
				summary := a.Operations.HealthSummary(c)
				if err := ctx.output(cmd, summary, func() string { return renderHealth(summary) }); err != nil {
					return err
				}
				if summary.OverallHealth != model.HealthHealthy {
					return fmt.Errorf("pipeline is %s", summary.OverallHealth)
				}
				return nil
			})
		},
	}
	healthCmd.Flags().BoolVar(&freshness, "check-freshness", false, "Recompute the data freshness metric first")

	return healthCmd
}
