package main

import (
	"context"
	"encoding/json"
	"os/signal"
	"showservice/internal/app"
	"syscall"

	"github.com/spf13/cobra"
)

type commandContext struct {
	configPath string
	jsonOutput bool
}

// withApp connects to the backing services for the duration of fn
func (c *commandContext) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := app.LoadConfig(c.configPath)
	if err != nil {
		return err
	}
	app.SetupLogger(cfg.Logging)

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return fn(ctx, a)
}

// output writes v as JSON in --json mode, otherwise the rendered text
func (c *commandContext) output(cmd *cobra.Command, v any, render func() string) error {
	if c.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := cmd.OutOrStdout().Write([]byte(render() + "\n"))
	return err
}

func newRootCommand() *cobra.Command {
	ctx := &commandContext{}

	rootCmd := &cobra.Command{
		Use:           "showctl",
		Short:         "Operate the show import pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&ctx.configPath, "config", "c", "config/config.json", "Configuration file path")
	rootCmd.PersistentFlags().BoolVar(&ctx.jsonOutput, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newRetryCommand(ctx))
	rootCmd.AddCommand(newDeadLetterCommand(ctx))
	rootCmd.AddCommand(newHealthCommand(ctx))

	return rootCmd
}
