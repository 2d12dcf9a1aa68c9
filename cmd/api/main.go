package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"showservice/internal/app"
	"showservice/internal/controller"
	"showservice/internal/server"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		log.Error().Err(err).Msg("Show service stopped with error")
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "api",
		Short:         "Run the show import service",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), configPath)
		},
	}

	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config/config.json", "path to the JSON config file")

	return rootCmd
}

func run(parent context.Context, configPath string) error {
	cfg, err := app.LoadConfig(configPath)
	if err != nil {
		return err
	}

	app.SetupLogger(cfg.Logging)
	log.Info().Str("app", cfg.AppName).Str("env", cfg.Env).Msg("Starting show service")

	a, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumers := controller.NewQueueController(a.Rabbit, a.Coordinator, a.Registry)
	httpServer := server.New(*cfg, a.Server, a.Imports, a.Operations, a.Shows)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := consumers.ProcessQueues(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		consumers.StopProcessing()
		return nil
	})

	g.Go(func() error {
		return a.UpdateSchedule().Run(gctx)
	})

	g.Go(func() error {
		log.Info().Str("addr", httpServer.Addr).Msg("HTTP server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Msg("Show service stopped")
	return nil
}
