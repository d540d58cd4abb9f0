package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/app"
)

var runSymbols []string

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the evaluation loop",
	Long: `Start the evaluation loop. Symbols persisted in the store take
precedence over the configured list. Stops on SIGINT or SIGTERM.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringSliceVar(&runSymbols, "symbols", nil, "symbols to watch when the store has none")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(log)
	if err != nil {
		return err
	}
	if len(runSymbols) > 0 {
		cfg.Engine.Symbols = runSymbols
	}

	a, err := app.New(cfg, log)
	if err != nil {
		return fmt.Errorf("creating app: %w", err)
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		log.Info("metrics endpoint",
			zap.String("addr", cfg.Metrics.Addr),
			zap.String("path", cfg.Metrics.Path),
		)
	}
	return a.Run(ctx)
}
