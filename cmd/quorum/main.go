package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/newthinker/quorum/internal/config"
	"github.com/newthinker/quorum/internal/logger"
)

var (
	cfgFile  string
	envFile  string
	debug    bool
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "quorum",
	Short: "QUORUM - multi-analyzer consensus trading bot",
	Long: `QUORUM runs ten technical and sentiment analyzers over each watched
symbol, folds their votes into a weighted consensus and manages one
bracketed position per symbol on a paper or Alpaca brokerage.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with credentials")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug mode")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "minimum log level (debug, info, warn, error)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() (*zap.Logger, error) {
	return logger.NewWithLevel(debug, logLevel)
}

// loadConfig reads the dotenv file, then the config file if one was given,
// and validates the result.
func loadConfig(log *zap.Logger) (*config.Config, error) {
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	var cfg *config.Config
	if cfgFile != "" {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	} else {
		cfg = config.Defaults()
		log.Warn("no config file specified, using defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}
