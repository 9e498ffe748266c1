package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Bigbadasianboy2/Complex-system-playground/internal/config"
	"github.com/Bigbadasianboy2/Complex-system-playground/internal/logging"
)

var (
	version = "0.1.0-dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "axelrod",
		Short: "Axelrod cultural dissemination experiments",
		Long: `axelrod simulates Axelrod's model of cultural dissemination on a periodic
lattice and measures the order-disorder transition in the number of traits q.

Sweeps run many independent trials per (F, q) point on a worker pool and
store the mean largest-cluster fraction with its standard error.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("config", "", "YAML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: warn, info, debug, trace (default from config)")
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newSweepCmd(),
		newTrialCmd(),
		newSnapshotCmd(),
		newPlotCmd(),
		newRunsCmd(),
	)
	return rootCmd
}

// env is the state shared by every subcommand after flag parsing.
type env struct {
	cfg     *config.Config
	log     *slog.Logger
	jsonOut bool
	out     io.Writer
}

// loadEnv reads the config file and environment, then applies the root flags.
func loadEnv(cmd *cobra.Command) (*env, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	if !logging.ValidLevel(cfg.Logging.Level) {
		return nil, fmt.Errorf("invalid log level: %s", cfg.Logging.Level)
	}
	jsonOut, _ := cmd.Flags().GetBool("json")

	var logger *slog.Logger
	if cfg.Logging.Format == "json" {
		logger = logging.NewJSONLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	} else {
		logger = logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
	}
	return &env{cfg: cfg, log: logger, jsonOut: jsonOut, out: cmd.OutOrStdout()}, nil
}
