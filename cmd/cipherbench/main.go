// Package main provides the CLI entry point for cipherbench, a benchmark of
// classical and post-quantum encryption over a corpus of text messages.
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

	"github.com/weiihann/cipherbench/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		logger: newLogger(os.Stderr, slog.LevelInfo, "text"),
	}

	root := newRootCmd(a)
	if err := root.ExecuteContext(ctx); err != nil {
		a.logger.Error("command failed", slog.Any("err", err))
		stop()
		os.Exit(1)
	}
}

// app carries state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger *slog.Logger
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cipherbench",
		Short: "Classical vs post-quantum encryption benchmark",
		Long: `Cipherbench runs AES, hybrid RSA and simulated Kyber and McEliece
adapters over the same message corpus, measures encryption and decryption
time and ciphertext size, and reports per-algorithm summaries.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "",
		"Path to a YAML config file")
	flags.StringVar(&a.logLevel, "log-level", "",
		"Log level: debug, info, warn, error (default from config)")
	flags.StringVar(&a.logFormat, "log-format", "",
		"Log format: text or json (default from config)")

	root.AddCommand(
		newRunCmd(a),
		newReportCmd(a),
		newGenerateCmd(a),
		newHistoryCmd(a),
		newConfigCmd(a),
	)

	return root
}

// init loads the config file and rebuilds the logger from it and the
// global flags.
func (a *app) init(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Log.Level = a.logLevel
	}
	if flags.Changed("log-format") {
		cfg.Log.Format = a.logFormat
	}

	level, err := config.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}

	switch cfg.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", cfg.Log.Format)
	}

	a.cfg = cfg
	a.logger = newLogger(os.Stderr, level, cfg.Log.Format)

	return nil
}

func newLogger(w io.Writer, level slog.Level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}

	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
