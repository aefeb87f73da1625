package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/weiihann/cipherbench/corpus"
	"github.com/weiihann/cipherbench/report"
	"github.com/weiihann/cipherbench/store"
)

func newReportCmd(a *app) *cobra.Command {
	var (
		dir    string
		output string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a markdown report from benchmark CSV tables",
		Long: `Read the summary and detailed tables written by "cipherbench run"
and render a markdown document with the summary table, findings,
trade-off scores and recommendations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("dir") {
				dir = a.cfg.Output.Dir
			}

			return renderReport(cmd.Context(), a.logger, dir, output, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&dir, "dir", ".",
		"Directory containing the benchmark tables")
	flags.StringVarP(&output, "output", "o", "",
		"Write the document to this path instead of stdout")

	return cmd
}

func renderReport(
	ctx context.Context,
	logger *slog.Logger,
	dir string,
	output string,
	stdout io.Writer,
) error {
	summaries, records, pair, err := report.LoadInputs(dir, report.DefaultInputs())
	if err != nil {
		return err
	}

	logger.InfoContext(ctx, "loaded benchmark tables",
		slog.String("summary", pair.Summary),
		slog.String("detailed", pair.Detailed),
		slog.Int("algorithms", len(summaries)),
		slog.Int("records", len(records)),
	)

	in := report.Input{Summaries: summaries, Records: records}

	if output == "" {
		return report.Document(stdout, in)
	}

	if err := writeDocument(output, in); err != nil {
		return err
	}

	logger.InfoContext(ctx, "report written", slog.String("path", output))

	return nil
}

func newGenerateCmd(a *app) *cobra.Command {
	var (
		cfg    corpus.SyntheticConfig
		output string
	)

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Write a synthetic message corpus as CSV",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return generateCorpus(cmd.Context(), a.logger, cfg, output)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cfg.Count, "count", corpus.DefaultLimit,
		"Number of messages to generate")
	flags.IntVar(&cfg.Repeat, "repeat", 20,
		"Filler phrases per message")
	flags.Int64Var(&cfg.Seed, "seed", 0,
		"Seed varying message lengths (0 = fixed length)")
	flags.StringVarP(&output, "output", "o", "emails.csv",
		"Path of the CSV to write")

	return cmd
}

func generateCorpus(
	ctx context.Context,
	logger *slog.Logger,
	cfg corpus.SyntheticConfig,
	output string,
) error {
	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create corpus file: %w", err)
	}

	summary, err := corpus.NewGenerator(cfg).Generate(f)
	if err != nil {
		f.Close()
		os.Remove(output)

		return fmt.Errorf("generate: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close corpus file: %w", err)
	}

	logger.InfoContext(ctx, "corpus generated",
		slog.String("path", output),
		slog.Int("messages", summary.Messages),
		slog.Int("total_chars", summary.TotalChars),
		slog.Int("min_chars", summary.MinChars),
		slog.Int("max_chars", summary.MaxChars),
	)

	return nil
}

func newHistoryCmd(a *app) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List archived runs, or show the summary of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("sqlite") {
				dbPath = a.cfg.Output.SQLite
			}

			if dbPath == "" {
				return fmt.Errorf("no archive configured; pass --sqlite")
			}

			runID := ""
			if len(args) == 1 {
				runID = args[0]
			}

			return showHistory(cmd.Context(), a.logger, dbPath, runID, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&dbPath, "sqlite", "",
		"SQLite archive written by run --sqlite")

	return cmd
}

func showHistory(
	ctx context.Context,
	logger *slog.Logger,
	dbPath string,
	runID string,
	w io.Writer,
) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	s, err := store.Open(dbPath, logger)
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer s.Close()

	if runID != "" {
		summaries, err := s.Summaries(ctx, runID)
		if err != nil {
			return err
		}

		return report.Generate(w, summaries)
	}

	runs, err := s.ListRuns(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(w, "| Run | Started | Elapsed | Corpus | Messages | Failures |")
	fmt.Fprintln(w, "|-----|---------|---------|--------|----------|----------|")

	for _, r := range runs {
		fmt.Fprintf(w, "| %s | %s | %s | %s | %d | %d |\n",
			r.ID,
			r.StartedAt.Format("2006-01-02 15:04:05"),
			r.Elapsed.Round(time.Millisecond),
			r.Corpus.Source,
			r.Corpus.Messages,
			r.Failures,
		)
	}

	return nil
}

func newConfigCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as YAML",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.cfg.Write(cmd.OutOrStdout())
		},
	}
}
