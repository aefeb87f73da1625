package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/weiihann/cipherbench/aggregate"
	"github.com/weiihann/cipherbench/algorithm"
	"github.com/weiihann/cipherbench/config"
	"github.com/weiihann/cipherbench/corpus"
	"github.com/weiihann/cipherbench/harness"
	"github.com/weiihann/cipherbench/metrics"
	"github.com/weiihann/cipherbench/report"
	"github.com/weiihann/cipherbench/store"
)

// runFlags mirrors the config fields the run command can override.
type runFlags struct {
	input         string
	column        string
	limit         int
	noFallback    bool
	seed          int64
	algorithms    []string
	aead          string
	rsaBits       int
	sizePolicy    string
	workers       int
	timeout       time.Duration
	progressEvery int
	outputDir     string
	sqlite        string
	metricsFile   string
	reportPath    string
	outputJSON    bool
}

func newRunCmd(a *app) *cobra.Command {
	var f runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the encryption benchmark",
		Long: `Load the message corpus (falling back to a synthetic corpus when it
is unavailable), run every selected algorithm over every message, and write
the detailed and summary CSV tables.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			f.apply(cmd, &cfg)

			return runBenchmark(cmd.Context(), a.logger, cfg, f.outputJSON, cmd.OutOrStdout())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.input, "input", "",
		"Path to the corpus CSV (default from config: emails.csv)")
	flags.StringVar(&f.column, "column", corpus.DefaultColumn,
		"Name of the text column in the corpus CSV")
	flags.IntVar(&f.limit, "limit", corpus.DefaultLimit,
		"Maximum number of messages to benchmark (0 = all)")
	flags.BoolVar(&f.noFallback, "no-fallback", false,
		"Fail instead of using a synthetic corpus when the input is unavailable")
	flags.Int64Var(&f.seed, "seed", 0,
		"Seed varying synthetic message lengths (0 = fixed length)")
	flags.StringSliceVar(&f.algorithms, "algorithms", nil,
		"Algorithms to benchmark (e.g. aes,rsa,kyber,mceliece)")
	flags.StringVar(&f.aead, "aead", string(algorithm.AESGCM),
		"Hybrid payload cipher: aes-gcm or chacha20-poly1305")
	flags.IntVar(&f.rsaBits, "rsa-bits", algorithm.DefaultRSABits,
		"RSA modulus size for the hybrid adapter; non-default values also change the reported RSA key_size_bits")
	flags.StringVar(&f.sizePolicy, "size-policy", algorithm.RoundNearest.String(),
		"McEliece ciphertext size rounding: round or truncate")
	flags.IntVar(&f.workers, "workers", 1,
		"Concurrent trials (1 keeps timings free of contention)")
	flags.DurationVar(&f.timeout, "timeout", 0,
		"Wall-clock budget for the whole run (0 = none)")
	flags.IntVar(&f.progressEvery, "progress-every", harness.DefaultProgressEvery,
		"Log progress every N messages (negative disables)")
	flags.StringVar(&f.outputDir, "output-dir", "",
		"Directory for the CSV tables (default from config: .)")
	flags.StringVar(&f.sqlite, "sqlite", "",
		"Archive the run in this SQLite database")
	flags.StringVar(&f.metricsFile, "metrics-file", "",
		"Write Prometheus metrics to this textfile")
	flags.StringVar(&f.reportPath, "report", "",
		"Also write the markdown report document to this path")
	flags.BoolVar(&f.outputJSON, "json", false,
		"Output results as JSON instead of table")

	return cmd
}

// apply copies explicitly set flags over cfg.
func (f *runFlags) apply(cmd *cobra.Command, cfg *config.Config) {
	set := func(name string, fn func()) {
		if cmd.Flags().Changed(name) {
			fn()
		}
	}

	set("input", func() { cfg.Input.Path = f.input })
	set("column", func() { cfg.Input.Column = f.column })
	set("limit", func() { cfg.Input.Limit = f.limit })
	set("no-fallback", func() { cfg.Input.NoFallback = f.noFallback })
	set("seed", func() { cfg.Synthetic.Seed = f.seed })
	set("algorithms", func() { cfg.Benchmark.Algorithms = f.algorithms })
	set("aead", func() { cfg.Benchmark.AEAD = f.aead })
	set("rsa-bits", func() { cfg.Benchmark.RSABits = f.rsaBits })
	set("size-policy", func() { cfg.Benchmark.SizePolicy = f.sizePolicy })
	set("workers", func() { cfg.Benchmark.Workers = f.workers })
	set("timeout", func() { cfg.Benchmark.Timeout = f.timeout })
	set("progress-every", func() { cfg.Benchmark.ProgressEvery = f.progressEvery })
	set("output-dir", func() { cfg.Output.Dir = f.outputDir })
	set("sqlite", func() { cfg.Output.SQLite = f.sqlite })
	set("metrics-file", func() { cfg.Output.MetricsFile = f.metricsFile })
	set("report", func() { cfg.Output.Report = f.reportPath })
}

// runOutput is the JSON document printed by run --json.
type runOutput struct {
	*harness.Result
	Summaries []aggregate.Summary `json:"summaries"`
	Files     report.InputPair    `json:"files"`
}

func runBenchmark(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	outputJSON bool,
	stdout io.Writer,
) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts, err := cfg.AdapterOptions()
	if err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	adapters, err := algorithm.Select(cfg.Benchmark.Algorithms, algorithm.Defaults(opts))
	if err != nil {
		return err
	}

	warnKeySize(ctx, logger, adapters)

	// Step 1: Resolve the corpus, falling back to synthetic messages.
	c, err := corpus.Resolve(ctx, logger, cfg.Corpus())
	if err != nil {
		return fmt.Errorf("load corpus: %w", err)
	}

	logger.InfoContext(ctx, "corpus ready",
		slog.Int("messages", len(c.Messages)),
		slog.String("source", c.Source),
		slog.Bool("synthetic", c.Synthetic),
	)

	// Step 2: Run every adapter over every message.
	collector := metrics.NewCollector()
	runner := harness.NewRunner(adapters, logger, collector)

	rc := cfg.RunConfig()
	rc.Corpus = harness.CorpusInfo{
		Source:    c.Source,
		Synthetic: c.Synthetic,
		Messages:  len(c.Messages),
	}

	res, runErr := runner.Run(ctx, c.Messages, rc)
	if res == nil {
		return fmt.Errorf("run benchmark: %w", runErr)
	}

	if runErr != nil {
		logger.WarnContext(ctx, "benchmark interrupted, writing partial results",
			slog.Int("records", len(res.Records)),
			slog.Any("err", runErr),
		)
	}

	// Step 3: Aggregate. Inconsistent metadata is fatal.
	summaries, err := aggregate.Aggregate(res.Records)
	if err != nil {
		return fmt.Errorf("aggregate: %w", err)
	}

	// Step 4: Write outputs.
	paths, err := report.WriteFiles(cfg.Output.Dir, res.Records, summaries)
	if err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	logger.InfoContext(ctx, "results written",
		slog.String("detailed", paths.Detailed),
		slog.String("summary", paths.Summary),
	)

	if err := writeExtras(ctx, logger, cfg, collector, res, summaries); err != nil {
		return err
	}

	// Step 5: Print the summary.
	if outputJSON {
		out := runOutput{Result: res, Summaries: summaries, Files: paths}
		if err := report.GenerateJSON(stdout, out); err != nil {
			return fmt.Errorf("generate JSON report: %w", err)
		}
	} else if err := printSummary(stdout, summaries); err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	if runErr != nil {
		return fmt.Errorf("run benchmark: %w", runErr)
	}

	logger.InfoContext(ctx, "benchmark complete",
		slog.String("run_id", res.RunID),
		slog.Duration("elapsed", res.Elapsed),
		slog.Int("failures", len(res.Failures)),
	)

	return nil
}

// writeExtras writes the optional archive, metrics file and report document.
func writeExtras(
	ctx context.Context,
	logger *slog.Logger,
	cfg config.Config,
	collector *metrics.Collector,
	res *harness.Result,
	summaries []aggregate.Summary,
) error {
	if cfg.Output.SQLite != "" {
		s, err := store.Open(cfg.Output.SQLite, logger)
		if err != nil {
			return fmt.Errorf("open archive: %w", err)
		}

		// The run context may have expired; archiving partial runs still
		// has to succeed.
		saveErr := s.SaveRun(context.WithoutCancel(ctx), res, summaries)
		closeErr := s.Close()

		if err := errors.Join(saveErr, closeErr); err != nil {
			return fmt.Errorf("archive run: %w", err)
		}

		logger.InfoContext(ctx, "run archived",
			slog.String("path", cfg.Output.SQLite),
			slog.String("run_id", res.RunID),
		)
	}

	if cfg.Output.MetricsFile != "" {
		if err := collector.WriteTextfile(cfg.Output.MetricsFile); err != nil {
			return err
		}
	}

	if cfg.Output.Report != "" && len(summaries) == 0 {
		logger.WarnContext(ctx, "no successful trials, skipping report",
			slog.String("path", cfg.Output.Report))
	} else if cfg.Output.Report != "" {
		err := writeDocument(cfg.Output.Report, report.Input{
			Summaries: summaries,
			Records:   res.Records,
			Corpus:    &res.Corpus,
		})
		if err != nil {
			return err
		}

		logger.InfoContext(ctx, "report written",
			slog.String("path", cfg.Output.Report))
	}

	return nil
}

// warnKeySize flags a hybrid adapter whose reported key size differs from
// the 2048-bit figure earlier result files carry.
func warnKeySize(ctx context.Context, logger *slog.Logger, adapters []algorithm.Adapter) {
	for _, a := range adapters {
		if a.Name() != algorithm.NameRSA {
			continue
		}

		if bits := a.Metadata().KeySizeBits; bits != algorithm.DefaultRSABits {
			logger.WarnContext(ctx, "non-default rsa key size changes the reported key_size_bits",
				slog.Int("key_size_bits", bits),
				slog.Int("default", algorithm.DefaultRSABits),
			)
		}
	}
}

// printSummary renders a styled table on terminals and markdown otherwise.
func printSummary(w io.Writer, summaries []aggregate.Summary) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No successful trials.")

		return err
	}

	if f, ok := w.(*os.File); ok &&
		(isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return report.Terminal(w, summaries)
	}

	return report.Generate(w, summaries)
}

func writeDocument(path string, in report.Input) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}

	if err := report.Document(f, in); err != nil {
		f.Close()

		return fmt.Errorf("write report: %w", err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("close report: %w", err)
	}

	return nil
}
