package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/weiihann/cipherbench/algorithm"
)

// DefaultProgressEvery is how often, in messages, progress is logged.
const DefaultProgressEvery = 5

// RunConfig holds parameters for a single benchmark run.
type RunConfig struct {
	// Workers bounds concurrent trials. Values below 2 run trials one at a
	// time, which keeps timings free of contention.
	Workers int
	// Timeout caps the whole run. Zero means no cap.
	Timeout time.Duration
	// ProgressEvery logs progress every N messages. Zero means
	// DefaultProgressEvery; negative disables progress logging.
	ProgressEvery int
	Corpus        CorpusInfo
}

// Observer receives every trial outcome in record order once the run
// finishes.
type Observer interface {
	ObserveRecord(Record)
	ObserveFailure(TrialFailure)
}

// Runner drives a fixed, ordered set of adapters over message corpora.
type Runner struct {
	Adapters  []algorithm.Adapter
	Observers []Observer
	Logger    *slog.Logger
}

// NewRunner creates a Runner for adapters. Their order is the
// algorithm-minor order of the output.
func NewRunner(
	adapters []algorithm.Adapter,
	logger *slog.Logger,
	observers ...Observer,
) *Runner {
	return &Runner{
		Adapters:  adapters,
		Observers: observers,
		Logger:    logger.With(slog.String("component", "harness")),
	}
}

// RunBenchmark runs every adapter over every message sequentially and
// returns the successful records, message-major and algorithm-minor.
func RunBenchmark(
	ctx context.Context,
	messages []string,
	adapters []algorithm.Adapter,
) ([]Record, error) {
	res, err := NewRunner(adapters, slog.New(slog.NewTextHandler(io.Discard, nil))).
		Run(ctx, messages, RunConfig{ProgressEvery: -1})
	if res == nil {
		return nil, err
	}

	return res.Records, err
}

type trial struct {
	done    bool
	record  Record
	failure *TrialFailure
}

// Run executes every (message, adapter) pair. Failed trials are dropped
// from Records and listed in Failures; they never stop the run. If the
// context ends first, Run returns the partial result together with the
// context error.
func (r *Runner) Run(
	ctx context.Context,
	messages []string,
	cfg RunConfig,
) (*Result, error) {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	if cfg.ProgressEvery == 0 {
		cfg.ProgressEvery = DefaultProgressEvery
	}

	corpusInfo := cfg.Corpus
	corpusInfo.Messages = len(messages)

	result := &Result{
		RunID:      uuid.NewString(),
		StartedAt:  time.Now(),
		Corpus:     corpusInfo,
		Algorithms: make([]string, len(r.Adapters)),
		Records:    make([]Record, 0, len(messages)*len(r.Adapters)),
	}

	for i, a := range r.Adapters {
		result.Algorithms[i] = a.Name()
	}

	logger := r.Logger.With(slog.String("run_id", result.RunID))

	logger.InfoContext(ctx, "starting benchmark",
		slog.Int("messages", len(messages)),
		slog.Any("algorithms", result.Algorithms),
		slog.Int("workers", max(cfg.Workers, 1)),
		slog.Bool("synthetic", corpusInfo.Synthetic),
	)

	slots := make([]trial, len(messages)*len(r.Adapters))

	var runErr error
	if cfg.Workers > 1 {
		runErr = r.runParallel(ctx, logger, messages, slots, cfg)
	} else {
		runErr = r.runSequential(ctx, logger, messages, slots, cfg)
	}

	for _, s := range slots {
		if !s.done {
			continue
		}

		if s.failure != nil {
			result.Failures = append(result.Failures, *s.failure)
			for _, o := range r.Observers {
				o.ObserveFailure(*s.failure)
			}

			continue
		}

		result.Records = append(result.Records, s.record)
		for _, o := range r.Observers {
			o.ObserveRecord(s.record)
		}
	}

	result.Elapsed = time.Since(result.StartedAt)

	logger.InfoContext(ctx, "benchmark finished",
		slog.Int("records", len(result.Records)),
		slog.Int("failures", len(result.Failures)),
		slog.Duration("wall_time", result.Elapsed),
	)

	if runErr != nil {
		return result, fmt.Errorf("benchmark interrupted: %w", runErr)
	}

	return result, nil
}

func (r *Runner) runSequential(
	ctx context.Context,
	logger *slog.Logger,
	messages []string,
	slots []trial,
	cfg RunConfig,
) error {
	n := len(r.Adapters)

	for i, msg := range messages {
		logProgress(ctx, logger, cfg, i, len(messages))

		for j, a := range r.Adapters {
			if err := ctx.Err(); err != nil {
				return err
			}

			slots[i*n+j] = r.runTrial(ctx, logger, i+1, msg, a)
		}
	}

	return ctx.Err()
}

func (r *Runner) runParallel(
	ctx context.Context,
	logger *slog.Logger,
	messages []string,
	slots []trial,
	cfg RunConfig,
) error {
	n := len(r.Adapters)

	var g errgroup.Group
	g.SetLimit(cfg.Workers)

dispatch:
	for i, msg := range messages {
		logProgress(ctx, logger, cfg, i, len(messages))

		for j, a := range r.Adapters {
			if ctx.Err() != nil {
				break dispatch
			}

			i, msg, j, a := i, msg, j, a
			g.Go(func() error {
				slots[i*n+j] = r.runTrial(ctx, logger, i+1, msg, a)

				return nil
			})
		}
	}

	_ = g.Wait()

	return ctx.Err()
}

func (r *Runner) runTrial(
	ctx context.Context,
	logger *slog.Logger,
	messageID int,
	message string,
	a algorithm.Adapter,
) trial {
	m, err := a.Run(ctx, message)
	if err != nil {
		// A trial cut short by the run's own deadline is skipped, not failed.
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return trial{}
		}

		logger.WarnContext(ctx, "trial failed",
			slog.Int("message_id", messageID),
			slog.String("algorithm", a.Name()),
			slog.String("error", err.Error()),
		)

		return trial{
			done: true,
			failure: &TrialFailure{
				MessageID: messageID,
				Algorithm: a.Name(),
				Err:       err,
			},
		}
	}

	if m.Algorithm == "" {
		m.Algorithm = a.Name()
	}

	return trial{done: true, record: NewRecord(messageID, m)}
}

func logProgress(
	ctx context.Context,
	logger *slog.Logger,
	cfg RunConfig,
	index, total int,
) {
	if cfg.ProgressEvery < 0 || index%cfg.ProgressEvery != 0 {
		return
	}

	logger.InfoContext(ctx, "processing message",
		slog.Int("message", index+1),
		slog.Int("total", total),
	)
}
