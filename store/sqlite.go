// Package store archives benchmark runs in a local SQLite database so runs
// can be compared over time.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/weiihann/cipherbench/aggregate"
	"github.com/weiihann/cipherbench/harness"
)

// ErrRunNotFound is returned when a run id is not in the archive.
var ErrRunNotFound = errors.New("run not found")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	started_at INTEGER NOT NULL,
	elapsed_ns INTEGER NOT NULL,
	corpus_source TEXT NOT NULL,
	synthetic INTEGER NOT NULL,
	messages INTEGER NOT NULL,
	algorithms TEXT NOT NULL,
	failures INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS measurements (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	message_id INTEGER NOT NULL,
	algorithm_name TEXT NOT NULL,
	ciphertext_size INTEGER NOT NULL,
	encryption_time REAL NOT NULL,
	decryption_time REAL NOT NULL,
	key_size_bits INTEGER NOT NULL,
	quantum_resistant INTEGER NOT NULL,
	best_use_case TEXT NOT NULL,
	PRIMARY KEY (run_id, message_id, algorithm_name)
);

CREATE TABLE IF NOT EXISTS summaries (
	run_id TEXT NOT NULL REFERENCES runs(run_id),
	position INTEGER NOT NULL,
	algorithm_name TEXT NOT NULL,
	mean_encryption_time REAL NOT NULL,
	mean_decryption_time REAL NOT NULL,
	mean_ciphertext_size REAL NOT NULL,
	key_size_bits INTEGER NOT NULL,
	quantum_resistant INTEGER NOT NULL,
	best_use_case TEXT NOT NULL,
	trials INTEGER NOT NULL,
	PRIMARY KEY (run_id, algorithm_name)
);
`

// Run is the archived header of one benchmark run.
type Run struct {
	ID         string
	StartedAt  time.Time
	Elapsed    time.Duration
	Corpus     harness.CorpusInfo
	Algorithms []string
	Failures   int
}

// Store is a SQLite-backed run archive.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens or creates the archive at path and ensures the schema exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, fmt.Errorf("ping %s: %w", path, err)
	}

	logger = logger.With(slog.String("component", "store"))

	// PRAGMA optimizations
	if _, err := db.Exec("PRAGMA journal_mode = WAL;"); err != nil {
		logger.Warn("failed to set WAL mode", slog.Any("err", err))
	}
	if _, err := db.Exec("PRAGMA synchronous = NORMAL;"); err != nil {
		logger.Warn("failed to set synchronous mode", slog.Any("err", err))
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun stores a run with its records and summaries in one transaction.
func (s *Store) SaveRun(
	ctx context.Context,
	res *harness.Result,
	summaries []aggregate.Summary,
) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, elapsed_ns, corpus_source,
			synthetic, messages, algorithms, failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID,
		res.StartedAt.UnixNano(),
		int64(res.Elapsed),
		res.Corpus.Source,
		res.Corpus.Synthetic,
		res.Corpus.Messages,
		strings.Join(res.Algorithms, ","),
		len(res.Failures),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", res.RunID, err)
	}

	recStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO measurements (run_id, message_id, algorithm_name,
			ciphertext_size, encryption_time, decryption_time,
			key_size_bits, quantum_resistant, best_use_case)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare measurements: %w", err)
	}
	defer recStmt.Close()

	for _, r := range res.Records {
		if _, err := recStmt.ExecContext(ctx,
			res.RunID, r.MessageID, r.Algorithm, r.CiphertextSize,
			r.EncryptionTime, r.DecryptionTime, r.KeySizeBits,
			r.QuantumResistant, r.BestUseCase,
		); err != nil {
			return fmt.Errorf("insert measurement %d/%s: %w",
				r.MessageID, r.Algorithm, err)
		}
	}

	sumStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO summaries (run_id, position, algorithm_name,
			mean_encryption_time, mean_decryption_time, mean_ciphertext_size,
			key_size_bits, quantum_resistant, best_use_case, trials)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summaries: %w", err)
	}
	defer sumStmt.Close()

	for i, sm := range summaries {
		if _, err := sumStmt.ExecContext(ctx,
			res.RunID, i, sm.Algorithm,
			sm.MeanEncryptionTime, sm.MeanDecryptionTime, sm.MeanCiphertextSize,
			sm.KeySizeBits, sm.QuantumResistant, sm.BestUseCase, sm.Trials,
		); err != nil {
			return fmt.Errorf("insert summary %s: %w", sm.Algorithm, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", res.RunID, err)
	}

	s.logger.Debug("archived run",
		slog.String("run_id", res.RunID),
		slog.Int("records", len(res.Records)),
		slog.Int("summaries", len(summaries)),
	)

	return nil
}

// ListRuns returns archived runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, started_at, elapsed_ns, corpus_source, synthetic,
			messages, algorithms, failures
		FROM runs ORDER BY started_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]Run, 0)

	for rows.Next() {
		var (
			run        Run
			startedAt  int64
			elapsed    int64
			algorithms string
		)

		if err := rows.Scan(
			&run.ID, &startedAt, &elapsed, &run.Corpus.Source,
			&run.Corpus.Synthetic, &run.Corpus.Messages, &algorithms,
			&run.Failures,
		); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}

		run.StartedAt = time.Unix(0, startedAt).UTC()
		run.Elapsed = time.Duration(elapsed)

		if algorithms != "" {
			run.Algorithms = strings.Split(algorithms, ",")
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// Summaries returns the stored summaries of a run in their original order.
func (s *Store) Summaries(ctx context.Context, runID string) ([]aggregate.Summary, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT algorithm_name, mean_encryption_time, mean_decryption_time,
			mean_ciphertext_size, key_size_bits, quantum_resistant,
			best_use_case, trials
		FROM summaries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]aggregate.Summary, 0)

	for rows.Next() {
		var sm aggregate.Summary

		if err := rows.Scan(
			&sm.Algorithm, &sm.MeanEncryptionTime, &sm.MeanDecryptionTime,
			&sm.MeanCiphertextSize, &sm.KeySizeBits, &sm.QuantumResistant,
			&sm.BestUseCase, &sm.Trials,
		); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}

		summaries = append(summaries, sm)
	}

	return summaries, rows.Err()
}

// Records returns the stored measurements of a run ordered by message.
// Within a message, algorithms keep their insertion order.
func (s *Store) Records(ctx context.Context, runID string) ([]harness.Record, error) {
	if err := s.requireRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT message_id, algorithm_name, ciphertext_size, encryption_time,
			decryption_time, key_size_bits, quantum_resistant, best_use_case
		FROM measurements WHERE run_id = ? ORDER BY message_id, rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	defer rows.Close()

	records := make([]harness.Record, 0)

	for rows.Next() {
		var r harness.Record

		if err := rows.Scan(
			&r.MessageID, &r.Algorithm, &r.CiphertextSize, &r.EncryptionTime,
			&r.DecryptionTime, &r.KeySizeBits, &r.QuantumResistant,
			&r.BestUseCase,
		); err != nil {
			return nil, fmt.Errorf("scan measurement: %w", err)
		}

		records = append(records, r)
	}

	return records, rows.Err()
}

func (s *Store) requireRun(ctx context.Context, runID string) error {
	var n int

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM runs WHERE run_id = ?`, runID).Scan(&n)
	if err != nil {
		return fmt.Errorf("lookup run %s: %w", runID, err)
	}

	if n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}

	return nil
}
