package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/cipherbench/algorithm"
	"github.com/weiihann/cipherbench/report"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	a := &app{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	root := newRootCmd(a)

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--log-level", "error"}, args...))

	err := root.Execute()

	return out.String(), err
}

func TestRunAndReport(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")
	metricsFile := filepath.Join(dir, "bench.prom")

	out, err := execute(t, "run",
		"--input", filepath.Join(dir, "missing.csv"),
		"--algorithms", "kyber,mceliece",
		"--limit", "3",
		"--output-dir", dir,
		"--sqlite", db,
		"--metrics-file", metricsFile,
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Kyber")
	assert.Contains(t, out, "McEliece")

	for _, name := range []string{report.DetailedFile, report.SummaryFile} {
		assert.FileExists(t, filepath.Join(dir, name))
	}
	assert.FileExists(t, metricsFile)

	doc, err := execute(t, "report", "--dir", dir)
	require.NoError(t, err)

	assert.Contains(t, doc, "# Encryption Algorithms Benchmark")
	assert.Contains(t, doc, "Kyber, McEliece are quantum-resistant")

	history, err := execute(t, "history", "--sqlite", db)
	require.NoError(t, err)
	assert.Contains(t, history, "| synthetic | 3 | 0 |")
}

func TestRunJSON(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "run",
		"--input", filepath.Join(dir, "missing.csv"),
		"--algorithms", "kyber",
		"--limit", "2",
		"--output-dir", dir,
		"--json",
	)
	require.NoError(t, err)

	for _, want := range []string{`"run_id"`, `"synthetic": true`, `"summaries"`, `"algorithm_name": "Kyber"`} {
		assert.Contains(t, out, want)
	}
}

func TestRunNoFallbackFails(t *testing.T) {
	dir := t.TempDir()

	_, err := execute(t, "run",
		"--input", filepath.Join(dir, "missing.csv"),
		"--no-fallback",
		"--output-dir", dir,
	)
	require.Error(t, err)

	assert.NoFileExists(t, filepath.Join(dir, report.SummaryFile))
}

func TestRunRejectsUnknownAlgorithm(t *testing.T) {
	_, err := execute(t, "run", "--algorithms", "des", "--output-dir", t.TempDir())
	assert.ErrorIs(t, err, algorithm.ErrUnknownAlgorithm)
}

func TestWarnKeySize(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	warnKeySize(context.Background(), logger,
		algorithm.Defaults(algorithm.Options{Delay: algorithm.NoDelay{}}))
	assert.Empty(t, buf.String())

	warnKeySize(context.Background(), logger,
		algorithm.Defaults(algorithm.Options{RSABits: 3072, Delay: algorithm.NoDelay{}}))
	assert.Contains(t, buf.String(), "key_size_bits=3072")
}

func TestReportMissingInput(t *testing.T) {
	dir := t.TempDir()
	output := filepath.Join(dir, "report.md")

	_, err := execute(t, "report", "--dir", dir, "--output", output)
	require.ErrorIs(t, err, report.ErrMissingInput)

	assert.NoFileExists(t, output)
}

func TestGenerateThenRun(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "emails.csv")

	_, err := execute(t, "generate", "--count", "4", "--output", input)
	require.NoError(t, err)

	out, err := execute(t, "run",
		"--input", input,
		"--algorithms", "kyber",
		"--output-dir", dir,
		"--json",
	)
	require.NoError(t, err)

	assert.Contains(t, out, `"synthetic": false`)
	assert.Contains(t, out, `"messages": 4`)
}

func TestConfigCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cipherbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("benchmark:\n  workers: 3\n"), 0o644))

	out, err := execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.Contains(t, out, "workers: 3")
}

func TestBadLogLevel(t *testing.T) {
	_, err := execute(t, "--log-level", "loud", "config")
	assert.Error(t, err)
}
