package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiihann/cipherbench/algorithm"
	"github.com/weiihann/cipherbench/corpus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "cipherbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, corpus.DefaultColumn, cfg.Input.Column)
	assert.Equal(t, corpus.DefaultLimit, cfg.Input.Limit)
	assert.Equal(t, algorithm.KnownAlgorithms(), cfg.Benchmark.Algorithms)
	assert.Equal(t, 1, cfg.Benchmark.Workers)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
input:
  path: data/mail.csv
  column: body
  limit: 50
synthetic:
  seed: 7
benchmark:
  algorithms: [aes, kyber]
  aead: chacha20-poly1305
  size_policy: truncate
  workers: 4
  timeout: 90s
output:
  dir: out
  sqlite: out/runs.db
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/mail.csv", cfg.Input.Path)
	assert.Equal(t, "body", cfg.Input.Column)
	assert.Equal(t, 50, cfg.Input.Limit)
	assert.Equal(t, int64(7), cfg.Synthetic.Seed)
	assert.Equal(t, 20, cfg.Synthetic.Repeat, "unset fields keep defaults")
	assert.Equal(t, []string{"aes", "kyber"}, cfg.Benchmark.Algorithms)
	assert.Equal(t, 90*time.Second, cfg.Benchmark.Timeout)
	assert.Equal(t, 2048, cfg.Benchmark.RSABits)
	assert.Equal(t, "out/runs.db", cfg.Output.SQLite)

	opts, err := cfg.AdapterOptions()
	require.NoError(t, err)
	assert.Equal(t, algorithm.ChaCha20Poly1305, opts.AEAD)
	assert.Equal(t, algorithm.Truncate, opts.SizePolicy)

	rc := cfg.RunConfig()
	assert.Equal(t, 4, rc.Workers)
	assert.Equal(t, 90*time.Second, rc.Timeout)

	cc := cfg.Corpus()
	assert.Equal(t, "data/mail.csv", cc.Path)
	assert.Equal(t, int64(7), cc.Synthetic.Seed)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad yaml", "input: [unclosed"},
		{"negative limit", "input:\n  limit: -1\n"},
		{"unknown aead", "benchmark:\n  aead: rot13\n"},
		{"unknown policy", "benchmark:\n  size_policy: ceil\n"},
		{"unknown algorithm", "benchmark:\n  algorithms: [aes, des]\n"},
		{"small rsa", "benchmark:\n  rsa_bits: 512\n"},
		{"negative workers", "benchmark:\n  workers: -2\n"},
		{"empty output", "output:\n  dir: \"\"\n"},
		{"bad level", "log:\n  level: loud\n"},
		{"bad format", "log:\n  format: xml\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestWriteRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Benchmark.Timeout = 2 * time.Minute
	cfg.Output.MetricsFile = "bench.prom"

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))

	got, err := Load(writeConfig(t, buf.String()))
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"", slog.LevelInfo},
		{"debug", slog.LevelDebug},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := ParseLevel(tt.input)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "ParseLevel(%q)", tt.input)
	}
}
