// Package config loads benchmark settings from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/weiihann/cipherbench/algorithm"
	"github.com/weiihann/cipherbench/corpus"
	"github.com/weiihann/cipherbench/harness"
)

// Config is the full set of benchmark settings.
type Config struct {
	Input     Input     `yaml:"input"`
	Synthetic Synthetic `yaml:"synthetic"`
	Benchmark Benchmark `yaml:"benchmark"`
	Output    Output    `yaml:"output"`
	Log       Log       `yaml:"log"`
}

// Input locates the message corpus.
type Input struct {
	Path       string `yaml:"path"`
	Column     string `yaml:"column"`
	Limit      int    `yaml:"limit"`
	NoFallback bool   `yaml:"no_fallback"`
}

// Synthetic shapes the fallback corpus.
type Synthetic struct {
	Count  int   `yaml:"count"`
	Repeat int   `yaml:"repeat"`
	Seed   int64 `yaml:"seed"`
}

// Benchmark selects algorithms and controls the runner.
type Benchmark struct {
	Algorithms    []string      `yaml:"algorithms"`
	AEAD          string        `yaml:"aead"`
	// RSABits is also the key size reported for the hybrid adapter.
	RSABits       int           `yaml:"rsa_bits"`
	SizePolicy    string        `yaml:"size_policy"`
	Workers       int           `yaml:"workers"`
	Timeout       time.Duration `yaml:"timeout"`
	ProgressEvery int           `yaml:"progress_every"`
}

// Output controls where results are written. Empty optional paths
// disable that output.
type Output struct {
	Dir         string `yaml:"dir"`
	SQLite      string `yaml:"sqlite"`
	MetricsFile string `yaml:"metrics_file"`
	Report      string `yaml:"report"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the settings used when no file or flag overrides them.
func Default() Config {
	return Config{
		Input: Input{
			Path:   "emails.csv",
			Column: corpus.DefaultColumn,
			Limit:  corpus.DefaultLimit,
		},
		Synthetic: Synthetic{
			Count:  corpus.DefaultLimit,
			Repeat: 20,
		},
		Benchmark: Benchmark{
			Algorithms:    algorithm.KnownAlgorithms(),
			AEAD:          string(algorithm.AESGCM),
			RSABits:       algorithm.DefaultRSABits,
			SizePolicy:    algorithm.RoundNearest.String(),
			Workers:       1,
			ProgressEvery: harness.DefaultProgressEvery,
		},
		Output: Output{
			Dir: ".",
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads path over the defaults and validates the result. An empty
// path returns the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %q: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Input.Limit < 0 {
		return fmt.Errorf("input limit cannot be negative: %d", c.Input.Limit)
	}
	if c.Synthetic.Count < 0 || c.Synthetic.Repeat < 0 {
		return errors.New("synthetic count and repeat cannot be negative")
	}

	if _, err := algorithm.ParseAEAD(c.Benchmark.AEAD); err != nil {
		return err
	}
	if _, err := algorithm.ParseSizePolicy(c.Benchmark.SizePolicy); err != nil {
		return err
	}
	if _, err := algorithm.Select(c.Benchmark.Algorithms,
		algorithm.Defaults(algorithm.Options{})); err != nil {
		return err
	}

	if c.Benchmark.RSABits != 0 && c.Benchmark.RSABits < 1024 {
		return fmt.Errorf("rsa_bits must be at least 1024: %d", c.Benchmark.RSABits)
	}
	if c.Benchmark.Workers < 0 {
		return fmt.Errorf("workers cannot be negative: %d", c.Benchmark.Workers)
	}
	if c.Benchmark.Timeout < 0 {
		return fmt.Errorf("timeout cannot be negative: %s", c.Benchmark.Timeout)
	}

	if strings.TrimSpace(c.Output.Dir) == "" {
		return errors.New("output dir cannot be empty")
	}

	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}

	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// Write encodes the config as YAML.
func (c Config) Write(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	return enc.Close()
}

// Corpus converts the input settings for corpus.Resolve.
func (c Config) Corpus() corpus.Config {
	return corpus.Config{
		Path:       c.Input.Path,
		Column:     c.Input.Column,
		Limit:      c.Input.Limit,
		NoFallback: c.Input.NoFallback,
		Synthetic: corpus.SyntheticConfig{
			Count:  c.Synthetic.Count,
			Repeat: c.Synthetic.Repeat,
			Seed:   c.Synthetic.Seed,
		},
	}
}

// AdapterOptions converts the benchmark settings for algorithm.Defaults.
// The config must already be valid.
func (c Config) AdapterOptions() (algorithm.Options, error) {
	aead, err := algorithm.ParseAEAD(c.Benchmark.AEAD)
	if err != nil {
		return algorithm.Options{}, err
	}

	policy, err := algorithm.ParseSizePolicy(c.Benchmark.SizePolicy)
	if err != nil {
		return algorithm.Options{}, err
	}

	return algorithm.Options{
		AEAD:       aead,
		RSABits:    c.Benchmark.RSABits,
		SizePolicy: policy,
		Delay:      algorithm.SleepDelay{},
	}, nil
}

// RunConfig converts the runner settings.
func (c Config) RunConfig() harness.RunConfig {
	return harness.RunConfig{
		Workers:       c.Benchmark.Workers,
		Timeout:       c.Benchmark.Timeout,
		ProgressEvery: c.Benchmark.ProgressEvery,
	}
}

// ParseLevel maps a level name to a slog.Level.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if s == "" {
		return slog.LevelInfo, nil
	}

	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}

	return level, nil
}
