// Package config loads the statsdemo configuration from TOML.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/multierr"

	"github.com/shashank-93rao/varstats/pkg/stats/parallel"
	"github.com/shashank-93rao/varstats/pkg/stats/strategy"
)

type ArchiveConfig struct {
	// Path of the Badger directory results are written to.
	Path string `toml:"path"`
	// InMemory discards results when the process exits.
	InMemory bool `toml:"in_memory"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type MetricsConfig struct {
	Enabled bool `toml:"enabled"`
}

// Config describes one demo run: Workers independent Markov chains of
// Samples steps each, every step a sample of Size components.
type Config struct {
	Name        string        `toml:"name"`
	Strategy    string        `toml:"strategy"`
	Size        int           `toml:"size"`
	BundleSize  int           `toml:"bundle_size"`
	Workers     int           `toml:"workers"`
	Samples     int           `toml:"samples"`
	Correlation float64       `toml:"correlation"`
	Seed        int64         `toml:"seed"`
	Reducer     string        `toml:"reducer"`
	Archive     ArchiveConfig `toml:"archive"`
	Log         LogConfig     `toml:"log"`
	Metrics     MetricsConfig `toml:"metrics"`
}

func Default() Config {
	return Config{
		Name:        "observable",
		Strategy:    string(strategy.RealKind),
		Size:        1,
		BundleSize:  2,
		Workers:     4,
		Samples:     1 << 16,
		Correlation: 0.9,
		Seed:        1,
		Reducer:     string(parallel.GroupMode),
		Archive:     ArchiveConfig{Path: "statsdemo.db"},
		Log:         LogConfig{Level: "info", Format: "console"},
	}
}

// Load decodes path on top of the defaults. An empty path yields the
// defaults. Unknown keys are an error.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return Config{}, fmt.Errorf("load config %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var err error
	if c.Name == "" {
		err = multierr.Append(err, errors.New("name must not be empty"))
	}
	if _, perr := strategy.ParseKind(c.Strategy); perr != nil {
		err = multierr.Append(err, perr)
	}
	if _, perr := parallel.ParseMode(c.Reducer); perr != nil {
		err = multierr.Append(err, perr)
	}
	if c.Size < 1 {
		err = multierr.Append(err, fmt.Errorf("size must be at least 1, got %d", c.Size))
	}
	if c.BundleSize < 2 {
		err = multierr.Append(err, fmt.Errorf("bundle_size must be at least 2, got %d", c.BundleSize))
	}
	if c.Workers < 1 {
		err = multierr.Append(err, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Samples < 1 {
		err = multierr.Append(err, fmt.Errorf("samples must be at least 1, got %d", c.Samples))
	}
	if c.Correlation <= -1 || c.Correlation >= 1 {
		err = multierr.Append(err, fmt.Errorf("correlation must lie in (-1, 1), got %g", c.Correlation))
	}
	if !c.Archive.InMemory && c.Archive.Path == "" {
		err = multierr.Append(err, errors.New("archive.path is required unless archive.in_memory is set"))
	}
	return err
}
