package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/meigma/lfs"
	"github.com/meigma/lfs/cache"
	"github.com/meigma/lfs/forge"
)

// config is the content of the --config file. Flags override it.
type config struct {
	Tree        forge.Tree    `toml:"tree"`
	LogLevel    string        `toml:"log_level"`
	Concurrency int           `toml:"concurrency"`
	BatchLimit  int           `toml:"batch_limit"`
	Timeout     time.Duration `toml:"timeout"`
	UserAgent   string        `toml:"user_agent"`
	Cache       cacheConfig   `toml:"cache"`
}

type cacheConfig struct {
	Disabled   bool          `toml:"disabled"`
	MaxEntries int           `toml:"max_entries"`
	TTL        time.Duration `toml:"ttl"`
}

func defaultConfig() config {
	return config{
		Tree:        forge.DefaultTree(),
		LogLevel:    "info",
		Concurrency: lfs.DefaultConcurrency,
		BatchLimit:  lfs.DefaultBatchLimit,
		Timeout:     30 * time.Second,
		UserAgent:   "modindex",
		Cache:       cacheConfig{MaxEntries: cache.DefaultMaxEntries},
	}
}

// loadConfig reads path over the defaults. An empty path returns the
// defaults.
func loadConfig(path string) (config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return config{}, fmt.Errorf("load config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return cfg, nil
}

func (c config) validate() error {
	if err := c.Tree.Validate(); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Cache.MaxEntries < 1 && !c.Cache.Disabled {
		return fmt.Errorf("cache.max_entries must be at least 1, got %d", c.Cache.MaxEntries)
	}
	if c.Timeout < 0 || c.Cache.TTL < 0 {
		return fmt.Errorf("durations must be non-negative")
	}
	_, err := parseLevel(c.LogLevel)
	return err
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
