// Package config loads the application settings.
package config

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix marks the environment variables read by Load.
const EnvPrefix = "STUDYDECK_"

// Config holds all application configuration.
type Config struct {
	// DB is the SQLite file holding progress, sessions and the best time.
	DB       string `koanf:"db" validate:"required"`
	LogLevel string `koanf:"log_level" validate:"required"`
	// RoundSize is the number of cards per Match round.
	RoundSize int `koanf:"round_size" validate:"min=2,max=50"`
	// ArchiveDir, when set, is a git repository receiving every saved deck.
	ArchiveDir string `koanf:"archive_dir"`
	// Seed fixes the shuffle order. Zero seeds from the clock.
	Seed uint64 `koanf:"seed"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		DB:        "studydeck.db",
		LogLevel:  "info",
		RoundSize: 10,
	}
}

var validate = validator.New()

// NewFlagSet returns the flags understood by Load, defaulted from Default.
func NewFlagSet(name string) *pflag.FlagSet {
	d := Default()
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "Path to a YAML config file")
	fs.String("db", d.DB, "Path to the SQLite database file")
	fs.String("log-level", d.LogLevel, "Log level (debug, info, warn, error)")
	fs.Int("round-size", d.RoundSize, "Cards per Match round")
	fs.String("archive-dir", d.ArchiveDir, "Git repository to archive saved decks in")
	fs.Uint64("seed", d.Seed, "Random seed for shuffling, 0 for a random one")
	return fs
}

// Load merges, lowest priority first: the defaults, the YAML file named by
// --config, STUDYDECK_* environment variables and flags set on fs.
func Load(fs *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	d := Default()
	defaults := map[string]interface{}{
		"db":          d.DB,
		"log_level":   d.LogLevel,
		"round_size":  d.RoundSize,
		"archive_dir": d.ArchiveDir,
		"seed":        d.Seed,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path, _ := fs.GetString("config"); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	envKey := func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	flagKey := func(f *pflag.Flag) (string, interface{}) {
		if f.Name == "config" {
			return "", nil
		}
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}
