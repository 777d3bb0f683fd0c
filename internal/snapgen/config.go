package snapgen

import (
	"errors"
	"flag"
	"log/slog"

	"github.com/librescoot/fsmsnap/internal/config"
)

// Config controls a snapgen run. Environment values are defaults that flags
// override.
type Config struct {
	StateType string `env:"SNAPGEN_STATE_TYPE" envDefault:"StateID"`
	Manifest  string `env:"SNAPGEN_MANIFEST"`
	LogLevel  string `env:"SNAPGEN_LOG_LEVEL" envDefault:"info"`
	DryRun    bool   `env:"SNAPGEN_DRY_RUN"`

	// Paths are Go files or directories to scan.
	Paths []string
}

// ParseConfig reads the environment and then parses flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.StateType, "type", cfg.StateType, "name of the state identifier type")
	fs.StringVar(&cfg.Manifest, "manifest", cfg.Manifest, "YAML manifest listing generation jobs")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.BoolVar(&cfg.DryRun, "dry-run", cfg.DryRun, "print generated code instead of writing files")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cfg.Paths = fs.Args()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks that the config describes at least one input.
func (c Config) Validate() error {
	if c.StateType == "" {
		return errors.New("state type is required")
	}
	if len(c.Paths) == 0 && c.Manifest == "" {
		return errors.New("no input: pass paths or -manifest")
	}
	if _, err := config.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c Config) Level() slog.Level {
	level, err := config.ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}
