// Package config defines the command-line configuration and its resolution
// chain: CLI flags take priority over environment variables, which take
// priority over defaults.
package config

import (
	"flag"
	"time"

	apperrors "github.com/agbru/perfmon/internal/errors"
)

// EnvPrefix is prepended to every environment variable read by this package.
const EnvPrefix = "PERFMON_"

// Default values for flag-controlled settings.
const (
	DefaultInterval = 100 * time.Millisecond
	DefaultEngine   = "3D"

	// MinInterval guards against spinning the counter facility; formatted
	// counters need two collections to produce a rate, and sub-10ms rounds
	// mostly measure the collector itself.
	MinInterval = 10 * time.Millisecond
)

// AppConfig holds all runtime configuration for the perfmon command.
type AppConfig struct {
	Interval     time.Duration // sampling period
	Duration     time.Duration // total run time, zero means until interrupted
	ProcessScope bool          // report the process's CPU share instead of the system's
	Engine       string        // GPU engine type shown in the summary line
	TUI          bool          // interactive terminal dashboard
	ListenAddr   string        // Prometheus endpoint address, empty disables it
	Verbose      bool          // debug-level logging
	Quiet        bool          // suppress the periodic summary line
	ShowVersion  bool          // print version information and exit
}

// ParseConfig parses command-line arguments into an AppConfig, applies
// environment variable overrides for flags not set explicitly, and validates
// the result.
//
// Parameters:
//   - fs: the flag set to register flags on (callers own output and error
//     handling behavior)
//   - args: the arguments to parse, excluding the program name
//
// Returns:
//   - AppConfig: the resolved configuration
//   - error: a ConfigError describing the first invalid setting
func ParseConfig(fs *flag.FlagSet, args []string) (AppConfig, error) {
	config := AppConfig{
		Interval: DefaultInterval,
		Engine:   DefaultEngine,
	}

	fs.DurationVar(&config.Interval, "interval", config.Interval,
		"sampling period between collection rounds")
	fs.DurationVar(&config.Duration, "duration", 0,
		"stop after this long (0 runs until interrupted)")
	fs.BoolVar(&config.ProcessScope, "process", false,
		"report this process's CPU share instead of the system-wide value")
	fs.StringVar(&config.Engine, "engine", config.Engine,
		"GPU engine type shown in the summary line")
	fs.BoolVar(&config.TUI, "tui", false,
		"interactive terminal dashboard")
	fs.StringVar(&config.ListenAddr, "listen", "",
		"address for the Prometheus /metrics endpoint (empty disables it)")
	fs.BoolVar(&config.Verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&config.Verbose, "v", false, "enable debug logging (shorthand)")
	fs.BoolVar(&config.Quiet, "quiet", false, "suppress the periodic summary line")
	fs.BoolVar(&config.Quiet, "q", false, "suppress the periodic summary line (shorthand)")
	fs.BoolVar(&config.ShowVersion, "version", false, "print version information and exit")

	if err := fs.Parse(args); err != nil {
		return AppConfig{}, apperrors.NewConfigError("%s", err)
	}

	applyEnvOverrides(&config, fs)

	if err := validate(config); err != nil {
		return AppConfig{}, err
	}
	return config, nil
}

// validate rejects settings the sampling engine or output layer cannot
// honor.
func validate(config AppConfig) error {
	if config.Interval < MinInterval {
		return apperrors.NewConfigError(
			"interval %s is below the minimum of %s", config.Interval, MinInterval)
	}
	if config.Duration < 0 {
		return apperrors.NewConfigError("duration must not be negative")
	}
	if config.Engine == "" {
		return apperrors.NewConfigError("engine must not be empty")
	}
	if config.TUI && config.Quiet {
		return apperrors.NewConfigError("-tui and -quiet are mutually exclusive")
	}
	if config.TUI && config.Duration != 0 {
		return apperrors.NewConfigError("-tui runs until quit; -duration does not apply")
	}
	return nil
}
