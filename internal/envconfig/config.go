// Package envconfig reads femtograd settings from the environment and from
// YAML training configuration files.
//
// Environment variables use the FEMTOGRAD_ prefix. Invalid values are
// logged with slog.Warn and replaced by their defaults.
package envconfig

import (
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
)

// Var returns an environment variable with surrounding quotes and
// whitespace removed.
func Var(key string) string {
	return strings.Trim(strings.TrimSpace(os.Getenv(key)), "\"'")
}

// LogLevel returns the log level, configurable via FEMTOGRAD_DEBUG.
// A true value enables debug logging; an integer n sets level -4n.
func LogLevel() slog.Level {
	level := slog.LevelInfo
	if s := Var("FEMTOGRAD_DEBUG"); s != "" {
		if b, _ := strconv.ParseBool(s); b {
			level = slog.LevelDebug
		} else if i, _ := strconv.ParseInt(s, 10, 64); i != 0 {
			level = slog.Level(i * -4)
		}
	}
	return level
}

// Uint returns a function reading an unsigned integer with a default.
func Uint(key string, defaultValue uint) func() uint {
	return func() uint {
		if s := Var(key); s != "" {
			if n, err := strconv.ParseUint(s, 10, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return uint(n)
			}
		}
		return defaultValue
	}
}

// Float returns a function reading a float with a default.
func Float(key string, defaultValue float64) func() float64 {
	return func() float64 {
		if s := Var(key); s != "" {
			if f, err := strconv.ParseFloat(s, 64); err != nil {
				slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", defaultValue)
			} else {
				return f
			}
		}
		return defaultValue
	}
}

// String returns a function reading a string.
func String(key string) func() string {
	return func() string {
		return Var(key)
	}
}

var (
	// Workers is the number of graph clones evaluated concurrently.
	// Configurable via FEMTOGRAD_WORKERS. Default: number of CPUs.
	Workers = Uint("FEMTOGRAD_WORKERS", uint(runtime.NumCPU()))
	// ConfigPath is the YAML training configuration. Configurable via FEMTOGRAD_CONFIG.
	ConfigPath = String("FEMTOGRAD_CONFIG")
	// CheckpointPath overrides the checkpoint file. Configurable via FEMTOGRAD_CHECKPOINT.
	CheckpointPath = String("FEMTOGRAD_CHECKPOINT")
)

// EnvVar describes one supported environment variable.
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap returns every supported variable with its current value.
func AsMap() map[string]EnvVar {
	return map[string]EnvVar{
		"FEMTOGRAD_DEBUG":      {"FEMTOGRAD_DEBUG", LogLevel(), "Show additional debug information (e.g. FEMTOGRAD_DEBUG=1)"},
		"FEMTOGRAD_WORKERS":    {"FEMTOGRAD_WORKERS", Workers(), "Concurrent evaluation workers"},
		"FEMTOGRAD_CONFIG":     {"FEMTOGRAD_CONFIG", ConfigPath(), "YAML training configuration file"},
		"FEMTOGRAD_CHECKPOINT": {"FEMTOGRAD_CHECKPOINT", CheckpointPath(), "Checkpoint file to save to and resume from"},
		"FEMTOGRAD_STEPS":      {"FEMTOGRAD_STEPS", Var("FEMTOGRAD_STEPS"), "Override the number of training steps"},
		"FEMTOGRAD_BASE_LR":    {"FEMTOGRAD_BASE_LR", Var("FEMTOGRAD_BASE_LR"), "Override the peak learning rate"},
		"FEMTOGRAD_SEED":       {"FEMTOGRAD_SEED", Var("FEMTOGRAD_SEED"), "Override the random seed"},
	}
}
