// Package config reads runtime tunables for the message bus from
// environment variables, applying sane defaults and collecting every
// validation problem into one descriptive error rather than failing on the
// first.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultTickInterval is the dispatcher's tick cadence when unset.
	DefaultTickInterval = 500 * time.Millisecond
	// DefaultQueueCount is the number of priority lanes when unset.
	DefaultQueueCount = 4

	// DefaultLogLevel controls verbosity for bus logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "messagebus.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true

	// DefaultTraceDir is where the optional trace recorder writes bundles.
	DefaultTraceDir = "traces"
)

// Config captures every runtime tunable for running a bus: dispatcher
// cadence, logging, and the optional trace recorder.
type Config struct {
	TickInterval time.Duration
	QueueCount   int
	Logging      LoggingConfig
	TraceEnabled bool
	TraceDir     string
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads configuration from environment variables, applying defaults
// and returning a single aggregated error describing every invalid
// override found.
func Load() (*Config, error) {
	cfg := &Config{
		TickInterval: DefaultTickInterval,
		QueueCount:   DefaultQueueCount,
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("BUS_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("BUS_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
		TraceEnabled: false,
		TraceDir:     strings.TrimSpace(getString("BUS_TRACE_DIR", DefaultTraceDir)),
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("BUS_TICK_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("BUS_TICK_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.TickInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_QUEUE_COUNT")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("BUS_QUEUE_COUNT must be a non-negative integer, got %q", raw))
		} else {
			// A lane count of 0 is eventually normalized to 1, but Load
			// preserves the raw value here and lets bus.New perform the
			// clamp, so callers inspecting Config see exactly what was
			// configured.
			cfg.QueueCount = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("BUS_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("BUS_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("BUS_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("BUS_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("BUS_TRACE_ENABLED")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("BUS_TRACE_ENABLED must be a boolean value, got %q", raw))
		} else {
			cfg.TraceEnabled = value
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%s", strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
