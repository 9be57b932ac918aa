package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BUS_TICK_INTERVAL", "")
	t.Setenv("BUS_QUEUE_COUNT", "")
	t.Setenv("BUS_LOG_LEVEL", "")
	t.Setenv("BUS_LOG_PATH", "")
	t.Setenv("BUS_LOG_MAX_SIZE_MB", "")
	t.Setenv("BUS_LOG_MAX_BACKUPS", "")
	t.Setenv("BUS_LOG_MAX_AGE_DAYS", "")
	t.Setenv("BUS_LOG_COMPRESS", "")
	t.Setenv("BUS_TRACE_ENABLED", "")
	t.Setenv("BUS_TRACE_DIR", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.TickInterval != DefaultTickInterval {
		t.Fatalf("expected default tick interval %v, got %v", DefaultTickInterval, cfg.TickInterval)
	}
	if cfg.QueueCount != DefaultQueueCount {
		t.Fatalf("expected default queue count %d, got %d", DefaultQueueCount, cfg.QueueCount)
	}
	if cfg.Logging.Level != DefaultLogLevel {
		t.Fatalf("expected default log level %q, got %q", DefaultLogLevel, cfg.Logging.Level)
	}
	if cfg.Logging.Path != DefaultLogPath {
		t.Fatalf("expected default log path %q, got %q", DefaultLogPath, cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != DefaultLogMaxSizeMB {
		t.Fatalf("expected default log max size %d, got %d", DefaultLogMaxSizeMB, cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != DefaultLogMaxBackups {
		t.Fatalf("expected default log max backups %d, got %d", DefaultLogMaxBackups, cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != DefaultLogMaxAgeDays {
		t.Fatalf("expected default log max age %d, got %d", DefaultLogMaxAgeDays, cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress != DefaultLogCompress {
		t.Fatalf("expected default log compress %t, got %t", DefaultLogCompress, cfg.Logging.Compress)
	}
	if cfg.TraceEnabled {
		t.Fatalf("expected trace recording disabled by default")
	}
	if cfg.TraceDir != DefaultTraceDir {
		t.Fatalf("expected default trace dir %q, got %q", DefaultTraceDir, cfg.TraceDir)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BUS_TICK_INTERVAL", "250ms")
	t.Setenv("BUS_QUEUE_COUNT", "8")
	t.Setenv("BUS_LOG_LEVEL", "debug")
	t.Setenv("BUS_LOG_PATH", "/var/log/messagebus.log")
	t.Setenv("BUS_LOG_MAX_SIZE_MB", "512")
	t.Setenv("BUS_LOG_MAX_BACKUPS", "4")
	t.Setenv("BUS_LOG_MAX_AGE_DAYS", "2")
	t.Setenv("BUS_LOG_COMPRESS", "false")
	t.Setenv("BUS_TRACE_ENABLED", "true")
	t.Setenv("BUS_TRACE_DIR", "/var/run/traces")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.TickInterval != 250*time.Millisecond {
		t.Fatalf("expected tick interval 250ms, got %v", cfg.TickInterval)
	}
	if cfg.QueueCount != 8 {
		t.Fatalf("expected queue count 8, got %d", cfg.QueueCount)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected overridden log level debug, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Path != "/var/log/messagebus.log" {
		t.Fatalf("unexpected log path %q", cfg.Logging.Path)
	}
	if cfg.Logging.MaxSizeMB != 512 {
		t.Fatalf("expected log max size 512, got %d", cfg.Logging.MaxSizeMB)
	}
	if cfg.Logging.MaxBackups != 4 {
		t.Fatalf("expected log max backups 4, got %d", cfg.Logging.MaxBackups)
	}
	if cfg.Logging.MaxAgeDays != 2 {
		t.Fatalf("expected log max age 2, got %d", cfg.Logging.MaxAgeDays)
	}
	if cfg.Logging.Compress {
		t.Fatalf("expected log compression disabled")
	}
	if !cfg.TraceEnabled {
		t.Fatalf("expected trace recording enabled")
	}
	if cfg.TraceDir != "/var/run/traces" {
		t.Fatalf("expected trace dir override, got %q", cfg.TraceDir)
	}
}

func TestLoadReturnsValidationErrors(t *testing.T) {
	t.Setenv("BUS_TICK_INTERVAL", "abc")
	t.Setenv("BUS_QUEUE_COUNT", "-1")
	t.Setenv("BUS_LOG_MAX_SIZE_MB", "-1")
	t.Setenv("BUS_LOG_MAX_BACKUPS", "-2")
	t.Setenv("BUS_LOG_MAX_AGE_DAYS", "-3")
	t.Setenv("BUS_LOG_COMPRESS", "notabool")
	t.Setenv("BUS_TRACE_ENABLED", "notabool")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error from invalid configuration, got nil")
	}

	for _, want := range []string{
		"BUS_TICK_INTERVAL",
		"BUS_QUEUE_COUNT",
		"BUS_LOG_MAX_SIZE_MB",
		"BUS_LOG_MAX_BACKUPS",
		"BUS_LOG_MAX_AGE_DAYS",
		"BUS_LOG_COMPRESS",
		"BUS_TRACE_ENABLED",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected error to mention %s, got %q", want, err.Error())
		}
	}
}

func TestLoadNormalizesQueueCountZeroAtConstructionNotLoad(t *testing.T) {
	//1.- Load preserves the literal configured value; clamping to one lane
	// is bus.New's responsibility, not Load's.
	t.Setenv("BUS_QUEUE_COUNT", "0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}
	if cfg.QueueCount != 0 {
		t.Fatalf("expected Load to preserve literal zero, got %d", cfg.QueueCount)
	}
}
