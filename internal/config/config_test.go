package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadYAMLWithDefaults(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "config.yaml", `
logging:
  level: DEBUG
scheduler:
  workers: 2
`)

	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Fatalf("Level = %q, want DEBUG", cfg.Logging.Level)
	}
	if cfg.Scheduler.Workers != 2 {
		t.Fatalf("Workers = %d, want 2", cfg.Scheduler.Workers)
	}
	// Omitted fields pick up defaults.
	if cfg.Scheduler.MaxQueueSize != 256 {
		t.Fatalf("MaxQueueSize = %d, want default 256", cfg.Scheduler.MaxQueueSize)
	}
	if cfg.Logging.Console == nil || !*cfg.Logging.Console {
		t.Fatal("console should default to on")
	}
}

func TestLoadRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "config.yaml", `
scheduler:
  workers: 2
  wrokers: 3
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown field")
	}
}

func TestSchedulerSizing(t *testing.T) {
	t.Parallel()
	// Explicit zero reads as omitted and picks up the default.
	path := writeFile(t, t.TempDir(), "config.yaml", `
scheduler:
  workers: 0
`)
	cfg, err := NewManager(path).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Scheduler.Workers != 4 {
		t.Fatalf("Workers = %d, want default 4", cfg.Scheduler.Workers)
	}

	path = writeFile(t, t.TempDir(), "config.yaml", `
scheduler:
  workers: -1
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for negative workers")
	}

	path = writeFile(t, t.TempDir(), "config.yaml", `
scheduler:
  max_queue_size: -8
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for negative queue size")
	}
}

func TestLoadRejectsInvalidIngest(t *testing.T) {
	t.Parallel()
	path := writeFile(t, t.TempDir(), "config.yaml", `
ingest:
  enabled: true
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for ingest without path")
	}

	path = writeFile(t, t.TempDir(), "config.yaml", `
ingest:
  enabled: true
  path: ./data.txt
  priority: urgent
`)
	if _, err := NewManager(path).Load(); err == nil {
		t.Fatal("expected error for unknown priority")
	}
}

func TestValidateHistoryDriver(t *testing.T) {
	t.Parallel()
	cfg := &Config{History: &HistoryConfig{Driver: "postgres"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown history driver")
	}

	cfg = &Config{History: &HistoryConfig{Driver: "file", Path: "h.jsonl"}}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestParseDurationField(t *testing.T) {
	t.Parallel()
	d, err := ParseDurationField("x", "1m30s")
	if err != nil {
		t.Fatalf("ParseDurationField: %v", err)
	}
	if d.Seconds() != 90 {
		t.Fatalf("d = %v, want 90s", d)
	}
	if _, err := ParseDurationField("x", "-5s"); err == nil {
		t.Fatal("expected error for negative duration")
	}
	if _, err := ParseDurationField("x", "nope"); err == nil {
		t.Fatal("expected error for garbage duration")
	}
}
