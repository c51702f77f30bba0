package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"hangarline/internal/config"
)

func TestDefaultValidates(t *testing.T) {
	cfg := config.Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Timer.TickSeconds != 1 {
		t.Fatalf("expected 1s timer tick, got %d", cfg.Timer.TickSeconds)
	}
	if !cfg.Evidence.AllowSkip {
		t.Fatalf("expected evidence skip allowed by default")
	}
}

func TestFromYAMLRejectsBadValues(t *testing.T) {
	_, err := config.FromYAML([]byte("refresh:\n  interval_seconds: 0\n"))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestFromYAMLRejectsImpossibleClosure(t *testing.T) {
	_, err := config.FromYAML([]byte(`
evidence:
  require_on_close: false
  allow_skip: false
refresh:
  interval_seconds: 5
timer:
  tick_seconds: 1
`))
	if err == nil {
		t.Fatalf("expected closure policy error")
	}
}

func TestLoadOptionalFallsBackToDefault(t *testing.T) {
	cfg, err := config.LoadOptional(t.TempDir())
	if err != nil {
		t.Fatalf("load optional: %v", err)
	}
	if cfg.Refresh.IntervalSeconds != 5 {
		t.Fatalf("expected default refresh interval, got %d", cfg.Refresh.IntervalSeconds)
	}
}

func TestLoadReadsWorkspaceFile(t *testing.T) {
	dir := t.TempDir()
	data := []byte(`
evidence:
  require_on_close: true
  allow_skip: false
refresh:
  interval_seconds: 2
  settle_delay_ms: 100
timer:
  tick_seconds: 1
`)
	if err := os.WriteFile(filepath.Join(dir, "hangarline.yml"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Refresh.IntervalSeconds != 2 || cfg.Evidence.AllowSkip {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}
