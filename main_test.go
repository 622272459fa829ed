package main

import (
	"os"
	"path/filepath"
	"testing"

	"eigenimages/config"
)

func TestApplyOverrides(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "eigenimages.yaml")
	yaml := "pipeline:\n  components: 6\n  variance_threshold: 0.9\ndatabase:\n  path: /tmp/ledger.db\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	args := map[string]string{
		"static-resize": "false",
		"threshold":     "0.7",
		"metrics-file":  "/tmp/eigen.prom",
	}
	if err := applyOverrides(&cfg, args); err != nil {
		t.Fatalf("applyOverrides: %v", err)
	}

	if cfg.UseStaticResize() {
		t.Error("static resize not overridden")
	}
	if cfg.Pipeline.Components != 6 {
		t.Errorf("components = %d, want 6 from file", cfg.Pipeline.Components)
	}
	if cfg.Pipeline.VarianceThreshold != 0.7 {
		t.Errorf("threshold = %g, want 0.7 from flag", cfg.Pipeline.VarianceThreshold)
	}
	if cfg.Database.Path != "/tmp/ledger.db" || cfg.Metrics.Textfile != "/tmp/eigen.prom" {
		t.Errorf("cfg = %+v", cfg)
	}
}

func TestApplyOverrides_Invalid(t *testing.T) {
	for _, args := range []map[string]string{
		{"components": "0"},
		{"threshold": "2"},
		{"static-resize": "sometimes"},
	} {
		cfg := config.Default()
		if err := applyOverrides(&cfg, args); err == nil {
			t.Errorf("applyOverrides(%v) accepted", args)
		}
	}
}

func TestRun_Usage(t *testing.T) {
	if code := run(nil); code != 1 {
		t.Errorf("no command: exit %d, want 1", code)
	}
	if code := run([]string{"run", "--folder=/tmp"}); code != 1 {
		t.Errorf("run without output: exit %d, want 1", code)
	}
}
