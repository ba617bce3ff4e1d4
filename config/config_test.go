package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig_Valid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty endpoint", func(c *Config) { c.Analysis.Endpoint = "" }},
		{"empty model", func(c *Config) { c.Analysis.Model = "" }},
		{"temperature out of range", func(c *Config) { c.Analysis.Temperature = 1.5 }},
		{"zero max file size", func(c *Config) { c.Uploads.MaxFileSize = 0 }},
		{"zero max files", func(c *Config) { c.Uploads.MaxFiles = 0 }},
		{"zero debounce", func(c *Config) { c.Triggers.DebounceDelay = 0 }},
		{"zero response cap", func(c *Config) { c.Triggers.MaxResponsesPerSession = 0 }},
		{"bad frequency", func(c *Config) { c.Triggers.ResponseFrequency = "sometimes" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(c)
			if err := c.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestMerge_OverlaysNonZero(t *testing.T) {
	base := DefaultConfig()
	base.Merge(&Config{
		Analysis: AnalysisConfig{Model: "llama3:8b", Timeout: 30 * time.Second},
		Triggers: TriggerConfig{ResponseFrequency: "low"},
	})
	if base.Analysis.Model != "llama3:8b" {
		t.Errorf("model = %q", base.Analysis.Model)
	}
	if base.Analysis.Endpoint == "" {
		t.Error("merge clobbered endpoint default")
	}
	if base.Triggers.ResponseFrequency != "low" {
		t.Errorf("frequency = %q", base.Triggers.ResponseFrequency)
	}
	if base.Triggers.DebounceDelay != 2*time.Second {
		t.Errorf("debounce = %v, want default preserved", base.Triggers.DebounceDelay)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "briefwizard.yaml")
	content := []byte("uploads:\n  max_files: 3\ntriggers:\n  response_frequency: high\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile: %v", err)
	}
	if cfg.Uploads.MaxFiles != 3 {
		t.Errorf("max_files = %d", cfg.Uploads.MaxFiles)
	}
	if cfg.Triggers.ResponseFrequency != "high" {
		t.Errorf("response_frequency = %q", cfg.Triggers.ResponseFrequency)
	}
}
