package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name: "zero target",
			mutate: func(cfg *Config) {
				cfg.Target = 0
			},
			wantErr: "target",
		},
		{
			name: "unknown output format",
			mutate: func(cfg *Config) {
				cfg.Output.Format = "xml"
			},
			wantErr: "output format",
		},
		{
			name: "empty platform list",
			mutate: func(cfg *Config) {
				cfg.Domains.Platforms = nil
			},
			wantErr: "platform",
		},
		{
			name: "maps url without host",
			mutate: func(cfg *Config) {
				cfg.Automation.MapsURL = "http://"
			},
			wantErr: "maps url",
		},
		{
			name: "negative results timeout",
			mutate: func(cfg *Config) {
				cfg.Automation.ResultsTimeout = -1 * time.Second
			},
			wantErr: "timeouts",
		},
		{
			name: "backoff above max",
			mutate: func(cfg *Config) {
				cfg.Email.RetryBackoff = 5 * time.Second
				cfg.Email.RetryBackoffMax = time.Second
			},
			wantErr: "backoff",
		},
		{
			name: "mx without resolvers",
			mutate: func(cfg *Config) {
				cfg.Email.VerifyMX = true
				cfg.Email.Resolvers = nil
			},
			wantErr: "resolver",
		},
		{
			name: "bad log format",
			mutate: func(cfg *Config) {
				cfg.Log.Format = "xml"
			},
			wantErr: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "leadscout.yaml")
	content := "target: 25\noutput:\n  dir: leads\nautomation:\n  scroll_pause: 500ms\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("LEADSCOUT_OUTPUT_FORMAT", "dual")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Target != 25 {
		t.Fatalf("target = %d, want 25", cfg.Target)
	}
	if cfg.Output.Dir != "leads" || cfg.Output.Format != "dual" {
		t.Fatalf("output = %+v", cfg.Output)
	}
	if cfg.Automation.ScrollPause != 500*time.Millisecond {
		t.Fatalf("scroll pause = %v", cfg.Automation.ScrollPause)
	}
	if cfg.Automation.MapsURL == "" || len(cfg.Domains.Platforms) == 0 {
		t.Fatalf("defaults not applied: %+v", cfg.Automation)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}
