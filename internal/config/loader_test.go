package config

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/Strob0t/agentbridge/internal/domain/preset"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Bridge.Preset != "full" {
		t.Errorf("expected preset full, got %s", cfg.Bridge.Preset)
	}
	if cfg.Bridge.TaskTimeout != 10*time.Minute {
		t.Errorf("expected task timeout 10m, got %v", cfg.Bridge.TaskTimeout)
	}
	if cfg.Bridge.Retention != 30*time.Minute {
		t.Errorf("expected retention 30m, got %v", cfg.Bridge.Retention)
	}
	if cfg.Bridge.KillGrace != 2*time.Second {
		t.Errorf("expected kill grace 2s, got %v", cfg.Bridge.KillGrace)
	}
	if !cfg.Bridge.AutoApprove {
		t.Error("expected auto approve on by default")
	}
	if err := Validate(&cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
bridge:
  preset: agent
  backends: [claude, gemini]
  task_timeout: 90s
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Bridge.Preset != "agent" {
		t.Errorf("expected preset agent, got %s", cfg.Bridge.Preset)
	}
	if !slices.Equal(cfg.Bridge.Backends, []string{"claude", "gemini"}) {
		t.Errorf("unexpected backends %v", cfg.Bridge.Backends)
	}
	if cfg.Bridge.TaskTimeout != 90*time.Second {
		t.Errorf("expected timeout 90s, got %v", cfg.Bridge.TaskTimeout)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Bridge.KillGrace != 2*time.Second {
		t.Errorf("expected default kill grace, got %v", cfg.Bridge.KillGrace)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	if err := loadYAML(&cfg, "/nonexistent/path.yaml"); err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestLoadYAMLMalformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("bridge: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := Defaults()
	if err := loadYAML(&cfg, path); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("AGENTBRIDGE_PRESET", "research")
	t.Setenv("AGENTBRIDGE_BACKENDS", " codex, ,qwen ")
	t.Setenv("AGENTBRIDGE_TASK_TIMEOUT", "45s")
	t.Setenv("AGENTBRIDGE_AUTO_APPROVE", "false")
	t.Setenv("AGENTBRIDGE_PROMPT_PREVIEW", "20")
	t.Setenv("AGENTBRIDGE_LOG_ASYNC", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")

	loadEnv(&cfg)

	if cfg.Bridge.Preset != "research" {
		t.Errorf("expected preset research, got %s", cfg.Bridge.Preset)
	}
	if !slices.Equal(cfg.Bridge.Backends, []string{"codex", "qwen"}) {
		t.Errorf("unexpected backends %v", cfg.Bridge.Backends)
	}
	if cfg.Bridge.TaskTimeout != 45*time.Second {
		t.Errorf("expected 45s, got %v", cfg.Bridge.TaskTimeout)
	}
	if cfg.Bridge.AutoApprove {
		t.Error("expected auto approve off")
	}
	if cfg.Bridge.PromptPreview != 20 {
		t.Errorf("expected preview 20, got %d", cfg.Bridge.PromptPreview)
	}
	if !cfg.Logging.Async {
		t.Error("expected async logging")
	}
	if cfg.OTel.Endpoint != "collector:4317" {
		t.Errorf("unexpected endpoint %s", cfg.OTel.Endpoint)
	}
}

func TestEnvInvalidValuesIgnored(t *testing.T) {
	cfg := Defaults()
	t.Setenv("AGENTBRIDGE_TASK_TIMEOUT", "soon")
	t.Setenv("AGENTBRIDGE_PROMPT_PREVIEW", "many")
	t.Setenv("AGENTBRIDGE_AUTO_APPROVE", "maybe")

	loadEnv(&cfg)

	if cfg.Bridge.TaskTimeout != 10*time.Minute {
		t.Errorf("invalid duration should keep default, got %v", cfg.Bridge.TaskTimeout)
	}
	if cfg.Bridge.PromptPreview != 100 {
		t.Errorf("invalid int should keep default, got %d", cfg.Bridge.PromptPreview)
	}
	if !cfg.Bridge.AutoApprove {
		t.Error("invalid bool should keep default")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown preset", func(c *Config) { c.Bridge.Preset = "everything" }},
		{"zero timeout", func(c *Config) { c.Bridge.TaskTimeout = 0 }},
		{"zero retention", func(c *Config) { c.Bridge.Retention = 0 }},
		{"negative grace", func(c *Config) { c.Bridge.KillGrace = -time.Second }},
		{"zero preview", func(c *Config) { c.Bridge.PromptPreview = 0 }},
		{"otel without endpoint", func(c *Config) { c.OTel.Enabled = true; c.OTel.Endpoint = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.modify(&cfg)
			if err := Validate(&cfg); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidateUnknownPresetWrapsSentinel(t *testing.T) {
	cfg := Defaults()
	cfg.Bridge.Preset = "bogus"
	if err := Validate(&cfg); !errors.Is(err, preset.ErrUnknownPreset) {
		t.Errorf("expected ErrUnknownPreset, got %v", err)
	}
}

func TestLoadFromFullHierarchy(t *testing.T) {
	// YAML sets agent, env overrides to minimal. Env must win.
	yamlPath := filepath.Join(t.TempDir(), "cfg.yaml")
	if err := os.WriteFile(yamlPath, []byte(`
bridge:
  preset: agent
  kill_grace: 5s
logging:
  level: debug
`), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("AGENTBRIDGE_PRESET", "minimal")

	cfg, err := LoadFrom(yamlPath)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Bridge.Preset != "minimal" {
		t.Errorf("env should override YAML: got %q", cfg.Bridge.Preset)
	}
	if cfg.Bridge.KillGrace != 5*time.Second {
		t.Errorf("YAML should override default: got %v", cfg.Bridge.KillGrace)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug, got %q", cfg.Logging.Level)
	}
}

func TestLoadFromInvalid(t *testing.T) {
	t.Setenv("AGENTBRIDGE_PRESET", "nope")
	if _, err := LoadFrom(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Error("expected validation error")
	}
}
