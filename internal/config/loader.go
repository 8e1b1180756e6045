package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Strob0t/agentbridge/internal/domain/preset"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "agentbridge.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
// Callers applying CLI flags on top must call Validate again.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: operator supplied path
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty, parseable env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Bridge.Preset, "AGENTBRIDGE_PRESET")
	setList(&cfg.Bridge.Backends, "AGENTBRIDGE_BACKENDS")
	setDuration(&cfg.Bridge.TaskTimeout, "AGENTBRIDGE_TASK_TIMEOUT")
	setBool(&cfg.Bridge.AutoApprove, "AGENTBRIDGE_AUTO_APPROVE")
	setDuration(&cfg.Bridge.Retention, "AGENTBRIDGE_RETENTION")
	setDuration(&cfg.Bridge.KillGrace, "AGENTBRIDGE_KILL_GRACE")
	setInt(&cfg.Bridge.PromptPreview, "AGENTBRIDGE_PROMPT_PREVIEW")

	setString(&cfg.Logging.Level, "AGENTBRIDGE_LOG_LEVEL")
	setString(&cfg.Logging.Service, "AGENTBRIDGE_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "AGENTBRIDGE_LOG_ASYNC")

	setBool(&cfg.OTel.Enabled, "AGENTBRIDGE_OTEL_ENABLED")
	setString(&cfg.OTel.Endpoint, "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// Validate checks that cfg is usable.
func Validate(cfg *Config) error {
	if _, err := preset.Parse(cfg.Bridge.Preset); err != nil {
		return fmt.Errorf("config validate: bridge.preset: %w", err)
	}
	if cfg.Bridge.TaskTimeout <= 0 {
		return errors.New("config validate: bridge.task_timeout must be > 0")
	}
	if cfg.Bridge.Retention <= 0 {
		return errors.New("config validate: bridge.retention must be > 0")
	}
	if cfg.Bridge.KillGrace < 0 {
		return errors.New("config validate: bridge.kill_grace must be >= 0")
	}
	if cfg.Bridge.PromptPreview < 1 {
		return errors.New("config validate: bridge.prompt_preview must be >= 1")
	}
	if cfg.OTel.Enabled && cfg.OTel.Endpoint == "" {
		return errors.New("config validate: otel.endpoint is required when otel is enabled")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setList(dst *[]string, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	*dst = out
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
