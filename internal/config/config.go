// Package config provides hierarchical configuration loading for agentbridge.
// Precedence: defaults < YAML file < environment variables < CLI flags.
package config

import "time"

// Config holds all runtime configuration for the bridge.
type Config struct {
	Bridge  Bridge  `yaml:"bridge"`
	Logging Logging `yaml:"logging"`
	MCP     MCP     `yaml:"mcp"`
	OTel    OTel    `yaml:"otel"`
}

// Bridge holds task execution and tool exposure settings.
type Bridge struct {
	Preset        string        `yaml:"preset"`         // minimal | agent | research | full
	Backends      []string      `yaml:"backends"`       // empty = every discovered backend
	TaskTimeout   time.Duration `yaml:"task_timeout"`   // default per-task deadline
	AutoApprove   bool          `yaml:"auto_approve"`   // pass each backend's auto-approval flag
	Retention     time.Duration `yaml:"retention"`      // how long terminal tasks stay listed
	KillGrace     time.Duration `yaml:"kill_grace"`     // SIGTERM -> SIGKILL delay
	PromptPreview int           `yaml:"prompt_preview"` // preview length in runes
}

// Logging holds structured logging configuration.
type Logging struct {
	Level   string `yaml:"level"`
	Service string `yaml:"service"`
	Async   bool   `yaml:"async"`
}

// MCP holds the server identity reported during initialization.
type MCP struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// OTel holds OpenTelemetry exporter configuration.
type OTel struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Defaults returns a Config with the values used when nothing else is set.
func Defaults() Config {
	return Config{
		Bridge: Bridge{
			Preset:        "full",
			TaskTimeout:   10 * time.Minute,
			AutoApprove:   true,
			Retention:     30 * time.Minute,
			KillGrace:     2 * time.Second,
			PromptPreview: 100,
		},
		Logging: Logging{
			Level:   "info",
			Service: "agentbridge",
		},
		MCP: MCP{
			Name:    "agentbridge",
			Version: "0.1.0",
		},
		OTel: OTel{
			Endpoint: "localhost:4317",
			Insecure: true,
		},
	}
}
