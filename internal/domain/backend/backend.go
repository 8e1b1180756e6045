// Package backend defines the catalog of supported backend CLIs, their
// discovery on the local machine, and the command lines used to invoke them.
package backend

// Format identifies the wire shape of a backend's stdout.
// It is a closed set: every value has a parser (or the plain-text fallback).
type Format int

const (
	// FormatText is free text with no structure assumed.
	FormatText Format = iota
	// FormatClaudeStream is a line-delimited event stream with system/assistant/result events.
	FormatClaudeStream
	// FormatCodexJSONL is a line-delimited event stream with thread/item/turn events.
	FormatCodexJSONL
	// FormatGeminiJSON is a single JSON object carrying the response text.
	FormatGeminiJSON
)

// String returns the format name used in logs and resource payloads.
func (f Format) String() string {
	switch f {
	case FormatClaudeStream:
		return "claude-stream"
	case FormatCodexJSONL:
		return "codex-jsonl"
	case FormatGeminiJSON:
		return "gemini-json"
	default:
		return "text"
	}
}

// MarshalText encodes the format by name.
func (f Format) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// Spec is the static, compiled-in description of a backend family.
type Spec struct {
	Name          string
	DisplayName   string
	Binary        string
	OverrideEnv   string
	AutoApprove   string // empty when the CLI has no auto-approval flag
	CredentialEnv string // empty when the CLI needs no API key
	DefaultModel  string
	Format        Format

	// NativeSystemPrompt reports whether the CLI accepts --system-prompt.
	NativeSystemPrompt bool
	// LocalModel marks the locally-hosted model runner ("run <model> <prompt>").
	LocalModel bool
}

// Config is a backend resolved on this machine. Read-only after discovery.
type Config struct {
	Name          string `json:"name"`
	DisplayName   string `json:"display_name"`
	Binary        string `json:"binary"`
	Model         string `json:"model,omitempty"`
	AutoApprove   string `json:"auto_approve_flag,omitempty"`
	CredentialEnv string `json:"credential_env,omitempty"`
	Format        Format `json:"format"`

	NativeSystemPrompt bool `json:"native_system_prompt"`
	LocalModel         bool `json:"local_model"`
}

const (
	ollamaModelEnv      = "OLLAMA_MODEL"
	ollamaFallbackModel = "llama3.2"
)

// Catalog returns every supported backend in preference order.
func Catalog() []Spec {
	return []Spec{
		{
			Name:               "claude",
			DisplayName:        "Claude Code",
			Binary:             "claude",
			OverrideEnv:        "CLAUDE_BIN",
			AutoApprove:        "--dangerously-skip-permissions",
			CredentialEnv:      "ANTHROPIC_API_KEY",
			Format:             FormatClaudeStream,
			NativeSystemPrompt: true,
		},
		{
			Name:          "codex",
			DisplayName:   "OpenAI Codex",
			Binary:        "codex",
			OverrideEnv:   "CODEX_BIN",
			AutoApprove:   "--full-auto",
			CredentialEnv: "OPENAI_API_KEY",
			Format:        FormatCodexJSONL,
		},
		{
			Name:          "gemini",
			DisplayName:   "Gemini CLI",
			Binary:        "gemini",
			OverrideEnv:   "GEMINI_BIN",
			AutoApprove:   "--yolo",
			CredentialEnv: "GEMINI_API_KEY",
			Format:        FormatGeminiJSON,
		},
		{
			Name:          "qwen",
			DisplayName:   "Qwen Code",
			Binary:        "qwen",
			OverrideEnv:   "QWEN_BIN",
			AutoApprove:   "--yolo",
			CredentialEnv: "DASHSCOPE_API_KEY",
			Format:        FormatText,
		},
		{
			Name:         "ollama",
			DisplayName:  "Ollama",
			Binary:       "ollama",
			OverrideEnv:  "OLLAMA_BIN",
			DefaultModel: ollamaFallbackModel,
			Format:       FormatText,
			LocalModel:   true,
		},
	}
}

// Lookup returns the catalog spec for name.
func Lookup(name string) (Spec, bool) {
	for _, s := range Catalog() {
		if s.Name == name {
			return s, true
		}
	}
	return Spec{}, false
}
