// Package outputparse normalizes backend CLI stdout into a ParsedOutput.
// Malformed or unexpected output never errors; it degrades to raw text.
package outputparse

import (
	"encoding/json"
	"strings"

	"github.com/Strob0t/agentbridge/internal/domain/backend"
)

// Usage holds token counts reported by a backend.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// ToolUse is a tool invocation the backend reported making.
type ToolUse struct {
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input,omitempty"`
}

// ParsedOutput is the normalized result of one backend run.
type ParsedOutput struct {
	Result       string    `json:"result"`
	SessionID    string    `json:"session_id,omitempty"`
	Usage        *Usage    `json:"usage,omitempty"`
	ToolUses     []ToolUse `json:"tool_uses"`
	IsStructured bool      `json:"is_structured"`
}

// Parse dispatches on the backend's output format.
func Parse(format backend.Format, stdout string) ParsedOutput {
	var (
		out ParsedOutput
		ok  bool
	)
	switch format {
	case backend.FormatClaudeStream:
		out, ok = parseClaudeStream(stdout)
	case backend.FormatCodexJSONL:
		out, ok = parseCodexJSONL(stdout)
	case backend.FormatGeminiJSON:
		out, ok = parseGeminiJSON(stdout)
	case backend.FormatText:
	}
	if !ok {
		return Raw(stdout)
	}
	if out.ToolUses == nil {
		out.ToolUses = []ToolUse{}
	}
	return out
}

// Raw wraps unstructured stdout verbatim.
func Raw(stdout string) ParsedOutput {
	return ParsedOutput{Result: stdout, ToolUses: []ToolUse{}}
}

// lineScan feeds every JSON-object line to decode and collects the rest
// unchanged. decode reports whether the line was a recognized event; lineScan
// reports whether any line was.
func lineScan(stdout string, decode func(line []byte) bool) (plain []string, decoded bool) {
	for _, line := range strings.Split(stdout, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "{") && decode([]byte(trimmed)) {
			decoded = true
			continue
		}
		plain = append(plain, line)
	}
	return plain, decoded
}

// reconstruct is the result text used when no explicit result event was seen.
func reconstruct(plain []string) string {
	return strings.Trim(strings.Join(plain, "\n"), "\n")
}
