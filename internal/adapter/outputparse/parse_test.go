package outputparse_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/Strob0t/agentbridge/internal/adapter/outputparse"
	"github.com/Strob0t/agentbridge/internal/domain/backend"
)

func allFormats() []backend.Format {
	return []backend.Format{
		backend.FormatText,
		backend.FormatClaudeStream,
		backend.FormatCodexJSONL,
		backend.FormatGeminiJSON,
	}
}

func TestClaudeStream(t *testing.T) {
	stdout := `{"type":"system","session_id":"s1"}
{"type":"assistant","message":{"content":[{"type":"tool_use","name":"Read","input":{"path":"/x"}}]}}
{"type":"result","result":"done","usage":{"input_tokens":10,"output_tokens":2}}`

	got := outputparse.Parse(backend.FormatClaudeStream, stdout)

	if !got.IsStructured {
		t.Fatal("expected structured output")
	}
	if got.Result != "done" {
		t.Errorf("expected result done, got %q", got.Result)
	}
	if got.SessionID != "s1" {
		t.Errorf("expected session s1, got %q", got.SessionID)
	}
	if got.Usage == nil || got.Usage.InputTokens != 10 || got.Usage.OutputTokens != 2 {
		t.Errorf("expected usage (10,2), got %+v", got.Usage)
	}
	if len(got.ToolUses) != 1 || got.ToolUses[0].Name != "Read" {
		t.Fatalf("expected one Read tool use, got %+v", got.ToolUses)
	}
	var input map[string]string
	if err := json.Unmarshal(got.ToolUses[0].Input, &input); err != nil || input["path"] != "/x" {
		t.Errorf("unexpected tool input %s", got.ToolUses[0].Input)
	}
}

func TestClaudeStreamIgnoresNoise(t *testing.T) {
	stdout := "warning: telemetry disabled\n" +
		`{"type":"system","session_id":"s2"}` + "\n" +
		"{not json\n" +
		`{"type":"result","result":"ok"}`

	got := outputparse.Parse(backend.FormatClaudeStream, stdout)
	if got.Result != "ok" || got.SessionID != "s2" || got.Usage != nil {
		t.Fatalf("unexpected parse %+v", got)
	}
}

func TestClaudeStreamReconstructsWithoutResult(t *testing.T) {
	stdout := `{"type":"system","session_id":"s3"}` + "\nfirst line\nsecond line\n"

	got := outputparse.Parse(backend.FormatClaudeStream, stdout)
	if !got.IsStructured {
		t.Fatal("expected structured output")
	}
	if got.Result != "first line\nsecond line" {
		t.Errorf("expected reconstructed text, got %q", got.Result)
	}
	if got.SessionID != "s3" {
		t.Errorf("expected session s3, got %q", got.SessionID)
	}
}

func TestCodexLastMessageWins(t *testing.T) {
	stdout := `{"type":"thread.started","thread_id":"th_1"}
{"type":"item.completed","item":{"id":"i0","type":"agent_message","text":"thinking..."}}
{"type":"item.completed","item":{"id":"i1","type":"command_execution","command":"ls -la"}}
{"type":"item.completed","item":{"id":"i2","type":"agent_message","text":"final answer"}}
{"type":"turn.completed","usage":{"input_tokens":120,"cached_input_tokens":0,"output_tokens":30}}`

	got := outputparse.Parse(backend.FormatCodexJSONL, stdout)

	if got.Result != "final answer" {
		t.Errorf("expected last agent message, got %q", got.Result)
	}
	if got.SessionID != "th_1" {
		t.Errorf("expected thread id th_1, got %q", got.SessionID)
	}
	if got.Usage == nil || got.Usage.InputTokens != 120 || got.Usage.OutputTokens != 30 {
		t.Errorf("expected usage (120,30), got %+v", got.Usage)
	}
	if len(got.ToolUses) != 1 || got.ToolUses[0].Name != "command_execution" {
		t.Errorf("expected one command_execution tool use, got %+v", got.ToolUses)
	}
}

func TestCodexReconstructsWithoutMessage(t *testing.T) {
	stdout := `{"type":"thread.started","thread_id":"th_2"}` + "\nplain output\n"
	got := outputparse.Parse(backend.FormatCodexJSONL, stdout)
	if got.Result != "plain output" || !got.IsStructured {
		t.Fatalf("unexpected parse %+v", got)
	}
}

func TestGeminiCandidateFields(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
		want   string
	}{
		{"response", `{"response":"from response","stats":{}}`, "from response"},
		{"result", `{"result":"from result"}`, "from result"},
		{"text", `{"text":"from text"}`, "from text"},
		{"pretty printed with noise", "Loaded cached credentials.\n{\n  \"response\": \"pretty\"\n}\n", "pretty"},
		{"non-string skipped", `{"response":{"nested":true},"output":"from output"}`, "from output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := outputparse.Parse(backend.FormatGeminiJSON, tt.stdout)
			if !got.IsStructured {
				t.Fatal("expected structured output")
			}
			if got.Result != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got.Result)
			}
			if got.SessionID != "" || got.Usage != nil {
				t.Errorf("gemini must not report session or usage: %+v", got)
			}
		})
	}
}

func TestGeminiReconstructsFromNoise(t *testing.T) {
	got := outputparse.Parse(backend.FormatGeminiJSON, "notice: quota low\n{\"stats\":{}}")
	if got.Result != "notice: quota low" {
		t.Errorf("expected noise text, got %q", got.Result)
	}
}

func TestPlainTextFallsBackVerbatim(t *testing.T) {
	stdout := "Here is the answer.\n  indented line\n"
	for _, f := range allFormats() {
		t.Run(f.String(), func(t *testing.T) {
			got := outputparse.Parse(f, stdout)
			if got.IsStructured {
				t.Fatal("plain text must not be structured")
			}
			if got.Result != stdout {
				t.Errorf("expected verbatim text, got %q", got.Result)
			}
			if got.SessionID != "" || got.Usage != nil || len(got.ToolUses) != 0 {
				t.Errorf("fallback carries metadata: %+v", got)
			}
			if got.ToolUses == nil {
				t.Error("tool uses should be an empty list, not nil")
			}
		})
	}
}

func TestTextFormatNeverStructured(t *testing.T) {
	stdout := `{"type":"result","result":"done"}`
	got := outputparse.Parse(backend.FormatText, stdout)
	if got.IsStructured || got.Result != stdout {
		t.Fatalf("text backends must return raw output, got %+v", got)
	}
}

func TestBraceTextIsNotStructured(t *testing.T) {
	tests := []struct {
		name   string
		stdout string
	}{
		{"inline braces", "Define it as func f() {} and call it.\n"},
		{"object line", "Here is the config:\n{\"a\": 1}\n    indented code\n"},
		{"empty object", "Result:\n{}\n"},
		{"unrelated typed object", "{\"type\":\"note\",\"value\":\"hi\"}\n"},
	}
	for _, tt := range tests {
		for _, f := range allFormats() {
			t.Run(tt.name+"/"+f.String(), func(t *testing.T) {
				got := outputparse.Parse(f, tt.stdout)
				if got.IsStructured {
					t.Fatalf("expected unstructured output, got %+v", got)
				}
				if got.Result != tt.stdout {
					t.Errorf("expected verbatim text, got %q", got.Result)
				}
			})
		}
	}
}

func TestReconstructKeepsIndentation(t *testing.T) {
	stdout := `{"type":"system","session_id":"s4"}` + "\nfunc f() {\n    return\n}\n"
	got := outputparse.Parse(backend.FormatClaudeStream, stdout)
	if !got.IsStructured {
		t.Fatal("expected structured output")
	}
	if got.Result != "func f() {\n    return\n}" {
		t.Errorf("expected indentation preserved, got %q", got.Result)
	}
}

func TestGeminiErrorObjectKeepsMessage(t *testing.T) {
	stdout := `{"error":{"type":"ApiError","message":"quota exceeded","code":429}}`
	got := outputparse.Parse(backend.FormatGeminiJSON, stdout)
	if !got.IsStructured {
		t.Fatal("expected structured output")
	}
	if !strings.Contains(got.Result, "quota exceeded") {
		t.Errorf("error message lost: %q", got.Result)
	}
}
