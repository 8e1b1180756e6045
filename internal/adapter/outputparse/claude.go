package outputparse

import "encoding/json"

// claudeEvent covers the system/assistant/result events of the stream-json format.
type claudeEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   *struct {
		Content []claudeBlock `json:"content"`
	} `json:"message"`
	Result *string      `json:"result"`
	Usage  *claudeUsage `json:"usage"`
}

type claudeBlock struct {
	Type  string          `json:"type"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

type claudeUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

func parseClaudeStream(stdout string) (ParsedOutput, bool) {
	var (
		out       ParsedOutput
		haveFinal bool
	)
	plain, decoded := lineScan(stdout, func(line []byte) bool {
		var ev claudeEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return false
		}
		switch ev.Type {
		case "system":
			if ev.SessionID != "" {
				out.SessionID = ev.SessionID
			}
		case "assistant":
			if ev.Message == nil {
				break
			}
			for _, b := range ev.Message.Content {
				if b.Type == "tool_use" {
					out.ToolUses = append(out.ToolUses, ToolUse{Name: b.Name, Input: b.Input})
				}
			}
		case "result":
			if ev.Result != nil {
				out.Result = *ev.Result
				haveFinal = true
			}
			if ev.Usage != nil {
				out.Usage = &Usage{InputTokens: ev.Usage.InputTokens, OutputTokens: ev.Usage.OutputTokens}
			}
			if out.SessionID == "" {
				out.SessionID = ev.SessionID
			}
		default:
			return false
		}
		return true
	})
	if !decoded {
		return ParsedOutput{}, false
	}
	if !haveFinal {
		out.Result = reconstruct(plain)
	}
	out.IsStructured = true
	return out, true
}
