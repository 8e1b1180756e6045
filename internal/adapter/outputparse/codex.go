package outputparse

import "encoding/json"

// codexEvent covers the thread/item/turn events of `codex exec --json`.
type codexEvent struct {
	Type     string `json:"type"`
	ThreadID string `json:"thread_id"`
	Item     *struct {
		Type    string `json:"type"`
		Text    string `json:"text"`
		Command string `json:"command"`
	} `json:"item"`
	Usage *struct {
		InputTokens  int64 `json:"input_tokens"`
		OutputTokens int64 `json:"output_tokens"`
	} `json:"usage"`
}

func parseCodexJSONL(stdout string) (ParsedOutput, bool) {
	var (
		out       ParsedOutput
		haveFinal bool
	)
	plain, decoded := lineScan(stdout, func(line []byte) bool {
		var ev codexEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			return false
		}
		switch ev.Type {
		case "thread.started":
			out.SessionID = ev.ThreadID
		case "item.completed":
			if ev.Item == nil {
				break
			}
			switch ev.Item.Type {
			case "agent_message":
				// Later messages supersede earlier ones.
				out.Result = ev.Item.Text
				haveFinal = true
			case "command_execution":
				input, _ := json.Marshal(map[string]string{"command": ev.Item.Command})
				out.ToolUses = append(out.ToolUses, ToolUse{Name: "command_execution", Input: input})
			}
		case "turn.completed":
			if ev.Usage != nil {
				out.Usage = &Usage{InputTokens: ev.Usage.InputTokens, OutputTokens: ev.Usage.OutputTokens}
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
