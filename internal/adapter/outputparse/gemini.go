package outputparse

import (
	"encoding/json"
	"slices"
	"strings"
)

// geminiResultFields are checked in order; the first string value wins.
var geminiResultFields = []string{"response", "result", "text", "output", "content"}

// geminiKeys mark an object as gemini output even without a result field.
var geminiKeys = []string{"stats", "error"}

// parseGeminiJSON reads a single JSON object, which may be pretty-printed and
// surrounded by diagnostic noise.
func parseGeminiJSON(stdout string) (ParsedOutput, bool) {
	start := strings.Index(stdout, "{")
	end := strings.LastIndex(stdout, "}")
	if start < 0 || end < start {
		return ParsedOutput{}, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(stdout[start:end+1]), &obj); err != nil {
		return ParsedOutput{}, false
	}

	out := ParsedOutput{IsStructured: true}
	for _, key := range geminiResultFields {
		raw, ok := obj[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			out.Result = s
			return out, true
		}
	}

	known := slices.ContainsFunc(geminiKeys, func(k string) bool {
		_, ok := obj[k]
		return ok
	})
	if !known {
		return ParsedOutput{}, false
	}

	noise := strings.TrimSpace(stdout[:start]) + "\n" + strings.TrimSpace(stdout[end+1:])
	out.Result = strings.TrimSpace(noise)
	if out.Result == "" {
		// Error objects carry their message only in the JSON itself.
		out.Result = stdout
	}
	return out, true
}
