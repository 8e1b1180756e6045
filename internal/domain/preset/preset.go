// Package preset defines the cumulative tool visibility presets.
package preset

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Preset selects which tools are advertised and callable.
type Preset string

const (
	Minimal  Preset = "minimal"
	Agent    Preset = "agent"
	Research Preset = "research"
	Full     Preset = "full"
)

// Tool names exposed by the bridge.
const (
	ToolPrompt      = "prompt"
	ToolRun         = "run"
	ToolWait        = "wait"
	ToolGetResult   = "get_result"
	ToolKillTask    = "kill_task"
	ToolListTasks   = "list_tasks"
	ToolResearch    = "research"
	ToolAnalyzeCode = "analyze_code"
	ToolClink       = "clink"
)

// ErrNotPermitted is returned when a tool exists but is outside the active preset.
var ErrNotPermitted = errors.New("not permitted under current preset")

// ErrUnknownPreset is returned by Parse for unrecognized names.
var ErrUnknownPreset = errors.New("unknown preset")

var (
	minimalTools  = []string{ToolPrompt}
	agentTools    = append(slices.Clone(minimalTools), ToolRun, ToolWait, ToolGetResult, ToolKillTask, ToolListTasks)
	researchTools = append(slices.Clone(agentTools), ToolResearch, ToolAnalyzeCode)
	fullTools     = append(slices.Clone(researchTools), ToolClink)
)

// All returns every preset from smallest to largest.
func All() []Preset {
	return []Preset{Minimal, Agent, Research, Full}
}

// Parse converts a config string into a Preset.
func Parse(s string) (Preset, error) {
	p := Preset(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(All(), p) {
		return p, nil
	}
	return "", fmt.Errorf("%w: %q (want one of minimal, agent, research, full)", ErrUnknownPreset, s)
}

// ToolNames returns the tools in this preset, in registration order.
func (p Preset) ToolNames() []string {
	switch p {
	case Minimal:
		return slices.Clone(minimalTools)
	case Agent:
		return slices.Clone(agentTools)
	case Research:
		return slices.Clone(researchTools)
	case Full:
		return slices.Clone(fullTools)
	default:
		return nil
	}
}

// Allows reports whether tool is callable under p.
func (p Preset) Allows(tool string) bool {
	return slices.Contains(p.ToolNames(), tool)
}

// Check returns ErrNotPermitted (wrapped with context) when tool is outside p.
func (p Preset) Check(tool string) error {
	if p.Allows(tool) {
		return nil
	}
	return fmt.Errorf("tool %q is %w %q", tool, ErrNotPermitted, p)
}
