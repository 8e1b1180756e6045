package preset

import (
	"errors"
	"slices"
	"strings"
	"testing"
)

func isStrictSubset(a, b []string) bool {
	if len(a) >= len(b) {
		return false
	}
	for _, n := range a {
		if !slices.Contains(b, n) {
			return false
		}
	}
	return true
}

func TestToolCounts(t *testing.T) {
	tests := []struct {
		preset Preset
		want   int
	}{
		{Minimal, 1},
		{Agent, 6},
		{Research, 8},
		{Full, 9},
	}
	for _, tt := range tests {
		if got := len(tt.preset.ToolNames()); got != tt.want {
			t.Errorf("%s: expected %d tools, got %d", tt.preset, tt.want, got)
		}
	}
}

func TestPresetsAreCumulative(t *testing.T) {
	all := All()
	for i := 1; i < len(all); i++ {
		lo, hi := all[i-1].ToolNames(), all[i].ToolNames()
		if !isStrictSubset(lo, hi) {
			t.Errorf("%s is not a strict subset of %s", all[i-1], all[i])
		}
	}
}

func TestToolNamesReturnsCopy(t *testing.T) {
	names := Full.ToolNames()
	names[0] = "mutated"
	if Full.ToolNames()[0] != ToolPrompt {
		t.Fatal("ToolNames must not expose internal state")
	}
}

func TestCheck(t *testing.T) {
	if err := Agent.Check(ToolRun); err != nil {
		t.Fatalf("run should be allowed under agent: %v", err)
	}
	err := Agent.Check(ToolClink)
	if !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}
	if !strings.Contains(err.Error(), "clink") || !strings.Contains(err.Error(), "agent") {
		t.Errorf("error should name tool and preset: %v", err)
	}
	if Minimal.Allows(ToolWait) {
		t.Error("wait must not be allowed under minimal")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Preset
		wantErr bool
	}{
		{"full", Full, false},
		{" Research ", Research, false},
		{"MINIMAL", Minimal, false},
		{"admin", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := Parse(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("Parse(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("Parse(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
