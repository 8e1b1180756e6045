package prompt

import (
	"strings"
	"testing"
)

func TestEveryAnalysisTypeHasInstruction(t *testing.T) {
	for _, at := range AnalysisTypes() {
		if analysisInstructions[at] == "" {
			t.Errorf("no instruction for %s", at)
		}
	}
}

func TestParseAnalysisType(t *testing.T) {
	if at, err := ParseAnalysisType(" Security-Audit "); err != nil || at != AnalysisSecurityAudit {
		t.Fatalf("expected security-audit, got %q (%v)", at, err)
	}
	if _, err := ParseAnalysisType("refactor"); err == nil {
		t.Fatal("expected error for unknown analysis type")
	}
}

func TestAnalysisPrependsInstruction(t *testing.T) {
	got := Analysis(AnalysisExplain, "func f() {}")
	if !strings.HasPrefix(got, analysisInstructions[AnalysisExplain]) {
		t.Errorf("instruction not prepended: %q", got)
	}
	if !strings.HasSuffix(got, "\n\nfunc f() {}") {
		t.Errorf("code not appended: %q", got)
	}
}

func TestResearch(t *testing.T) {
	got := Research("how does discovery work?", []string{"a.go", "b.go"})
	for _, want := range []string{researchInstruction, "Question: how does discovery work?", "- a.go", "- b.go"} {
		if !strings.Contains(got, want) {
			t.Errorf("expected %q in %q", want, got)
		}
	}
	if strings.Contains(Research("q", nil), "Focus on") {
		t.Error("file section should be omitted without files")
	}
}
