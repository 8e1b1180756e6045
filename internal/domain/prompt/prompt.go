// Package prompt holds the fixed instruction templates prepended by the
// research and analyze_code tools.
package prompt

import (
	"fmt"
	"slices"
	"strings"
)

// AnalysisType selects an analyze_code instruction template.
type AnalysisType string

const (
	AnalysisReview        AnalysisType = "review"
	AnalysisExplain       AnalysisType = "explain"
	AnalysisOptimize      AnalysisType = "optimize"
	AnalysisSecurityAudit AnalysisType = "security-audit"
	AnalysisWriteTests    AnalysisType = "write-tests"
)

// AnalysisTypes returns the supported analysis types in display order.
func AnalysisTypes() []AnalysisType {
	return []AnalysisType{AnalysisReview, AnalysisExplain, AnalysisOptimize, AnalysisSecurityAudit, AnalysisWriteTests}
}

var analysisInstructions = map[AnalysisType]string{
	AnalysisReview: "Review the following code for correctness, readability, and maintainability. " +
		"Point out bugs and risky patterns, and suggest concrete improvements.",
	AnalysisExplain: "Explain what the following code does. Describe its structure, control flow, " +
		"and any non-obvious behavior.",
	AnalysisOptimize: "Identify performance problems in the following code and propose optimizations. " +
		"Explain the expected impact of each change.",
	AnalysisSecurityAudit: "Audit the following code for security vulnerabilities such as injection, " +
		"unsafe input handling, secrets exposure, and broken access control. Rate each finding by severity " +
		"and recommend mitigations.",
	AnalysisWriteTests: "Write thorough tests for the following code. Cover normal behavior, edge cases, " +
		"and failure modes using the project's existing test conventions.",
}

const researchInstruction = "Research the following question thoroughly. Gather the relevant facts, " +
	"cite the files or sources you relied on, and finish with a concise summary of your findings."

// ParseAnalysisType validates s against the supported analysis types.
func ParseAnalysisType(s string) (AnalysisType, error) {
	at := AnalysisType(strings.ToLower(strings.TrimSpace(s)))
	if slices.Contains(AnalysisTypes(), at) {
		return at, nil
	}
	return "", fmt.Errorf("unknown analysis_type %q", s)
}

// Analysis builds the analyze_code prompt for codeOrPath.
func Analysis(at AnalysisType, codeOrPath string) string {
	return analysisInstructions[at] + "\n\n" + codeOrPath
}

// Research builds the research prompt, listing any files to focus on.
func Research(query string, files []string) string {
	var b strings.Builder
	b.WriteString(researchInstruction)
	b.WriteString("\n\nQuestion: ")
	b.WriteString(query)
	if len(files) > 0 {
		b.WriteString("\n\nFocus on these files:")
		for _, f := range files {
			b.WriteString("\n- ")
			b.WriteString(f)
		}
	}
	return b.String()
}
