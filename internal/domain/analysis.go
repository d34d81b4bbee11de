package domain

// CodeAnalysis is the structured result of an LLM code review pass
type CodeAnalysis struct {
	Summary     string          `json:"summary"`
	Issues      []AnalysisIssue `json:"issues"`
	Suggestions []string        `json:"suggestions"`
}

// AnalysisIssue points at a specific problem in the reviewed code
type AnalysisIssue struct {
	Path     string `json:"path"`
	Line     int    `json:"line,omitempty"`
	Severity string `json:"severity"` // info, warning, error
	Message  string `json:"message"`
}

// HasErrors reports whether any issue is error severity
func (a *CodeAnalysis) HasErrors() bool {
	for _, issue := range a.Issues {
		if issue.Severity == "error" {
			return true
		}
	}
	return false
}
