// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// Severity grades a Finding.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Finding is one template-conformance problem reported for a document.
type Finding struct {
	// Rule is a short kebab-case identifier, e.g. "title-count".
	Rule     string   `json:"rule" yaml:"rule"`
	Severity Severity `json:"severity" yaml:"severity"`
	Message  string   `json:"message" yaml:"message"`

	// Line is the 1-based source line, or 0 when not attributable.
	Line int `json:"line,omitempty" yaml:"line,omitempty"`
}

func (f Finding) String() string {
	if f.Line > 0 {
		return fmt.Sprintf("%s: line %d: %s (%s)", f.Severity, f.Line, f.Message, f.Rule)
	}
	return fmt.Sprintf("%s: %s (%s)", f.Severity, f.Message, f.Rule)
}

// HasErrors reports whether any finding has error severity.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}
