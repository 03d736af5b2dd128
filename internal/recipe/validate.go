// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recipe

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/pdiddy/cookbook/pkg/types"
)

// Rule identifiers reported in Findings.
const (
	RuleStyleTag      = "style-tag"
	RuleTitleCount    = "title-count"
	RuleMetaOrder     = "meta-order"
	RuleIngredients   = "ingredients"
	RuleGroupLabel    = "group-label"
	RuleGroupEmpty    = "group-empty"
	RuleInstructions  = "instructions"
	RuleStepNumbering = "step-numbering"
	RuleNoteLabel     = "note-label"
)

// check is one template rule evaluated with ozzo-validation.
type check struct {
	rule     string
	severity types.Severity
	line     int
	err      error
}

// Validate checks a parsed document against the Recipe Template Contract.
// A document with no error findings conforms.
func Validate(doc *Document) []types.Finding {
	r := doc.Recipe
	checks := []check{
		{
			rule: RuleStyleTag, severity: types.SeverityError,
			err: validation.Validate(r.CSSClass,
				validation.Required.Error("front matter must declare a cssclass style tag")),
		},
		{
			rule: RuleTitleCount, severity: types.SeverityError, line: firstLine(doc.titleLines),
			err: validation.Validate(len(doc.titleLines), validation.By(exactlyOne)),
		},
		{
			rule: RuleMetaOrder, severity: types.SeverityError, line: doc.metaLine,
			err: validation.Validate(doc.metaOrder, validation.By(metaInOrder)),
		},
		{
			rule: RuleIngredients, severity: types.SeverityError,
			err: validation.Validate(r.Ingredients(),
				validation.Required.Error("at least one ingredient is required")),
		},
		{
			rule: RuleInstructions, severity: types.SeverityError,
			err: validation.Validate(r.Instructions,
				validation.Required.Error("at least one instruction step is required")),
		},
	}

	if doc.unorderedSteps > 0 {
		checks = append(checks, check{
			rule: RuleStepNumbering, severity: types.SeverityError, line: firstLine(doc.stepLines),
			err: fmt.Errorf("instructions must be a numbered list, found %d bulleted item(s)", doc.unorderedSteps),
		})
	} else {
		for i, got := range doc.stepMarkers {
			if err := validation.Validate(got, validation.In(i+1).Error(
				fmt.Sprintf("step %d is numbered %d, want %d", i+1, got, i+1))); err != nil {
				checks = append(checks, check{rule: RuleStepNumbering, severity: types.SeverityError, line: doc.stepLines[i], err: err})
			}
		}
	}

	if r.Grouped() {
		for i, g := range r.IngredientGroups {
			line := 0
			if i < len(doc.groupLines) {
				line = doc.groupLines[i]
			}
			checks = append(checks,
				check{
					rule: RuleGroupLabel, severity: types.SeverityError, line: line,
					err: validation.Validate(g.Label,
						validation.Required.Error(fmt.Sprintf("ingredient group %d has no label", i+1))),
				},
				check{
					rule: RuleGroupEmpty, severity: types.SeverityError, line: line,
					err: validation.Validate(g.Items,
						validation.Required.Error(fmt.Sprintf("ingredient group %q has no ingredients", g.Label))),
				},
			)
		}
	}

	for _, n := range doc.unknownNotes {
		checks = append(checks, check{
			rule: RuleNoteLabel, severity: types.SeverityWarning, line: doc.notesLine,
			err: fmt.Errorf("note label %q is not one of %s", n.Label, joinLabels()),
		})
	}

	var findings []types.Finding
	for _, c := range checks {
		if c.err == nil {
			continue
		}
		findings = append(findings, types.Finding{
			Rule:     c.rule,
			Severity: c.severity,
			Message:  c.err.Error(),
			Line:     c.line,
		})
	}
	return findings
}

// ValidateRecipe checks a Recipe that did not come from a parsed document,
// such as one assembled from extracted data before rendering.
func ValidateRecipe(r types.Recipe) error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required),
		validation.Field(&r.Instructions, validation.Required),
		validation.Field(&r.IngredientGroups, validation.Required, validation.By(func(any) error {
			if len(r.Ingredients()) == 0 {
				return errors.New("at least one ingredient is required")
			}
			return nil
		})),
	)
	if err != nil {
		return fmt.Errorf("incomplete recipe: %w", err)
	}
	return nil
}

func exactlyOne(value any) error {
	n, _ := value.(int)
	if n != 1 {
		return fmt.Errorf("exactly one title heading required, found %d", n)
	}
	return nil
}

// metaInOrder accepts any subset of the meta labels as long as those present
// keep the order serves, prep, cook, total and none repeats.
func metaInOrder(value any) error {
	order, _ := value.([]string)
	pos := -1
	for _, label := range order {
		idx := indexOf(metaLabels, label)
		if idx < 0 {
			return fmt.Errorf("unknown metadata field %q", label)
		}
		if idx <= pos {
			return fmt.Errorf("metadata fields must appear in order %s", strings.Join(metaLabels, ", "))
		}
		pos = idx
	}
	return nil
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

func firstLine(lines []int) int {
	if len(lines) == 0 {
		return 0
	}
	return lines[0]
}

func joinLabels() string {
	parts := make([]string, len(types.NoteLabels))
	for i, l := range types.NoteLabels {
		parts[i] = string(l)
	}
	return strings.Join(parts, ", ")
}
