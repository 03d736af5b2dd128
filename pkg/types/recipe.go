// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "strings"

// NoteLabel names one of the fixed sub-labels of the Notes & Variations section.
type NoteLabel string

const (
	NoteMakeAhead     NoteLabel = "Make-Ahead"
	NoteSubstitutions NoteLabel = "Substitutions"
	NoteStorage       NoteLabel = "Storage"
	NoteTips          NoteLabel = "Tips"
	NoteScaling       NoteLabel = "Scaling"
	NoteFamilyNotes   NoteLabel = "Family Notes"
)

// NoteLabels lists the fixed note labels in the order the template renders them.
var NoteLabels = []NoteLabel{
	NoteMakeAhead,
	NoteSubstitutions,
	NoteStorage,
	NoteTips,
	NoteScaling,
	NoteFamilyNotes,
}

// IsKnown reports whether l is one of the fixed template labels.
func (l NoteLabel) IsKnown() bool {
	for _, k := range NoteLabels {
		if k == l {
			return true
		}
	}
	return false
}

// IngredientGroup is a named partition of a recipe's ingredient list.
// Ungrouped recipes carry a single group with an empty Label.
type IngredientGroup struct {
	Label string   `json:"label,omitempty" yaml:"label,omitempty"`
	Items []string `json:"items" yaml:"items"`
}

// Note is one labeled entry of the Notes & Variations section.
type Note struct {
	Label NoteLabel `json:"label" yaml:"label"`
	Text  string    `json:"text" yaml:"text"`
}

// Recipe is the content of a single Recipe Document. Fields are informal
// text as written by the author; nothing here is unit-validated.
type Recipe struct {
	// Title is the human-readable dish name from the single "# " heading.
	Title string `json:"title" yaml:"title"`

	// Origin is the free-text provenance or story.
	Origin string `json:"origin,omitempty" yaml:"origin,omitempty"`

	// Description is the optional paragraph between the metadata and ingredients.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	Serves    string `json:"serves,omitempty" yaml:"serves,omitempty"`
	PrepTime  string `json:"prep_time,omitempty" yaml:"prep_time,omitempty"`
	CookTime  string `json:"cook_time,omitempty" yaml:"cook_time,omitempty"`
	TotalTime string `json:"total_time,omitempty" yaml:"total_time,omitempty"`

	IngredientGroups []IngredientGroup `json:"ingredient_groups" yaml:"ingredient_groups"`

	// Instructions holds each numbered step verbatim, including any bold lead-in.
	Instructions []string `json:"instructions" yaml:"instructions"`

	Notes []Note `json:"notes,omitempty" yaml:"notes,omitempty"`

	// ChefsNote is the optional closing remark.
	ChefsNote string `json:"chefs_note,omitempty" yaml:"chefs_note,omitempty"`

	// CSSClass is the style classification tag an external stylesheet targets.
	CSSClass string   `json:"cssclass,omitempty" yaml:"cssclass,omitempty"`
	Tags     []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Ingredients returns every ingredient line across all groups, in order.
func (r Recipe) Ingredients() []string {
	var out []string
	for _, g := range r.IngredientGroups {
		out = append(out, g.Items...)
	}
	return out
}

// Grouped reports whether the recipe uses named ingredient groups.
func (r Recipe) Grouped() bool {
	for _, g := range r.IngredientGroups {
		if g.Label != "" {
			return true
		}
	}
	return false
}

// Complete reports whether the recipe has a title, at least one ingredient,
// and at least one instruction step.
func (r Recipe) Complete() bool {
	return strings.TrimSpace(r.Title) != "" && len(r.Ingredients()) > 0 && len(r.Instructions) > 0
}

// Note returns the text for label, or "" when the recipe has no such note.
func (r Recipe) Note(label NoteLabel) string {
	for _, n := range r.Notes {
		if n.Label == label {
			return n.Text
		}
	}
	return ""
}
