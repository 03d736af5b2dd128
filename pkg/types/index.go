// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// IndexEntry is one linked recipe listed in the table of contents.
type IndexEntry struct {
	// Name is the display text of the link.
	Name string `json:"name" yaml:"name"`

	// Link is the link target, either a relative path or a wikilink name.
	Link string `json:"link" yaml:"link"`

	// Wiki marks an [[wikilink]] entry.
	Wiki bool `json:"wiki,omitempty" yaml:"wiki,omitempty"`
}

// IndexSection is a named heading of the table of contents and its entries.
type IndexSection struct {
	Heading string       `json:"heading" yaml:"heading"`
	Entries []IndexEntry `json:"entries" yaml:"entries"`
}

// CookbookIndex is the aggregating front-matter and table-of-contents document.
// Links are not checked for referential integrity when parsed.
type CookbookIndex struct {
	Title        string         `json:"title" yaml:"title"`
	Introduction string         `json:"introduction,omitempty" yaml:"introduction,omitempty"`
	Sections     []IndexSection `json:"sections" yaml:"sections"`
	UsageNotes   []string       `json:"usage_notes,omitempty" yaml:"usage_notes,omitempty"`
	Quotes       []string       `json:"quotes,omitempty" yaml:"quotes,omitempty"`
	Contributors []string       `json:"contributors,omitempty" yaml:"contributors,omitempty"`
}

// Entries returns every table-of-contents entry across all sections.
func (c CookbookIndex) Entries() []IndexEntry {
	var out []IndexEntry
	for _, s := range c.Sections {
		out = append(out, s.Entries...)
	}
	return out
}
