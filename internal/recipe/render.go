// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package recipe

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cookbook/pkg/types"
)

const (
	// DefaultCSSClass is the style tag the cookbook stylesheet targets.
	DefaultCSSClass = "cookbook"
	// DefaultTag is the front matter tag every Recipe Document carries.
	DefaultTag = "recipe"

	unknown = "Unknown"

	// placeholderDescription is emitted by older templates and never rendered.
	placeholderDescription = "[Brief description of the dish]"
)

type renderFrontMatter struct {
	CSSClass string `yaml:"cssclass"`
	Tags     any    `yaml:"tags"`
}

// Render produces the Markdown for r in the cookbook template. Missing
// metadata is written as "Unknown"; empty optional sections are omitted.
func Render(r types.Recipe) (string, error) {
	var b strings.Builder

	fm := renderFrontMatter{CSSClass: orDefault(r.CSSClass, DefaultCSSClass), Tags: DefaultTag}
	switch len(r.Tags) {
	case 0:
	case 1:
		fm.Tags = r.Tags[0]
	default:
		fm.Tags = r.Tags
	}
	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("marshaling front matter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(head)
	b.WriteString("---\n")

	fmt.Fprintf(&b, "# %s\n\n", orDefault(r.Title, "Untitled Recipe"))

	b.WriteString("<div class=\"recipe-origin\">\n")
	fmt.Fprintf(&b, "<strong>Origin:</strong> %s\n", orDefault(r.Origin, unknown))
	b.WriteString("</div>\n\n")

	b.WriteString("<div class=\"recipe-meta\">\n")
	for _, f := range []struct{ label, value string }{
		{LabelServes, r.Serves},
		{LabelPrepTime, r.PrepTime},
		{LabelCookTime, r.CookTime},
		{LabelTotalTime, r.TotalTime},
	} {
		fmt.Fprintf(&b, "<span><strong>%s:</strong> %s</span>\n", f.label, orDefault(f.value, unknown))
	}
	b.WriteString("</div>\n\n")

	if d := strings.TrimSpace(r.Description); d != "" && d != placeholderDescription {
		b.WriteString(d)
		b.WriteString("\n\n")
	}

	b.WriteString("## Ingredients\n\n")
	first := true
	for _, g := range r.IngredientGroups {
		if len(g.Items) == 0 {
			continue
		}
		if !first {
			b.WriteString("\n")
		}
		first = false
		if g.Label != "" {
			fmt.Fprintf(&b, "**%s**\n", g.Label)
		}
		for _, item := range g.Items {
			fmt.Fprintf(&b, "- %s\n", item)
		}
	}

	b.WriteString("\n## Instructions\n\n")
	n := 0
	for _, step := range r.Instructions {
		step = strings.TrimSpace(step)
		if step == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n\n", n, BoldLeadIn(step))
	}

	if notes := orderedNotes(r.Notes); len(notes) > 0 {
		b.WriteString("<div class=\"notes-section\">\n\n## Notes & Variations\n\n")
		for _, note := range notes {
			fmt.Fprintf(&b, "- **%s:** %s\n", note.Label, note.Text)
		}
		b.WriteString("\n</div>\n\n")
	}

	if c := strings.TrimSpace(r.ChefsNote); c != "" {
		fmt.Fprintf(&b, "> **Chef's Note:** %s\n", c)
	}

	return strings.TrimRight(b.String(), "\n") + "\n", nil
}

// WriteFile renders r and writes it to path.
func WriteFile(path string, r types.Recipe) error {
	content, err := Render(r)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing recipe %s: %w", path, err)
	}
	return nil
}

// BoldLeadIn opens a step with a bold short imperative. Steps that already
// start bold are returned unchanged; otherwise the text up to the first
// period is bolded.
func BoldLeadIn(step string) string {
	step = strings.TrimSpace(step)
	if step == "" || strings.HasPrefix(step, "**") {
		return step
	}
	head, rest, found := strings.Cut(step, ".")
	if !found {
		return "**" + step + "**"
	}
	head, rest = strings.TrimSpace(head), strings.TrimSpace(rest)
	if head == "" {
		return step
	}
	if rest == "" {
		return "**" + head + ".**"
	}
	return "**" + head + ".** " + rest
}

// orderedNotes returns non-empty notes with the fixed labels first, in
// template order, followed by any other labels as written.
func orderedNotes(notes []types.Note) []types.Note {
	var out []types.Note
	for _, label := range types.NoteLabels {
		for _, n := range notes {
			if n.Label == label && strings.TrimSpace(n.Text) != "" {
				out = append(out, types.Note{Label: label, Text: strings.TrimSpace(n.Text)})
			}
		}
	}
	for _, n := range notes {
		if !n.Label.IsKnown() && strings.TrimSpace(n.Text) != "" {
			out = append(out, types.Note{Label: n.Label, Text: strings.TrimSpace(n.Text)})
		}
	}
	return out
}

var unsafeFileChars = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// FileName derives the Markdown file name for a recipe title: punctuation
// is dropped and spaces become underscores ("Spicy Glazed Meatballs" ->
// "Spicy_Glazed_Meatballs.md").
func FileName(title string) string {
	safe := strings.TrimSpace(unsafeFileChars.ReplaceAllString(title, ""))
	safe = strings.Join(strings.Fields(safe), "_")
	if safe == "" {
		safe = "recipe"
	}
	return safe + ".md"
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}
