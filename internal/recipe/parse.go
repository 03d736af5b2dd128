// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package recipe reads, writes, and checks Recipe Documents: Markdown files
// that follow the cookbook template (front matter style tag, one title
// heading, origin and timing metadata, grouped ingredients, numbered
// instructions, optional notes and chef's note).
package recipe

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/cookbook/pkg/types"
)

// Meta field labels in the order the template requires them.
const (
	LabelServes    = "Serves"
	LabelPrepTime  = "Prep Time"
	LabelCookTime  = "Cook Time"
	LabelTotalTime = "Total Time"
)

var metaLabels = []string{LabelServes, LabelPrepTime, LabelCookTime, LabelTotalTime}

var (
	// <strong>Label:</strong> value, up to a closing tag or end of line.
	strongFieldRe = regexp.MustCompile(`<strong>\s*([^<:]+?)\s*:\s*</strong>\s*([^<\n]*)`)
	// **Label:** text
	boldLabelRe = regexp.MustCompile(`^\*\*\s*([^*:]+?)\s*:\s*\*\*\s*(.*)$`)
	// A line made of a single bold run: **Meatballs**
	boldOnlyRe = regexp.MustCompile(`^\*\*\s*([^*]+?)\s*:?\s*\*\*$`)
	// Leading ordered-list marker of a source line.
	orderedMarkerRe = regexp.MustCompile(`^\s*(\d{1,9})[.)]`)
)

// Document is a parsed Recipe Document along with the structural facts the
// template contract is checked against.
type Document struct {
	Path   string
	Source []byte
	Recipe types.Recipe

	// HasFrontMatter reports whether a front matter block was present.
	HasFrontMatter bool

	titleLines []int
	metaOrder  []string
	metaLine   int

	ingredientsHeading  bool
	instructionsHeading bool
	unorderedSteps      int

	stepMarkers []int
	stepLines   []int

	groupLines   []int
	unknownNotes []types.Note
	notesLine    int
}

type frontMatter struct {
	CSSClass   string `yaml:"cssclass"`
	CSSClasses any    `yaml:"cssclasses"`
	Tags       any    `yaml:"tags"`
}

// ParseFile reads and parses the Recipe Document at path. The file is never
// modified.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading recipe %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing recipe %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse extracts a Recipe from Markdown source. Structural deviations from
// the template are recorded on the Document, not returned as errors; see
// Validate. Only malformed front matter is an error.
func Parse(source []byte) (*Document, error) {
	var fm frontMatter
	body, err := frontmatter.Parse(bytes.NewReader(source), &fm)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}

	doc := &Document{Source: source}
	doc.HasFrontMatter = len(body) < len(source)
	doc.Recipe.CSSClass = fm.CSSClass
	if doc.Recipe.CSSClass == "" {
		doc.Recipe.CSSClass = firstString(fm.CSSClasses)
	}
	doc.Recipe.Tags = stringList(fm.Tags)

	// Line numbers reported by the walker are relative to body.
	lineOffset := bytes.Count(source[:len(source)-len(body)], []byte("\n"))

	root := goldmark.New().Parser().Parse(text.NewReader(body))
	w := &walker{doc: doc, src: body, lineOffset: lineOffset}
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		w.block(n)
	}
	w.finish()
	return doc, nil
}

// section names the "## " heading a block falls under.
type section int

const (
	sectionPreamble section = iota
	sectionIngredients
	sectionInstructions
	sectionNotes
	sectionOther
)

type walker struct {
	doc        *Document
	src        []byte
	lineOffset int

	sec          section
	groupLabel   string
	pendingGroup bool
	description  []string
}

func (w *walker) block(n ast.Node) {
	switch node := n.(type) {
	case *ast.Heading:
		w.heading(node)
	case *ast.HTMLBlock:
		w.html(node)
	case *ast.Paragraph:
		w.paragraph(node)
	case *ast.List:
		w.list(node)
	case *ast.Blockquote:
		w.blockquote(node)
	}
}

func (w *walker) heading(h *ast.Heading) {
	title := inlineText(h, w.src)
	switch h.Level {
	case 1:
		w.doc.titleLines = append(w.doc.titleLines, w.line(h))
		if w.doc.Recipe.Title == "" {
			w.doc.Recipe.Title = title
		}
	case 2:
		switch normalizeHeading(title) {
		case "ingredients":
			w.sec = sectionIngredients
			w.doc.ingredientsHeading = true
			w.groupLabel = ""
		case "instructions", "directions", "method":
			w.sec = sectionInstructions
			w.doc.instructionsHeading = true
		case "notes & variations", "notes and variations", "notes", "variations":
			w.sec = sectionNotes
			w.doc.notesLine = w.line(h)
		default:
			w.sec = sectionOther
		}
	default:
		if w.sec == sectionIngredients {
			w.startGroup(strings.TrimSuffix(title, ":"), w.line(h))
		}
	}
}

func (w *walker) html(b *ast.HTMLBlock) {
	raw := rawLines(b, w.src, "\n")
	if b.HasClosure() {
		raw += "\n" + string(b.ClosureLine.Value(w.src))
	}
	switch {
	case strings.Contains(raw, "recipe-origin"):
		for _, m := range strongFieldRe.FindAllStringSubmatch(raw, -1) {
			if strings.EqualFold(m[1], "Origin") {
				w.doc.Recipe.Origin = strings.TrimSpace(m[2])
			}
		}
	case strings.Contains(raw, "recipe-meta"):
		w.doc.metaLine = w.line(b)
		for _, m := range strongFieldRe.FindAllStringSubmatch(raw, -1) {
			label, value := canonicalMetaLabel(m[1]), strings.TrimSpace(m[2])
			w.doc.metaOrder = append(w.doc.metaOrder, label)
			switch label {
			case LabelServes:
				w.doc.Recipe.Serves = value
			case LabelPrepTime:
				w.doc.Recipe.PrepTime = value
			case LabelCookTime:
				w.doc.Recipe.CookTime = value
			case LabelTotalTime:
				w.doc.Recipe.TotalTime = value
			}
		}
	}
}

func (w *walker) paragraph(p *ast.Paragraph) {
	raw := strings.TrimSpace(rawLines(p, w.src, "\n"))
	switch w.sec {
	case sectionPreamble:
		if w.doc.Recipe.Title != "" && raw != "" {
			w.description = append(w.description, raw)
		}
	case sectionIngredients:
		if m := boldOnlyRe.FindStringSubmatch(raw); m != nil {
			w.startGroup(m[1], w.line(p))
			return
		}
		if label, ok := strings.CutPrefix(raw, "For the "); ok && strings.HasSuffix(label, ":") {
			w.startGroup(strings.TrimSuffix(label, ":"), w.line(p))
		}
	}
}

func (w *walker) startGroup(label string, line int) {
	w.groupLabel = strings.TrimSpace(label)
	w.pendingGroup = true
	w.doc.Recipe.IngredientGroups = append(w.doc.Recipe.IngredientGroups, types.IngredientGroup{Label: w.groupLabel})
	w.doc.groupLines = append(w.doc.groupLines, line)
}

func (w *walker) list(l *ast.List) {
	switch w.sec {
	case sectionIngredients:
		if !w.pendingGroup {
			// Items before any label, or a second list under the same label.
			groups := w.doc.Recipe.IngredientGroups
			if len(groups) == 0 || groups[len(groups)-1].Label != w.groupLabel {
				w.doc.Recipe.IngredientGroups = append(groups, types.IngredientGroup{Label: w.groupLabel})
				w.doc.groupLines = append(w.doc.groupLines, w.line(l))
			}
		}
		w.pendingGroup = false
		g := &w.doc.Recipe.IngredientGroups[len(w.doc.Recipe.IngredientGroups)-1]
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			if s := itemText(item, w.src); s != "" {
				g.Items = append(g.Items, s)
			}
		}
	case sectionInstructions:
		if !l.IsOrdered() {
			w.doc.unorderedSteps += l.ChildCount()
		}
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			w.doc.Recipe.Instructions = append(w.doc.Recipe.Instructions, itemText(item, w.src))
			line := w.line(item)
			w.doc.stepLines = append(w.doc.stepLines, line)
			w.doc.stepMarkers = append(w.doc.stepMarkers, w.marker(line))
		}
	case sectionNotes:
		for item := l.FirstChild(); item != nil; item = item.NextSibling() {
			raw := itemText(item, w.src)
			note := types.Note{Label: types.NoteTips, Text: raw}
			if m := boldLabelRe.FindStringSubmatch(raw); m != nil {
				note = types.Note{Label: types.NoteLabel(m[1]), Text: strings.TrimSpace(m[2])}
			}
			if !note.Label.IsKnown() {
				w.doc.unknownNotes = append(w.doc.unknownNotes, note)
			}
			w.doc.Recipe.Notes = append(w.doc.Recipe.Notes, note)
		}
	}
}

func (w *walker) blockquote(q *ast.Blockquote) {
	var parts []string
	for c := q.FirstChild(); c != nil; c = c.NextSibling() {
		if s := strings.TrimSpace(rawLines(c, w.src, " ")); s != "" {
			parts = append(parts, s)
		}
	}
	raw := strings.Join(parts, " ")
	raw = strings.ReplaceAll(raw, "’", "'")
	if rest, ok := strings.CutPrefix(raw, "**Chef's Note:**"); ok {
		w.doc.Recipe.ChefsNote = strings.TrimSpace(rest)
	}
}

func (w *walker) finish() {
	if len(w.description) > 0 {
		w.doc.Recipe.Description = strings.Join(w.description, "\n\n")
	}
}

// line returns the 1-based line in the original source where n starts.
func (w *walker) line(n ast.Node) int {
	off := startOffset(n)
	if off < 0 {
		return 0
	}
	return bytes.Count(w.src[:off], []byte("\n")) + 1 + w.lineOffset
}

// marker returns the number written in front of the ordered list item that
// starts on line, or 0 when there is none.
func (w *walker) marker(line int) int {
	rel := line - w.lineOffset - 1
	lines := bytes.Split(w.src, []byte("\n"))
	if rel < 0 || rel >= len(lines) {
		return 0
	}
	m := orderedMarkerRe.FindSubmatch(lines[rel])
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(string(m[1]))
	return n
}

// startOffset finds the first source byte belonging to n or its descendants.
func startOffset(n ast.Node) int {
	if n.Type() == ast.TypeBlock {
		if lines := n.Lines(); lines != nil && lines.Len() > 0 {
			return lines.At(0).Start
		}
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if off := startOffset(c); off >= 0 {
			return off
		}
	}
	return -1
}

// rawLines joins the raw source lines of a block node, trimming each line.
func rawLines(n ast.Node, src []byte, sep string) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
	}
	return strings.Join(parts, sep)
}

// itemText returns a list item's Markdown source with inline markup kept,
// lines joined by a space and nested blocks appended in order.
func itemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if l, ok := c.(*ast.List); ok {
			for sub := l.FirstChild(); sub != nil; sub = sub.NextSibling() {
				if s := itemText(sub, src); s != "" {
					parts = append(parts, s)
				}
			}
			continue
		}
		if s := strings.TrimSpace(rawLines(c, src, " ")); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

// inlineText flattens the plain text of an inline container such as a heading.
func inlineText(n ast.Node, src []byte) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			switch t := c.(type) {
			case *ast.Text:
				b.Write(t.Segment.Value(src))
				if t.SoftLineBreak() || t.HardLineBreak() {
					b.WriteByte(' ')
				}
			case *ast.String:
				b.Write(t.Value)
			default:
				walk(c)
			}
		}
	}
	walk(n)
	return strings.TrimSpace(b.String())
}

func normalizeHeading(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

func canonicalMetaLabel(label string) string {
	switch normalizeHeading(label) {
	case "serves", "servings", "yield":
		return LabelServes
	case "prep time", "prep":
		return LabelPrepTime
	case "cook time", "cook":
		return LabelCookTime
	case "total time", "total":
		return LabelTotalTime
	}
	return strings.TrimSpace(label)
}

func firstString(v any) string {
	list := stringList(v)
	if len(list) == 0 {
		return ""
	}
	return list[0]
}

// stringList accepts a YAML scalar or sequence and returns its strings.
func stringList(v any) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{strings.TrimSpace(t)}
	case []any:
		var out []string
		for _, e := range t {
			if s, ok := e.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}
