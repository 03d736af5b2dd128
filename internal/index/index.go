// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package index reads and maintains the Cookbook Index Document: the
// front-matter page carrying the introduction, table of contents, usage
// notes, quotes, and contributor list.
package index

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/adrg/frontmatter"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/pdiddy/cookbook/pkg/types"
)

const tocHeading = "table of contents"

// DefaultSection receives recipes added by Sync when no section is named.
const DefaultSection = "Uncategorized"

var (
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)(?:\s+"[^"]*")?\)`)
	wikiLinkRe = regexp.MustCompile(`\[\[([^\]|#]+)(?:#[^\]|]*)?(?:\|([^\]]+))?\]\]`)
)

// Document is a parsed Cookbook Index Document.
type Document struct {
	Path   string
	Source []byte
	Index  types.CookbookIndex

	// tocStart and tocEnd bound the table-of-contents body in Source as byte
	// offsets: from the line after the heading up to the next "## " heading.
	tocStart, tocEnd int
}

// ParseFile reads and parses the index document at path.
func ParseFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index %s: %w", path, err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing index %s: %w", path, err)
	}
	doc.Path = path
	return doc, nil
}

// Parse extracts the index structure from Markdown source.
func Parse(source []byte) (*Document, error) {
	var fm map[string]any
	body, err := frontmatter.Parse(bytes.NewReader(source), &fm)
	if err != nil {
		return nil, fmt.Errorf("parse frontmatter: %w", err)
	}
	bodyStart := len(source) - len(body)

	doc := &Document{Source: source, tocStart: -1, tocEnd: -1}
	root := goldmark.New().Parser().Parse(text.NewReader(body))

	var (
		current string
		section *types.IndexSection
		intro   []string
	)
	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			title := headingText(node, body)
			switch node.Level {
			case 1:
				if doc.Index.Title == "" {
					doc.Index.Title = title
				}
			case 2:
				if current == tocHeading && doc.tocEnd < 0 {
					doc.tocEnd = bodyStart + lineStart(body, blockStart(node))
				}
				current = strings.ToLower(title)
				section = nil
				if current == tocHeading {
					doc.tocStart = bodyStart + nextLine(body, blockStart(node))
				}
			default:
				if current == tocHeading {
					doc.Index.Sections = append(doc.Index.Sections, types.IndexSection{Heading: title})
					section = &doc.Index.Sections[len(doc.Index.Sections)-1]
				}
			}
		case *ast.Paragraph:
			raw := rawText(node, body, " ")
			switch {
			case current == "":
				intro = append(intro, raw)
			case current == tocHeading && section != nil:
				section.Entries = append(section.Entries, parseLinks(raw)...)
			case strings.HasPrefix(current, "how to use"):
				doc.Index.UsageNotes = append(doc.Index.UsageNotes, raw)
			}
		case *ast.List:
			for item := node.FirstChild(); item != nil; item = item.NextSibling() {
				raw := itemText(item, body)
				switch {
				case current == tocHeading:
					if section == nil {
						doc.Index.Sections = append(doc.Index.Sections, types.IndexSection{})
						section = &doc.Index.Sections[len(doc.Index.Sections)-1]
					}
					section.Entries = append(section.Entries, parseLinks(raw)...)
				case strings.HasPrefix(current, "contributors"):
					doc.Index.Contributors = append(doc.Index.Contributors, raw)
				case strings.HasPrefix(current, "how to use"):
					doc.Index.UsageNotes = append(doc.Index.UsageNotes, raw)
				}
			}
		case *ast.Blockquote:
			if strings.HasPrefix(current, "quotes") {
				var parts []string
				for c := node.FirstChild(); c != nil; c = c.NextSibling() {
					parts = append(parts, rawText(c, body, " "))
				}
				doc.Index.Quotes = append(doc.Index.Quotes, strings.TrimSpace(strings.Join(parts, " ")))
			}
		}
	}
	if current == tocHeading && doc.tocEnd < 0 {
		doc.tocEnd = len(source)
	}
	doc.Index.Introduction = strings.Join(intro, "\n\n")
	return doc, nil
}

// parseLinks extracts Markdown and wiki links from a list item or paragraph.
func parseLinks(raw string) []types.IndexEntry {
	var out []types.IndexEntry
	for _, m := range mdLinkRe.FindAllStringSubmatch(raw, -1) {
		out = append(out, types.IndexEntry{Name: strings.TrimSpace(m[1]), Link: m[2]})
	}
	for _, m := range wikiLinkRe.FindAllStringSubmatch(raw, -1) {
		name := strings.TrimSpace(m[2])
		if name == "" {
			name = strings.ReplaceAll(strings.TrimSpace(m[1]), "_", " ")
		}
		out = append(out, types.IndexEntry{Name: name, Link: strings.TrimSpace(m[1]), Wiki: true})
	}
	return out
}

// Check reports links that resolve to no file in recipeDir and recipe files
// that no table-of-contents entry links to. Neither is an error; the index
// is never required to be complete.
func Check(doc *Document, recipeDir string) ([]types.Finding, error) {
	broken, unlisted, err := audit(doc, recipeDir)
	if err != nil {
		return nil, err
	}

	var findings []types.Finding
	for _, e := range broken {
		findings = append(findings, types.Finding{
			Rule:     "broken-link",
			Severity: types.SeverityWarning,
			Message:  fmt.Sprintf("%q links to %s, which does not exist", e.Name, e.Link),
		})
	}
	for _, f := range unlisted {
		findings = append(findings, types.Finding{
			Rule:     "unlisted-recipe",
			Severity: types.SeverityWarning,
			Message:  fmt.Sprintf("%s is not listed in the table of contents", f),
		})
	}
	return findings, nil
}

// audit splits the table of contents into entries with no matching file and
// files with no matching entry.
func audit(doc *Document, recipeDir string) (broken []types.IndexEntry, unlisted []string, err error) {
	files, err := recipeFiles(recipeDir, doc.Path)
	if err != nil {
		return nil, nil, err
	}

	linked := make(map[string]bool)
	for _, e := range doc.Index.Entries() {
		target, ok := resolve(e.Link, files)
		if !ok {
			broken = append(broken, e)
			continue
		}
		linked[target] = true
	}
	for _, f := range files {
		if !linked[f] {
			unlisted = append(unlisted, f)
		}
	}
	return broken, unlisted, nil
}

// recipeFiles lists the Markdown files in dir by base name, sorted, excluding
// the index document itself.
func recipeFiles(dir, indexPath string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading recipe directory %s: %w", dir, err)
	}
	self := filepath.Base(indexPath)
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".md") || e.Name() == self {
			continue
		}
		files = append(files, e.Name())
	}
	sort.Strings(files)
	return files, nil
}

// resolve matches a link target against the known file names. Wikilinks
// omit the extension; Markdown links may be URL-encoded or relative.
func resolve(link string, files []string) (string, bool) {
	link = strings.ReplaceAll(link, "%20", " ")
	base := filepath.Base(link)
	for _, f := range files {
		if f == base || strings.TrimSuffix(f, filepath.Ext(f)) == base {
			return f, true
		}
	}
	return "", false
}

// headingText returns the plain text of a heading.
func headingText(h *ast.Heading, src []byte) string {
	return strings.TrimSpace(strings.Trim(rawText(h, src, " "), "#"))
}

func rawText(n ast.Node, src []byte, sep string) string {
	lines := n.Lines()
	if lines == nil {
		return ""
	}
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(src))))
	}
	return strings.TrimSpace(strings.Join(parts, sep))
}

func itemText(item ast.Node, src []byte) string {
	var parts []string
	for c := item.FirstChild(); c != nil; c = c.NextSibling() {
		if s := rawText(c, src, " "); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func blockStart(n ast.Node) int {
	if lines := n.Lines(); lines != nil && lines.Len() > 0 {
		return lines.At(0).Start
	}
	return 0
}

// lineStart returns the offset of the first byte of the line holding off.
func lineStart(src []byte, off int) int {
	if i := bytes.LastIndexByte(src[:off], '\n'); i >= 0 {
		return i + 1
	}
	return 0
}

// nextLine returns the offset just past the newline ending the line at off.
func nextLine(src []byte, off int) int {
	if i := bytes.IndexByte(src[off:], '\n'); i >= 0 {
		return off + i + 1
	}
	return len(src)
}
