// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

// ErrNoTableOfContents is returned by Sync when the document has no
// "## Table of Contents" heading to rewrite.
var ErrNoTableOfContents = errors.New("index has no Table of Contents section")

// SyncResult lists the entries Sync added.
type SyncResult struct {
	Added   []types.IndexEntry
	Section string
}

// Sync adds every recipe in recipeDir that the table of contents does not
// yet link to, under the section named by section (DefaultSection when
// empty, created at the end of the table of contents when missing). New
// entries are inserted after the last line of the target section; every
// existing byte of the document is kept.
func Sync(doc *Document, recipeDir, section string) ([]byte, SyncResult, error) {
	if doc.tocStart < 0 {
		return nil, SyncResult{}, ErrNoTableOfContents
	}
	if section == "" {
		section = DefaultSection
	}
	result := SyncResult{Section: section}

	_, unlisted, err := audit(doc, recipeDir)
	if err != nil {
		return nil, result, err
	}
	if len(unlisted) == 0 {
		return doc.Source, result, nil
	}

	var add strings.Builder
	toc := doc.Source[doc.tocStart:doc.tocEnd]
	at, found := sectionEnd(toc, section)
	if at > 0 && toc[at-1] != '\n' {
		add.WriteString("\n")
	}
	if !found {
		fmt.Fprintf(&add, "\n### %s\n", section)
	}
	for _, file := range unlisted {
		entry := types.IndexEntry{Name: entryName(recipeDir, file), Link: file}
		add.WriteString(entryLine(entry))
		result.Added = append(result.Added, entry)
	}

	at += doc.tocStart
	out := make([]byte, 0, len(doc.Source)+add.Len())
	out = append(out, doc.Source[:at]...)
	out = append(out, add.String()...)
	out = append(out, doc.Source[at:]...)
	return out, result, nil
}

// sectionEnd returns the offset in toc just past the last non-blank line of
// the "### " section named heading, and whether that section exists. When
// it does not, the offset is past the last non-blank line of toc.
func sectionEnd(toc []byte, heading string) (int, bool) {
	end, found, inside := 0, false, false
	for off := 0; off < len(toc); {
		next := len(toc)
		if i := bytes.IndexByte(toc[off:], '\n'); i >= 0 {
			next = off + i + 1
		}
		line := strings.TrimSpace(string(toc[off:next]))
		if title, ok := subHeading(line); ok {
			if inside {
				return end, true
			}
			inside = strings.EqualFold(title, heading)
			found = found || inside
		}
		if line != "" && (inside || !found) {
			end = next
		}
		off = next
	}
	return end, found
}

// subHeading reports the title of an ATX heading of level three or deeper.
func subHeading(line string) (string, bool) {
	level := len(line) - len(strings.TrimLeft(line, "#"))
	if level < 3 || level > 6 || !strings.HasPrefix(line[level:], " ") {
		return "", false
	}
	return strings.TrimSpace(strings.TrimRight(line[level:], "# ")), true
}

// entryLine renders one table-of-contents bullet. Wikilink entries stay
// wikilinks.
func entryLine(e types.IndexEntry) string {
	switch {
	case e.Wiki && e.Name == strings.ReplaceAll(e.Link, "_", " "):
		return fmt.Sprintf("- [[%s]]\n", e.Link)
	case e.Wiki:
		return fmt.Sprintf("- [[%s|%s]]\n", e.Link, e.Name)
	default:
		return fmt.Sprintf("- [%s](%s)\n", e.Name, linkPath(e.Link))
	}
}

// entryName uses the recipe's title when the file parses, else its file name.
func entryName(dir, file string) string {
	if doc, err := recipe.ParseFile(filepath.Join(dir, file)); err == nil && doc.Recipe.Title != "" {
		return doc.Recipe.Title
	}
	return strings.ReplaceAll(strings.TrimSuffix(file, ".md"), "_", " ")
}

// linkPath escapes spaces and other reserved characters in a file link.
func linkPath(link string) string {
	if strings.Contains(link, "%") {
		return link
	}
	return (&url.URL{Path: link}).EscapedPath()
}
