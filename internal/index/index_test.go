// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/pkg/types"
)

const sampleIndex = "testdata/Cookbook.md"

func loadIndex(t *testing.T) *Document {
	t.Helper()
	doc, err := ParseFile(sampleIndex)
	require.NoError(t, err)
	return doc
}

// recipeDir creates a directory holding the named recipe files plus a copy
// of the index document.
func recipeDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		title := strings.ReplaceAll(strings.TrimSuffix(n, ".md"), "_", " ")
		content := "---\ncssclass: cookbook\n---\n# " + title + "\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte(content), 0o644))
	}
	data, err := os.ReadFile(sampleIndex)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cookbook.md"), data, 0o644))
	return dir
}

func TestParse_TableOfContents(t *testing.T) {
	doc := loadIndex(t)

	var headings []string
	for _, s := range doc.Index.Sections {
		headings = append(headings, s.Heading)
	}
	assert.Equal(t, []string{
		"Breakfast", "Appetizers", "Soups & Stews", "Salads",
		"Main Dishes", "Sides", "Desserts", "Drinks",
	}, headings)
	assert.Len(t, doc.Index.Sections, 8)

	entries := doc.Index.Entries()
	require.Len(t, entries, 5)
	assert.Equal(t, types.IndexEntry{Name: "Spicy Glazed Meatballs", Link: "Spicy_Glazed_Meatballs.md"}, entries[1])
	assert.Equal(t, types.IndexEntry{Name: "Chicken Noodle Soup", Link: "Chicken_Noodle_Soup", Wiki: true}, entries[2])
}

func TestParse_FrontMatterProse(t *testing.T) {
	doc := loadIndex(t)
	idx := doc.Index

	assert.Equal(t, "The Family Cookbook", idx.Title)
	assert.True(t, strings.HasPrefix(idx.Introduction, "Recipes gathered from three generations"))
	assert.Contains(t, idx.Introduction, "\n\nEvery card in this book")
	assert.Len(t, idx.UsageNotes, 2)
	require.Len(t, idx.Quotes, 2)
	assert.Contains(t, idx.Quotes[0], "The secret ingredient is always love.")
	assert.Equal(t, []string{"Grandma June", "Uncle Ray", "[Your name here]"}, idx.Contributors)
}

func TestParse_NoTableOfContents(t *testing.T) {
	doc, err := Parse([]byte("# Just a title\n\nSome words.\n"))
	require.NoError(t, err)
	assert.Empty(t, doc.Index.Sections)

	_, _, err = Sync(doc, t.TempDir(), "")
	assert.ErrorIs(t, err, ErrNoTableOfContents)
}

func TestCheck(t *testing.T) {
	dir := recipeDir(t, "Spicy_Glazed_Meatballs.md", "Chicken_Noodle_Soup.md", "Peach_Cobbler.md")
	doc, err := ParseFile(filepath.Join(dir, "Cookbook.md"))
	require.NoError(t, err)

	findings, err := Check(doc, dir)
	require.NoError(t, err)

	var broken, unlisted []string
	for _, f := range findings {
		assert.Equal(t, types.SeverityWarning, f.Severity)
		switch f.Rule {
		case "broken-link":
			broken = append(broken, f.Message)
		case "unlisted-recipe":
			unlisted = append(unlisted, f.Message)
		}
	}
	assert.Len(t, broken, 3)
	require.Len(t, unlisted, 1)
	assert.Contains(t, unlisted[0], "Peach_Cobbler.md")
}

func TestCheck_MissingDir(t *testing.T) {
	_, err := Check(loadIndex(t), filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestSync_AddsUnlistedToDefaultSection(t *testing.T) {
	dir := recipeDir(t, "Spicy_Glazed_Meatballs.md", "Peach_Cobbler.md")
	doc, err := ParseFile(filepath.Join(dir, "Cookbook.md"))
	require.NoError(t, err)

	out, result, err := Sync(doc, dir, "")
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "Peach Cobbler", result.Added[0].Name)
	assert.Equal(t, DefaultSection, result.Section)

	// Prose before and after the table of contents is untouched.
	assert.Equal(t, string(doc.Source[:doc.tocStart]), string(out[:doc.tocStart]))
	tail := string(doc.Source[doc.tocEnd:])
	assert.True(t, strings.HasSuffix(string(out), tail))

	again, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, again.Index.Sections, 9)
	last := again.Index.Sections[8]
	assert.Equal(t, DefaultSection, last.Heading)
	assert.Equal(t, []types.IndexEntry{{Name: "Peach Cobbler", Link: "Peach_Cobbler.md"}}, last.Entries)

	// Existing wikilinks survive the rewrite.
	assert.Contains(t, string(out), "- [[Chicken_Noodle_Soup]]")
}

func TestSync_NamedSection(t *testing.T) {
	dir := recipeDir(t, "Peach_Cobbler.md")
	doc, err := ParseFile(filepath.Join(dir, "Cookbook.md"))
	require.NoError(t, err)

	out, _, err := Sync(doc, dir, "desserts")
	require.NoError(t, err)

	again, err := Parse(out)
	require.NoError(t, err)
	require.Len(t, again.Index.Sections, 8)
	desserts := again.Index.Sections[6]
	assert.Equal(t, "Desserts", desserts.Heading)
	require.Len(t, desserts.Entries, 2)
	assert.Equal(t, "Peach_Cobbler.md", desserts.Entries[1].Link)
}

func TestSync_NothingToAdd(t *testing.T) {
	dir := recipeDir(t, "Spicy_Glazed_Meatballs.md")
	doc, err := ParseFile(filepath.Join(dir, "Cookbook.md"))
	require.NoError(t, err)

	out, result, err := Sync(doc, dir, "")
	require.NoError(t, err)
	assert.Empty(t, result.Added)
	assert.Equal(t, doc.Source, out)
}

func TestSync_KeepsHandWrittenTableOfContents(t *testing.T) {
	dir := recipeDir(t, "Pancakes.md", "Soup.md")
	source := "# Family Cookbook\n\n## Table of Contents\n\n" +
		"Recipes marked * are Grandma's.\n\n" +
		"### Breakfast\n" +
		"- [Pancakes](Pancakes.md) -- Sunday favorite *\n" +
		"- Waffles (coming soon)\n\n" +
		"## Contributors\n\n- Grandma\n"
	doc, err := Parse([]byte(source))
	require.NoError(t, err)
	doc.Path = filepath.Join(dir, "Cookbook.md")

	out, result, err := Sync(doc, dir, "")
	require.NoError(t, err)
	require.Len(t, result.Added, 1)
	assert.Equal(t, "Soup.md", result.Added[0].Link)

	want := "# Family Cookbook\n\n## Table of Contents\n\n" +
		"Recipes marked * are Grandma's.\n\n" +
		"### Breakfast\n" +
		"- [Pancakes](Pancakes.md) -- Sunday favorite *\n" +
		"- Waffles (coming soon)\n" +
		"\n### Uncategorized\n" +
		"- [Soup](Soup.md)\n\n" +
		"## Contributors\n\n- Grandma\n"
	assert.Equal(t, want, string(out))
}

func TestSync_AppendsToExistingSectionEnd(t *testing.T) {
	dir := recipeDir(t, "Pancakes.md", "Crepes.md")
	source := "## Table of Contents\n" +
		"### Breakfast\n" +
		"- [Pancakes](Pancakes.md)\n" +
		"Ask before making these.\n\n" +
		"### Drinks\n" +
		"- Lemonade"
	doc, err := Parse([]byte(source))
	require.NoError(t, err)
	doc.Path = filepath.Join(dir, "Cookbook.md")

	out, _, err := Sync(doc, dir, "breakfast")
	require.NoError(t, err)

	want := "## Table of Contents\n" +
		"### Breakfast\n" +
		"- [Pancakes](Pancakes.md)\n" +
		"Ask before making these.\n" +
		"- [Crepes](Crepes.md)\n\n" +
		"### Drinks\n" +
		"- Lemonade"
	assert.Equal(t, want, string(out))
}

func TestEntryLine(t *testing.T) {
	tests := []struct {
		entry types.IndexEntry
		want  string
	}{
		{types.IndexEntry{Name: "Pot Roast", Link: "Pot Roast.md"}, "- [Pot Roast](Pot%20Roast.md)\n"},
		{types.IndexEntry{Name: "Nana's Soup", Link: "Soup", Wiki: true}, "- [[Soup|Nana's Soup]]\n"},
		{types.IndexEntry{Name: "Chicken Soup", Link: "Chicken_Soup", Wiki: true}, "- [[Chicken_Soup]]\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, entryLine(tt.entry))
	}
}
