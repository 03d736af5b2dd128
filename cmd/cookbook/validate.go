// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

var validateCmd = &cobra.Command{
	Use:   "validate <recipe.md|dir>...",
	Short: "Check Recipe Documents against the cookbook template",
	Long: `Validate reports template violations: missing or repeated title,
missing style tag, metadata out of order, gaps in step numbering, unlabeled
or empty ingredient groups, and incomplete recipes. Unknown note labels are
warnings. Directories are scanned for *.md files, skipping Cookbook.md.

The command exits non-zero when any document has an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	files, err := recipeFiles(args)
	if err != nil {
		return err
	}
	quiet, _ := cmd.Flags().GetBool("quiet")

	var failed int
	for _, f := range files {
		doc, err := recipe.ParseFile(f)
		if err != nil {
			fmt.Fprintf(os.Stdout, "%s: %v\n", f, err)
			failed++
			continue
		}
		findings := recipe.Validate(doc)
		if types.HasErrors(findings) {
			failed++
		}
		printFindings(os.Stdout, f, findings, quiet)
	}

	fmt.Fprintf(os.Stdout, "\n%d document(s) checked, %d with errors\n", len(files), failed)
	if failed > 0 {
		return fmt.Errorf("%d document(s) failed validation", failed)
	}
	return nil
}

func printFindings(w io.Writer, path string, findings []types.Finding, quiet bool) {
	if len(findings) == 0 {
		if !quiet {
			fmt.Fprintf(w, "ok      %s\n", path)
		}
		return
	}
	for _, f := range findings {
		fmt.Fprintf(w, "%s: %s\n", path, f)
	}
}

// recipeFiles expands directory arguments into their Markdown files.
func recipeFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", arg, err)
		}
		var found []string
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".md") || strings.EqualFold(name, "Cookbook.md") {
				continue
			}
			found = append(found, filepath.Join(arg, name))
		}
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

func init() {
	validateCmd.Flags().BoolP("quiet", "q", false, "only print documents with findings")

	rootCmd.AddCommand(validateCmd)
}
