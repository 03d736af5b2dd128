// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/index"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Inspect and maintain the Cookbook Index Document",
	Long: `Index works on the Cookbook Index Document, the front page holding the
introduction, table of contents, quotes, and contributor list. Recipe files
are looked up in the index's own directory unless --dir is given.`,
}

// --- check subcommand ---

var indexCheckCmd = &cobra.Command{
	Use:   "check [Cookbook.md]",
	Short: "Report broken table-of-contents links and unlisted recipes",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runIndexCheck,
}

func runIndexCheck(cmd *cobra.Command, args []string) error {
	doc, dir, err := loadIndexDoc(cmd, args)
	if err != nil {
		return err
	}

	findings, err := index.Check(doc, dir)
	if err != nil {
		return err
	}

	var entries int
	for _, s := range doc.Index.Sections {
		entries += len(s.Entries)
	}
	fmt.Printf("%s: %d section(s), %d entries\n", doc.Path, len(doc.Index.Sections), entries)
	for _, f := range findings {
		fmt.Printf("%s: %s\n", doc.Path, f)
	}

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && len(findings) > 0 {
		return fmt.Errorf("%d index finding(s)", len(findings))
	}
	return nil
}

// --- sync subcommand ---

var indexSyncCmd = &cobra.Command{
	Use:   "sync [Cookbook.md]",
	Short: "Add unlisted recipes to the table of contents",
	Long: `Sync adds every recipe file that no table-of-contents entry links to,
under the section named by --section ("Uncategorized" by default, created
when missing). Text outside the table of contents is left byte for byte.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndexSync,
}

func runIndexSync(cmd *cobra.Command, args []string) error {
	doc, dir, err := loadIndexDoc(cmd, args)
	if err != nil {
		return err
	}
	section, _ := cmd.Flags().GetString("section")
	dryRun, _ := cmd.Flags().GetBool("dry-run")

	out, result, err := index.Sync(doc, dir, section)
	if err != nil {
		return err
	}
	if len(result.Added) == 0 {
		fmt.Println("Table of contents is up to date.")
		return nil
	}

	for _, e := range result.Added {
		fmt.Printf("add     %s → %s (%s)\n", e.Name, e.Link, result.Section)
	}
	if dryRun {
		return nil
	}
	if err := os.WriteFile(doc.Path, out, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", doc.Path, err)
	}
	fmt.Printf("Updated %s (%d added)\n", doc.Path, len(result.Added))
	return nil
}

// --- shared helpers ---

func loadIndexDoc(cmd *cobra.Command, args []string) (*index.Document, string, error) {
	path := "Cookbook.md"
	if len(args) > 0 {
		path = args[0]
	}
	doc, err := index.ParseFile(path)
	if err != nil {
		return nil, "", err
	}
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = filepath.Dir(path)
	}
	return doc, dir, nil
}

func init() {
	indexCmd.PersistentFlags().String("dir", "", "directory holding the recipe files (default: the index's directory)")

	indexCheckCmd.Flags().Bool("strict", false, "exit non-zero when there are findings")

	indexSyncCmd.Flags().String("section", index.DefaultSection, "table-of-contents section that receives new entries")
	indexSyncCmd.Flags().Bool("dry-run", false, "list the entries that would be added without writing")

	indexCmd.AddCommand(indexCheckCmd)
	indexCmd.AddCommand(indexSyncCmd)

	rootCmd.AddCommand(indexCmd)
}
