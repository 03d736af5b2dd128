// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the recipe catalog (store, search, export)",
	Long: `Catalog keeps a local SQLite index of the Recipe Documents in the
recipes directory. Use subcommands to ingest recipes, search them, or
export the catalog.`,
}

// --- store subcommand ---

var catalogStoreCmd = &cobra.Command{
	Use:   "store",
	Short: "Ingest Recipe Documents into the catalog",
	Long: `Store parses every Recipe Document in the recipes directory and indexes
it with FTS5 over title, ingredients, and instructions. Unchanged files are
skipped on subsequent runs. With --prune, recipes whose files were deleted
are dropped from the catalog.`,
	RunE: runCatalogStore,
}

func runCatalogStore(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	prune, _ := cmd.Flags().GetBool("prune")
	if prune {
		removed, err := store.Prune(cmd.Context())
		if err != nil {
			return err
		}
		for _, id := range removed {
			fmt.Printf("removed %s\n", id)
		}
	}

	summary, err := store.Ingest(cmd.Context(), os.Stdout)
	if err != nil {
		return err
	}
	if summary.Failed > 0 {
		return fmt.Errorf("%d recipe(s) failed indexing", summary.Failed)
	}
	return nil
}

// --- search subcommand ---

var catalogSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the catalog with full-text queries and filters",
	Long: `Search finds recipes by FTS5 full-text query over title, ingredients,
and instructions, by tag, by ingredient, or any combination.

Use --show with a recipe ID to print the full recipe.`,
	RunE: runCatalogSearch,
}

func runCatalogSearch(cmd *cobra.Command, args []string) error {
	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	jsonOutput, _ := cmd.Flags().GetBool("json")

	if showID, _ := cmd.Flags().GetString("show"); showID != "" {
		e, err := store.Get(cmd.Context(), showID)
		if err != nil {
			return err
		}
		if jsonOutput {
			return encodeJSON(e)
		}
		fmt.Printf("%s (%s)\n", e.Title, e.Path)
		for _, line := range e.Ingredients() {
			fmt.Printf("  - %s\n", line)
		}
		for i, step := range e.Instructions {
			fmt.Printf("  %d. %s\n", i+1, step)
		}
		return nil
	}

	opts := queryOptsFromFlags(cmd, args)
	if opts.IsEmpty() {
		return fmt.Errorf("query or filter required: provide a search query, --tag, or --ingredient")
	}

	results, err := store.Search(cmd.Context(), opts)
	if err != nil {
		return err
	}
	if jsonOutput {
		return encodeJSON(results)
	}
	return formatSearchOutput(results)
}

func formatSearchOutput(results []catalog.Entry) error {
	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-4s  %-30s  %-40s  %s\n", "Rank", "ID", "Title", "Tags")
	fmt.Fprintln(os.Stdout, strings.Repeat("-", 90))

	for i, r := range results {
		fmt.Fprintf(os.Stdout, "%-4d  %-30s  %-40s  %s\n",
			i+1, truncate(r.ID, 30), truncate(r.Title, 40), strings.Join(r.Tags, ", "))
	}

	fmt.Fprintf(os.Stdout, "\n%d results\n", len(results))
	return nil
}

// --- export subcommand ---

var catalogExportCmd = &cobra.Command{
	Use:   "export [query]",
	Short: "Export the catalog to YAML or JSON",
	Long: `Export writes the full catalog (or a filtered subset) to
export.yaml or export.json in the catalog directory. Supports the same
filter flags as search.`,
	RunE: runCatalogExport,
}

func runCatalogExport(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")

	store, err := openCatalog(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	opts := queryOptsFromFlags(cmd, args)

	var path string
	switch format {
	case "yaml", "":
		path, err = store.ExportYAML(cmd.Context(), opts)
	case "json":
		path, err = store.ExportJSON(cmd.Context(), opts)
	default:
		return fmt.Errorf("unsupported format %q: use yaml or json", format)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Exported to %s\n", path)
	return nil
}

// --- shared helpers ---

func openCatalog(cmd *cobra.Command) (*catalog.Store, error) {
	cfg, logs, err := setup(cmd)
	if err != nil {
		return nil, err
	}
	return catalog.NewStore(cfg.Catalog, logs.GetLogger("catalog"))
}

func queryOptsFromFlags(cmd *cobra.Command, args []string) catalog.QueryOptions {
	queryText, _ := cmd.Flags().GetString("query")
	if queryText == "" && len(args) > 0 {
		queryText = strings.Join(args, " ")
	}
	tags, _ := cmd.Flags().GetStringSlice("tag")
	ingredients, _ := cmd.Flags().GetStringSlice("ingredient")
	limit, _ := cmd.Flags().GetInt("limit")

	return catalog.QueryOptions{
		Query:       queryText,
		Tags:        tags,
		Ingredients: ingredients,
		MaxResults:  limit,
	}
}

func encodeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func init() {
	// Shared flags on the parent command, inherited by subcommands.
	catalogCmd.PersistentFlags().String("catalog-dir", "", "catalog directory holding cookbook.db (default: config)")
	catalogCmd.PersistentFlags().String("recipes-dir", "", "directory of Recipe Documents (default: config)")
	catalogCmd.PersistentFlags().Int("max-results", 0, "default maximum number of search results")

	catalogStoreCmd.Flags().Bool("prune", false, "drop recipes whose files no longer exist")

	for _, c := range []*cobra.Command{catalogSearchCmd, catalogExportCmd} {
		c.Flags().String("query", "", "full-text search query")
		c.Flags().StringSlice("tag", nil, "filter by tag (repeatable)")
		c.Flags().StringSlice("ingredient", nil, "filter by ingredient text (repeatable)")
	}
	catalogSearchCmd.Flags().Int("limit", 0, "maximum results (0 = use default)")
	catalogSearchCmd.Flags().String("show", "", "print the full recipe for an ID")
	catalogSearchCmd.Flags().Bool("json", false, "output results as JSON")
	catalogExportCmd.Flags().String("format", "yaml", "export format: yaml or json")

	// Wire subcommands.
	catalogCmd.AddCommand(catalogStoreCmd)
	catalogCmd.AddCommand(catalogSearchCmd)
	catalogCmd.AddCommand(catalogExportCmd)

	rootCmd.AddCommand(catalogCmd)
}
