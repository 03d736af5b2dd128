// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cookbook/internal/recipe"
)

var parseCmd = &cobra.Command{
	Use:   "parse <recipe.md>",
	Short: "Print the structured content of a Recipe Document",
	Long: `Parse reads a Recipe Document and prints its fields (title, metadata,
ingredient groups, steps, notes) as YAML, or JSON with --json. The file
is never modified.`,
	Args: cobra.ExactArgs(1),
	RunE: runParse,
}

func runParse(cmd *cobra.Command, args []string) error {
	doc, err := recipe.ParseFile(args[0])
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(doc.Recipe)
	}

	data, err := yaml.Marshal(doc.Recipe)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	_, err = os.Stdout.Write(data)
	return err
}

func init() {
	parseCmd.Flags().Bool("json", false, "output as JSON")

	rootCmd.AddCommand(parseCmd)
}
