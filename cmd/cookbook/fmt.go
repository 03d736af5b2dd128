// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/recipe"
)

var fmtCmd = &cobra.Command{
	Use:   "fmt <recipe.md|dir>...",
	Short: "Rewrite Recipe Documents in the canonical template layout",
	Long: `Fmt parses each Recipe Document and renders it back in the cookbook
template: fixed metadata order, bold step lead-ins, notes in label order.

Without --write the formatted document is printed and nothing on disk
changes. With --check only the names of documents that would change are
printed, and the command exits non-zero if there are any.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runFmt,
}

func runFmt(cmd *cobra.Command, args []string) error {
	write, _ := cmd.Flags().GetBool("write")
	check, _ := cmd.Flags().GetBool("check")
	if write && check {
		return fmt.Errorf("--write and --check are mutually exclusive")
	}

	files, err := recipeFiles(args)
	if err != nil {
		return err
	}

	var changed int
	for _, f := range files {
		doc, err := recipe.ParseFile(f)
		if err != nil {
			return err
		}
		out, err := recipe.Render(doc.Recipe)
		if err != nil {
			return fmt.Errorf("rendering %s: %w", f, err)
		}
		same := bytes.Equal(doc.Source, []byte(out))
		if !same {
			changed++
		}

		switch {
		case check:
			if !same {
				fmt.Println(f)
			}
		case write:
			if same {
				continue
			}
			if err := os.WriteFile(f, []byte(out), 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", f, err)
			}
			fmt.Printf("formatted %s\n", f)
		default:
			fmt.Print(out)
		}
	}

	if check && changed > 0 {
		return fmt.Errorf("%d document(s) need formatting", changed)
	}
	return nil
}

func init() {
	fmtCmd.Flags().BoolP("write", "w", false, "write the result back to the source file")
	fmtCmd.Flags().Bool("check", false, "list documents that are not formatted")

	rootCmd.AddCommand(fmtCmd)
}
