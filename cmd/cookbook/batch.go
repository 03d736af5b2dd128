// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/batch"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Convert every recipe image waiting in the project inbox",
	Long: `Batch processes each image in assets/recipe_images/ one at a time.
Converted recipes land in assets/markdown/ and their images move to
assets/processed_images/. A failed image stays in the inbox and the run
continues with the next one.

A summary is printed at the end and saved to assets/batch-report.yaml.
The command exits non-zero when any image failed.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, logs, err := setup(cmd)
	if err != nil {
		return err
	}
	debug, _ := cmd.Flags().GetBool("debug")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	p, err := newPipeline(ctx, cfg, logs)
	if err != nil {
		return err
	}

	layout := batch.NewLayout(cfg.Batch.ProjectRoot)
	runner := &batch.Runner{
		Processor: p,
		Layout:    layout,
		Timeout:   cfg.Batch.ImageTimeout,
		Debug:     debug || cfg.Batch.Debug,
		Log:       logs.GetLogger("batch"),
	}

	summary, runErr := runner.Run(ctx, os.Stdout)
	if summary == nil {
		return runErr
	}
	if summary.Total == 0 {
		return runErr
	}

	batch.PrintSummary(os.Stdout, summary)
	report := filepath.Join(layout.Assets, batch.ReportName)
	if err := batch.WriteReport(report, summary); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	} else {
		fmt.Printf("Report saved to: %s\n", report)
	}

	if runErr != nil {
		return runErr
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d image(s) failed", summary.Failed, summary.Total)
	}
	return nil
}

func init() {
	batchCmd.Flags().String("root", "", "project root containing assets/ (default: config or current directory)")
	batchCmd.Flags().Duration("image-timeout", 0, "processing limit for one image")
	addStageFlags(batchCmd)

	rootCmd.AddCommand(batchCmd)
}
