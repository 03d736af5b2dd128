// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/cookbook/internal/extract"
	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/ocr"
	"github.com/pdiddy/cookbook/internal/pipeline"
	"github.com/pdiddy/cookbook/pkg/types"
)

var processCmd = &cobra.Command{
	Use:   "process <image>",
	Short: "Convert one recipe-card photo into a Recipe Document",
	Long: `Process cleans up a photographed recipe card, runs OCR on it, asks the
model to structure the text, and writes the result as a Markdown Recipe
Document in the cookbook template.

The output file is named after the recipe title unless --output is given.
The OCR text is saved next to it as <image>_ocr.txt.`,
	Args: cobra.ExactArgs(1),
	RunE: runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, logs, err := setup(cmd)
	if err != nil {
		return err
	}
	output, _ := cmd.Flags().GetString("output")
	outputDir, _ := cmd.Flags().GetString("output-dir")
	debug, _ := cmd.Flags().GetBool("debug")

	p, err := newPipeline(cmd.Context(), cfg, logs)
	if err != nil {
		return err
	}

	_, err = p.Process(cmd.Context(), args[0], pipeline.Options{
		OutputPath: output,
		OutputDir:  outputDir,
		Debug:      debug,
	}, os.Stdout)
	return err
}

// newPipeline wires the configured OCR engine and model backend.
func newPipeline(ctx context.Context, cfg types.Config, logs *logging.Provider) (*pipeline.Pipeline, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	engine, err := ocr.New(ctx, cfg.OCR)
	if err != nil {
		return nil, err
	}
	return &pipeline.Pipeline{
		OCR:        engine,
		LLM:        extract.NewOllama(cfg.Extraction),
		Preprocess: cfg.Preprocess,
		MaxRetries: cfg.Extraction.MaxRetries,
		Log:        logs.GetLogger("pipeline"),
	}, nil
}

// addStageFlags registers the flags shared by process and batch.
func addStageFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("debug", false, "keep preprocessing snapshots and print OCR text and model output")
	cmd.Flags().Int("target-width", 0, "upscale images narrower than this width (0 = config)")
	cmd.Flags().String("ocr-backend", "", "OCR backend: tesseract or container")
	cmd.Flags().String("ocr-image", "", "container image for the container OCR backend")
	cmd.Flags().String("lang", "", "tesseract language code")
	cmd.Flags().String("model", "", "Ollama model identifier")
	cmd.Flags().String("ollama-url", "", "base URL of the Ollama API")
	cmd.Flags().Int("max-retries", 0, "retries for failed model calls")
	cmd.Flags().Duration("timeout", 0, "HTTP timeout for one model call")
}

func init() {
	processCmd.Flags().StringP("output", "o", "", "output Markdown file (default: <Title_Words>.md)")
	processCmd.Flags().String("output-dir", "", "directory for the titled output file (default: current directory)")
	addStageFlags(processCmd)

	rootCmd.AddCommand(processCmd)
}
