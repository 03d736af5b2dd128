// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pipeline digitizes one recipe-card image: preprocess, OCR, text
// cleanup, model extraction, and rendering into a Recipe Document.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/cookbook/internal/extract"
	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/ocr"
	"github.com/pdiddy/cookbook/internal/preprocess"
	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

const rule = "============================================================"

// Pipeline holds the stage backends shared across images.
type Pipeline struct {
	OCR        ocr.Engine
	LLM        extract.LLMBackend
	Preprocess types.PreprocessConfig
	MaxRetries int
	Log        logging.Logger
}

// Options control one Process call.
type Options struct {
	// OutputPath is the Markdown file to write. When empty the file is named
	// from the recipe title inside OutputDir.
	OutputPath string
	OutputDir  string

	// WorkDir receives the OCR text and, in debug mode, the preprocessed
	// image and per-step snapshots. Defaults to the image's directory.
	WorkDir string

	// NoClobber picks "<name>_2.md", "<name>_3.md", ... instead of
	// overwriting an existing recipe with the same title.
	NoClobber bool

	// Debug keeps preprocessing snapshots and echoes the OCR text and the
	// model's JSON to the progress writer.
	Debug bool
}

// Result describes what Process produced.
type Result struct {
	MarkdownPath string
	OCRPath      string
	Recipe       types.Recipe

	// WorkFiles lists intermediate files kept in WorkDir, including OCRPath.
	WorkFiles []string
}

// Process converts the image at imagePath into a Recipe Document, writing
// progress lines to w.
func (p *Pipeline) Process(ctx context.Context, imagePath string, opts Options, w io.Writer) (*Result, error) {
	log := logging.OrNop(p.Log)
	if p.OCR == nil || p.LLM == nil {
		return nil, fmt.Errorf("pipeline needs both an OCR engine and a model backend")
	}
	if _, err := os.Stat(imagePath); err != nil {
		return nil, fmt.Errorf("image not found: %w", err)
	}

	stem := strings.TrimSuffix(filepath.Base(imagePath), filepath.Ext(imagePath))
	workDir := opts.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(imagePath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	res := &Result{}

	fmt.Fprintf(w, "%s\nProcessing recipe: %s\n%s\n", rule, imagePath, rule)

	start := time.Now()
	pcfg := p.Preprocess
	if opts.Debug {
		pcfg.DebugDir = workDir
	}
	cleaned, err := preprocess.File(imagePath, pcfg)
	if err != nil {
		return res, fmt.Errorf("preprocessing: %w", err)
	}
	res.WorkFiles = append(res.WorkFiles, cleaned.DebugFiles...)
	log.Debug("preprocessed", "image", imagePath, "inverted", cleaned.Inverted,
		"upscaled", cleaned.Upscaled, "elapsed", time.Since(start).String())

	prepared := filepath.Join(workDir, stem+"_preprocessed.png")
	if err := preprocess.SavePNG(prepared, cleaned.Image); err != nil {
		return res, err
	}
	if opts.Debug {
		res.WorkFiles = append(res.WorkFiles, prepared)
	} else {
		defer os.Remove(prepared)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	fmt.Fprintln(w, "Running OCR...")
	raw, err := p.OCR.Recognize(ctx, prepared)
	if err != nil {
		return res, fmt.Errorf("OCR: %w", err)
	}
	text := ocr.CleanText(raw)
	fmt.Fprintf(w, "Extracted %d characters\n", len([]rune(text)))

	res.OCRPath = filepath.Join(workDir, stem+"_ocr.txt")
	if err := os.WriteFile(res.OCRPath, []byte(text), 0o644); err != nil {
		return res, fmt.Errorf("saving OCR text: %w", err)
	}
	res.WorkFiles = append(res.WorkFiles, res.OCRPath)
	fmt.Fprintf(w, "OCR text saved to: %s\n", res.OCRPath)
	if opts.Debug {
		fmt.Fprintf(w, "\n%s\nDEBUG: OCR OUTPUT\n%s\n%s\n%s\n\n", rule, rule, text, rule)
	}

	fmt.Fprintln(w, "Extracting recipe with the language model...")
	r, data, err := extract.Recipe(ctx, p.LLM, text, p.MaxRetries)
	if err != nil {
		return res, fmt.Errorf("extracting recipe: %w", err)
	}
	if opts.Debug {
		pretty, _ := json.MarshalIndent(data, "", "  ")
		fmt.Fprintf(w, "\n%s\nDEBUG: EXTRACTED RECIPE DATA\n%s\n%s\n%s\n\n", rule, rule, pretty, rule)
	}
	if !r.Complete() {
		log.Warn("extracted recipe is incomplete", "image", imagePath, "title", r.Title,
			"ingredients", len(r.Ingredients()), "steps", len(r.Instructions))
	}
	res.Recipe = r

	out := opts.OutputPath
	if out == "" {
		out = filepath.Join(opts.OutputDir, recipe.FileName(r.Title))
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	if opts.NoClobber {
		out = uniquePath(out)
	}
	if dir := filepath.Dir(out); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return res, fmt.Errorf("creating output directory: %w", err)
		}
	}
	if err := recipe.WriteFile(out, r); err != nil {
		return res, err
	}
	res.MarkdownPath = out

	fmt.Fprintf(w, "Markdown saved to: %s\nRecipe title: %s\n", out, r.Title)
	log.Info("recipe digitized", "image", imagePath, "markdown", out, "elapsed", time.Since(start).String())
	return res, nil
}

// uniquePath returns path, or the first free numbered variant of it.
func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 2; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}
