// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch digitizes every recipe image waiting in a project tree,
// moving each one out of the inbox once its Recipe Document is written.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/cookbook/internal/logging"
	"github.com/pdiddy/cookbook/internal/pipeline"
	"github.com/pdiddy/cookbook/pkg/types"
)

const rule = "============================================================"

// ImageExtensions lists the accepted image suffixes, matched case-insensitively.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".tiff", ".webp"}

// ReportName is the batch report written under the assets directory.
const ReportName = "batch-report.yaml"

// Layout is the project directory convention.
type Layout struct {
	Root      string
	Assets    string
	Images    string
	Markdown  string
	Processed string
}

// NewLayout returns the layout rooted at root.
func NewLayout(root string) Layout {
	assets := filepath.Join(root, "assets")
	return Layout{
		Root:      root,
		Assets:    assets,
		Images:    filepath.Join(assets, "recipe_images"),
		Markdown:  filepath.Join(assets, "markdown"),
		Processed: filepath.Join(assets, "processed_images"),
	}
}

// Ensure creates any missing directories of the layout, reporting each one
// it creates to w.
func (l Layout) Ensure(w io.Writer) error {
	for _, dir := range []string{l.Assets, l.Images, l.Markdown, l.Processed} {
		if _, err := os.Stat(dir); err == nil {
			continue
		}
		fmt.Fprintf(w, "Creating directory: %s\n", dir)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// ListImages returns the image files directly inside dir, sorted by name.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading image directory %s: %w", dir, err)
	}
	var images []string
	for _, e := range entries {
		if e.IsDir() || !isImage(e.Name()) {
			continue
		}
		images = append(images, filepath.Join(dir, e.Name()))
	}
	sort.Strings(images)
	return images, nil
}

func isImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ImageResult is the outcome for one image.
type ImageResult struct {
	Image    string              `json:"image" yaml:"image"`
	Status   types.ProcessStatus `json:"status" yaml:"status"`
	Markdown string              `json:"markdown,omitempty" yaml:"markdown,omitempty"`
	Title    string              `json:"title,omitempty" yaml:"title,omitempty"`
	Error    string              `json:"error,omitempty" yaml:"error,omitempty"`
	Duration time.Duration       `json:"duration" yaml:"duration"`
}

// Success reports whether the image was converted.
func (r ImageResult) Success() bool { return r.Status == types.ProcessDone }

// Summary holds counts and per-image results from a batch run.
type Summary struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	StartedAt  time.Time     `json:"started_at" yaml:"started_at"`
	Total      int           `json:"total" yaml:"total"`
	Successful int           `json:"successful" yaml:"successful"`
	Failed     int           `json:"failed" yaml:"failed"`
	Results    []ImageResult `json:"results" yaml:"results"`
}

// HasFailures reports whether any image failed.
func (s Summary) HasFailures() bool {
	return s.Failed > 0
}

// Processor converts one image; *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, imagePath string, opts pipeline.Options, w io.Writer) (*pipeline.Result, error)
}

// Runner processes a project's image inbox one image at a time.
type Runner struct {
	Processor Processor
	Layout    Layout

	// Timeout bounds each image (default 5 minutes).
	Timeout time.Duration

	// Debug keeps each image's work directory and echoes intermediate output.
	Debug bool

	Log logging.Logger
}

// Run processes every image in the inbox, printing progress to w. A failed
// image is recorded and the run continues; only setup problems return an
// error.
func (r *Runner) Run(ctx context.Context, w io.Writer) (*Summary, error) {
	log := logging.OrNop(r.Log)
	summary := &Summary{RunID: uuid.NewString(), StartedAt: time.Now().UTC()}

	fmt.Fprintf(w, "Project root: %s\n\nValidating folder structure...\n", r.Layout.Root)
	if err := r.Layout.Ensure(w); err != nil {
		return nil, err
	}
	fmt.Fprintln(w, "✓ Folder structure validated")

	images, err := ListImages(r.Layout.Images)
	if err != nil {
		return nil, err
	}
	if len(images) == 0 {
		fmt.Fprintf(w, "\nNo images found in %s\nSupported formats: %s\n",
			r.Layout.Images, strings.Join(ImageExtensions, ", "))
		return summary, nil
	}
	fmt.Fprintf(w, "\nFound %d image(s) to process\n", len(images))
	log.Info("batch started", "run_id", summary.RunID, "images", len(images))

	for i, img := range images {
		if ctx.Err() != nil {
			break
		}
		fmt.Fprintf(w, "\n[%d/%d] ", i+1, len(images))
		res := r.processImage(ctx, img, w)
		summary.Results = append(summary.Results, res)
		if res.Success() {
			summary.Successful++
		} else {
			summary.Failed++
			log.Warn("image failed", "image", res.Image, "status", string(res.Status), "error", res.Error)
		}
	}
	summary.Total = len(summary.Results)
	return summary, ctx.Err()
}

type outcome struct {
	res *pipeline.Result
	err error
}

func (r *Runner) processImage(ctx context.Context, img string, w io.Writer) (result ImageResult) {
	name := filepath.Base(img)
	result = ImageResult{Image: name, Status: types.ProcessFailed}
	start := time.Now()
	defer func() { result.Duration = time.Since(start).Round(time.Millisecond) }()

	fmt.Fprintf(w, "%s\nProcessing: %s\n%s\n", rule, name, rule)

	workDir, err := os.MkdirTemp(r.Layout.Assets, ".work-")
	if err != nil {
		return fail(w, result, fmt.Errorf("creating work directory: %w", err))
	}
	if !r.Debug {
		defer os.RemoveAll(workDir)
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	ictx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	opts := pipeline.Options{
		OutputDir: r.Layout.Markdown,
		WorkDir:   workDir,
		NoClobber: true,
		Debug:     r.Debug,
	}

	// Preprocessing is CPU-bound and ignores the context, so the deadline is
	// enforced here rather than trusted to the stages. On timeout the
	// goroutine keeps running until its next context check; its progress
	// writer is closed so nothing it prints lands in the next image's output.
	pw := &gateWriter{w: w}
	done := make(chan outcome, 1)
	go func() {
		res, err := r.Processor.Process(ictx, img, opts, pw)
		done <- outcome{res, err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ictx.Done():
		pw.Close()
		out = outcome{err: ictx.Err()}
	}

	if errors.Is(out.err, context.DeadlineExceeded) && ctx.Err() == nil {
		result.Status = types.ProcessTimeout
		return fail(w, result, fmt.Errorf("processing timeout (>%s)", timeout))
	}
	if out.err != nil {
		return fail(w, result, out.err)
	}

	result.Markdown = filepath.Base(out.res.MarkdownPath)
	result.Title = out.res.Recipe.Title
	fmt.Fprintf(w, "✓ Markdown saved to: %s\n", out.res.MarkdownPath)

	dest := filepath.Join(r.Layout.Processed, name)
	if err := moveFile(img, dest); err != nil {
		return fail(w, result, fmt.Errorf("moving image: %w", err))
	}
	fmt.Fprintf(w, "✓ Image moved to: %s\n", dest)

	result.Status = types.ProcessDone
	fmt.Fprintf(w, "✓ Successfully processed %s\n", name)
	return result
}

// gateWriter forwards to w until closed, then discards.
type gateWriter struct {
	mu     sync.Mutex
	w      io.Writer
	closed bool
}

func (g *gateWriter) Write(p []byte) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return len(p), nil
	}
	return g.w.Write(p)
}

func (g *gateWriter) Close() {
	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()
}

func fail(w io.Writer, result ImageResult, err error) ImageResult {
	result.Error = err.Error()
	fmt.Fprintf(w, "✗ Error: %s\n", result.Error)
	return result
}

// moveFile renames src to dst, copying when they sit on different devices.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// PrintSummary writes the end-of-run report.
func PrintSummary(w io.Writer, s *Summary) {
	fmt.Fprintf(w, "\n%s\nPROCESSING SUMMARY\n%s\n", rule, rule)
	fmt.Fprintf(w, "Total images: %d\nSuccessful: %d\nFailed: %d\n", s.Total, s.Successful, s.Failed)
	if s.Failed > 0 {
		fmt.Fprintln(w, "\nFailed images:")
		for _, r := range s.Results {
			if !r.Success() {
				fmt.Fprintf(w, "  ✗ %s: %s\n", r.Image, r.Error)
			}
		}
	}
	if s.Successful > 0 {
		fmt.Fprintln(w, "\nSuccessful conversions:")
		for _, r := range s.Results {
			if r.Success() {
				fmt.Fprintf(w, "  ✓ %s → %s\n", r.Image, r.Markdown)
			}
		}
	}
	fmt.Fprintf(w, "%s\n\n", rule)
}

// WriteReport saves the summary as YAML.
func WriteReport(path string, s *Summary) error {
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}
