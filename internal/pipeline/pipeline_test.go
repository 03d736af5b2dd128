// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/internal/extract"
	"github.com/pdiddy/cookbook/internal/preprocess"
	"github.com/pdiddy/cookbook/internal/recipe"
	"github.com/pdiddy/cookbook/pkg/types"
)

type fakeOCR struct {
	text    string
	err     error
	gotPath string
	existed bool
}

func (f *fakeOCR) Recognize(_ context.Context, path string) (string, error) {
	f.gotPath = path
	_, err := os.Stat(path)
	f.existed = err == nil
	return f.text, f.err
}

type fakeLLM struct {
	data    extract.RecipeData
	err     error
	gotText string
}

func (f *fakeLLM) Extract(_ context.Context, text string) (extract.RecipeData, error) {
	f.gotText = text
	return f.data, f.err
}

func writeCard(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 230
	}
	for x := 4; x < 36; x++ {
		img.SetGray(x, 10, color.Gray{Y: 20})
	}
	path := filepath.Join(dir, name)
	require.NoError(t, preprocess.SavePNG(path, img))
	return path
}

func meatballs() extract.RecipeData {
	return extract.RecipeData{
		Title:        "Spicy Glazed Meatballs",
		Servings:     "4 to 6",
		CookTime:     "15 minutes",
		Ingredients:  []string{"1 pound ground beef", "½ cup quick oats"},
		Instructions: []string{"Mix everything. Shape into balls.", "Bake 15 minutes."},
	}
}

func newPipeline(o *fakeOCR, l *fakeLLM) *Pipeline {
	pcfg := types.DefaultConfig().Preprocess
	pcfg.TargetWidth = 80
	return &Pipeline{
		OCR:        o,
		LLM:        l,
		Preprocess: pcfg,
		MaxRetries: 1,
	}
}

func TestProcess(t *testing.T) {
	dir := t.TempDir()
	img := writeCard(t, dir, "card01.png")
	outDir := filepath.Join(dir, "markdown")
	o := &fakeOCR{text: "SPICY GLAZED MEATBALLS\n\n\n\n1 pound ground beef\n1/2 cup quick oats"}
	l := &fakeLLM{data: meatballs()}

	var out bytes.Buffer
	res, err := newPipeline(o, l).Process(context.Background(), img, Options{OutputDir: outDir}, &out)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(outDir, "Spicy_Glazed_Meatballs.md"), res.MarkdownPath)
	assert.Equal(t, filepath.Join(dir, "card01_ocr.txt"), res.OCRPath)
	assert.True(t, o.existed, "OCR reads the preprocessed image from disk")
	_, err = os.Stat(o.gotPath)
	assert.True(t, os.IsNotExist(err), "preprocessed image is removed outside debug mode")

	ocrText, err := os.ReadFile(res.OCRPath)
	require.NoError(t, err)
	assert.Equal(t, "SPICY GLAZED MEATBALLS\n\n1 pound ground beef\n½ cup quick oats", string(ocrText))
	assert.Equal(t, string(ocrText), l.gotText, "the model sees cleaned text")

	doc, err := recipe.ParseFile(res.MarkdownPath)
	require.NoError(t, err)
	assert.Equal(t, "Spicy Glazed Meatballs", doc.Recipe.Title)
	assert.Equal(t, "4 to 6", doc.Recipe.Serves)
	assert.Equal(t, "Unknown", doc.Recipe.PrepTime)
	assert.Len(t, doc.Recipe.Instructions, 2)
	assert.Empty(t, recipe.Validate(doc))

	assert.Contains(t, out.String(), "Processing recipe: "+img)
	assert.Contains(t, out.String(), "Recipe title: Spicy Glazed Meatballs")
	assert.NotContains(t, out.String(), "DEBUG")
}

func TestProcess_ExplicitOutputAndDebug(t *testing.T) {
	dir := t.TempDir()
	img := writeCard(t, dir, "card02.jpg.png")
	work := filepath.Join(dir, "work")
	target := filepath.Join(dir, "custom", "Meatballs.md")

	var out bytes.Buffer
	res, err := newPipeline(&fakeOCR{text: "text"}, &fakeLLM{data: meatballs()}).
		Process(context.Background(), img, Options{OutputPath: target, WorkDir: work, Debug: true}, &out)
	require.NoError(t, err)
	assert.Equal(t, target, res.MarkdownPath)
	assert.FileExists(t, target)

	var names []string
	for _, f := range res.WorkFiles {
		assert.FileExists(t, f)
		assert.Equal(t, work, filepath.Dir(f))
		names = append(names, filepath.Base(f))
	}
	assert.Contains(t, names, "debug_01_original.png")
	assert.Contains(t, names, "card02.jpg_preprocessed.png")
	assert.Contains(t, names, "card02.jpg_ocr.txt")
	assert.Contains(t, out.String(), "DEBUG: OCR OUTPUT")
	assert.Contains(t, out.String(), "DEBUG: EXTRACTED RECIPE DATA")
}

func TestProcess_Failures(t *testing.T) {
	dir := t.TempDir()
	img := writeCard(t, dir, "card.png")

	tests := []struct {
		name    string
		image   string
		ocr     *fakeOCR
		llm     *fakeLLM
		wantErr string
	}{
		{"missing image", filepath.Join(dir, "nope.png"), &fakeOCR{}, &fakeLLM{}, "image not found"},
		{"ocr fails", img, &fakeOCR{err: errors.New("tesseract missing")}, &fakeLLM{}, "OCR: tesseract missing"},
		{"nothing recognized", img, &fakeOCR{text: "  \n"}, &fakeLLM{}, "no OCR text"},
		{"model fails", img, &fakeOCR{text: "soup"}, &fakeLLM{err: errors.New("connection refused")}, "connection refused"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			_, err := newPipeline(tt.ocr, tt.llm).Process(context.Background(), tt.image,
				Options{OutputDir: filepath.Join(dir, "md")}, &out)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
	assert.NoDirExists(t, filepath.Join(dir, "md"), "no recipe written on failure")
}

func TestProcess_MissingBackends(t *testing.T) {
	_, err := (&Pipeline{}).Process(context.Background(), "card.png", Options{}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "OCR engine"))
}

func TestProcess_NoClobber(t *testing.T) {
	dir := t.TempDir()
	img := writeCard(t, dir, "card.png")
	outDir := filepath.Join(dir, "md")
	require.NoError(t, os.MkdirAll(outDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(outDir, "Spicy_Glazed_Meatballs.md"), []byte("keep"), 0o644))

	res, err := newPipeline(&fakeOCR{text: "text"}, &fakeLLM{data: meatballs()}).
		Process(context.Background(), img, Options{OutputDir: outDir, NoClobber: true}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(outDir, "Spicy_Glazed_Meatballs_2.md"), res.MarkdownPath)

	kept, err := os.ReadFile(filepath.Join(outDir, "Spicy_Glazed_Meatballs.md"))
	require.NoError(t, err)
	assert.Equal(t, "keep", string(kept))
}
