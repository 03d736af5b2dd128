// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ocr turns a preprocessed recipe-card image into text using
// Tesseract, either from the host PATH or inside a container image.
package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/cookbook/internal/container"
	"github.com/pdiddy/cookbook/pkg/types"
)

// Page segmentation modes. Uniform block suits index cards; fully
// automatic segmentation rescues photos where the block guess fails.
const (
	psmUniformBlock = "6"
	psmAutomatic    = "3"
)

// Engine recognizes the text in an image file.
type Engine interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// runner abstracts subprocess execution for testing.
type runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
}

type osRunner struct{}

func (osRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

// TesseractEngine runs a locally installed tesseract binary.
type TesseractEngine struct {
	Binary   string
	Language string
	MinChars int

	run runner
}

// NewTesseract returns an engine configured from cfg.
func NewTesseract(cfg types.OCRConfig) *TesseractEngine {
	return &TesseractEngine{
		Binary:   orDefault(cfg.Binary, "tesseract"),
		Language: orDefault(cfg.Language, "eng"),
		MinChars: cfg.MinChars,
		run:      osRunner{},
	}
}

// Recognize implements Engine.
func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	return recognize(e.MinChars, func(psm string) (string, error) {
		var out bytes.Buffer
		args := append([]string{imagePath, "stdout"}, tesseractFlags(e.Language, psm)...)
		if err := e.run.Run(ctx, e.Binary, args, nil, &out); err != nil {
			return "", fmt.Errorf("running %s on %s: %w", e.Binary, imagePath, err)
		}
		return out.String(), nil
	})
}

// ContainerEngine runs tesseract inside a container image, streaming the
// image through stdin so no volume mounts are needed.
type ContainerEngine struct {
	Runtime  container.Runtime
	Image    string
	Language string
	MinChars int
}

// NewContainer detects a container runtime and checks that the OCR image
// is present locally.
func NewContainer(ctx context.Context, cfg types.OCRConfig) (*ContainerEngine, error) {
	rt, err := container.DetectRuntime()
	if err != nil {
		return nil, err
	}
	if err := rt.ImageExists(ctx, cfg.Image); err != nil {
		return nil, fmt.Errorf("OCR image unavailable (pull %s first): %w", cfg.Image, err)
	}
	return &ContainerEngine{
		Runtime:  rt,
		Image:    cfg.Image,
		Language: orDefault(cfg.Language, "eng"),
		MinChars: cfg.MinChars,
	}, nil
}

// Recognize implements Engine.
func (e *ContainerEngine) Recognize(ctx context.Context, imagePath string) (string, error) {
	return recognize(e.MinChars, func(psm string) (string, error) {
		f, err := os.Open(imagePath)
		if err != nil {
			return "", fmt.Errorf("opening image: %w", err)
		}
		defer f.Close()

		var out bytes.Buffer
		cmd := append([]string{"tesseract", "stdin", "stdout"}, tesseractFlags(e.Language, psm)...)
		if err := e.Runtime.Run(ctx, e.Image, cmd, f, &out); err != nil {
			return "", err
		}
		return out.String(), nil
	})
}

// New returns the engine selected by cfg.Backend.
func New(ctx context.Context, cfg types.OCRConfig) (Engine, error) {
	switch cfg.Backend {
	case "", types.OCRTesseract:
		return NewTesseract(cfg), nil
	case types.OCRContainer:
		return NewContainer(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown OCR backend %q", cfg.Backend)
	}
}

// recognize runs a uniform-block pass and, when that yields fewer than
// minChars characters, replaces it with a fully automatic pass.
func recognize(minChars int, pass func(psm string) (string, error)) (string, error) {
	if minChars <= 0 {
		minChars = 50
	}
	text, err := pass(psmUniformBlock)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(strings.TrimSpace(text)) < minChars {
		return pass(psmAutomatic)
	}
	return text, nil
}

func tesseractFlags(lang, psm string) []string {
	return []string{"-l", lang, "--oem", "3", "--psm", psm}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
