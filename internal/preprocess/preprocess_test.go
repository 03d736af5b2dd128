// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package preprocess

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/cookbook/pkg/types"
)

func filled(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// card draws a light card with a few dark horizontal strokes.
func card(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 240, G: 235, B: 220, A: 255})
		}
	}
	for _, row := range []int{8, 16, 24} {
		for x := 5; x < w-5; x++ {
			img.Set(x, row, color.RGBA{R: 20, G: 20, B: 30, A: 255})
			img.Set(x, row+1, color.RGBA{R: 20, G: 20, B: 30, A: 255})
		}
	}
	return img
}

func TestGrayscale(t *testing.T) {
	g := Grayscale(card(40, 32))
	assert.Equal(t, image.Rect(0, 0, 40, 32), g.Bounds())
	assert.Greater(t, g.GrayAt(0, 0).Y, uint8(200))
	assert.Less(t, g.GrayAt(10, 8).Y, uint8(40))

	same := filled(3, 3, 7)
	assert.Same(t, same, Grayscale(same))
}

func TestDenoise_RemovesSpeck(t *testing.T) {
	g := filled(9, 9, 255)
	g.SetGray(4, 4, color.Gray{Y: 0})

	out := Denoise(g)
	for _, p := range out.Pix {
		assert.Equal(t, uint8(255), p)
	}
}

func TestAdaptiveThreshold(t *testing.T) {
	g := filled(21, 21, 230)
	for y := 9; y <= 11; y++ {
		for x := 9; x <= 11; x++ {
			g.SetGray(x, y, color.Gray{Y: 40})
		}
	}

	bin := AdaptiveThreshold(g, 15, 10)
	assert.Equal(t, uint8(0), bin.GrayAt(10, 10).Y, "dark mark becomes black")
	assert.Equal(t, uint8(255), bin.GrayAt(0, 0).Y, "flat background becomes white")
	assert.Equal(t, uint8(255), bin.GrayAt(20, 20).Y)
}

func TestNeedsInvertAndInvert(t *testing.T) {
	dark := filled(10, 10, 0)
	dark.SetGray(1, 1, color.Gray{Y: 255})
	assert.True(t, NeedsInvert(dark))

	inv := Invert(dark)
	assert.False(t, NeedsInvert(inv))
	assert.Equal(t, uint8(0), inv.GrayAt(1, 1).Y)
	assert.Equal(t, uint8(255), inv.GrayAt(5, 5).Y)
}

func TestClose_FillsPinhole(t *testing.T) {
	g := filled(8, 8, 255)
	g.SetGray(3, 3, color.Gray{Y: 0})

	out := Close(g)
	for _, p := range out.Pix {
		assert.Equal(t, uint8(255), p)
	}
}

func TestUpscale(t *testing.T) {
	tests := []struct {
		name          string
		w, h          int
		target, limit int
		wantOK        bool
		wantW         int
		wantH         int
	}{
		{"wide card", 100, 50, 2400, 5000, true, 2400, 1200},
		{"tall card capped by height", 100, 400, 2400, 5000, true, 1250, 5000},
		{"already wide enough", 2400, 100, 2400, 5000, false, 0, 0},
		{"taller than the cap shrinks", 100, 600, 240, 500, true, 83, 500},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := Upscale(filled(tt.w, tt.h, 255), tt.target, tt.limit)
			assert.Equal(t, tt.wantOK, ok)
			if !tt.wantOK {
				assert.Nil(t, out)
				return
			}
			assert.Equal(t, tt.wantW, out.Bounds().Dx())
			assert.Equal(t, tt.wantH, out.Bounds().Dy())
		})
	}
}

func TestRun_DebugSnapshots(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultConfig().Preprocess
	cfg.TargetWidth = 80
	cfg.DebugDir = dir

	res, err := Run(card(40, 32), cfg)
	require.NoError(t, err)
	assert.False(t, res.Inverted)
	assert.True(t, res.Upscaled)
	assert.Equal(t, 80, res.Image.Bounds().Dx())

	var names []string
	for _, p := range res.DebugFiles {
		names = append(names, filepath.Base(p))
		_, err := os.Stat(p)
		assert.NoError(t, err)
	}
	assert.Equal(t, []string{
		"debug_01_original.png",
		"debug_02_grayscale.png",
		"debug_03_denoised.png",
		"debug_04_adaptive_threshold.png",
		"debug_06_cleaned.png",
		"debug_07_upscaled.png",
	}, names)
}

func TestRun_NoDebugDir(t *testing.T) {
	res, err := Run(card(40, 32), types.PreprocessConfig{})
	require.NoError(t, err)
	assert.Empty(t, res.DebugFiles)
	assert.Equal(t, 2400, res.Image.Bounds().Dx())
}

func TestWithDefaults(t *testing.T) {
	def := types.DefaultConfig().Preprocess

	got := withDefaults(types.PreprocessConfig{})
	assert.Equal(t, def.TargetWidth, got.TargetWidth)
	assert.Equal(t, def.MaxHeight, got.MaxHeight)
	assert.Equal(t, def.BlockSize, got.BlockSize)
	assert.Zero(t, got.Offset, "a zero offset is a valid setting")

	got = withDefaults(types.PreprocessConfig{BlockSize: 8, Offset: -4})
	assert.Equal(t, def.BlockSize, got.BlockSize, "even block sizes fall back")
	assert.Equal(t, -4, got.Offset)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "card.png")
	require.NoError(t, SavePNG(path, card(20, 30)))

	img, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 20, 30), img.Bounds())

	bad := filepath.Join(dir, "note.png")
	require.NoError(t, os.WriteFile(bad, []byte("not an image"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	_, err = Load(filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}
