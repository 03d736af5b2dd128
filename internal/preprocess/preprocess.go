// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package preprocess cleans photographed recipe cards for OCR: light cards
// with dark text, sometimes on a textured background. The steps are
// grayscale, median denoise, adaptive Gaussian threshold, inversion of dark
// backgrounds, a small morphological close, and upscaling.
package preprocess

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/pdiddy/cookbook/pkg/types"
)

// Result is the cleaned image plus what happened to it.
type Result struct {
	Image    *image.Gray
	Inverted bool
	Upscaled bool

	// DebugFiles lists the snapshots written when DebugDir is set.
	DebugFiles []string
}

// Load decodes an image file in any supported format (jpeg, png, gif, bmp,
// tiff, webp).
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening image %s: %w", path, err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding image %s: %w", path, err)
	}
	return img, nil
}

// File loads the image at path and runs Run on it.
func File(path string, cfg types.PreprocessConfig) (*Result, error) {
	img, err := Load(path)
	if err != nil {
		return nil, err
	}
	return Run(img, cfg)
}

// Run applies the full preprocessing chain. When cfg.DebugDir is set each
// intermediate step is saved there as debug_NN_<step>.png.
func Run(img image.Image, cfg types.PreprocessConfig) (*Result, error) {
	cfg = withDefaults(cfg)
	res := &Result{}

	snap := func(step int, name string, im image.Image) error {
		if cfg.DebugDir == "" {
			return nil
		}
		path := filepath.Join(cfg.DebugDir, fmt.Sprintf("debug_%02d_%s.png", step, name))
		if err := SavePNG(path, im); err != nil {
			return err
		}
		res.DebugFiles = append(res.DebugFiles, path)
		return nil
	}

	if cfg.DebugDir != "" {
		if err := os.MkdirAll(cfg.DebugDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating debug directory: %w", err)
		}
	}
	if err := snap(1, "original", img); err != nil {
		return nil, err
	}

	gray := Grayscale(img)
	if err := snap(2, "grayscale", gray); err != nil {
		return nil, err
	}

	denoised := Denoise(gray)
	if err := snap(3, "denoised", denoised); err != nil {
		return nil, err
	}

	binary := AdaptiveThreshold(denoised, cfg.BlockSize, cfg.Offset)
	if err := snap(4, "adaptive_threshold", binary); err != nil {
		return nil, err
	}

	if NeedsInvert(binary) {
		binary = Invert(binary)
		res.Inverted = true
		if err := snap(5, "inverted", binary); err != nil {
			return nil, err
		}
	}

	cleaned := Close(binary)
	if err := snap(6, "cleaned", cleaned); err != nil {
		return nil, err
	}

	res.Image = cleaned
	if up, ok := Upscale(cleaned, cfg.TargetWidth, cfg.MaxHeight); ok {
		res.Image = up
		res.Upscaled = true
		if err := snap(7, "upscaled", up); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func withDefaults(cfg types.PreprocessConfig) types.PreprocessConfig {
	def := types.DefaultConfig().Preprocess
	if cfg.TargetWidth <= 0 {
		cfg.TargetWidth = def.TargetWidth
	}
	if cfg.MaxHeight <= 0 {
		cfg.MaxHeight = def.MaxHeight
	}
	if cfg.BlockSize < 3 || cfg.BlockSize%2 == 0 {
		cfg.BlockSize = def.BlockSize
	}
	return cfg
}

// Grayscale converts img to 8-bit luminance.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(gray, gray.Bounds(), img, b.Min, draw.Src)
	return gray
}

// Denoise applies a 3x3 median filter, which flattens background texture
// such as granite countertops without blurring stroke edges much.
func Denoise(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	var window [9]uint8
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			n := 0
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window[n] = grayAt(src, clamp(x+dx, w), clamp(y+dy, h))
					n++
				}
			}
			s := window[:]
			sort.Slice(s, func(i, j int) bool { return s[i] < s[j] })
			dst.Pix[y*dst.Stride+x] = s[4]
		}
	}
	return dst
}

// AdaptiveThreshold binarizes src against a Gaussian-weighted local mean over
// a block x block neighbourhood: a pixel becomes white (255) when it is
// brighter than the local mean minus offset, black otherwise.
func AdaptiveThreshold(src *image.Gray, block, offset int) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	kernel := gaussianKernel(block)
	r := block / 2

	// Separable blur: horizontal pass into tmp, vertical pass into mean.
	tmp := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var sum float64
			for k := -r; k <= r; k++ {
				sum += kernel[k+r] * float64(grayAt(src, reflect(x+k, w), y))
			}
			tmp[y*w+x] = sum
		}
	}

	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var mean float64
			for k := -r; k <= r; k++ {
				mean += kernel[k+r] * tmp[reflect(y+k, h)*w+x]
			}
			if float64(grayAt(src, x, y)) > mean-float64(offset) {
				dst.Pix[y*dst.Stride+x] = 255
			}
		}
	}
	return dst
}

// gaussianKernel returns normalized weights for an odd size, using the
// same sigma rule OpenCV applies when sigma is derived from the size.
func gaussianKernel(size int) []float64 {
	sigma := 0.3*(float64(size-1)*0.5-1) + 0.8
	r := size / 2
	k := make([]float64, size)
	var sum float64
	for i := -r; i <= r; i++ {
		v := math.Exp(-float64(i*i) / (2 * sigma * sigma))
		k[i+r] = v
		sum += v
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// NeedsInvert reports whether a binary image has more black than white
// pixels, meaning the background came out dark.
func NeedsInvert(bin *image.Gray) bool {
	w, h := bin.Rect.Dx(), bin.Rect.Dy()
	var white, black int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if grayAt(bin, x, y) >= 128 {
				white++
			} else {
				black++
			}
		}
	}
	return black > white
}

// Invert returns the photographic negative of src.
func Invert(src *image.Gray) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst.Pix[y*dst.Stride+x] = 255 - grayAt(src, x, y)
		}
	}
	return dst
}

// Close performs a morphological close (dilate, then erode) with a 2x2
// kernel, filling pinholes inside strokes.
func Close(src *image.Gray) *image.Gray {
	return morph(morph(src, -1, maxU8), 0, minU8)
}

// morph applies op over the 2x2 window starting at offset from each pixel.
func morph(src *image.Gray, offset int, op func(a, b uint8) uint8) *image.Gray {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := grayAt(src, clamp(x+offset, w), clamp(y+offset, h))
			v = op(v, grayAt(src, clamp(x+offset+1, w), clamp(y+offset, h)))
			v = op(v, grayAt(src, clamp(x+offset, w), clamp(y+offset+1, h)))
			v = op(v, grayAt(src, clamp(x+offset+1, w), clamp(y+offset+1, h)))
			dst.Pix[y*dst.Stride+x] = v
		}
	}
	return dst
}

// Upscale rescales images narrower than targetWidth to that width, keeping
// the aspect ratio. When the result would be taller than maxHeight the scale
// is taken from the height instead, which shrinks tall narrow images. It
// reports false and returns nil when the image is already wide enough.
func Upscale(src *image.Gray, targetWidth, maxHeight int) (*image.Gray, bool) {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 || w >= targetWidth {
		return nil, false
	}
	scale := float64(targetWidth) / float64(w)
	if float64(h)*scale > float64(maxHeight) {
		scale = float64(maxHeight) / float64(h)
	}
	nw, nh := max(int(float64(w)*scale), 1), max(int(float64(h)*scale), 1)
	return Grayscale(resize.Resize(uint(nw), uint(nh), src, resize.Bicubic)), true
}

// SavePNG writes img to path as PNG.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

func grayAt(g *image.Gray, x, y int) uint8 {
	return g.GrayAt(g.Rect.Min.X+x, g.Rect.Min.Y+y).Y
}

func clamp(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// reflect mirrors out-of-range coordinates back into [0, n), excluding the
// edge pixel itself (OpenCV's BORDER_REFLECT_101).
func reflect(v, n int) int {
	if n == 1 {
		return 0
	}
	for v < 0 || v >= n {
		if v < 0 {
			v = -v
		}
		if v >= n {
			v = 2*(n-1) - v
		}
	}
	return v
}

func maxU8(a, b uint8) uint8 {
	if a > b {
		return a
	}
	return b
}

func minU8(a, b uint8) uint8 {
	if a < b {
		return a
	}
	return b
}
