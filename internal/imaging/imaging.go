// Package imaging provides the image loading, normalization, and
// reprocessing primitives used by the face comparison pipeline. All
// operations produce new buffers; source images are never mutated.
package imaging

import (
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Load reads and decodes an image file into an opaque RGBA buffer.
// RGBA inputs are flattened over black since the detectors expect a
// fixed three-channel layout.
func Load(path string) (*image.RGBA, error) {
	f, err := os.Open(path) //nolint:gosec // caller supplies a local image path
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", filepath.Base(path), err)
	}

	return Flatten(img), nil
}

// Flatten converts any image to an opaque RGBA buffer, compositing
// partially transparent pixels over a black background.
func Flatten(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)

	// RGBA stores alpha-premultiplied channels, so after draw.Src the
	// RGB values already equal the pixel composited over black. Forcing
	// the alpha byte opaque is all that remains.
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return dst
}

// Resize scales an image to the exact target dimensions using a
// high-quality resampling filter.
func Resize(img *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// FitWithin downscales an image so its longest side is at most maxSize,
// preserving aspect ratio. Images already within bounds are returned as-is.
func FitWithin(img *image.RGBA, maxSize int) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxSize && height <= maxSize {
		return img
	}

	var newWidth, newHeight int
	if width > height {
		newWidth = maxSize
		newHeight = height * maxSize / width
	} else {
		newHeight = maxSize
		newWidth = width * maxSize / height
	}

	return Resize(img, newWidth, newHeight)
}

// Save encodes an image to path, choosing the format from the file
// extension. PNG is used for .png, JPEG for everything else.
func Save(img image.Image, path string) error {
	f, err := os.Create(path) //nolint:gosec // caller supplies the output path
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".png") {
		if err := png.Encode(f, img); err != nil {
			return fmt.Errorf("failed to encode PNG: %w", err)
		}
		return nil
	}
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return nil
}

// MeanBrightness returns the average luminance of the image (0-255).
func MeanBrightness(img *image.RGBA) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	var sum float64
	for i := 0; i < len(img.Pix); i += 4 {
		sum += luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2])
	}
	return sum / float64(total)
}

// Contrast returns the standard deviation of the image luminance, a
// rough measure of how much tonal range the image has.
func Contrast(img *image.RGBA) float64 {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total == 0 {
		return 0
	}

	mean := MeanBrightness(img)
	var sum float64
	for i := 0; i < len(img.Pix); i += 4 {
		d := luma(img.Pix[i], img.Pix[i+1], img.Pix[i+2]) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(total))
}

// luma computes the ITU-R BT.601 luminance of an RGB triple.
func luma(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}
