// Package masking implements rectangle-based image redaction. Callers
// supply rectangles in normalized coordinates which are validated,
// clamped, rasterized into a boolean mask at a specific image's pixel
// dimensions, and filled with a solid color. Masking is always optional:
// malformed input degrades to "no masking" rather than failing a
// comparison.
package masking

import (
	"encoding/json"
	"image"
	"image/color"
	"math"

	"github.com/veriface/veriface/internal/imaging"
)

// Rectangle is a caller-supplied region in normalized image coordinates:
// (X, Y) is the top-left corner and all fields are in [0, 1]. After
// parsing, X+Width <= 1 and Y+Height <= 1 always hold.
type Rectangle struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// rawRectangle detects missing fields during parsing: a nil pointer
// means the key was absent, which invalidates that single rectangle.
type rawRectangle struct {
	X      *float64 `json:"x"`
	Y      *float64 `json:"y"`
	Width  *float64 `json:"width"`
	Height *float64 `json:"height"`
}

// ParseRectangles parses a JSON list of rectangle descriptors. Rectangles
// missing a required field are dropped individually; coordinates are
// clamped into [0,1] and width/height shrunk to fit; rectangles left with
// no area are dropped. Malformed JSON yields an empty list, never an
// error, since a parse failure just means "no masking".
func ParseRectangles(data []byte) []Rectangle {
	if len(data) == 0 {
		return nil
	}

	var raw []rawRectangle
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	var rects []Rectangle
	for _, r := range raw {
		if r.X == nil || r.Y == nil || r.Width == nil || r.Height == nil {
			continue
		}

		x := clamp01(*r.X)
		y := clamp01(*r.Y)
		rect := Rectangle{
			X:      x,
			Y:      y,
			Width:  math.Min(1-x, math.Max(0, *r.Width)),
			Height: math.Min(1-y, math.Max(0, *r.Height)),
		}

		// Zero-area rectangles are dropped, not kept clamped to zero.
		if rect.Width > 0 && rect.Height > 0 {
			rects = append(rects, rect)
		}
	}
	return rects
}

// SelectRectangles applies the synchronization precedence: when both
// images in a comparison supply rectangles, the first image's set is the
// canonical one and is applied to both.
func SelectRectangles(rects1, rects2 []Rectangle) []Rectangle {
	if len(rects1) > 0 {
		return rects1
	}
	return rects2
}

// RectanglesMatch reports whether two rectangle sets are equal within
// the given per-coordinate tolerance. Used to confirm that a caller
// intended synchronized masking.
func RectanglesMatch(rects1, rects2 []Rectangle, tolerance float64) bool {
	if len(rects1) != len(rects2) {
		return false
	}
	for i := range rects1 {
		if math.Abs(rects1[i].X-rects2[i].X) > tolerance ||
			math.Abs(rects1[i].Y-rects2[i].Y) > tolerance ||
			math.Abs(rects1[i].Width-rects2[i].Width) > tolerance ||
			math.Abs(rects1[i].Height-rects2[i].Height) > tolerance {
			return false
		}
	}
	return true
}

// Mask is a boolean pixel grid; true marks a pixel for redaction. A mask
// is rasterized for one image's dimensions and must be re-rasterized (or
// resized) for images of a different size.
type Mask struct {
	Width  int
	Height int
	bits   []bool
}

// NewMask creates an all-false mask of the given dimensions.
func NewMask(width, height int) *Mask {
	return &Mask{Width: width, Height: height, bits: make([]bool, width*height)}
}

// At reports whether the pixel at (x, y) is masked.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.bits[y*m.Width+x]
}

// Set marks the pixel at (x, y).
func (m *Mask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.bits[y*m.Width+x] = v
}

// MaskedCount returns the number of masked pixels.
func (m *Mask) MaskedCount() int {
	count := 0
	for _, b := range m.bits {
		if b {
			count++
		}
	}
	return count
}

// CreateMask rasterizes rectangles onto a boolean grid of the given
// pixel dimensions. Pixel edges are floor-rounded from the normalized
// coordinates, then re-clamped into the grid with a minimum one-pixel
// span so a rectangle that survived parsing always marks something.
func CreateMask(rects []Rectangle, width, height int) *Mask {
	mask := NewMask(width, height)
	if width <= 0 || height <= 0 {
		return mask
	}

	for _, rect := range rects {
		x1 := int(rect.X * float64(width))
		y1 := int(rect.Y * float64(height))
		x2 := int((rect.X + rect.Width) * float64(width))
		y2 := int((rect.Y + rect.Height) * float64(height))

		x1 = clampInt(x1, 0, width-1)
		y1 = clampInt(y1, 0, height-1)
		x2 = clampInt(x2, x1+1, width)
		y2 = clampInt(y2, y1+1, height)

		for y := y1; y < y2; y++ {
			for x := x1; x < x2; x++ {
				mask.bits[y*width+x] = true
			}
		}
	}
	return mask
}

// Apply returns a copy of the image with every masked pixel set to fill.
// A mask rasterized for different dimensions is nearest-neighbor resized
// first, preserving the resolution-independent semantics of the
// normalized rectangles.
func Apply(img *image.RGBA, mask *Mask, fill color.RGBA) *image.RGBA {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if mask.Width != width || mask.Height != height {
		mask = mask.resize(width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	copy(dst.Pix, img.Pix)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if mask.bits[y*width+x] {
				dst.SetRGBA(x, y, fill)
			}
		}
	}
	return dst
}

// resize scales the mask to new dimensions using nearest-neighbor
// sampling.
func (m *Mask) resize(width, height int) *Mask {
	dst := NewMask(width, height)
	if m.Width == 0 || m.Height == 0 {
		return dst
	}
	for y := 0; y < height; y++ {
		srcY := y * m.Height / height
		for x := 0; x < width; x++ {
			srcX := x * m.Width / width
			dst.bits[y*width+x] = m.bits[srcY*m.Width+srcX]
		}
	}
	return dst
}

// Statistics summarizes mask coverage for caller-facing reporting.
type Statistics struct {
	TotalPixels        int     `json:"total_pixels"`
	MaskedPixels       int     `json:"masked_pixels"`
	UnmaskedPixels     int     `json:"unmasked_pixels"`
	MaskPercentage     float64 `json:"mask_percentage"`
	UnmaskedPercentage float64 `json:"unmasked_percentage"`
}

// ComputeStatistics returns coverage accounting for a mask.
func ComputeStatistics(mask *Mask) Statistics {
	total := mask.Width * mask.Height
	masked := mask.MaskedCount()
	stats := Statistics{
		TotalPixels:    total,
		MaskedPixels:   masked,
		UnmaskedPixels: total - masked,
	}
	if total > 0 {
		stats.MaskPercentage = float64(masked) / float64(total) * 100
		stats.UnmaskedPercentage = float64(total-masked) / float64(total) * 100
	}
	return stats
}

// CreateMaskedImageFile rasterizes rectangles against the input image,
// applies the fill, and writes the result to outputPath. Returns the
// output path for convenience.
func CreateMaskedImageFile(inputPath, outputPath string, rects []Rectangle, fill color.RGBA) (string, error) {
	img, err := imaging.Load(inputPath)
	if err != nil {
		return "", err
	}

	bounds := img.Bounds()
	mask := CreateMask(rects, bounds.Dx(), bounds.Dy())
	masked := Apply(img, mask, fill)

	if err := imaging.Save(masked, outputPath); err != nil {
		return "", err
	}
	return outputPath, nil
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
