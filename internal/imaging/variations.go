package imaging

import "image"

// Variation is one reprocessed candidate of a source image. The buffer
// is built on demand so the pipeline pays only for variations it
// actually consumes. Labels are diagnostic and appear in pipeline
// provenance messages.
type Variation struct {
	Label string
	Build func() *image.RGBA
}

// Generator produces the ordered sequence of image variations the
// detection pipeline falls back through.
type Generator struct {
	MaxDimension     int     // longest side above which only a resized variation is produced
	ContrastFactor   float64 // contrast enhancement applied to the second variation
	BrightnessFactor float64 // brightness enhancement applied to the third variation
}

// NewGenerator returns a Generator with the calibrated default factors.
func NewGenerator(maxDimension int, contrastFactor, brightnessFactor float64) *Generator {
	return &Generator{
		MaxDimension:     maxDimension,
		ContrastFactor:   contrastFactor,
		BrightnessFactor: brightnessFactor,
	}
}

// Variations returns the ordered, non-empty list of detection candidates
// for img. Large images get a single downscaled variation since running
// every strategy on them is too expensive. Everything else gets, in
// order: the original, a contrast-enhanced copy, a brightened copy, and
// a half-resolution copy. The order encodes a preference: unmodified
// first, then the two most common capture defects, then a resolution
// change that sometimes helps the cascade detector.
func (g *Generator) Variations(img *image.RGBA) []Variation {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > g.MaxDimension || height > g.MaxDimension {
		return []Variation{
			{Label: "original resized", Build: func() *image.RGBA {
				return FitWithin(img, g.MaxDimension)
			}},
		}
	}

	return []Variation{
		{Label: "original", Build: func() *image.RGBA {
			return img
		}},
		{Label: "contrast enhanced", Build: func() *image.RGBA {
			return AdjustContrast(img, g.ContrastFactor)
		}},
		{Label: "brightened", Build: func() *image.RGBA {
			return AdjustBrightness(img, g.BrightnessFactor)
		}},
		{Label: "half size", Build: func() *image.RGBA {
			return Resize(img, max(width/2, 1), max(height/2, 1))
		}},
	}
}
