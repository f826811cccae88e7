// Package detect wraps the two detector families used by the comparison
// pipeline: a learned detector/encoder (dlib via go-face) and a classical
// cascade classifier (pigo) kept as a conservative last-resort fallback.
package detect

import (
	"fmt"
	"image"
)

// AccuracyMode selects between the fast and the accurate learned detector.
type AccuracyMode int

const (
	// ModeFast is the HOG-based frontal detector: cheap, good on clear
	// frontal faces.
	ModeFast AccuracyMode = iota
	// ModeAccurate is the CNN detector: much slower, finds harder poses.
	ModeAccurate
)

// String returns the strategy name used in provenance messages.
func (m AccuracyMode) String() string {
	if m == ModeAccurate {
		return "CNN"
	}
	return "HOG"
}

// Region is a candidate face location in pixel coordinates, in
// top/right/bottom/left order.
type Region struct {
	Top    int
	Right  int
	Bottom int
	Left   int
}

// Width returns the horizontal extent of the region.
func (r Region) Width() int { return r.Right - r.Left }

// Height returns the vertical extent of the region.
func (r Region) Height() int { return r.Bottom - r.Top }

// Embedding is a fixed-length face descriptor. Euclidean distance
// between embeddings approximates perceptual similarity between faces.
type Embedding []float32

// Model is the learned detection and encoding capability. Implementations
// must return an empty slice, not an error, when no face is found;
// errors indicate the call itself failed.
type Model interface {
	// Detect finds candidate face regions. upsample controls how much
	// the image is enlarged before detection: higher values find
	// smaller faces at a higher cost.
	Detect(img *image.RGBA, mode AccuracyMode, upsample int) ([]Region, error)
	// Encode produces one embedding per usable region. Regions that
	// cannot be encoded are skipped.
	Encode(img *image.RGBA, regions []Region) ([]Embedding, error)
}

// Detector bundles the learned model with the optional cascade fallback.
type Detector struct {
	model   Model
	cascade *CascadeClassifier
}

// NewDetector creates a Detector. cascade may be nil when no cascade
// file is available; the fallback then simply finds nothing.
func NewDetector(model Model, cascade *CascadeClassifier) *Detector {
	return &Detector{model: model, cascade: cascade}
}

// DetectLearned runs the learned detector. Failure to find faces is not
// an error; an empty slice is returned.
func (d *Detector) DetectLearned(img *image.RGBA, mode AccuracyMode, upsample int) ([]Region, error) {
	regions, err := d.model.Detect(img, mode, upsample)
	if err != nil {
		return nil, fmt.Errorf("%s detection failed: %w", mode, err)
	}
	return regions, nil
}

// DetectCascade runs the classical cascade fallback. It never returns an
// error: the cascade is a last resort and must not abort the pipeline.
func (d *Detector) DetectCascade(img *image.RGBA) []Region {
	if d.cascade == nil {
		return nil
	}
	return d.cascade.Detect(img)
}

// Encode computes embeddings for the given regions.
func (d *Detector) Encode(img *image.RGBA, regions []Region) ([]Embedding, error) {
	return d.model.Encode(img, regions)
}
