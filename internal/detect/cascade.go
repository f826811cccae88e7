package detect

import (
	"fmt"
	"image"
	"log"

	pigo "github.com/esimov/pigo/core"
)

// CascadeParams tunes the cascade classifier. The defaults are
// deliberately conservative: the cascade has no downstream quality check
// to catch its mistakes, so false positives are expensive.
type CascadeParams struct {
	MinSize          int     // smallest accepted face, pixels
	MaxSize          int     // largest accepted face, pixels
	ShiftFactor      float64 // detection window shift as fraction of size
	ScaleFactor      float64 // detection window growth per scale step
	OverlapThreshold float64 // IoU above which detections are clustered
	QualityThreshold float64 // minimum detection score to keep
	MinAspect        float64 // minimum width/height ratio after clamping
	MaxAspect        float64 // maximum width/height ratio after clamping
}

// DefaultCascadeParams returns the conservative tuning used by the
// comparison pipeline.
func DefaultCascadeParams() CascadeParams {
	return CascadeParams{
		MinSize:          80,
		MaxSize:          400,
		ShiftFactor:      0.1,
		ScaleFactor:      1.1,
		OverlapThreshold: 0.2,
		QualityThreshold: 20.0,
		MinAspect:        0.8,
		MaxAspect:        1.25,
	}
}

// CascadeClassifier is an explicitly owned cascade detector instance.
// Construct one per comparator; the underlying classifier is read-only
// after Unpack so a single instance is safe for concurrent Detect calls.
type CascadeClassifier struct {
	classifier *pigo.Pigo
	params     CascadeParams
}

// NewCascadeClassifier unpacks a binary cascade file into a classifier.
func NewCascadeClassifier(cascadeData []byte, params CascadeParams) (*CascadeClassifier, error) {
	p := pigo.NewPigo()
	classifier, err := p.Unpack(cascadeData)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack cascade file: %w", err)
	}
	return &CascadeClassifier{classifier: classifier, params: params}, nil
}

// Detect runs the cascade over the image and returns candidate regions
// surviving the conservative post-filters. Internal failures are logged
// and reported as "no faces": the cascade must never abort the pipeline.
func (c *CascadeClassifier) Detect(img *image.RGBA) (regions []Region) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("cascade detection panicked: %v", r)
			regions = nil
		}
	}()

	src := pigo.ImgToNRGBA(img)
	pixels := pigo.RgbToGrayscale(src)
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	cParams := pigo.CascadeParams{
		MinSize:     c.params.MinSize,
		MaxSize:     c.params.MaxSize,
		ShiftFactor: c.params.ShiftFactor,
		ScaleFactor: c.params.ScaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := c.classifier.RunCascade(cParams, 0.0)
	dets = c.classifier.ClusterDetections(dets, c.params.OverlapThreshold)

	return detectionsToRegions(dets, img.Bounds(), c.params)
}

// detectionsToRegions converts raw circle detections to clamped square
// regions and applies the conservative post-filters: a minimum quality
// score, the size window, and a near-square aspect ratio (frontal human
// faces are roughly square; anything else is treated as a false positive).
func detectionsToRegions(dets []pigo.Detection, bounds image.Rectangle, params CascadeParams) []Region {
	var regions []Region
	for _, det := range dets {
		if float64(det.Q) < params.QualityThreshold {
			continue
		}

		half := det.Scale / 2
		region := clampRegion(Region{
			Top:    det.Row - half,
			Right:  det.Col + half,
			Bottom: det.Row + half,
			Left:   det.Col - half,
		}, bounds)

		if !regionPassesFilters(region, params) {
			continue
		}
		regions = append(regions, region)
	}
	return regions
}

// clampRegion restricts a region to the image bounds.
func clampRegion(r Region, bounds image.Rectangle) Region {
	if r.Top < bounds.Min.Y {
		r.Top = bounds.Min.Y
	}
	if r.Left < bounds.Min.X {
		r.Left = bounds.Min.X
	}
	if r.Bottom > bounds.Max.Y {
		r.Bottom = bounds.Max.Y
	}
	if r.Right > bounds.Max.X {
		r.Right = bounds.Max.X
	}
	return r
}

// regionPassesFilters checks the size window and aspect ratio. Clamping
// can squash a region that started square, so the checks run after it.
func regionPassesFilters(r Region, params CascadeParams) bool {
	width := r.Width()
	height := r.Height()
	if width < params.MinSize || height < params.MinSize {
		return false
	}
	if width > params.MaxSize || height > params.MaxSize {
		return false
	}

	aspect := float64(width) / float64(height)
	return aspect >= params.MinAspect && aspect <= params.MaxAspect
}
