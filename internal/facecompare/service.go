package facecompare

import (
	"fmt"
	"image/color"
	"log"

	"github.com/veriface/veriface/internal/imaging"
	"github.com/veriface/veriface/internal/masking"
)

// DetectionFailedMessage is the summary when either image yields no
// embeddings. Not an error: the comparison simply cannot proceed.
const DetectionFailedMessage = "Face detection failed"

// rectangleSyncTolerance is the per-coordinate slack allowed before two
// rectangle sets are considered out of sync.
const rectangleSyncTolerance = 0.01

// Service compares two image files end to end: load, optional masking,
// encoding, matching.
type Service struct {
	pipeline *Pipeline
	matcher  *Matcher
}

func NewService(pipeline *Pipeline, matcher *Matcher) *Service {
	return &Service{pipeline: pipeline, matcher: matcher}
}

// Result carries the full comparison outcome. Image messages describe
// which strategy found the faces, or why none were found.
type Result struct {
	Match         bool        `json:"match"`
	Summary       string      `json:"summary"`
	Image1Message string      `json:"image1_message"`
	Image2Message string      `json:"image2_message"`
	Comparison    MatchResult `json:"comparison"`

	// Mask coverage per image, present only when rectangles were applied.
	// The images may differ in size, so each gets its own accounting.
	Mask1Statistics *masking.Statistics `json:"mask1_statistics,omitempty"`
	Mask2Statistics *masking.Statistics `json:"mask2_statistics,omitempty"`
}

// Compare is the compact form of CompareDetailed.
func (s *Service) Compare(path1, path2 string, rects1, rects2 []masking.Rectangle) (bool, string, error) {
	result, err := s.CompareDetailed(path1, path2, rects1, rects2, 0)
	if err != nil {
		return false, "", err
	}
	return result.Match, result.Summary, nil
}

// CompareDetailed loads both images, applies the selected mask
// rectangles to each, encodes both, and matches the embeddings. A load
// or decode failure is returned as an error; everything downstream is a
// normal result. When rectangles are provided for both images, the
// first image's set is applied to both so the same areas are hidden on
// each side. tolerance overrides the configured matching tolerance when
// positive.
func (s *Service) CompareDetailed(path1, path2 string, rects1, rects2 []masking.Rectangle, tolerance float64) (*Result, error) {
	img1, err := imaging.Load(path1)
	if err != nil {
		return nil, err
	}
	img2, err := imaging.Load(path2)
	if err != nil {
		return nil, err
	}

	if len(rects1) > 0 && len(rects2) > 0 && !masking.RectanglesMatch(rects1, rects2, rectangleSyncTolerance) {
		log.Printf("mask rectangles differ between images, using the first image's set for both")
	}

	var stats1, stats2 *masking.Statistics
	if rects := masking.SelectRectangles(rects1, rects2); len(rects) > 0 {
		fill := color.RGBA{A: 255}
		b1 := img1.Bounds()
		mask1 := masking.CreateMask(rects, b1.Dx(), b1.Dy())
		img1 = masking.Apply(img1, mask1, fill)
		s1 := masking.ComputeStatistics(mask1)
		stats1 = &s1

		b2 := img2.Bounds()
		mask2 := masking.CreateMask(rects, b2.Dx(), b2.Dy())
		img2 = masking.Apply(img2, mask2, fill)
		s2 := masking.ComputeStatistics(mask2)
		stats2 = &s2
	}

	embeddings1, msg1 := s.pipeline.EncodeImage(img1)
	embeddings2, msg2 := s.pipeline.EncodeImage(img2)

	result := &Result{
		Image1Message:   msg1,
		Image2Message:   msg2,
		Mask1Statistics: stats1,
		Mask2Statistics: stats2,
	}

	if len(embeddings1) == 0 || len(embeddings2) == 0 {
		result.Summary = DetectionFailedMessage
		return result, nil
	}

	matcher := s.matcher
	if tolerance > 0 {
		matcher = NewMatcher(tolerance)
	}

	comparison := matcher.Compare(embeddings1, embeddings2)
	result.Match = comparison.IsMatch
	result.Comparison = comparison
	result.Summary = fmt.Sprintf("Distance: %.3f, Confidence: %.1f%%",
		comparison.BestDistance, comparison.ConfidencePercent)

	return result, nil
}
