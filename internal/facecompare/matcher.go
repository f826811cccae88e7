package facecompare

import (
	"math"

	"github.com/veriface/veriface/internal/detect"
)

// DefaultTolerance is the distance below which two embeddings are
// considered the same person. Stricter than the usual 0.6 to keep
// false positives down on low-quality inputs.
const DefaultTolerance = 0.45

// MatchPair records one embedding pair within tolerance. Face indices
// are 1-based since they are shown to users.
type MatchPair struct {
	Face1    int     `json:"face1"`
	Face2    int     `json:"face2"`
	Distance float64 `json:"distance"`
}

// MatchResult is the verdict of comparing two embedding sets.
type MatchResult struct {
	IsMatch           bool        `json:"is_match"`
	BestDistance      float64     `json:"best_distance"`
	ConfidencePercent float64     `json:"confidence_percent"`
	Pairs             []MatchPair `json:"pairs,omitempty"`
}

// Matcher compares embedding sets under a fixed tolerance.
type Matcher struct {
	Tolerance float64
}

func NewMatcher(tolerance float64) *Matcher {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	return &Matcher{Tolerance: tolerance}
}

// Compare measures every embedding of left against every embedding of
// right. A single pair within tolerance makes the result a match.
// BestDistance is +Inf when either side is empty; confidence is then 0.
func (m *Matcher) Compare(left, right []detect.Embedding) MatchResult {
	best := math.Inf(1)
	var pairs []MatchPair

	for i, a := range left {
		for j, b := range right {
			d := Distance(a, b)
			if d <= m.Tolerance {
				pairs = append(pairs, MatchPair{Face1: i + 1, Face2: j + 1, Distance: d})
			}
			if d < best {
				best = d
			}
		}
	}

	confidence := 0.0
	if !math.IsInf(best, 1) {
		confidence = math.Max(0, (m.Tolerance-best)/m.Tolerance*100)
	}

	return MatchResult{
		IsMatch:           len(pairs) > 0,
		BestDistance:      best,
		ConfidencePercent: confidence,
		Pairs:             pairs,
	}
}

// Distance returns the Euclidean distance between two embeddings.
// Mismatched lengths compare over the shorter prefix, which only
// happens if embeddings from different models are mixed.
func Distance(a, b detect.Embedding) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
