// Package facecompare decides whether two photographs depict the same
// person. The encoding pipeline runs a cascade of detection strategies
// over reprocessed image variations, the matcher compares the resulting
// embeddings, and the service ties both together behind one call.
package facecompare

import (
	"fmt"
	"image"
	"log"

	"github.com/veriface/veriface/internal/detect"
	"github.com/veriface/veriface/internal/imaging"
)

// NoFacesMessage is reported when every strategy on every variation
// came up empty.
const NoFacesMessage = "No faces detected with any method or image variation"

// Pipeline turns an image into face embeddings. Strategies are ordered
// cheapest first; the first one that yields at least one embedding wins.
type Pipeline struct {
	detector  *detect.Detector
	generator *imaging.Generator
}

func NewPipeline(detector *detect.Detector, generator *imaging.Generator) *Pipeline {
	return &Pipeline{detector: detector, generator: generator}
}

// trial is one strategy applied to one variation.
type trial struct {
	strategy string
	label    string
	build    func() *image.RGBA
	detect   func(img *image.RGBA) ([]detect.Region, error)
}

// Encode loads an image file and runs EncodeImage on it. The returned
// error covers load and decode failures only; failing to find a face is
// a normal result carried by the message.
func (p *Pipeline) Encode(path string) ([]detect.Embedding, string, error) {
	img, err := imaging.Load(path)
	if err != nil {
		return nil, "", err
	}
	embeddings, message := p.EncodeImage(img)
	return embeddings, message, nil
}

// EncodeImage runs the strategy cascade over img and returns the
// embeddings of the first successful trial together with a provenance
// message. The cascade tries the fast HOG detector on every variation
// before paying for upsampled HOG, CNN, and the classical cascade on
// the last variation. Strategy errors are logged and the cascade moves
// on; only total exhaustion produces an empty result.
func (p *Pipeline) EncodeImage(img *image.RGBA) ([]detect.Embedding, string) {
	flat := imaging.Flatten(img)
	variations := p.generator.Variations(flat)

	var trials []trial
	for i := range variations {
		variations[i].Build = memoize(variations[i].Build)
		v := variations[i]
		trials = append(trials, trial{
			strategy: "HOG",
			label:    v.Label,
			build:    v.Build,
			detect: func(img *image.RGBA) ([]detect.Region, error) {
				return p.detector.DetectLearned(img, detect.ModeFast, 1)
			},
		})
	}

	// The expensive strategies only run on the last variation.
	last := variations[len(variations)-1]
	trials = append(trials,
		trial{
			strategy: "HOG 2x",
			label:    last.Label,
			build:    last.Build,
			detect: func(img *image.RGBA) ([]detect.Region, error) {
				return p.detector.DetectLearned(img, detect.ModeFast, 2)
			},
		},
		trial{
			strategy: "CNN",
			label:    last.Label,
			build:    last.Build,
			detect: func(img *image.RGBA) ([]detect.Region, error) {
				return p.detector.DetectLearned(img, detect.ModeAccurate, 1)
			},
		},
		trial{
			strategy: "cascade fallback",
			label:    last.Label,
			build:    last.Build,
			detect: func(img *image.RGBA) ([]detect.Region, error) {
				return p.detector.DetectCascade(img), nil
			},
		},
	)

	for _, tr := range trials {
		candidate := tr.build()

		regions, err := tr.detect(candidate)
		if err != nil {
			log.Printf("strategy %s on %s failed: %v", tr.strategy, tr.label, err)
			continue
		}
		if len(regions) == 0 {
			continue
		}

		embeddings, err := p.detector.Encode(candidate, regions)
		if err != nil {
			log.Printf("encoding after %s on %s failed: %v", tr.strategy, tr.label, err)
			continue
		}
		if len(embeddings) == 0 {
			continue
		}

		return embeddings, fmt.Sprintf("Found %d faces using %s on %s",
			len(embeddings), tr.strategy, tr.label)
	}

	return nil, NoFacesMessage
}

// memoize caches the built image so the last variation is not rebuilt
// for each of the expensive strategies.
func memoize(build func() *image.RGBA) func() *image.RGBA {
	var cached *image.RGBA
	return func() *image.RGBA {
		if cached == nil {
			cached = build()
		}
		return cached
	}
}
