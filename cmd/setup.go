package cmd

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/detect"
	"github.com/veriface/veriface/internal/facecompare"
	"github.com/veriface/veriface/internal/imaging"
)

// cascadeParams maps the pipeline tuning onto the classifier.
func cascadeParams(cfg *config.Config) detect.CascadeParams {
	c := cfg.Pipeline.Cascade
	return detect.CascadeParams{
		MinSize:          c.MinSize,
		MaxSize:          c.MaxSize,
		ShiftFactor:      c.ShiftFactor,
		ScaleFactor:      c.ScaleFactor,
		OverlapThreshold: c.OverlapThreshold,
		QualityThreshold: c.QualityThreshold,
		MinAspect:        c.MinAspect,
		MaxAspect:        c.MaxAspect,
	}
}

// loadCascade reads and unpacks the cascade file. A missing or broken
// file disables the fallback instead of aborting the whole command.
func loadCascade(cfg *config.Config) *detect.CascadeClassifier {
	data, err := os.ReadFile(cfg.Models.CascadeFile)
	if err != nil {
		log.Printf("cascade fallback disabled: %v", err)
		return nil
	}
	classifier, err := detect.NewCascadeClassifier(data, cascadeParams(cfg))
	if err != nil {
		log.Printf("cascade fallback disabled: %v", err)
		return nil
	}
	return classifier
}

// newStack wires the encoding pipeline and matcher. The returned close
// function frees the dlib recognizer. tolerance overrides the
// configured value when positive.
func newStack(cfg *config.Config, tolerance float64) (*facecompare.Pipeline, *facecompare.Matcher, func(), error) {
	model, err := detect.NewDlibModel(cfg.Models.Dir)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load face models from %s: %w", cfg.Models.Dir, err)
	}

	detector := detect.NewDetector(model, loadCascade(cfg))
	v := cfg.Pipeline.Variations
	generator := imaging.NewGenerator(v.MaxDimension, v.ContrastFactor, v.BrightnessFactor)

	if tolerance <= 0 {
		tolerance = cfg.Pipeline.Matcher.Tolerance
	}

	return facecompare.NewPipeline(detector, generator), facecompare.NewMatcher(tolerance), model.Close, nil
}

// newService wires the full comparison service.
func newService(cfg *config.Config, tolerance float64) (*facecompare.Service, func(), error) {
	pipeline, matcher, closeModel, err := newStack(cfg, tolerance)
	if err != nil {
		return nil, nil, err
	}
	return facecompare.NewService(pipeline, matcher), closeModel, nil
}

// isImageFile reports whether a filename has a supported image extension.
func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp":
		return true
	}
	return false
}
