package cmd

import (
	"fmt"
	"image"
	"os"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/detect"
	"github.com/veriface/veriface/internal/imaging"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [image]...",
	Short: "Inspect images and explain why face detection might fail",
	Long: `Inspect one or more images: file size, dimensions, brightness and
contrast heuristics, a cascade detection sweep at several sensitivity
presets, and a learned-detector probe on a reduced copy.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

// cascadePreset is one sensitivity setting of the diagnostic sweep,
// from eager to strict.
type cascadePreset struct {
	name   string
	params detect.CascadeParams
}

func sweepPresets() []cascadePreset {
	base := detect.CascadeParams{
		MaxSize:          1000,
		ShiftFactor:      0.1,
		OverlapThreshold: 0.2,
		MinAspect:        0.5,
		MaxAspect:        2.0,
	}

	presets := []cascadePreset{
		{name: "Very permissive", params: base},
		{name: "Permissive", params: base},
		{name: "Normal", params: base},
		{name: "Conservative", params: base},
	}
	presets[0].params.MinSize, presets[0].params.ScaleFactor, presets[0].params.QualityThreshold = 20, 1.05, 5
	presets[1].params.MinSize, presets[1].params.ScaleFactor, presets[1].params.QualityThreshold = 30, 1.1, 10
	presets[2].params.MinSize, presets[2].params.ScaleFactor, presets[2].params.QualityThreshold = 40, 1.1, 15
	presets[3].params.MinSize, presets[3].params.ScaleFactor, presets[3].params.QualityThreshold = 60, 1.2, 25
	return presets
}

func runInspect(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	cascadeData, err := os.ReadFile(cfg.Models.CascadeFile)
	if err != nil {
		fmt.Printf("Warning: cascade file unavailable, skipping detection sweep: %v\n", err)
		cascadeData = nil
	}

	model, err := detect.NewDlibModel(cfg.Models.Dir)
	if err != nil {
		fmt.Printf("Warning: face models unavailable, skipping learned detector tests: %v\n", err)
		model = nil
	} else {
		defer model.Close()
	}

	for _, path := range args {
		inspectImage(path, cascadeData, model)
	}
	return nil
}

func inspectImage(path string, cascadeData []byte, model *detect.DlibModel) {
	fmt.Printf("\nInspecting: %s\n", path)
	fmt.Println("==================================================")

	info, err := os.Stat(path)
	if err != nil {
		fmt.Printf("File does not exist: %v\n", err)
		return
	}
	fmt.Printf("File size: %d bytes\n", info.Size())

	img, err := imaging.Load(path)
	if err != nil {
		fmt.Printf("Error loading image: %v\n", err)
		return
	}

	bounds := img.Bounds()
	fmt.Printf("Image dimensions: %d x %d pixels\n", bounds.Dx(), bounds.Dy())
	if bounds.Dx() > 3000 || bounds.Dy() > 3000 {
		fmt.Println("Warning: image is very large, detection may need aggressive resizing")
	}

	brightness := imaging.MeanBrightness(img)
	contrast := imaging.Contrast(img)
	fmt.Printf("Average brightness: %.1f/255\n", brightness)
	fmt.Printf("Contrast (std dev): %.1f\n", contrast)

	if brightness < 50 {
		fmt.Println("Warning: image appears very dark")
	} else if brightness > 200 {
		fmt.Println("Warning: image appears very bright")
	}
	if contrast < 20 {
		fmt.Println("Warning: image has very low contrast")
	}

	if cascadeData != nil {
		runCascadeSweep(img, cascadeData)
	}
	if model != nil {
		runLearnedProbe(img, model)
	}
}

// runCascadeSweep shows how many candidates each sensitivity preset
// finds. A face that only shows up at the permissive end is a weak
// detection the strict pipeline settings will reject.
func runCascadeSweep(img *image.RGBA, cascadeData []byte) {
	fmt.Println("\nCascade detection sweep:")
	for _, preset := range sweepPresets() {
		classifier, err := detect.NewCascadeClassifier(cascadeData, preset.params)
		if err != nil {
			fmt.Printf("  %s: cascade error: %v\n", preset.name, err)
			continue
		}
		regions := classifier.Detect(img)
		fmt.Printf("  %s: %d potential faces\n", preset.name, len(regions))
		if len(regions) > 0 && len(regions) < 20 {
			shown := regions
			if len(shown) > 5 {
				shown = shown[:5]
			}
			for i, region := range shown {
				fmt.Printf("    Face %d: %dx%d at (%d,%d)\n",
					i+1, region.Width(), region.Height(), region.Left, region.Top)
			}
		}
	}
}

// runLearnedProbe runs the learned detectors on a reduced copy, which
// is cheap enough to try both modes.
func runLearnedProbe(img *image.RGBA, model *detect.DlibModel) {
	fmt.Println("\nLearned detector tests:")
	small := imaging.Resize(img, 400, 300)

	if regions, err := model.Detect(small, detect.ModeFast, 1); err != nil {
		fmt.Printf("  HOG on small image: error: %v\n", err)
	} else {
		fmt.Printf("  HOG on small image: %d faces\n", len(regions))
	}

	if regions, err := model.Detect(small, detect.ModeAccurate, 1); err != nil {
		fmt.Printf("  CNN on small image: error: %v\n", err)
	} else {
		fmt.Printf("  CNN on small image: %d faces\n", len(regions))
	}
}
