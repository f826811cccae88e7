package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/facecompare"
	"github.com/veriface/veriface/internal/masking"
)

var compareCmd = &cobra.Command{
	Use:   "compare [image1] [image2]",
	Short: "Compare two images to decide if they show the same person",
	Long: `Compare the faces in two images. Every face found in the first image
is measured against every face in the second; a single pair within the
matching tolerance is a match.

Mask rectangles are given as a JSON list of relative coordinates, for
example '[{"x":0.1,"y":0.1,"width":0.3,"height":0.3}]'. When provided,
the same areas are hidden on both images before detection runs.`,
	Args: cobra.ExactArgs(2),
	RunE: runCompare,
}

func init() {
	rootCmd.AddCommand(compareCmd)

	compareCmd.Flags().Float64("tolerance", 0, "Matching tolerance, lower is stricter (default from config)")
	compareCmd.Flags().String("rectangles", "", "JSON mask rectangles for the first image")
	compareCmd.Flags().String("rectangles2", "", "JSON mask rectangles for the second image")
	compareCmd.Flags().Bool("json", false, "Print the result as JSON")
}

func runCompare(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	service, closeModel, err := newService(cfg, mustGetFloat64(cmd, "tolerance"))
	if err != nil {
		return err
	}
	defer closeModel()

	rects1 := masking.ParseRectangles([]byte(mustGetString(cmd, "rectangles")))
	rects2 := masking.ParseRectangles([]byte(mustGetString(cmd, "rectangles2")))

	if !mustGetBool(cmd, "json") {
		fmt.Printf("Comparing %s vs %s\n", args[0], args[1])
	}

	result, err := service.CompareDetailed(args[0], args[1], rects1, rects2, 0)
	if err != nil {
		return fmt.Errorf("comparison failed: %w", err)
	}

	if mustGetBool(cmd, "json") {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(result)
	}

	printCompareResult(result)
	return nil
}

func printCompareResult(result *facecompare.Result) {
	fmt.Printf("Image 1: %s\n", result.Image1Message)
	fmt.Printf("Image 2: %s\n", result.Image2Message)

	if result.Summary == facecompare.DetectionFailedMessage {
		fmt.Println("\nCannot compare: face detection failed.")
		fmt.Println("Try images with clear, well-lit, frontal faces of at least 100x100 pixels.")
		return
	}

	comparison := result.Comparison
	fmt.Printf("\nBest match distance: %.3f\n", comparison.BestDistance)
	fmt.Printf("Confidence: %.1f%%\n", comparison.ConfidencePercent)

	if result.Match {
		fmt.Println("Verdict: SAME PERSON")
		fmt.Printf("  %d matching face pair(s) found:\n", len(comparison.Pairs))
		shown := comparison.Pairs
		if len(shown) > 3 {
			shown = shown[:3]
		}
		for _, pair := range shown {
			fmt.Printf("  Face %d <-> Face %d (distance: %.3f)\n", pair.Face1, pair.Face2, pair.Distance)
		}
		if rest := len(comparison.Pairs) - len(shown); rest > 0 {
			fmt.Printf("  ... and %d more\n", rest)
		}
	} else {
		fmt.Println("Verdict: DIFFERENT PEOPLE")
	}
}
