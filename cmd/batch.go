package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/detect"
	"github.com/veriface/veriface/internal/facecompare"
)

var batchCmd = &cobra.Command{
	Use:   "batch [probe] [directory]",
	Short: "Compare a probe image against every image in a directory",
	Long: `Encode the probe image once, then compare it against every supported
image file in the directory. Useful for finding which photos of a
collection show the same person as the probe.`,
	Args: cobra.ExactArgs(2),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Float64("tolerance", 0, "Matching tolerance, lower is stricter (default from config)")
}

// batchResult is the per-file outcome of a batch run.
type batchResult struct {
	name    string
	match   bool
	summary string
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	probePath, dir := args[0], args[1]

	pipeline, matcher, closeModel, err := newStack(cfg, mustGetFloat64(cmd, "tolerance"))
	if err != nil {
		return err
	}
	defer closeModel()

	probe, probeMsg, err := pipeline.Encode(probePath)
	if err != nil {
		return fmt.Errorf("failed to load probe image: %w", err)
	}
	if len(probe) == 0 {
		return fmt.Errorf("no usable face in probe image: %s", probeMsg)
	}
	fmt.Printf("Probe: %s\n", probeMsg)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read directory: %w", err)
	}

	var candidates []string
	for _, entry := range entries {
		if !entry.IsDir() && isImageFile(entry.Name()) {
			candidates = append(candidates, entry.Name())
		}
	}
	if len(candidates) == 0 {
		return fmt.Errorf("no image files in %s", dir)
	}

	bar := progressbar.NewOptions(len(candidates),
		progressbar.OptionSetDescription("Comparing faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("images"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	var results []batchResult
	matchCount := 0
	for _, name := range candidates {
		result := compareCandidate(pipeline, matcher, probe, filepath.Join(dir, name))
		result.name = name
		if result.match {
			matchCount++
		}
		results = append(results, result)
		_ = bar.Add(1)
	}
	fmt.Println()

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "FILE\tMATCH\tDETAIL")
	for _, result := range results {
		verdict := "no"
		if result.match {
			verdict = "YES"
		}
		fmt.Fprintf(writer, "%s\t%s\t%s\n", result.name, verdict, result.summary)
	}
	writer.Flush()

	fmt.Printf("\n%d of %d images match the probe\n", matchCount, len(results))
	return nil
}

func compareCandidate(pipeline *facecompare.Pipeline, matcher *facecompare.Matcher, probe []detect.Embedding, path string) batchResult {
	embeddings, message, err := pipeline.Encode(path)
	if err != nil {
		return batchResult{summary: fmt.Sprintf("load error: %v", err)}
	}
	if len(embeddings) == 0 {
		return batchResult{summary: message}
	}

	comparison := matcher.Compare(probe, embeddings)
	return batchResult{
		match: comparison.IsMatch,
		summary: fmt.Sprintf("Distance: %.3f, Confidence: %.1f%%",
			comparison.BestDistance, comparison.ConfidencePercent),
	}
}
