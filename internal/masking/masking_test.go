package masking

import (
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/veriface/veriface/internal/imaging"
)

func TestParseRectangles_ValidPassthrough(t *testing.T) {
	data := []byte(`[{"x":0.1,"y":0.2,"width":0.3,"height":0.4}]`)

	rects := ParseRectangles(data)

	if len(rects) != 1 {
		t.Fatalf("expected 1 rectangle, got %d", len(rects))
	}
	r := rects[0]
	if r.X != 0.1 || r.Y != 0.2 || r.Width != 0.3 || r.Height != 0.4 {
		t.Errorf("valid rectangle should pass through unchanged, got %+v", r)
	}
}

func TestParseRectangles_ClampsWidthAtBoundary(t *testing.T) {
	data := []byte(`[{"x":0.8,"y":0.1,"width":0.3,"height":0.2}]`)

	rects := ParseRectangles(data)

	if len(rects) != 1 {
		t.Fatalf("expected 1 rectangle, got %d", len(rects))
	}
	if math.Abs(rects[0].Width-0.2) > 1e-9 {
		t.Errorf("expected width clamped to 0.2, got %f", rects[0].Width)
	}
}

func TestParseRectangles_OriginAtBoundaryDropped(t *testing.T) {
	data := []byte(`[{"x":1.0,"y":1.0,"width":0.5,"height":0.5}]`)

	rects := ParseRectangles(data)

	if len(rects) != 0 {
		t.Errorf("rectangle with origin at (1,1) has zero area and must be dropped, got %d", len(rects))
	}
}

func TestParseRectangles_MissingFieldDropsSingleRectangle(t *testing.T) {
	data := []byte(`[
		{"x":0.1,"y":0.1,"width":0.2,"height":0.2},
		{"x":0.5,"y":0.5,"width":0.2}
	]`)

	rects := ParseRectangles(data)

	if len(rects) != 1 {
		t.Fatalf("expected only the complete rectangle to survive, got %d", len(rects))
	}
	if rects[0].X != 0.1 {
		t.Errorf("wrong rectangle survived: %+v", rects[0])
	}
}

func TestParseRectangles_MalformedInput(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `this is not json`},
		{"wrong structure", `{"x":0.1}`},
		{"wrong field types", `[{"x":"left","y":0.1,"width":0.2,"height":0.2}]`},
		{"empty input", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rects := ParseRectangles([]byte(tt.data)); len(rects) != 0 {
				t.Errorf("malformed input must yield an empty list, got %d rectangles", len(rects))
			}
		})
	}
}

func TestParseRectangles_NegativeOriginClamped(t *testing.T) {
	data := []byte(`[{"x":-0.5,"y":-0.5,"width":0.4,"height":0.4}]`)

	rects := ParseRectangles(data)

	if len(rects) != 1 {
		t.Fatalf("expected 1 rectangle, got %d", len(rects))
	}
	if rects[0].X != 0 || rects[0].Y != 0 {
		t.Errorf("expected origin clamped to (0,0), got (%f,%f)", rects[0].X, rects[0].Y)
	}
}

func TestSelectRectangles_FirstImageWins(t *testing.T) {
	r1 := []Rectangle{{X: 0.1, Y: 0.1, Width: 0.2, Height: 0.2}}
	r2 := []Rectangle{{X: 0.5, Y: 0.5, Width: 0.2, Height: 0.2}}

	if got := SelectRectangles(r1, r2); len(got) != 1 || got[0].X != 0.1 {
		t.Errorf("rectangles for image 1 must take precedence, got %+v", got)
	}
	if got := SelectRectangles(nil, r2); len(got) != 1 || got[0].X != 0.5 {
		t.Errorf("image 2 rectangles should be used when image 1 has none, got %+v", got)
	}
	if got := SelectRectangles(nil, nil); got != nil {
		t.Errorf("expected nil for no rectangles, got %+v", got)
	}
}

func TestRectanglesMatch(t *testing.T) {
	base := []Rectangle{{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}}
	close := []Rectangle{{X: 0.105, Y: 0.2, Width: 0.3, Height: 0.4}}
	far := []Rectangle{{X: 0.3, Y: 0.2, Width: 0.3, Height: 0.4}}

	if !RectanglesMatch(base, close, 0.01) {
		t.Error("rectangles within tolerance should match")
	}
	if RectanglesMatch(base, far, 0.01) {
		t.Error("rectangles outside tolerance should not match")
	}
	if RectanglesMatch(base, nil, 0.01) {
		t.Error("different lengths should not match")
	}
}

func TestCreateMask_EmptyRectangles(t *testing.T) {
	mask := CreateMask(nil, 40, 30)

	if mask.Width != 40 || mask.Height != 30 {
		t.Fatalf("expected 40x30 mask, got %dx%d", mask.Width, mask.Height)
	}
	if mask.MaskedCount() != 0 {
		t.Errorf("expected all-false mask, got %d masked pixels", mask.MaskedCount())
	}
}

func TestCreateMask_CenterRectangle(t *testing.T) {
	rects := []Rectangle{{X: 0.25, Y: 0.25, Width: 0.5, Height: 0.5}}

	mask := CreateMask(rects, 200, 150)

	if !mask.At(100, 75) {
		t.Error("center pixel (100,75) should be masked")
	}
	if mask.At(5, 5) {
		t.Error("corner pixel (5,5) should not be masked")
	}
}

func TestCreateMask_MinimumOnePixelSpan(t *testing.T) {
	// A sliver rectangle still marks at least one pixel column.
	rects := []Rectangle{{X: 0.5, Y: 0.5, Width: 0.0001, Height: 0.0001}}

	mask := CreateMask(rects, 100, 100)

	if mask.MaskedCount() != 1 {
		t.Errorf("expected exactly 1 masked pixel, got %d", mask.MaskedCount())
	}
	if !mask.At(50, 50) {
		t.Error("pixel (50,50) should be masked")
	}
}

func TestStatistics_Accounting(t *testing.T) {
	rects := []Rectangle{{X: 0, Y: 0, Width: 0.5, Height: 0.5}}
	mask := CreateMask(rects, 100, 100)

	stats := ComputeStatistics(mask)

	if stats.MaskedPixels+stats.UnmaskedPixels != stats.TotalPixels {
		t.Errorf("pixel accounting broken: %d + %d != %d",
			stats.MaskedPixels, stats.UnmaskedPixels, stats.TotalPixels)
	}
	if math.Abs(stats.MaskPercentage+stats.UnmaskedPercentage-100) > 1e-9 {
		t.Errorf("percentages must sum to 100, got %f + %f",
			stats.MaskPercentage, stats.UnmaskedPercentage)
	}
	if stats.TotalPixels != 10000 {
		t.Errorf("expected 10000 total pixels, got %d", stats.TotalPixels)
	}
	if stats.MaskedPixels != 2500 {
		t.Errorf("expected 2500 masked pixels, got %d", stats.MaskedPixels)
	}
}

func TestStatistics_EmptyMask(t *testing.T) {
	stats := ComputeStatistics(NewMask(0, 0))

	if stats.MaskPercentage != 0 || stats.UnmaskedPercentage != 0 {
		t.Errorf("expected zero percentages for empty mask, got %+v", stats)
	}
}

func solidImage(width, height int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = c.R
		img.Pix[i+1] = c.G
		img.Pix[i+2] = c.B
		img.Pix[i+3] = c.A
	}
	return img
}

func TestApply_NoRectanglesIsIdentity(t *testing.T) {
	img := solidImage(20, 20, color.RGBA{77, 88, 99, 255})
	mask := CreateMask(nil, 20, 20)

	out := Apply(img, mask, color.RGBA{0, 0, 0, 255})

	for i := range img.Pix {
		if out.Pix[i] != img.Pix[i] {
			t.Fatalf("pixel byte %d changed without any mask: %d -> %d", i, img.Pix[i], out.Pix[i])
		}
	}
}

func TestApply_FullCoverageFillsEverything(t *testing.T) {
	img := solidImage(20, 20, color.RGBA{77, 88, 99, 255})
	mask := CreateMask([]Rectangle{{X: 0, Y: 0, Width: 1, Height: 1}}, 20, 20)
	fill := color.RGBA{0, 0, 0, 255}

	out := Apply(img, mask, fill)

	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			if got := out.RGBAAt(x, y); got != fill {
				t.Fatalf("pixel (%d,%d) not filled: %v", x, y, got)
			}
		}
	}
}

func TestApply_DoesNotMutateSource(t *testing.T) {
	img := solidImage(10, 10, color.RGBA{10, 20, 30, 255})
	mask := CreateMask([]Rectangle{{X: 0, Y: 0, Width: 1, Height: 1}}, 10, 10)

	_ = Apply(img, mask, color.RGBA{0, 0, 0, 255})

	if img.Pix[0] != 10 {
		t.Errorf("source image mutated: %d", img.Pix[0])
	}
}

func TestApply_ResizesMismatchedMask(t *testing.T) {
	// Mask rasterized for a 10x10 grid applied to a 20x20 image: the
	// masked left half should still cover the left half after resize.
	img := solidImage(20, 20, color.RGBA{100, 100, 100, 255})
	mask := CreateMask([]Rectangle{{X: 0, Y: 0, Width: 0.5, Height: 1}}, 10, 10)
	fill := color.RGBA{0, 0, 0, 255}

	out := Apply(img, mask, fill)

	if got := out.RGBAAt(2, 10); got != fill {
		t.Errorf("left half should be filled, pixel (2,10) = %v", got)
	}
	if got := out.RGBAAt(15, 10); got == fill {
		t.Errorf("right half should be untouched, pixel (15,10) = %v", got)
	}
}

func TestCreateMaskedImageFile(t *testing.T) {
	dir := t.TempDir()
	inPath := filepath.Join(dir, "in.png")
	outPath := filepath.Join(dir, "out.png")

	src := solidImage(40, 40, color.RGBA{200, 200, 200, 255})
	if err := imaging.Save(src, inPath); err != nil {
		t.Fatal(err)
	}

	rects := []Rectangle{{X: 0, Y: 0, Width: 0.5, Height: 0.5}}
	got, err := CreateMaskedImageFile(inPath, outPath, rects, color.RGBA{0, 0, 0, 255})
	if err != nil {
		t.Fatalf("CreateMaskedImageFile failed: %v", err)
	}
	if got != outPath {
		t.Errorf("expected returned path %s, got %s", outPath, got)
	}

	out, err := imaging.Load(outPath)
	if err != nil {
		t.Fatalf("failed to load masked output: %v", err)
	}
	if out.RGBAAt(5, 5) != (color.RGBA{0, 0, 0, 255}) {
		t.Errorf("top-left quadrant should be black, got %v", out.RGBAAt(5, 5))
	}
	if out.RGBAAt(30, 30) != (color.RGBA{200, 200, 200, 255}) {
		t.Errorf("bottom-right quadrant should be untouched, got %v", out.RGBAAt(30, 30))
	}
}

func TestCreateMaskedImageFile_MissingInput(t *testing.T) {
	dir := t.TempDir()
	_, err := CreateMaskedImageFile(filepath.Join(dir, "missing.png"), filepath.Join(dir, "out.png"), nil, color.RGBA{})
	if err == nil {
		t.Fatal("expected error for missing input file")
	}
}
