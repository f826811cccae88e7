package detect

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/Kagami/go-face"
	"golang.org/x/image/draw"
)

// cropMargin is the fraction of region size added on every side before
// encoding a crop. The recognizer wants some context around the face.
const cropMargin = 0.25

// DlibModel implements Model on top of the dlib recognizer. The fast
// mode maps to dlib's HOG frontal detector, the accurate mode to its
// CNN detector. A DlibModel owns the loaded recognizer and must be
// closed when no longer needed.
type DlibModel struct {
	rec *face.Recognizer
}

// NewDlibModel loads the dlib models from modelsDir. The directory must
// contain shape_predictor_5_face_landmarks.dat,
// dlib_face_recognition_resnet_model_v1.dat and
// mmod_human_face_detector.dat.
func NewDlibModel(modelsDir string) (*DlibModel, error) {
	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load face models from %s: %w", modelsDir, err)
	}
	return &DlibModel{rec: rec}, nil
}

// Close releases the recognizer resources.
func (m *DlibModel) Close() {
	m.rec.Close()
}

// Detect finds candidate face regions. dlib does not expose an upsample
// knob through this binding, so upsample counts above one are emulated
// by pre-scaling the image 2x per extra step and mapping the detected
// regions back to source coordinates.
func (m *DlibModel) Detect(img *image.RGBA, mode AccuracyMode, upsample int) ([]Region, error) {
	work := img
	scale := 1
	for i := 1; i < upsample; i++ {
		scale *= 2
	}
	if scale > 1 {
		bounds := img.Bounds()
		work = scaleRGBA(img, bounds.Dx()*scale, bounds.Dy()*scale)
	}

	data, err := encodeJPEG(work)
	if err != nil {
		return nil, err
	}

	var faces []face.Face
	if mode == ModeAccurate {
		faces, err = m.rec.RecognizeCNN(data)
	} else {
		faces, err = m.rec.Recognize(data)
	}
	if err != nil {
		return nil, fmt.Errorf("recognize failed: %w", err)
	}

	regions := make([]Region, 0, len(faces))
	for _, f := range faces {
		regions = append(regions, Region{
			Top:    f.Rectangle.Min.Y / scale,
			Right:  f.Rectangle.Max.X / scale,
			Bottom: f.Rectangle.Max.Y / scale,
			Left:   f.Rectangle.Min.X / scale,
		})
	}
	return regions, nil
}

// Encode produces an embedding per region by cropping the region with a
// margin and running single-face recognition on the crop. Regions whose
// crop yields no face (typical for cascade false positives) are skipped
// rather than failing the whole call.
func (m *DlibModel) Encode(img *image.RGBA, regions []Region) ([]Embedding, error) {
	embeddings := make([]Embedding, 0, len(regions))
	for _, region := range regions {
		crop := cropRegion(img, region)
		data, err := encodeJPEG(crop)
		if err != nil {
			return nil, err
		}

		f, err := m.rec.RecognizeSingle(data)
		if err != nil {
			return nil, fmt.Errorf("encode failed: %w", err)
		}
		if f == nil {
			continue
		}
		embeddings = append(embeddings, Embedding(f.Descriptor[:]))
	}
	return embeddings, nil
}

// cropRegion extracts the region plus margin from the image.
func cropRegion(img *image.RGBA, region Region) *image.RGBA {
	marginX := int(float64(region.Width()) * cropMargin)
	marginY := int(float64(region.Height()) * cropMargin)

	rect := image.Rect(
		region.Left-marginX,
		region.Top-marginY,
		region.Right+marginX,
		region.Bottom+marginY,
	).Intersect(img.Bounds())

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

// scaleRGBA resizes with bilinear filtering; detection pre-scaling does
// not need the high-quality filter used for display resizes.
func scaleRGBA(img *image.RGBA, width, height int) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// encodeJPEG serializes an image for the recognizer, which only accepts
// JPEG input.
func encodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
