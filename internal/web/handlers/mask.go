package handlers

import (
	"image/color"
	"log"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/imaging"
	"github.com/veriface/veriface/internal/masking"
)

// MaskHandler produces masked previews of uploaded images.
type MaskHandler struct {
	config *config.Config
}

// NewMaskHandler creates a new mask handler.
func NewMaskHandler(cfg *config.Config) *MaskHandler {
	return &MaskHandler{config: cfg}
}

// Mask handles POST /api/v1/mask. Expects a multipart form with an
// image file and a rectangles JSON field; responds with the stored
// masked image name and mask statistics.
func (h *MaskHandler) Mask(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.Upload.MaxSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, ok := formImage(r, "image")
	if !ok {
		respondError(w, http.StatusBadRequest, "please select an image")
		return
	}
	if !allowedFile(file.Filename) {
		respondError(w, http.StatusBadRequest, "please upload a valid image file (PNG, JPG, JPEG, GIF, BMP)")
		return
	}

	rects := masking.ParseRectangles([]byte(r.FormValue("rectangles")))

	name, err := saveUpload(file, h.config.Upload.Dir)
	if err != nil {
		log.Printf("upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save upload")
		return
	}

	img, err := imaging.Load(filepath.Join(h.config.Upload.Dir, name))
	if err != nil {
		log.Printf("failed to decode %s: %v", sanitizeForLog(name), err)
		respondError(w, http.StatusBadRequest, "failed to decode image")
		return
	}

	bounds := img.Bounds()
	mask := masking.CreateMask(rects, bounds.Dx(), bounds.Dy())
	masked := masking.Apply(img, mask, color.RGBA{A: 255})

	maskedName := maskedFileName(name)
	if err := imaging.Save(masked, filepath.Join(h.config.Upload.Dir, maskedName)); err != nil {
		log.Printf("failed to save masked image: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save masked image")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"image":      name,
		"masked":     maskedName,
		"url":        "/uploads/" + maskedName,
		"statistics": masking.ComputeStatistics(mask),
	})
}

// maskedFileName derives the stored name of the masked copy. The copy
// is always a PNG so the fill survives lossless.
func maskedFileName(name string) string {
	base := strings.TrimSuffix(name, filepath.Ext(name))
	return base + "_masked.png"
}
