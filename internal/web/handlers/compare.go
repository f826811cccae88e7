package handlers

import (
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/veriface/veriface/internal/config"
	"github.com/veriface/veriface/internal/facecompare"
	"github.com/veriface/veriface/internal/masking"
)

// allowedExtensions are the upload formats the decoder understands.
var allowedExtensions = map[string]struct{}{
	"png": {}, "jpg": {}, "jpeg": {}, "gif": {}, "bmp": {},
}

// Comparator is the part of the comparison service the endpoint needs.
type Comparator interface {
	CompareDetailed(path1, path2 string, rects1, rects2 []masking.Rectangle, tolerance float64) (*facecompare.Result, error)
}

// CompareHandler handles the face comparison endpoint.
type CompareHandler struct {
	config     *config.Config
	comparator Comparator
}

// NewCompareHandler creates a new compare handler.
func NewCompareHandler(cfg *config.Config, comparator Comparator) *CompareHandler {
	return &CompareHandler{
		config:     cfg,
		comparator: comparator,
	}
}

// allowedFile checks whether the filename carries an allowed image extension.
func allowedFile(filename string) bool {
	name := filepath.Base(filename)
	dot := strings.LastIndex(name, ".")
	if dot <= 0 {
		return false
	}
	ext := strings.ToLower(name[dot+1:])
	_, ok := allowedExtensions[ext]
	return ok
}

// saveUpload stores a multipart file in the upload directory under a
// uuid-prefixed name and returns the stored name.
func saveUpload(fileHeader *multipart.FileHeader, dir string) (string, error) {
	file, err := fileHeader.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open upload %s: %w", fileHeader.Filename, err)
	}
	defer file.Close()

	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}

	name := uuid.New().String() + "_" + filepath.Base(fileHeader.Filename)
	out, err := os.Create(filepath.Join(dir, name)) //nolint:gosec // filename sanitized via filepath.Base
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return name, nil
}

// formImage pulls a single named file out of the parsed multipart form.
func formImage(r *http.Request, field string) (*multipart.FileHeader, bool) {
	if r.MultipartForm == nil {
		return nil, false
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 || files[0].Filename == "" {
		return nil, false
	}
	return files[0], true
}

// Compare handles POST /api/v1/compare. Expects a multipart form with
// image1 and image2 files, optional rectangles1/rectangles2 JSON mask
// fields, and an optional tolerance override.
func (h *CompareHandler) Compare(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(h.config.Upload.MaxSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file1, ok1 := formImage(r, "image1")
	file2, ok2 := formImage(r, "image2")
	if !ok1 || !ok2 {
		respondError(w, http.StatusBadRequest, "please select both images")
		return
	}

	if !allowedFile(file1.Filename) || !allowedFile(file2.Filename) {
		respondError(w, http.StatusBadRequest, "please upload valid image files (PNG, JPG, JPEG, GIF, BMP)")
		return
	}

	tolerance := 0.0
	if raw := r.FormValue("tolerance"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil || parsed <= 0 || parsed > 1 {
			respondError(w, http.StatusBadRequest, "tolerance must be a number between 0 and 1")
			return
		}
		tolerance = parsed
	}

	rects1 := masking.ParseRectangles([]byte(r.FormValue("rectangles1")))
	rects2 := masking.ParseRectangles([]byte(r.FormValue("rectangles2")))

	name1, err := saveUpload(file1, h.config.Upload.Dir)
	if err != nil {
		log.Printf("upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save uploads")
		return
	}
	name2, err := saveUpload(file2, h.config.Upload.Dir)
	if err != nil {
		log.Printf("upload failed: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to save uploads")
		return
	}

	path1 := filepath.Join(h.config.Upload.Dir, name1)
	path2 := filepath.Join(h.config.Upload.Dir, name2)

	result, err := h.comparator.CompareDetailed(path1, path2, rects1, rects2, tolerance)
	if err != nil {
		log.Printf("comparison of %s and %s failed: %v", sanitizeForLog(name1), sanitizeForLog(name2), err)
		respondError(w, http.StatusBadRequest, "failed to process images")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"image1": name1,
		"image2": name2,
		"result": result,
	})
}
