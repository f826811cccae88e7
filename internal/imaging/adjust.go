package imaging

import "image"

// AdjustContrast returns a copy of the image with contrast scaled by
// factor. The adjustment pivots around the mean luminance of the whole
// image: factor 1.0 is a no-op, values above 1.0 push pixels away from
// the mean, values below pull them toward it.
func AdjustContrast(img *image.RGBA, factor float64) *image.RGBA {
	mean := MeanBrightness(img)

	dst := cloneRGBA(img)
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = clampByte(mean + factor*(float64(dst.Pix[i])-mean))
		dst.Pix[i+1] = clampByte(mean + factor*(float64(dst.Pix[i+1])-mean))
		dst.Pix[i+2] = clampByte(mean + factor*(float64(dst.Pix[i+2])-mean))
	}
	return dst
}

// AdjustBrightness returns a copy of the image with every channel
// multiplied by factor. Factor 1.0 is a no-op.
func AdjustBrightness(img *image.RGBA, factor float64) *image.RGBA {
	dst := cloneRGBA(img)
	for i := 0; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = clampByte(float64(dst.Pix[i]) * factor)
		dst.Pix[i+1] = clampByte(float64(dst.Pix[i+1]) * factor)
		dst.Pix[i+2] = clampByte(float64(dst.Pix[i+2]) * factor)
	}
	return dst
}

func cloneRGBA(img *image.RGBA) *image.RGBA {
	dst := image.NewRGBA(img.Bounds())
	copy(dst.Pix, img.Pix)
	return dst
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
