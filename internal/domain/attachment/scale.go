package attachment

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/draw"
)

// Bounds is the box images are fitted into.
type Bounds struct {
	Width  int
	Height int
}

// DefaultBounds fits attachments into the comment view.
var DefaultBounds = Bounds{Width: 974, Height: 718}

const jpegQuality = 90

// ScaleFactor returns the factor that fits a w x h image into b without
// upscaling.
func ScaleFactor(w, h int, b Bounds) float64 {
	if w <= 0 || h <= 0 {
		return 1
	}
	byHeight := math.Min(float64(b.Height)/float64(h), 1)
	byWidth := math.Min(float64(b.Width)/float64(w), 1)
	return math.Min(byHeight, byWidth)
}

// ScaledSize applies scale to w x h, never going below one pixel.
func ScaledSize(w, h int, scale float64) (int, int) {
	sw := int(math.Round(float64(w) * scale))
	sh := int(math.Round(float64(h) * scale))
	return max(sw, 1), max(sh, 1)
}

// Scale resamples img by scale.
func Scale(img image.Image, scale float64) image.Image {
	src := img.Bounds()
	w, h := ScaledSize(src.Dx(), src.Dy(), scale)
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Over, nil)
	return dst
}

// isImageExt reports whether ext (lower case, no dot) is downscaled before
// storage.
func isImageExt(ext string) bool {
	return ext == "jpg" || ext == "jpeg" || ext == "png"
}

// Downscale decodes r, fits it into b and re-encodes it in the format
// implied by ext.
func Downscale(r io.Reader, ext string, b Bounds) ([]byte, float64, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, 0, fmt.Errorf("decode image: %w", err)
	}

	size := img.Bounds()
	scale := ScaleFactor(size.Dx(), size.Dy(), b)
	scaled := Scale(img, scale)

	var buf bytes.Buffer
	switch ext {
	case "png":
		err = png.Encode(&buf, scaled)
	case "jpg", "jpeg":
		err = jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: jpegQuality})
	default:
		err = fmt.Errorf("unsupported image extension %q", ext)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("encode image: %w", err)
	}
	return buf.Bytes(), scale, nil
}
