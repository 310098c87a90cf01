package main

import (
	"context"
	"fmt"
	"image"
	"io"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog/log"

	"squarecrop/crop"
)

type outputFormat string

const (
	formatJPEG outputFormat = "jpeg"
	formatPNG  outputFormat = "png"
	formatWebP outputFormat = "webp"
)

func (f outputFormat) Ext() string {
	switch f {
	case formatPNG:
		return ".png"
	case formatWebP:
		return ".webp"
	default:
		return ".jpg"
	}
}

// ImagingCropper is an implementation of the Cropper interface
// using the disintegration/imaging library
type ImagingCropper struct {
	// MaxWidth downscales wider crops; 0 disables resizing.
	MaxWidth int
	Format   outputFormat
	Quality  int
}

// Crop reads an image from r, applies EXIF orientation so the pixel grid
// matches the one crop coordinates were computed against, cuts out the
// rectangle, downsizes it and writes the encoded result to w.
func (c *ImagingCropper) Crop(ctx context.Context, r io.Reader, w io.Writer, res crop.Result) error {
	src, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	cropRect := res.Rectangle().Add(bounds.Min)
	if cropRect.Dx() <= 0 || cropRect.Dy() <= 0 {
		return fmt.Errorf("invalid crop dimensions: width=%d, height=%d", res.Width, res.Height)
	}

	if !cropRect.In(bounds) {
		log.Ctx(ctx).Warn().
			Stringer("crop", res).
			Stringer("bounds", bounds).
			Msg("crop rectangle exceeds image bounds, trimming")
		cropRect = cropRect.Intersect(bounds)
		if cropRect.Empty() {
			return fmt.Errorf("crop rectangle is outside image bounds")
		}
	}

	var out image.Image = imaging.Crop(src, cropRect)
	if c.MaxWidth > 0 && out.Bounds().Dx() > c.MaxWidth {
		out = imaging.Resize(out, c.MaxWidth, 0, imaging.Lanczos)
	}

	return c.encode(w, out)
}

func (c *ImagingCropper) encode(w io.Writer, img image.Image) error {
	switch c.Format {
	case formatPNG:
		return imaging.Encode(w, img, imaging.PNG)
	case formatWebP:
		if err := webp.Encode(w, img, &webp.Options{Quality: float32(c.Quality)}); err != nil {
			return fmt.Errorf("failed to encode webp: %w", err)
		}
		return nil
	default:
		return imaging.Encode(w, img, imaging.JPEG, imaging.JPEGQuality(c.Quality))
	}
}

// NewImagingCropper creates a new instance of ImagingCropper
func NewImagingCropper(maxWidth int, format outputFormat, quality int) *ImagingCropper {
	if quality <= 0 || quality > 100 {
		quality = 90
	}
	return &ImagingCropper{
		MaxWidth: maxWidth,
		Format:   format,
		Quality:  quality,
	}
}
