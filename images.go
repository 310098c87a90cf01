package main

import (
	"context"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/facette/natsort"
	"github.com/rs/zerolog/log"
	"github.com/rwcarlsen/goexif/exif"
	_ "golang.org/x/image/webp"

	"squarecrop/crop"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type ImageInfo struct {
	Width       int `json:"width"`
	Height      int `json:"height"`
	Orientation int `json:"orientation,omitempty"`
}

type FileInfo struct {
	Name       string    `json:"name"`
	IsDir      bool      `json:"is_dir"`
	SizeBytes  int64     `json:"size_bytes"`
	ModifiedAt time.Time `json:"modified_at"`
	URL        string    `json:"url"`
	Image      ImageInfo `json:"image"`
}

type Directory struct {
	Name  string     `json:"name"`
	Files []FileInfo `json:"files"`
}

func isImage(path string) bool {
	return slices.Contains(imageExtensions, strings.ToLower(filepath.Ext(path)))
}

func walkImages(ctx context.Context, rootPath string) (Directory, error) {
	var files []FileInfo

	if err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != rootPath && d.Name() == "output" {
				return filepath.SkipDir
			}
			return nil
		}
		if !isImage(path) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("failed to get file info: %w", err)
		}

		relPath, err := filepath.Rel(rootPath, path)
		if err != nil {
			return fmt.Errorf("failed to get relative path: %w", err)
		}

		files = append(files, FileInfo{
			Name:       filepath.ToSlash(relPath),
			SizeBytes:  info.Size(),
			ModifiedAt: info.ModTime(),
		})
		return nil
	}); err != nil {
		return Directory{}, err
	}

	sort.Slice(files, func(i, j int) bool {
		return natsort.Compare(files[i].Name, files[j].Name)
	})

	for i := range files {
		path := filepath.Join(rootPath, filepath.FromSlash(files[i].Name))
		d, orientation, err := readOrientedDimensions(path)
		if err != nil {
			log.Ctx(ctx).Error().Err(err).Str("filename", files[i].Name).Msg("cannot read image dimensions")
			continue
		}
		files[i].Image = ImageInfo{
			Width:       int(d.Width),
			Height:      int(d.Height),
			Orientation: orientation,
		}
	}

	return Directory{
		Name:  filepath.Base(rootPath),
		Files: files,
	}, nil
}

func readHeaderDimensions(path string) (crop.Dimensions, error) {
	f, err := os.Open(path)
	if err != nil {
		return crop.Dimensions{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return crop.Dimensions{}, fmt.Errorf("failed to read image header: %w", err)
	}
	return crop.Dimensions{Width: float64(cfg.Width), Height: float64(cfg.Height)}, nil
}

// readOrientation returns the EXIF orientation tag, or 1 when there is none.
func readOrientation(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		// no EXIF block is the common case for PNG and WebP
		return 1, nil
	}
	tag, err := x.Get(exif.Orientation)
	if err != nil {
		return 1, nil
	}
	o, err := tag.Int(0)
	if err != nil {
		return 0, fmt.Errorf("invalid orientation tag: %w", err)
	}
	return o, nil
}

// readOrientedDimensions reads the header size and swaps it when the EXIF
// orientation rotates the image by 90 degrees.
func readOrientedDimensions(path string) (crop.Dimensions, int, error) {
	d, err := readHeaderDimensions(path)
	if err != nil {
		return crop.Dimensions{}, 0, err
	}
	orientation, err := readOrientation(path)
	if err != nil {
		return crop.Dimensions{}, 0, err
	}
	if orientation >= 5 && orientation <= 8 {
		d.Width, d.Height = d.Height, d.Width
	}
	return d, orientation, nil
}

func readDecodedDimensions(path string) (crop.Dimensions, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return crop.Dimensions{}, fmt.Errorf("failed to decode image: %w", err)
	}
	b := img.Bounds()
	return crop.Dimensions{Width: float64(b.Dx()), Height: float64(b.Dy())}, nil
}

var (
	// headerProbe reads the stored pixel size and ignores orientation.
	headerProbe = crop.ProbeFunc(func(_ context.Context, path string) (crop.Dimensions, error) {
		return readHeaderDimensions(path)
	})
	exifProbe = crop.ProbeFunc(func(_ context.Context, path string) (crop.Dimensions, error) {
		d, _, err := readOrientedDimensions(path)
		return d, err
	})
	// decodeProbe decodes the image the same way the cropper does, so its
	// size is what crop coordinates are applied to.
	decodeProbe = crop.ProbeFunc(func(_ context.Context, path string) (crop.Dimensions, error) {
		return readDecodedDimensions(path)
	})
)

type probeReading struct {
	Width  float64 `json:"width,omitempty"`
	Height float64 `json:"height,omitempty"`
	Error  string  `json:"error,omitempty"`
}

func newProbeReading(d crop.Dimensions, err error) probeReading {
	if err != nil {
		return probeReading{Error: err.Error()}
	}
	return probeReading{Width: d.Width, Height: d.Height}
}

type probeReport struct {
	File     string           `json:"file"`
	Header   probeReading     `json:"header"`
	EXIF     probeReading     `json:"exif"`
	Decoded  probeReading     `json:"decoded"`
	Resolved *crop.Dimensions `json:"resolved,omitempty"`
	Error    string           `json:"error,omitempty"`
}

func probeFile(ctx context.Context, path string, tolerance float64) probeReport {
	report := probeReport{
		File:    path,
		Header:  newProbeReading(headerProbe(ctx, path)),
		EXIF:    newProbeReading(exifProbe(ctx, path)),
		Decoded: newProbeReading(decodeProbe(ctx, path)),
	}
	d, err := crop.ResolveSourceDimensions(ctx, path, decodeProbe, headerProbe, tolerance)
	if err != nil {
		report.Error = err.Error()
		return report
	}
	report.Resolved = &d
	return report
}
