package crop

import (
	"fmt"
	"image"
	"math"
)

const (
	// InitialFrameRatio is the share of the shorter rendered side a new frame covers.
	InitialFrameRatio = 0.8
	MinFrameRatio     = 0.3
	MaxFrameRatio     = 0.95
)

// Dimensions is a width/height pair in pixels.
type Dimensions struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func (d Dimensions) Valid() bool {
	return d.Width > 0 && d.Height > 0
}

func (d Dimensions) AspectRatio() float64 {
	return d.Width / d.Height
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%gx%g", d.Width, d.Height)
}

// Offset is the top-left displacement of the rendered image inside its container.
type Offset struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is where the image is actually drawn inside its container.
type Rect struct {
	Offset Offset     `json:"offset"`
	Size   Dimensions `json:"size"`
}

func (r Rect) MinSide() float64 {
	return math.Min(r.Size.Width, r.Size.Height)
}

func (r Rect) Valid() bool {
	return r.Size.Valid()
}

// SizeBounds returns the smallest and largest frame size allowed inside r.
func (r Rect) SizeBounds() (lo, hi float64) {
	side := r.MinSide()
	return side * MinFrameRatio, side * MaxFrameRatio
}

// Frame is a square crop selection in container coordinates.
type Frame struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Size float64 `json:"size"`
}

func (f Frame) Center() Point {
	return Point{X: f.X + f.Size/2, Y: f.Y + f.Size/2}
}

func (f Frame) IsZero() bool {
	return f.Size <= 0
}

// Result is a crop rectangle in source image pixels.
type Result struct {
	OriginX int `json:"originX"`
	OriginY int `json:"originY"`
	Width   int `json:"width"`
	Height  int `json:"height"`
}

func (r Result) Rectangle() image.Rectangle {
	return image.Rect(r.OriginX, r.OriginY, r.OriginX+r.Width, r.OriginY+r.Height)
}

func (r Result) String() string {
	return fmt.Sprintf("crop(x=%d,y=%d,w=%d,h=%d)", r.OriginX, r.OriginY, r.Width, r.Height)
}

// Fit places an image of the given source size inside container using a
// "contain" policy: the image is scaled to touch the container on one axis
// and centered on the other.
func Fit(source, container Dimensions) Rect {
	if !source.Valid() || !container.Valid() {
		return Rect{}
	}
	imageAR := source.AspectRatio()
	containerAR := container.AspectRatio()

	var r Rect
	if imageAR > containerAR {
		// wider than the container: letterboxed
		r.Size.Width = container.Width
		r.Size.Height = container.Width / imageAR
		r.Offset.Y = (container.Height - r.Size.Height) / 2
	} else {
		// taller (or equal): pillarboxed
		r.Size.Height = container.Height
		r.Size.Width = container.Height * imageAR
		r.Offset.X = (container.Width - r.Size.Width) / 2
	}
	return r
}

// InitialFrame centers a frame covering InitialFrameRatio of the shorter side of r.
func InitialFrame(r Rect) Frame {
	size := r.MinSide() * InitialFrameRatio
	return Frame{
		X:    r.Offset.X + (r.Size.Width-size)/2,
		Y:    r.Offset.Y + (r.Size.Height-size)/2,
		Size: size,
	}
}

// ClampFrame forces f into the allowed size range for r and then moves it
// so it lies entirely inside r.
func ClampFrame(f Frame, r Rect) Frame {
	lo, hi := r.SizeBounds()
	f.Size = clamp(f.Size, lo, hi)
	return clampPosition(f, r)
}

func clampPosition(f Frame, r Rect) Frame {
	f.X = clamp(f.X, r.Offset.X, r.Offset.X+r.Size.Width-f.Size)
	f.Y = clamp(f.Y, r.Offset.Y, r.Offset.Y+r.Size.Height-f.Size)
	return f
}

// ResizeAboutCenter changes the frame size keeping its center fixed, then
// clamps it into r.
func ResizeAboutCenter(f Frame, size float64, r Rect) Frame {
	c := f.Center()
	return clampPosition(Frame{
		X:    c.X - size/2,
		Y:    c.Y - size/2,
		Size: size,
	}, r)
}

// clamp bounds v to [lo, hi]. When hi < lo, lo wins.
func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
