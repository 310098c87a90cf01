package crop

import "fmt"

// Calibration corrects a systematic disagreement between the coordinates a
// host displays and the pixels its image pipeline actually cuts.
//
// OffsetX and OffsetY are added to the crop origin and are expressed in
// display pixels, so they scale with the image. Enlarge grows the crop box
// by the given factor while pulling the origin back by half the growth,
// which keeps the box centered. An Enlarge of 0 is treated as 1.
type Calibration struct {
	OffsetX float64 `json:"offsetX"`
	OffsetY float64 `json:"offsetY"`
	Enlarge float64 `json:"enlarge"`
}

var (
	NoCalibration = Calibration{Enlarge: 1}
	// LegacyCalibration reproduces the correction tuned for the mobile
	// image manipulator pipeline: 25px right, 45px down, boxes 21% larger.
	LegacyCalibration = Calibration{OffsetX: 25, OffsetY: 45, Enlarge: 1.21}
)

// CalibrationPreset looks up a named calibration.
func CalibrationPreset(name string) (Calibration, error) {
	switch name {
	case "", "none":
		return NoCalibration, nil
	case "legacy":
		return LegacyCalibration, nil
	default:
		return Calibration{}, fmt.Errorf("unknown calibration preset %q", name)
	}
}

func (c Calibration) enlarge() float64 {
	if c.Enlarge <= 0 {
		return 1
	}
	return c.Enlarge
}

// apply takes an origin and size already in source pixels, plus the
// display-to-source scale, and returns the corrected box.
func (c Calibration) apply(x, y, w, h, scaleX, scaleY float64) (float64, float64, float64, float64) {
	x += c.OffsetX * scaleX
	y += c.OffsetY * scaleY

	k := c.enlarge()
	pull := (k - 1) / 2
	return x - w*pull, y - h*pull, w * k, h * k
}
