package crop

import (
	"fmt"
	"math"
	"strings"
)

// MeasurementSource says how directly a container measurement was taken.
type MeasurementSource int

const (
	// Wrapper measurements come from the box around the image and are
	// only an estimate of where the image is drawn.
	Wrapper MeasurementSource = iota
	// Element measurements come from the image element itself. The first
	// one settles the layout; wrapper measurements are ignored afterwards.
	Element
)

func (m MeasurementSource) String() string {
	switch m {
	case Wrapper:
		return "wrapper"
	case Element:
		return "element"
	default:
		return fmt.Sprintf("MeasurementSource(%d)", int(m))
	}
}

func (m MeasurementSource) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *MeasurementSource) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "wrapper", "":
		*m = Wrapper
	case "element", "image":
		*m = Element
	default:
		return fmt.Errorf("unknown measurement source %q", text)
	}
	return nil
}

// Layout tags how trustworthy the current rendered rectangle is.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutEstimated
	LayoutSettled
)

func (l Layout) String() string {
	switch l {
	case LayoutEstimated:
		return "estimated"
	case LayoutSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// PinchBaseline anchors a two-finger gesture. A zero Distance means unset.
type PinchBaseline struct {
	Distance float64 `json:"distance"`
	Size     float64 `json:"size"`
}

func (p PinchBaseline) Set() bool {
	return p.Distance > 0
}

// GestureState is the per-interaction part of State.
type GestureState struct {
	Active bool `json:"active"`
	// Anchor is the frame position the cumulative delta is applied to.
	Anchor Offset `json:"anchor"`
	// Moved is set once a single-touch gesture leaves the jitter threshold.
	Moved   bool          `json:"moved"`
	Touches int           `json:"touches"`
	Pinch   PinchBaseline `json:"pinch"`
}

// State is the full crop geometry for one session. All transitions are
// pure functions taking a State and returning the next one.
type State struct {
	Source    Dimensions   `json:"source"`
	Container Dimensions   `json:"container"`
	Layout    Layout       `json:"layout"`
	Rendered  Rect         `json:"rendered"`
	Frame     Frame        `json:"frame"`
	Gesture   GestureState `json:"gesture"`
}

// WithSource records the intrinsic size of the source image. A different
// size than before discards the frame so it is re-centered.
func WithSource(s State, d Dimensions) State {
	if !d.Valid() {
		return s
	}
	if s.Source != d {
		s.Frame = Frame{}
		s.Gesture = GestureState{}
	}
	s.Source = d
	return relayout(s)
}

// Measure applies a container measurement. Wrapper measurements are
// ignored once an element measurement has settled the layout, so the
// rendered rectangle never flips between the two estimates.
func Measure(s State, src MeasurementSource, container Dimensions) State {
	if !container.Valid() {
		return s
	}
	if src == Wrapper && s.Layout == LayoutSettled {
		return s
	}
	s.Container = container
	if src == Element {
		s.Layout = LayoutSettled
	} else {
		s.Layout = LayoutEstimated
	}
	return relayout(s)
}

func relayout(s State) State {
	if !s.Source.Valid() || !s.Container.Valid() {
		return s
	}
	s.Rendered = Fit(s.Source, s.Container)
	if s.Frame.IsZero() {
		s.Frame = InitialFrame(s.Rendered)
	} else {
		s.Frame = ClampFrame(s.Frame, s.Rendered)
	}
	return s
}

// BeginGesture snapshots the frame position for panning. The pinch
// baseline is taken lazily on the first two-finger update.
func BeginGesture(s State) State {
	s.Gesture = GestureState{
		Active: true,
		Anchor: Offset{X: s.Frame.X, Y: s.Frame.Y},
	}
	return s
}

// UpdateGesture moves or resizes the frame.
func UpdateGesture(s State, g Gesture) (State, error) {
	if err := checkGeometry("gesture update", s); err != nil {
		return s, err
	}
	if !s.Gesture.Active {
		s = BeginGesture(s)
	}

	gs := &s.Gesture
	if gs.Touches != 0 && gs.Touches != g.Touches {
		gs.Pinch = PinchBaseline{}
		if g.Touches == 1 {
			// re-anchor so the frame continues from where the pinch left it
			gs.Anchor = Offset{X: s.Frame.X - g.DX, Y: s.Frame.Y - g.DY}
			gs.Moved = true
		}
	}
	gs.Touches = g.Touches

	switch g.Touches {
	case 1:
		if !gs.Moved {
			if g.isJitter() {
				return s, nil
			}
			gs.Moved = true
		}
		s.Frame = clampPosition(Frame{
			X:    gs.Anchor.X + g.DX,
			Y:    gs.Anchor.Y + g.DY,
			Size: s.Frame.Size,
		}, s.Rendered)
	case 2:
		dist, ok := g.Distance()
		if !ok {
			return s, nil
		}
		if !gs.Pinch.Set() {
			if dist <= 0 {
				return s, nil
			}
			gs.Pinch = PinchBaseline{Distance: dist, Size: s.Frame.Size}
		}
		lo, hi := s.Rendered.SizeBounds()
		size := clamp(gs.Pinch.Size*dist/gs.Pinch.Distance, lo, hi)
		s.Frame = ResizeAboutCenter(s.Frame, size, s.Rendered)
	default:
		gs.Pinch = PinchBaseline{}
	}
	return s, nil
}

// EndGesture clears all per-gesture state. The frame stays as it is.
func EndGesture(s State) State {
	s.Gesture = GestureState{}
	return s
}

// ComputeResult converts the frame into source pixel coordinates.
func ComputeResult(s State, cal Calibration) (Result, error) {
	if err := checkGeometry("compute result", s); err != nil {
		return Result{}, err
	}
	f, r := s.Frame, s.Rendered

	relX := clamp(f.X-r.Offset.X, 0, r.Size.Width-f.Size)
	relY := clamp(f.Y-r.Offset.Y, 0, r.Size.Height-f.Size)

	scaleX := s.Source.Width / r.Size.Width
	scaleY := s.Source.Height / r.Size.Height

	x, y, w, h := cal.apply(relX*scaleX, relY*scaleY, f.Size*scaleX, f.Size*scaleY, scaleX, scaleY)

	srcW := int(math.Round(s.Source.Width))
	srcH := int(math.Round(s.Source.Height))

	var res Result
	res.Width = clampInt(int(math.Round(w)), 1, srcW)
	res.Height = clampInt(int(math.Round(h)), 1, srcH)
	res.OriginX = clampInt(int(math.Round(x)), 0, srcW-res.Width)
	res.OriginY = clampInt(int(math.Round(y)), 0, srcH-res.Height)
	return res, nil
}
