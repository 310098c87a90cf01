// Package crop tracks an interactive square crop selection over a
// displayed image and converts it into source image pixels.
//
// Three coordinate spaces are involved: source pixels, the container the
// image is displayed in, and the rectangle the image actually occupies
// inside that container after a "contain" fit. Hosts report container
// measurements and gestures; the engine keeps the frame inside the drawn
// image and produces a Result on commit.
//
// An Engine is not safe for concurrent use. Hosts deliver events from a
// single event loop or serialize them.
package crop

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Phase is the lifecycle position of a crop session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseDimensionsKnown
	// PhaseLayoutEstimated has a rendered rect from wrapper measurements
	// only; an element measurement moves it to PhaseLayoutSettled.
	PhaseLayoutEstimated
	PhaseLayoutSettled
	PhaseGestureActive
	PhaseIdle
	PhaseCommitted
	PhaseCancelled
)

var phaseNames = [...]string{
	PhaseUninitialized:   "uninitialized",
	PhaseDimensionsKnown: "dimensions-known",
	PhaseLayoutEstimated: "layout-estimated",
	PhaseLayoutSettled:   "layout-settled",
	PhaseGestureActive:   "gesture-active",
	PhaseIdle:            "idle",
	PhaseCommitted:       "committed",
	PhaseCancelled:       "cancelled",
}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Closed reports whether the session no longer accepts input.
func (p Phase) Closed() bool {
	return p == PhaseCommitted || p == PhaseCancelled
}

// Engine holds one crop session.
type Engine struct {
	state       State
	calibration Calibration
	interacted  bool
	committed   bool
	cancelled   bool
	result      Result
	logger      *zerolog.Logger
}

// NewEngine starts an empty session. The logger is taken from ctx.
func NewEngine(ctx context.Context, cal Calibration) *Engine {
	return &Engine{
		calibration: cal,
		logger:      log.Ctx(ctx),
	}
}

func (e *Engine) Calibration() Calibration {
	return e.calibration
}

func (e *Engine) Phase() Phase {
	switch {
	case e.cancelled:
		return PhaseCancelled
	case e.committed:
		return PhaseCommitted
	case !e.state.Source.Valid():
		return PhaseUninitialized
	case !e.state.Rendered.Valid():
		return PhaseDimensionsKnown
	case e.state.Gesture.Active:
		return PhaseGestureActive
	case e.interacted:
		return PhaseIdle
	case e.state.Layout == LayoutSettled:
		return PhaseLayoutSettled
	default:
		return PhaseLayoutEstimated
	}
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	return e.state
}

func (e *Engine) Frame() Frame {
	return e.state.Frame
}

func (e *Engine) Rect() Rect {
	return e.state.Rendered
}

func (e *Engine) Source() Dimensions {
	return e.state.Source
}

// Settled reports whether an element measurement has fixed the layout.
func (e *Engine) Settled() bool {
	return e.state.Layout == LayoutSettled
}

// EstablishSourceDimensions resolves the source size through the two
// probes (see ResolveSourceDimensions) and records it.
func (e *Engine) EstablishSourceDimensions(ctx context.Context, ref string, oriented, header Prober) (Dimensions, error) {
	d, err := ResolveSourceDimensions(ctx, ref, oriented, header, DefaultProbeTolerance)
	if err != nil {
		return Dimensions{}, err
	}
	if err := e.SetSourceDimensions(d); err != nil {
		return Dimensions{}, err
	}
	return d, nil
}

func (e *Engine) SetSourceDimensions(d Dimensions) error {
	if e.Phase().Closed() {
		return ErrSessionClosed
	}
	if !d.Valid() {
		return fmt.Errorf("%w: invalid source dimensions %s", ErrGeometryUnavailable, d)
	}
	e.state = WithSource(e.state, d)
	e.logger.Debug().Stringer("source", d).Msg("source dimensions set")
	return nil
}

// OnContainerMeasured applies a layout measurement and returns the
// resulting rendered rectangle. Measurements that arrive before the source
// size is known are kept and applied once it is.
func (e *Engine) OnContainerMeasured(src MeasurementSource, container Dimensions) (Rect, error) {
	if e.Phase().Closed() {
		return Rect{}, ErrSessionClosed
	}
	if src == Wrapper && e.state.Layout == LayoutSettled {
		e.logger.Trace().Stringer("container", container).Msg("ignoring wrapper measurement, layout settled")
		return e.state.Rendered, nil
	}
	e.state = Measure(e.state, src, container)
	if err := checkGeometry("measure container", e.state); err != nil {
		return Rect{}, err
	}
	e.logger.Debug().
		Stringer("measuredBy", src).
		Stringer("container", container).
		Interface("rendered", e.state.Rendered).
		Interface("frame", e.state.Frame).
		Msg("layout measured")
	return e.state.Rendered, nil
}

func (e *Engine) OnGestureStart() {
	if e.Phase().Closed() {
		return
	}
	e.state = BeginGesture(e.state)
	if e.state.Rendered.Valid() {
		e.interacted = true
	}
}

func (e *Engine) OnGestureUpdate(g Gesture) (Frame, error) {
	if e.Phase().Closed() {
		return e.state.Frame, ErrSessionClosed
	}
	next, err := UpdateGesture(e.state, g)
	if err != nil {
		return e.state.Frame, err
	}
	e.state = next
	e.interacted = true
	e.logger.Trace().Int("touches", g.Touches).Interface("frame", next.Frame).Msg("gesture update")
	return next.Frame, nil
}

// OnGestureEnd is safe to call without a matching start.
func (e *Engine) OnGestureEnd() {
	e.state = EndGesture(e.state)
}

// Commit computes the crop result and closes the session to further
// input. Committing again returns the same result, so a host can repeat a
// commit whose answer it lost.
func (e *Engine) Commit() (Result, error) {
	if e.cancelled {
		return Result{}, ErrSessionClosed
	}
	if e.committed {
		return e.result, nil
	}
	res, err := ComputeResult(e.state, e.calibration)
	if err != nil {
		return Result{}, err
	}
	e.state = EndGesture(e.state)
	e.result = res
	e.committed = true
	e.logger.Debug().
		Interface("frame", e.state.Frame).
		Stringer("result", res).
		Msg("crop committed")
	return res, nil
}

// Cancel discards all geometry. It never fails.
func (e *Engine) Cancel() {
	e.state = State{}
	e.result = Result{}
	e.cancelled = true
}
