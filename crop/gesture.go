package crop

import "math"

// JitterThreshold is the largest single-touch movement, in pixels on
// either axis, that is still treated as a stationary touch.
const JitterThreshold = 2.0

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Gesture is one update from a host gesture recognizer.
type Gesture struct {
	// Touches is the number of active touch points.
	Touches int `json:"touches"`
	// DX and DY are the cumulative translation since the gesture started.
	DX float64 `json:"dx"`
	DY float64 `json:"dy"`
	// Points holds the page coordinates of the active touches. Pinching
	// needs the first two.
	Points []Point `json:"points,omitempty"`
}

// Distance returns the distance between the first two touch points, or
// false when there are fewer than two.
func (g Gesture) Distance() (float64, bool) {
	if len(g.Points) < 2 {
		return 0, false
	}
	a, b := g.Points[0], g.Points[1]
	return math.Hypot(b.X-a.X, b.Y-a.Y), true
}

func (g Gesture) isJitter() bool {
	return g.Touches != 2 && math.Abs(g.DX) <= JitterThreshold && math.Abs(g.DY) <= JitterThreshold
}

// Recognizer is what a host toolkit's gesture system drives.
type Recognizer interface {
	OnStart()
	OnMove(touches []Point, delta Point) (Frame, error)
	OnEnd()
}

// GestureAdapter turns raw recognizer callbacks into engine gestures.
type GestureAdapter struct {
	Engine *Engine
}

var _ Recognizer = GestureAdapter{}

func (a GestureAdapter) OnStart() {
	a.Engine.OnGestureStart()
}

func (a GestureAdapter) OnMove(touches []Point, delta Point) (Frame, error) {
	return a.Engine.OnGestureUpdate(Gesture{
		Touches: len(touches),
		DX:      delta.X,
		DY:      delta.Y,
		Points:  touches,
	})
}

func (a GestureAdapter) OnEnd() {
	a.Engine.OnGestureEnd()
}
