package crop

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

var approx = cmpopts.EquateApprox(0, 1e-9)

func TestFit(t *testing.T) {
	tests := []struct {
		name      string
		source    Dimensions
		container Dimensions
		want      Rect
	}{
		{
			name:      "portrait in square is pillarboxed",
			source:    Dimensions{3000, 4000},
			container: Dimensions{300, 300},
			want:      Rect{Offset: Offset{X: 37.5}, Size: Dimensions{225, 300}},
		},
		{
			name:      "landscape in square is letterboxed",
			source:    Dimensions{4000, 2000},
			container: Dimensions{300, 300},
			want:      Rect{Offset: Offset{Y: 75}, Size: Dimensions{300, 150}},
		},
		{
			name:      "same aspect ratio fills",
			source:    Dimensions{1000, 500},
			container: Dimensions{200, 100},
			want:      Rect{Size: Dimensions{200, 100}},
		},
		{
			name:      "unknown source",
			container: Dimensions{200, 100},
			want:      Rect{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Fit(tc.source, tc.container)
			if diff := cmp.Diff(tc.want, got, approx); diff != "" {
				t.Errorf("Fit mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFitContained(t *testing.T) {
	sources := []Dimensions{{3000, 4000}, {4000, 3000}, {1, 1}, {1920, 1080}, {17, 911}}
	containers := []Dimensions{{300, 300}, {90, 80}, {1024, 768}, {375, 812}}
	for _, s := range sources {
		for _, c := range containers {
			r := Fit(s, c)
			if r.Offset.X < 0 || r.Offset.Y < 0 {
				t.Errorf("Fit(%v, %v) negative offset %+v", s, c, r.Offset)
			}
			if r.Offset.X+r.Size.Width > c.Width+1e-9 || r.Offset.Y+r.Size.Height > c.Height+1e-9 {
				t.Errorf("Fit(%v, %v) = %+v overflows container", s, c, r)
			}
			if r.Offset.X != 0 && r.Offset.Y != 0 {
				t.Errorf("Fit(%v, %v) = %+v offset on both axes", s, c, r)
			}
		}
	}
}

func TestInitialFrame(t *testing.T) {
	r := Rect{Offset: Offset{X: 37.5}, Size: Dimensions{225, 300}}
	want := Frame{X: 60, Y: 60, Size: 180}
	if diff := cmp.Diff(want, InitialFrame(r), approx); diff != "" {
		t.Errorf("InitialFrame mismatch (-want +got):\n%s", diff)
	}
}

func TestClampFrame(t *testing.T) {
	r := Rect{Offset: Offset{X: 10, Y: 20}, Size: Dimensions{100, 200}}
	tests := []struct {
		name string
		in   Frame
		want Frame
	}{
		{"inside", Frame{X: 20, Y: 30, Size: 50}, Frame{X: 20, Y: 30, Size: 50}},
		{"too far left and up", Frame{X: -5, Y: 0, Size: 50}, Frame{X: 10, Y: 20, Size: 50}},
		{"too far right and down", Frame{X: 100, Y: 300, Size: 50}, Frame{X: 60, Y: 170, Size: 50}},
		{"too large", Frame{X: 10, Y: 20, Size: 500}, Frame{X: 10, Y: 20, Size: 95}},
		{"too small", Frame{X: 10, Y: 20, Size: 1}, Frame{X: 10, Y: 20, Size: 30}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if diff := cmp.Diff(tc.want, ClampFrame(tc.in, r), approx); diff != "" {
				t.Errorf("ClampFrame mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResizeAboutCenter(t *testing.T) {
	r := Rect{Size: Dimensions{300, 300}}
	f := Frame{X: 100, Y: 100, Size: 100}

	got := ResizeAboutCenter(f, 50, r)
	if diff := cmp.Diff(Frame{X: 125, Y: 125, Size: 50}, got, approx); diff != "" {
		t.Errorf("shrink mismatch (-want +got):\n%s", diff)
	}

	// growing near an edge keeps the frame inside
	edge := Frame{X: 0, Y: 0, Size: 100}
	got = ResizeAboutCenter(edge, 200, r)
	if diff := cmp.Diff(Frame{X: 0, Y: 0, Size: 200}, got, approx); diff != "" {
		t.Errorf("grow mismatch (-want +got):\n%s", diff)
	}
}

func TestResultRectangle(t *testing.T) {
	res := Result{OriginX: 10, OriginY: 20, Width: 30, Height: 40}
	rect := res.Rectangle()
	if rect.Min.X != 10 || rect.Min.Y != 20 || rect.Dx() != 30 || rect.Dy() != 40 {
		t.Errorf("Rectangle() = %v", rect)
	}
	if got, want := res.String(), "crop(x=10,y=20,w=30,h=40)"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
