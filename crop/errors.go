package crop

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGeometryUnavailable means source dimensions or the rendered
	// rectangle are not known yet.
	ErrGeometryUnavailable = errors.New("crop geometry unavailable")
	// ErrSessionClosed is returned for input received after commit or cancel.
	ErrSessionClosed = errors.New("crop session closed")
)

// GeometryError reports which piece of geometry an operation was missing.
type GeometryError struct {
	Op      string
	Missing []string
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("%s: %s: missing %s", e.Op, ErrGeometryUnavailable, strings.Join(e.Missing, ", "))
}

func (e *GeometryError) Unwrap() error {
	return ErrGeometryUnavailable
}

func checkGeometry(op string, s State) error {
	var missing []string
	if !s.Source.Valid() {
		missing = append(missing, "source dimensions")
	}
	if !s.Rendered.Valid() {
		missing = append(missing, "rendered rect")
	}
	if len(missing) == 0 {
		return nil
	}
	return &GeometryError{Op: op, Missing: missing}
}
