package crop

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"
)

// DefaultProbeTolerance is the relative difference between two size
// probes that is still considered agreement.
const DefaultProbeTolerance = 0.01

// Prober reads the intrinsic pixel size of an image.
type Prober interface {
	ProbeDimensions(ctx context.Context, ref string) (Dimensions, error)
}

type ProbeFunc func(ctx context.Context, ref string) (Dimensions, error)

func (f ProbeFunc) ProbeDimensions(ctx context.Context, ref string) (Dimensions, error) {
	return f(ctx, ref)
}

// ResolveSourceDimensions asks both probes for the size of ref.
//
// oriented must report the size the image processing step will see after
// applying orientation metadata, and wins whenever it succeeds. header is a
// cheaper probe used as a fallback. Readings that differ by more than
// tolerance are logged. Either prober may be nil.
func ResolveSourceDimensions(ctx context.Context, ref string, oriented, header Prober, tolerance float64) (Dimensions, error) {
	logger := log.Ctx(ctx).With().Str("ref", ref).Logger()

	var od, hd Dimensions
	var oerr, herr error = errNoProber, errNoProber
	if oriented != nil {
		od, oerr = probeValid(ctx, oriented, ref)
	}
	if header != nil {
		hd, herr = probeValid(ctx, header, ref)
	}

	switch {
	case oerr == nil && herr == nil:
		if !agree(od, hd, tolerance) {
			logger.Warn().
				Stringer("oriented", od).
				Stringer("header", hd).
				Bool("swapped", agree(od, Dimensions{Width: hd.Height, Height: hd.Width}, tolerance)).
				Msg("image size probes disagree, using orientation-aware size")
		}
		return od, nil
	case oerr == nil:
		logger.Debug().Err(herr).Msg("header probe failed")
		return od, nil
	case herr == nil:
		logger.Warn().Err(oerr).Msg("orientation-aware probe failed, falling back to header size")
		return hd, nil
	default:
		return Dimensions{}, fmt.Errorf("%w: %s: %w", ErrGeometryUnavailable, ref, errors.Join(oerr, herr))
	}
}

var errNoProber = errors.New("no prober")

func probeValid(ctx context.Context, p Prober, ref string) (Dimensions, error) {
	d, err := p.ProbeDimensions(ctx, ref)
	if err != nil {
		return Dimensions{}, err
	}
	if !d.Valid() {
		return Dimensions{}, fmt.Errorf("probe returned invalid size %s", d)
	}
	return d, nil
}

func agree(a, b Dimensions, tolerance float64) bool {
	return within(a.Width, b.Width, tolerance) && within(a.Height, b.Height, tolerance)
}

func within(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance*math.Max(math.Abs(a), math.Abs(b))
}
