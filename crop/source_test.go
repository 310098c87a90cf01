package crop

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func fixed(d Dimensions, err error) Prober {
	return ProbeFunc(func(context.Context, string) (Dimensions, error) {
		return d, err
	})
}

func TestResolveSourceDimensions(t *testing.T) {
	errProbe := errors.New("probe failed")
	tests := []struct {
		name     string
		oriented Prober
		header   Prober
		want     Dimensions
		wantErr  bool
		wantWarn string
	}{
		{
			name:     "agreeing probes",
			oriented: fixed(Dimensions{3000, 4000}, nil),
			header:   fixed(Dimensions{3000, 4000}, nil),
			want:     Dimensions{3000, 4000},
		},
		{
			name:     "orientation swap prefers oriented",
			oriented: fixed(Dimensions{3000, 4000}, nil),
			header:   fixed(Dimensions{4000, 3000}, nil),
			want:     Dimensions{3000, 4000},
			wantWarn: `"swapped":true`,
		},
		{
			name:     "header fallback",
			oriented: fixed(Dimensions{}, errProbe),
			header:   fixed(Dimensions{640, 480}, nil),
			want:     Dimensions{640, 480},
			wantWarn: "falling back",
		},
		{
			name:     "invalid oriented reading falls back",
			oriented: fixed(Dimensions{0, 480}, nil),
			header:   fixed(Dimensions{640, 480}, nil),
			want:     Dimensions{640, 480},
		},
		{
			name:     "nil header",
			oriented: fixed(Dimensions{10, 10}, nil),
			want:     Dimensions{10, 10},
		},
		{
			name:     "both fail",
			oriented: fixed(Dimensions{}, errProbe),
			header:   fixed(Dimensions{}, errProbe),
			wantErr:  true,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger := zerolog.New(&buf)
			ctx := logger.WithContext(context.Background())

			got, err := ResolveSourceDimensions(ctx, "photo.jpg", tc.oriented, tc.header, DefaultProbeTolerance)
			if tc.wantErr {
				if !errors.Is(err, ErrGeometryUnavailable) {
					t.Fatalf("err = %v, want ErrGeometryUnavailable", err)
				}
				if !errors.Is(err, errProbe) {
					t.Errorf("err = %v does not wrap the probe errors", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if got != tc.want {
				t.Errorf("got %v, want %v", got, tc.want)
			}
			if tc.wantWarn != "" && !strings.Contains(buf.String(), tc.wantWarn) {
				t.Errorf("log %q does not contain %q", buf.String(), tc.wantWarn)
			}
		})
	}
}

func TestEngineEstablishSourceDimensions(t *testing.T) {
	e := NewEngine(context.Background(), NoCalibration)
	d, err := e.EstablishSourceDimensions(context.Background(), "a.jpg", fixed(Dimensions{800, 600}, nil), nil)
	if err != nil {
		t.Fatal(err)
	}
	if d != (Dimensions{800, 600}) || e.Source() != d {
		t.Errorf("source = %v, engine source = %v", d, e.Source())
	}

	e = NewEngine(context.Background(), NoCalibration)
	if _, err := e.EstablishSourceDimensions(context.Background(), "a.jpg", nil, nil); !errors.Is(err, ErrGeometryUnavailable) {
		t.Errorf("err = %v, want ErrGeometryUnavailable", err)
	}
}
