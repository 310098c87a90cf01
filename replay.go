package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"squarecrop/crop"
)

// replayEvent is one line of a recorded crop session. Which fields matter
// depends on Type.
type replayEvent struct {
	Type   string                 `json:"type"`
	File   string                 `json:"file,omitempty"`
	Source crop.MeasurementSource `json:"source"`
	Width  float64                `json:"width"`
	Height float64                `json:"height"`
	crop.Gesture
}

type replayRecord struct {
	Event  int          `json:"event"`
	Type   string       `json:"type"`
	Phase  crop.Phase   `json:"phase"`
	Rect   *crop.Rect   `json:"rect,omitempty"`
	Frame  *crop.Frame  `json:"frame,omitempty"`
	Result *crop.Result `json:"result,omitempty"`
	Error  string       `json:"error,omitempty"`
}

type replayCmd struct {
	File string `arg:"" optional:"" help:"JSONL event file, stdin when omitted or -" default:"-"`

	CalibrationFlags `embed:""`
}

func (cmd *replayCmd) Run(g *Globals) error {
	ctx, cancel := g.setup()
	defer cancel()

	cal, err := cmd.CalibrationFlags.resolve()
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if cmd.File != "-" {
		f, err := os.Open(cmd.File)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", cmd.File, err)
		}
		defer f.Close()
		r = f
	}

	records, err := replay(ctx, r, crop.NewEngine(ctx, cal))
	printJSONL(records)
	return err
}

// replay feeds events from r into e and records the engine's answer to
// each. Engine errors are recorded and do not stop the replay; malformed
// input does.
func replay(ctx context.Context, r io.Reader, e *crop.Engine) ([]replayRecord, error) {
	dec := json.NewDecoder(r)
	var records []replayRecord
	for n := 1; ; n++ {
		var ev replayEvent
		if err := dec.Decode(&ev); errors.Is(err, io.EOF) {
			return records, nil
		} else if err != nil {
			return records, fmt.Errorf("event %d: %w", n, err)
		}

		rec, err := applyEvent(ctx, e, ev)
		if err != nil {
			log.Ctx(ctx).Debug().Err(err).Int("event", n).Str("type", ev.Type).Msg("event rejected")
			rec.Error = err.Error()
		}
		rec.Event = n
		rec.Type = ev.Type
		rec.Phase = e.Phase()
		records = append(records, rec)
	}
}

func applyEvent(ctx context.Context, e *crop.Engine, ev replayEvent) (replayRecord, error) {
	var rec replayRecord
	withFrame := func() {
		f := e.Frame()
		rec.Frame = &f
	}

	switch ev.Type {
	case "source":
		if err := e.SetSourceDimensions(crop.Dimensions{Width: ev.Width, Height: ev.Height}); err != nil {
			return rec, err
		}
	case "probe":
		if _, err := e.EstablishSourceDimensions(ctx, ev.File, decodeProbe, headerProbe); err != nil {
			return rec, err
		}
	case "measure":
		r, err := e.OnContainerMeasured(ev.Source, crop.Dimensions{Width: ev.Width, Height: ev.Height})
		if err != nil {
			return rec, err
		}
		rec.Rect = &r
		withFrame()
	case "start":
		e.OnGestureStart()
		withFrame()
	case "update":
		if _, err := e.OnGestureUpdate(ev.Gesture); err != nil {
			return rec, err
		}
		withFrame()
	case "end":
		e.OnGestureEnd()
		withFrame()
	case "commit":
		res, err := e.Commit()
		if err != nil {
			return rec, err
		}
		rec.Result = &res
	case "cancel":
		e.Cancel()
	default:
		return rec, fmt.Errorf("unknown event type %q", ev.Type)
	}
	return rec, nil
}
