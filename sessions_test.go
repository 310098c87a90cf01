package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"squarecrop/crop"
)

func fixedProbe(d crop.Dimensions, err error) crop.ProbeFunc {
	return func(context.Context, string) (crop.Dimensions, error) {
		return d, err
	}
}

func TestSessionStore(t *testing.T) {
	ctx := context.Background()
	src := crop.Dimensions{Width: 400, Height: 300}
	store := NewSessionStore(time.Minute, crop.NoCalibration, fixedProbe(src, nil), fixedProbe(src, nil))

	a, err := store.Start(ctx, "a.png", "/images/a.png")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Start(ctx, "a.png", "/images/a.png")
	if err != nil {
		t.Fatal(err)
	}
	if a.ID == b.ID {
		t.Fatal("sessions share an id")
	}
	if store.Len() != 2 {
		t.Errorf("len = %d, want 2", store.Len())
	}

	got, err := store.Get(a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got != a {
		t.Error("Get returned a different session")
	}
	_ = got.Do(func(e *crop.Engine) error {
		if e.Source() != src {
			t.Errorf("source = %v", e.Source())
		}
		return nil
	})

	if err := store.Cancel(a.ID); err != nil {
		t.Fatal(err)
	}
	if a.view().Phase != crop.PhaseCancelled {
		t.Errorf("phase = %v, want cancelled", a.view().Phase)
	}
	if _, err := store.Get(a.ID); !errors.Is(err, errSessionNotFound) {
		t.Errorf("get after cancel: %v", err)
	}
	if err := store.Cancel(a.ID); !errors.Is(err, errSessionNotFound) {
		t.Errorf("second cancel: %v", err)
	}
	if store.Len() != 1 {
		t.Errorf("len = %d, want 1", store.Len())
	}
}

func TestSessionStoreGetAfterCancel(t *testing.T) {
	src := crop.Dimensions{Width: 10, Height: 10}
	store := NewSessionStore(time.Minute, crop.NoCalibration, fixedProbe(src, nil), nil)
	sess, err := store.Start(context.Background(), "a.png", "a.png")
	if err != nil {
		t.Fatal(err)
	}

	// a lookup that found the session before Cancel removed it
	if err := store.Cancel(sess.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.touch(sess); !errors.Is(err, errSessionNotFound) {
		t.Errorf("touch after cancel: %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("cancelled session was stored again, len = %d", store.Len())
	}
	if _, err := store.Get(sess.ID); !errors.Is(err, errSessionNotFound) {
		t.Errorf("get after cancel: %v", err)
	}
}

func TestSessionStoreProbeFailure(t *testing.T) {
	boom := errors.New("unreadable")
	store := NewSessionStore(time.Minute, crop.NoCalibration, fixedProbe(crop.Dimensions{}, boom), fixedProbe(crop.Dimensions{}, boom))
	if _, err := store.Start(context.Background(), "x.png", "/x.png"); !errors.Is(err, crop.ErrGeometryUnavailable) {
		t.Errorf("err = %v, want geometry unavailable", err)
	}
	if store.Len() != 0 {
		t.Errorf("failed start left %d sessions", store.Len())
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	src := crop.Dimensions{Width: 10, Height: 10}
	store := NewSessionStore(20*time.Millisecond, crop.NoCalibration, fixedProbe(src, nil), nil)
	sess, err := store.Start(context.Background(), "a.png", "a.png")
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, err := store.Get(sess.ID); !errors.Is(err, errSessionNotFound) {
		t.Errorf("expired session still returned: %v", err)
	}
}
