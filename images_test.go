package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"squarecrop/crop"
)

func TestIsImage(t *testing.T) {
	for name, want := range map[string]bool{
		"a.jpg":     true,
		"b.JPEG":    true,
		"c.png":     true,
		"d.webp":    true,
		"e.gif":     false,
		"notes.txt": false,
		"noext":     false,
	} {
		if got := isImage(name); got != want {
			t.Errorf("isImage(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestWalkImages(t *testing.T) {
	root := t.TempDir()
	writeTestImage(t, root, "img10.png", 20, 10)
	writeTestImage(t, root, "img2.png", 10, 20)
	writeTestImage(t, root, "sub/img1.jpg", 8, 8)
	writeTestImage(t, root, "output/img0.png", 5, 5)
	if err := os.WriteFile(filepath.Join(root, "readme.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	dir, err := walkImages(context.Background(), root)
	if err != nil {
		t.Fatal(err)
	}
	if dir.Name != filepath.Base(root) {
		t.Errorf("name = %q", dir.Name)
	}

	type entry struct {
		Name  string
		Image ImageInfo
	}
	var got []entry
	for _, f := range dir.Files {
		got = append(got, entry{f.Name, f.Image})
		if f.SizeBytes <= 0 {
			t.Errorf("%s: size %d", f.Name, f.SizeBytes)
		}
	}
	want := []entry{
		{"img2.png", ImageInfo{Width: 10, Height: 20, Orientation: 1}},
		{"img10.png", ImageInfo{Width: 20, Height: 10, Orientation: 1}},
		{"sub/img1.jpg", ImageInfo{Width: 8, Height: 8, Orientation: 1}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestProbes(t *testing.T) {
	root := t.TempDir()
	path := writeTestImage(t, root, "wide.png", 64, 32)
	want := crop.Dimensions{Width: 64, Height: 32}
	ctx := context.Background()

	for name, p := range map[string]crop.ProbeFunc{
		"header": headerProbe,
		"exif":   exifProbe,
		"decode": decodeProbe,
	} {
		d, err := p(ctx, path)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if d != want {
			t.Errorf("%s = %v, want %v", name, d, want)
		}
	}

	if o, err := readOrientation(path); err != nil || o != 1 {
		t.Errorf("orientation = %d, %v", o, err)
	}
	if _, err := headerProbe(ctx, filepath.Join(root, "missing.png")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestProbeFile(t *testing.T) {
	root := t.TempDir()
	good := writeTestImage(t, root, "good.png", 30, 40)
	bad := filepath.Join(root, "bad.jpg")
	if err := os.WriteFile(bad, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}

	report := probeFile(context.Background(), good, crop.DefaultProbeTolerance)
	want := probeReport{
		File:     good,
		Header:   probeReading{Width: 30, Height: 40},
		EXIF:     probeReading{Width: 30, Height: 40},
		Decoded:  probeReading{Width: 30, Height: 40},
		Resolved: &crop.Dimensions{Width: 30, Height: 40},
	}
	if diff := cmp.Diff(want, report); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	report = probeFile(context.Background(), bad, crop.DefaultProbeTolerance)
	if report.Resolved != nil || report.Error == "" {
		t.Errorf("bad file report = %+v", report)
	}
	if diff := cmp.Diff(probeReading{}, report.Header, cmpopts.IgnoreFields(probeReading{}, "Error")); diff != "" {
		t.Errorf("header reading for bad file (-want +got):\n%s", diff)
	}
}
