package main

import (
	"errors"
	"os"
	"testing"

	"github.com/pkg/browser"
)

func TestOpenBrowser(t *testing.T) {
	orig := openURL
	t.Cleanup(func() { openURL = orig })

	var opened []string
	boom := errors.New("no display")
	openURL = func(url string) error {
		opened = append(opened, url)
		if url == "http://fail" {
			return boom
		}
		return nil
	}

	if err := openBrowser("http://localhost:1234"); err != nil {
		t.Fatal(err)
	}
	if err := openBrowser("http://fail"); !errors.Is(err, boom) {
		t.Errorf("err = %v, want %v", err, boom)
	}
	if len(opened) != 2 || opened[0] != "http://localhost:1234" {
		t.Errorf("opened = %q", opened)
	}
	if browser.Stdout != os.Stderr {
		t.Error("browser launcher output goes to stdout")
	}
}
