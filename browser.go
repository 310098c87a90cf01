package main

import (
	"fmt"
	"os"

	"github.com/pkg/browser"
)

// openURL is replaced in tests.
var openURL = browser.OpenURL

func init() {
	// stdout carries JSONL output
	browser.Stdout = os.Stderr
}

func openBrowser(url string) error {
	if err := openURL(url); err != nil {
		return fmt.Errorf("failed to open %s: %w", url, err)
	}
	return nil
}
