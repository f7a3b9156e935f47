package main

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	defer func() { os.Stdout = oldStdout }()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("failed to create pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

func TestVersionCommand(t *testing.T) {
	oldVerbose := verbose
	verbose = false
	defer func() { verbose = oldVerbose }()

	output := captureStdout(t, func() {
		versionCmd.Run(&cobra.Command{}, []string{})
	})

	if !strings.Contains(output, "EntityView v") {
		t.Errorf("Expected output to contain 'EntityView v', got: %s", output)
	}
	if strings.Contains(output, "Components:") {
		t.Errorf("Expected no components without --verbose, got: %s", output)
	}
}

func TestVersionCommandVerbose(t *testing.T) {
	oldVerbose := verbose
	verbose = true
	defer func() { verbose = oldVerbose }()

	output := captureStdout(t, func() {
		versionCmd.Run(&cobra.Command{}, []string{})
	})

	for _, want := range []string{"EntityView v", "Components:", "CLI:", "Engine:"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected verbose output to contain %q, got: %s", want, output)
		}
	}
}
