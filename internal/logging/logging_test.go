// ABOUTME: Tests for logger construction
// ABOUTME: Verifies file output, stdout echo and level filtering
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "zerohz.log")

	logger, closeFn, err := New(Config{File: path})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	logger.Info().Str("sound", "rain").Msg("sound loaded")
	logger.Debug().Msg("hidden at info level")
	if err := closeFn(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	out := string(data)
	if !strings.Contains(out, "sound loaded") || !strings.Contains(out, "sound=rain") {
		t.Errorf("expected message and field in log, got %q", out)
	}
	if strings.Contains(out, "hidden") {
		t.Error("debug message should be filtered")
	}
}

func TestNewStreamsToStdout(t *testing.T) {
	var stdout bytes.Buffer
	logger, closeFn, err := New(Config{
		File:   filepath.Join(t.TempDir(), "zerohz.log"),
		Level:  "debug",
		Stream: true,
		Stdout: &stdout,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer closeFn()

	logger.Debug().Msg("timer started")
	if !strings.Contains(stdout.String(), "timer started") {
		t.Errorf("expected streamed log, got %q", stdout.String())
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, _, err := New(Config{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
}

func TestNewRejectsBadPath(t *testing.T) {
	if _, _, err := New(Config{File: filepath.Join(t.TempDir(), "missing", "x.log")}); err == nil {
		t.Error("expected error for unwritable path")
	}
}
