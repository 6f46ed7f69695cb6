package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(LevelInfo)

	Debug("hidden debug line")
	Warn("source skipped", "url", "https://example.com/feed.ics")
	Error("write failed", errors.New("disk full"), "file", "master.ics")

	out := buf.String()
	if strings.Contains(out, "hidden debug line") {
		t.Fatalf("debug line should be filtered at INFO, got %q", out)
	}
	if !strings.Contains(out, "source skipped") || !strings.Contains(out, "url=https://example.com/feed.ics") {
		t.Fatalf("expected warning with url attribute, got %q", out)
	}
	if !strings.Contains(out, "disk full") {
		t.Fatalf("expected error value in output, got %q", out)
	}
}

func TestSetLevelDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	SetLevel(LevelDebug)
	defer SetLevel(LevelInfo)

	Debug("card skipped", "reason", "missing title")
	if !strings.Contains(buf.String(), "card skipped") {
		t.Fatalf("expected debug line, got %q", buf.String())
	}
}
