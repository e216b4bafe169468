package logger

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

// capture redirects stdout for the duration of fn and returns what was written.
func capture(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}
	os.Stdout = w
	defer func() { os.Stdout = old }()

	fn()

	w.Close()
	var buf bytes.Buffer
	buf.ReadFrom(r)
	return buf.String()
}

func TestInfo_Success_Warn_Error_NoPanic(t *testing.T) {
	out := capture(t, func() {
		Info("TAG", "message")
		Success("TAG", "message")
		Warn("TAG", "message")
		Error("TAG", "message")
	})
	if strings.Count(out, "[TAG]") != 4 {
		t.Errorf("expected 4 tagged lines, got:\n%s", out)
	}
}

func TestBanner_NoPanic(t *testing.T) {
	out := capture(t, func() {
		Banner("v1.0.0")
		Banner("")
	})
	if !strings.Contains(out, "v1.0.0") || !strings.Contains(out, "dev") {
		t.Errorf("banner output = %q", out)
	}
}

func TestSectionAndStats(t *testing.T) {
	out := capture(t, func() {
		Section("Test")
		Stats("systems", 8285)
		Stats("name", "Jita")
	})
	if !strings.Contains(out, "8,285") {
		t.Errorf("Stats should group thousands, got %q", out)
	}
	if !strings.Contains(out, "Jita") {
		t.Errorf("Stats string value missing, got %q", out)
	}
}

func TestSetOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	stdout := capture(t, func() {
		Warn("Route", "redirected")
		Stats("jumps", 1200)
	})
	if stdout != "" {
		t.Errorf("stdout got %q, want nothing", stdout)
	}
	out := buf.String()
	if !strings.Contains(out, "[Route] redirected") || !strings.Contains(out, "1,200") {
		t.Errorf("buffer = %q", out)
	}
	if strings.Contains(out, "\033[") {
		t.Errorf("non-terminal output should not be coloured: %q", out)
	}
}
