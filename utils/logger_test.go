package utils

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerWithAddsFields(t *testing.T) {
	l := NewLoggerWithLevel("warn")
	var buf bytes.Buffer
	l.entry.SetOutput(&buf)

	l.With(map[string]any{"source": "flippa", "host": "flippa.com"}).Warnf("[enricher] %s failed", "listing/1")
	l.Info("below level")

	out := buf.String()
	for _, want := range []string{"source=flippa", "host=flippa.com", "listing/1 failed"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q: %s", want, out)
		}
	}
	if strings.Contains(out, "below level") {
		t.Error("info line should be filtered at warn level")
	}
}
