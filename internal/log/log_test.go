package log

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   LevelDebug,
		" DEBUG ": LevelDebug,
		"error":   LevelError,
		"info":    LevelInfo,
		"":        LevelInfo,
		"verbose": LevelInfo,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel(LevelError)
	defer SetLevel(LevelInfo)

	Info("hidden message")
	Debug("hidden debug")
	Error("layout failed", errors.New("boom"), "entity", "group:a1")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Errorf("messages below ERROR were written: %q", out)
	}
	for _, want := range []string{"layout failed", "err=boom", "entity=group:a1"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}
