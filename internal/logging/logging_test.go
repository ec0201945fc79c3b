package logging

import (
	"context"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"unknown": slog.LevelInfo,
	}
	for name, want := range cases {
		if got := ParseLevel(name); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestNewRespectsLevel(t *testing.T) {
	ctx := context.Background()

	quiet := New("error")
	if quiet.Enabled(ctx, slog.LevelInfo) {
		t.Error("error-level logger should drop info records")
	}
	if !quiet.Enabled(ctx, slog.LevelError) {
		t.Error("error-level logger should keep error records")
	}

	verbose := New("debug")
	if !verbose.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug-level logger should keep debug records")
	}
}
