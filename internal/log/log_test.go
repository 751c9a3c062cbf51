package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"fintrack/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithComponentReplacesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Format: "json", Output: &buf, Component: ComponentApp}).With(FieldRequestID, "r1")
	l.WithComponent(ComponentSession).Info("hello")

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v (%s)", err, buf.String())
	}
	if rec[FieldComponent] != ComponentSession {
		t.Fatalf("component = %v", rec[FieldComponent])
	}
	if rec[FieldRequestID] != "r1" {
		t.Fatalf("request id lost: %v", rec)
	}
	if strings.Count(buf.String(), `"component"`) != 1 {
		t.Fatalf("duplicate component: %s", buf.String())
	}
}

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	err := core.E(core.NotFound, "sign in", "user not found", nil)
	sl.LogError(context.Background(), "Sign in failed", err, ComponentSession, OpSignIn, NewFields().WithUser("u1"))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec[FieldErrorKind] != ErrorTypeNotFound || rec[FieldOperation] != OpSignIn || rec[FieldUserID] != "u1" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec[FieldComponent] != ComponentSession {
		t.Fatalf("component = %v", rec[FieldComponent])
	}
}

func TestErrorType(t *testing.T) {
	if got := ErrorType(errors.New("boom")); got != ErrorTypeInternal {
		t.Fatalf("plain error: %s", got)
	}
	if got := ErrorType(core.ErrEmailAlreadyExists); got != ErrorTypeConflict {
		t.Fatalf("conflict: %s", got)
	}
	if got := ErrorType(core.PersistenceError("save", errors.New("disk"))); got != ErrorTypeDatabase {
		t.Fatalf("database: %s", got)
	}
}
