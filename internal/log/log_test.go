package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"debug", slog.LevelDebug, false},
		{"INFO", slog.LevelInfo, false},
		{"", slog.LevelInfo, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, %v", tt.in, got, err)
		}
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line %q: %v", buf.String(), err)
	}
	return m
}

func TestLoggerJSONCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentApp, Output: &buf})
	l.WithComponent(ComponentWorker).Info("started", FieldCount, 3)

	m := decodeLine(t, &buf)
	if m[FieldComponent] != ComponentWorker {
		t.Errorf("component = %v, want %s", m[FieldComponent], ComponentWorker)
	}
	if m[FieldCount] != float64(3) {
		t.Errorf("count = %v", m[FieldCount])
	}
}

func TestLoggerLevelFilters(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Format: "json", Output: &buf})
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Errorf("info should be filtered at warn level: %s", buf.String())
	}
}

func TestFromContextFallsBack(t *testing.T) {
	if got := FromContext(context.Background()); got.Component() != "unknown" {
		t.Errorf("component = %q, want unknown", got.Component())
	}
	l := New(DefaultConfig())
	if got := FromContext(WithContext(context.Background(), l)); got != l {
		t.Error("FromContext should return the stored logger")
	}
}

func TestLogHTTPEndLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Level: slog.LevelDebug, Format: "json", Output: &buf}))
	r := httptest.NewRequest(http.MethodGet, "/api/dashboard?x=1", nil)

	sl.LogHTTPEnd(context.Background(), r, http.StatusInternalServerError, 12, "127.0.0.1")
	m := decodeLine(t, &buf)
	if m["level"] != "ERROR" || m[FieldStatusCode] != float64(500) || m[FieldSuccess] != false {
		t.Errorf("unexpected log line: %v", m)
	}
}

func TestLogErrorNilFields(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Format: "json", Output: &buf}))
	sl.LogError(context.Background(), "boom", errors.New("bad"), ComponentStorage, OpRead, nil)
	m := decodeLine(t, &buf)
	if m[FieldError] != "bad" || m[FieldComponent] != ComponentStorage {
		t.Errorf("unexpected log line: %v", m)
	}
}
