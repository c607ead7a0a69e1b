package logger

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

func TestLoggerInitFormats(t *testing.T) {
	for _, format := range []string{"text", "json"} {
		var buf bytes.Buffer
		if err := Init(WithFormat(format), WithOutput(&buf)); err != nil {
			t.Fatalf("init %s: %v", format, err)
		}
		Get().Info(context.Background(), "hello", String("k", "v"))
		if !strings.Contains(buf.String(), "hello") {
			t.Fatalf("%s output missing message: %q", format, buf.String())
		}
	}

	if err := Init(WithFormat("xml")); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithFormat("json"), WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	Named("poller").With(String("cycle", "abc")).Warn(context.Background(), "tick failed",
		Int64("seq", 7), Bool("retry", true), Duration("took", time.Second))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["logger"] != "poller" || rec["cycle"] != "abc" || rec["retry"] != true {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["level"] != "WARN" {
		t.Fatalf("level = %v", rec["level"])
	}
	if _, ok := rec["source"]; !ok {
		t.Fatal("missing source field")
	}
}

func TestSetLevelString(t *testing.T) {
	var buf bytes.Buffer
	if err := Init(WithOutput(&buf)); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer func() { _ = SetLevelString("info") }()

	if err := SetLevelString("warning"); err != nil {
		t.Fatalf("set level: %v", err)
	}
	Get().Info(context.Background(), "dropped")
	Get().Error(context.Background(), "kept")
	if strings.Contains(buf.String(), "dropped") || !strings.Contains(buf.String(), "kept") {
		t.Fatalf("level filter not applied: %q", buf.String())
	}

	if err := SetLevelString("loud"); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestSlogAccessor(t *testing.T) {
	if Slog() == nil {
		t.Fatal("slog logger is nil")
	}
}
