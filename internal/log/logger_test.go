package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func newBufferLogger(component string) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: component,
		Handler:   slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}),
	})
	return logger, &buf
}

func TestLoggerTagsEveryRecordWithComponent(t *testing.T) {
	logger, buf := newBufferLogger(ComponentLedger)

	logger.Info("balance updated", FieldAccountID, int64(7))

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentLedger) {
		t.Errorf("output %q missing component attribute", out)
	}
	if !strings.Contains(out, FieldAccountID+"=7") {
		t.Errorf("output %q missing account_id attribute", out)
	}
}

func TestWithComponentDerivesIndependentLogger(t *testing.T) {
	logger, buf := newBufferLogger(ComponentApp)

	derived := logger.WithComponent(ComponentWorker)
	derived.Warn("audit lagging")
	logger.Info("still serving")

	out := buf.String()
	if !strings.Contains(out, FieldComponent+"="+ComponentWorker) {
		t.Errorf("output %q missing derived component", out)
	}
	if !strings.Contains(out, FieldComponent+"="+ComponentApp) {
		t.Errorf("output %q missing original component", out)
	}
	if logger.Component() != ComponentApp {
		t.Errorf("original component = %q, want %q", logger.Component(), ComponentApp)
	}
}

func TestWithKeepsComponentTag(t *testing.T) {
	logger, buf := newBufferLogger(ComponentHTTP)

	logger.With(FieldRequestID, "req_abc").InfoContext(context.Background(), "Request started")

	out := buf.String()
	if !strings.Contains(out, FieldRequestID+"=req_abc") {
		t.Errorf("output %q missing request_id attribute", out)
	}
	if !strings.Contains(out, FieldComponent+"="+ComponentHTTP) {
		t.Errorf("output %q missing component attribute", out)
	}
}

func TestFromContextRoundTrip(t *testing.T) {
	logger, _ := newBufferLogger(ComponentHTTP)
	ctx := WithContext(context.Background(), logger)

	if got := FromContext(ctx); got != logger {
		t.Error("FromContext returned a different logger than was attached")
	}
}

func TestFromContextFallsBack(t *testing.T) {
	got := FromContext(context.Background())
	if got == nil {
		t.Fatal("FromContext returned nil")
	}
	if got.Component() != ComponentApp {
		t.Errorf("fallback component = %q, want %q", got.Component(), ComponentApp)
	}
}
