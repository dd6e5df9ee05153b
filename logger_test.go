package flagcore

import (
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestZapLoggerWrapsFields(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	l := WrapZapLogger(zap.New(core))

	l.Info("gate evaluated", "gate", "my_gate", "result", true)
	l.Error("sync failed", errors.New("boom"), "attempt", 3)

	entries := logs.All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 log entries, got %d", len(entries))
	}
	if entries[0].Message != "gate evaluated" {
		t.Fatalf("unexpected message: %q", entries[0].Message)
	}
	if entries[1].ContextMap()["error"] != "boom" {
		t.Fatalf("expected wrapped error to be logged under 'error', got %+v", entries[1].ContextMap())
	}
}

func TestNopLoggerDoesNotPanic(t *testing.T) {
	var l NopLogger
	l.Debug("x")
	l.Info("x")
	l.Warn("x")
	l.Error("x", errors.New("boom"))
}
