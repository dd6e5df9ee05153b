package flagcore

import (
	"errors"
	"testing"
)

func TestErrorBoundaryRecoversPanic(t *testing.T) {
	eb := NewErrorBoundary(nil, NopLogger{}, NopObservabilityClient{})

	result, err := Capture(eb, "TestOp", func() (int, error) {
		panic("boom")
	})
	if err != nil {
		t.Fatalf("panics must be swallowed, got error: %v", err)
	}
	if result != 0 {
		t.Fatalf("expected zero value after recovering a panic, got %d", result)
	}
}

func TestErrorBoundaryPropagatesNonRecoverable(t *testing.T) {
	eb := NewErrorBoundary(nil, NopLogger{}, NopObservabilityClient{})

	sentinel := newCoreError(KindInvalidArgument, "bad arg", nil)
	_, err := Capture(eb, "TestOp", func() (int, error) {
		return 0, sentinel
	})
	if !errors.Is(err, ErrKindSentinel(KindInvalidArgument)) {
		t.Fatalf("expected a non-recoverable error to propagate, got %v", err)
	}
}

func TestErrorBoundarySwallowsRecoverable(t *testing.T) {
	eb := NewErrorBoundary(nil, NopLogger{}, NopObservabilityClient{})

	recoverableErr := newCoreError(KindInvalidConfigSpecsResp, "bad response", nil)
	_, err := Capture(eb, "TestOp", func() (int, error) {
		return 0, recoverableErr
	})
	if err != nil {
		t.Fatalf("expected a recoverable error to be swallowed, got %v", err)
	}
}

func TestErrorBoundaryDedupesRepeatedExceptions(t *testing.T) {
	eb := NewErrorBoundary(nil, NopLogger{}, NopObservabilityClient{})
	msg := "same error message"

	if eb.alreadySeen(msg) {
		t.Fatalf("first sighting must not be reported as already seen")
	}
	if !eb.alreadySeen(msg) {
		t.Fatalf("second sighting of the same message must be deduped")
	}
}

func TestErrorBoundaryVoidRecoversPanic(t *testing.T) {
	eb := NewErrorBoundary(nil, NopLogger{}, NopObservabilityClient{})
	didPanic := true
	eb.Void("TestVoidOp", func() {
		panic("boom")
	})
	// reaching this line at all means the panic was recovered.
	if !didPanic {
		t.Fatalf("unreachable")
	}
}
