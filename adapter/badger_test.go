package adapter

import (
	"context"
	"testing"
)

func TestBadgerAdapterSetAndGet(t *testing.T) {
	a, err := OpenBadgerAdapter("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Shutdown(context.Background())

	ctx := context.Background()
	if _, ok, _ := a.Get(ctx, "missing"); ok {
		t.Fatalf("expected a miss for an unset key")
	}
	if err := a.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, ok, err := a.Get(ctx, "k")
	if err != nil || !ok || v != "v" {
		t.Fatalf("expected to read back the value just set, got %q ok=%v err=%v", v, ok, err)
	}
}

func TestBadgerAdapterNeverReportsPollingSupport(t *testing.T) {
	a, err := OpenBadgerAdapter("")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Shutdown(context.Background())
	if a.SupportsPollingUpdatesFor("anything") {
		t.Fatalf("an embedded local store must never claim to be a live polling source")
	}
}
