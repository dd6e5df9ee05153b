package adapter

import (
	"context"
	"testing"
	"time"
)

func TestTTLCacheAdapterSetAndGet(t *testing.T) {
	a := NewTTLCacheAdapter(time.Minute, time.Minute)
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

func TestTTLCacheAdapterExpires(t *testing.T) {
	a := NewTTLCacheAdapter(10*time.Millisecond, 5*time.Millisecond)
	ctx := context.Background()

	if err := a.Set(ctx, "k", "v"); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if _, ok, _ := a.Get(ctx, "k"); ok {
		t.Fatalf("expected the entry to have expired")
	}
}

func TestTTLCacheAdapterNeverReportsPollingSupport(t *testing.T) {
	a := NewTTLCacheAdapter(time.Minute, time.Minute)
	if a.SupportsPollingUpdatesFor("anything") {
		t.Fatalf("a local ttl cache must never claim to be a live polling source")
	}
}
