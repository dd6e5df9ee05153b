package adapter

import (
	"context"
	"path/filepath"
	"testing"
)

func TestBoltAdapterSetAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	a, err := OpenBoltAdapter(path)
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

func TestBoltAdapterPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	a, err := OpenBoltAdapter(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := a.Set(ctx, "k", "persisted"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := a.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	reopened, err := OpenBoltAdapter(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Shutdown(ctx)

	v, ok, err := reopened.Get(ctx, "k")
	if err != nil || !ok || v != "persisted" {
		t.Fatalf("expected persisted value to survive reopen, got %q ok=%v err=%v", v, ok, err)
	}
}
