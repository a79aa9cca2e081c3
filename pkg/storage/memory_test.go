package storage

import (
	"context"
	"errors"
	"sort"
	"testing"
)

func TestKeyNamespacesAndSkipsEmptySegments(t *testing.T) {
	t.Parallel()

	if got := Key("cart", "state"); got != "lh:cart:state" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := Key("rx", "", "p1"); got != "lh:rx:p1" {
		t.Fatalf("expected empty segment skipped, got %q", got)
	}
	if got := Key(); got != "lh" {
		t.Fatalf("expected bare namespace, got %q", got)
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Set(ctx, Key("session", "token"), "jwt-1"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	value, err := store.Get(ctx, Key("session", "token"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if value != "jwt-1" {
		t.Fatalf("unexpected value %q", value)
	}

	if err := store.Set(ctx, Key("session", "token"), "jwt-2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	value, _ = store.Get(ctx, Key("session", "token"))
	if value != "jwt-2" {
		t.Fatalf("expected last write to win, got %q", value)
	}

	if err := store.Delete(ctx, Key("session", "token")); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(ctx, Key("session", "token")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestMemoryDeleteMissingIsNoOp(t *testing.T) {
	t.Parallel()

	store := NewMemory()
	if err := store.Delete(context.Background(), "never-set"); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestMemoryKeysFiltersByPrefix(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()
	for _, key := range []string{Key("rx", "p1"), Key("rx", "p2"), Key("cart", "state")} {
		if err := store.Set(ctx, key, "x"); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	keys, err := store.Keys(ctx, Key("rx"))
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	sort.Strings(keys)
	if len(keys) != 2 || keys[0] != "lh:rx:p1" || keys[1] != "lh:rx:p2" {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestMemoryDeletePrefixLeavesOtherNamespaces(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewMemory()
	_ = store.Set(ctx, Key("rx", "p1"), "a")
	_ = store.Set(ctx, Key("rx", "p2"), "b")
	_ = store.Set(ctx, Key("cart", "state"), "c")

	removed, err := store.DeletePrefix(ctx, Key("rx"))
	if err != nil {
		t.Fatalf("DeletePrefix: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, Key("cart", "state")); err != nil {
		t.Fatalf("cart state should survive, got %v", err)
	}
}
