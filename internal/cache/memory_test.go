package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderSetGet(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	if _, err := provider.Get(ctx, "missing"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss, got %v", err)
	}

	if err := provider.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, err := provider.Get(ctx, "key")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("unexpected value: %q", got)
	}
}

func TestMemoryProviderTTLExpiry(t *testing.T) {
	provider := NewMemoryProvider()
	current := time.Unix(1_700_000_000, 0)
	provider.now = func() time.Time { return current }
	ctx := context.Background()

	if err := provider.Set(ctx, "key", []byte("value"), time.Minute); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(30 * time.Second)
	if _, err := provider.Get(ctx, "key"); err != nil {
		t.Fatalf("entry expired early: %v", err)
	}

	current = current.Add(45 * time.Second)
	if _, err := provider.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected expiry, got %v", err)
	}
}

func TestMemoryProviderZeroTTLNeverExpires(t *testing.T) {
	provider := NewMemoryProvider()
	current := time.Unix(1_700_000_000, 0)
	provider.now = func() time.Time { return current }
	ctx := context.Background()

	if err := provider.Set(ctx, "key", []byte("value"), 0); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	current = current.Add(24 * time.Hour)
	if _, err := provider.Get(ctx, "key"); err != nil {
		t.Fatalf("zero-ttl entry expired: %v", err)
	}
}

func TestMemoryProviderDel(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	_ = provider.Set(ctx, "key", []byte("value"), 0)
	if err := provider.Del(ctx, "key"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := provider.Get(ctx, "key"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected ErrCacheMiss after delete, got %v", err)
	}
}

func TestMemoryProviderReturnsCopies(t *testing.T) {
	provider := NewMemoryProvider()
	ctx := context.Background()

	_ = provider.Set(ctx, "key", []byte("value"), 0)
	got, _ := provider.Get(ctx, "key")
	got[0] = 'X'

	again, _ := provider.Get(ctx, "key")
	if string(again) != "value" {
		t.Fatalf("cached value was mutated: %q", again)
	}
}
