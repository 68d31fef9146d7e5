package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Minute)

	if err := c.Set(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("Set err: %v", err)
	}
	got, err := c.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get err: %v", err)
	}
	if got != "v" {
		t.Fatalf("got %q want %q", got, "v")
	}
}

func TestMemory_TakeIsSingleUse(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Minute)

	_ = c.Set(ctx, "state-abc", "verifier", time.Minute)

	got, err := c.Take(ctx, "state-abc")
	if err != nil {
		t.Fatalf("first Take err: %v", err)
	}
	if got != "verifier" {
		t.Fatalf("got %q", got)
	}
	if _, err := c.Take(ctx, "state-abc"); err != ErrNotFound {
		t.Fatalf("second Take: expected ErrNotFound, got %v", err)
	}
}

func TestMemory_TTLExpiry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	c := NewMemory(time.Minute, time.Minute)

	_ = c.Set(ctx, "ephemeral", "x", 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	if _, err := c.Get(ctx, "ephemeral"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound after expiry, got %v", err)
	}
	if _, err := c.Take(ctx, "ephemeral"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound on Take after expiry, got %v", err)
	}
}
