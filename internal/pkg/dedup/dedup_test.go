package dedup

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newWindow(t *testing.T) *Window {
	t.Helper()
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(s.Close)

	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() {
		if err := rdb.Close(); err != nil {
			t.Fatalf("close redis: %v", err)
		}
	})
	return NewWindow(rdb, time.Minute)
}

func TestWindow_ClaimOncePerWindow(t *testing.T) {
	w := newWindow(t)
	ctx := context.Background()

	claimed, err := w.Claim(ctx, "ps-aurora-5")
	if err != nil {
		t.Fatalf("first claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected first claim to succeed")
	}

	claimed, err = w.Claim(ctx, "ps-aurora-5")
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if claimed {
		t.Fatal("expected second claim to be rejected within the window")
	}

	// 不同 key 互不影响
	claimed, err = w.Claim(ctx, "ps-vela-x")
	if err != nil {
		t.Fatalf("other key claim: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim for a different key to succeed")
	}
}

func TestWindow_ReleaseAllowsReclaim(t *testing.T) {
	w := newWindow(t)
	ctx := context.Background()

	if _, err := w.Claim(ctx, "ps-aurora-5"); err != nil {
		t.Fatalf("claim: %v", err)
	}
	if err := w.Release(ctx, "ps-aurora-5"); err != nil {
		t.Fatalf("release: %v", err)
	}

	claimed, err := w.Claim(ctx, "ps-aurora-5")
	if err != nil {
		t.Fatalf("reclaim: %v", err)
	}
	if !claimed {
		t.Fatal("expected claim to succeed after release")
	}
}
