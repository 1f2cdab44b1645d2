package session

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newManager(t *testing.T) *Manager {
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
	return NewManager(rdb, time.Hour)
}

func TestManager_CreateReturnsEmptySession(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatal("expected non-empty session id")
	}

	ids, err := m.Products(ctx, id)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("new session must be empty, got %v", ids)
	}
}

func TestManager_AddPreservesOrderAndCapsAtFour(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, err := m.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	for i := 0; i < MaxProducts; i++ {
		if err := m.Add(ctx, id, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("add p%d: %v", i, err)
		}
	}

	// 第 5 个被拒绝，已有的 4 个保持不变
	if err := m.Add(ctx, id, "p4"); !errors.Is(err, ErrSessionFull) {
		t.Fatalf("expected ErrSessionFull, got %v", err)
	}

	ids, err := m.Products(ctx, id)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(ids) != MaxProducts {
		t.Fatalf("expected %d products, got %d", MaxProducts, len(ids))
	}
	for i, want := range []string{"p0", "p1", "p2", "p3"} {
		if ids[i] != want {
			t.Fatalf("order broken: got %v", ids)
		}
	}
}

func TestManager_DuplicateAddIsNoOp(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, _ := m.Create(ctx)
	if err := m.Add(ctx, id, "p1"); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := m.Add(ctx, id, "p1"); err != nil {
		t.Fatalf("duplicate add must succeed: %v", err)
	}

	ids, err := m.Products(ctx, id)
	if err != nil {
		t.Fatalf("products: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("expected 1 product after duplicate add, got %v", ids)
	}
}

func TestManager_DuplicateAddToFullSessionSucceeds(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, _ := m.Create(ctx)
	for i := 0; i < MaxProducts; i++ {
		if err := m.Add(ctx, id, fmt.Sprintf("p%d", i)); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	// 已在会话中的商品不受容量限制影响
	if err := m.Add(ctx, id, "p0"); err != nil {
		t.Fatalf("re-adding existing product to full session must succeed: %v", err)
	}
}

func TestManager_RemoveIsIdempotent(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, _ := m.Create(ctx)
	_ = m.Add(ctx, id, "p1")

	if err := m.Remove(ctx, id, "p1"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := m.Remove(ctx, id, "p1"); err != nil {
		t.Fatalf("second remove must succeed: %v", err)
	}
	if err := m.Remove(ctx, id, "never-added"); err != nil {
		t.Fatalf("removing unknown product must succeed: %v", err)
	}

	ids, err := m.Products(ctx, id)
	if err != nil {
		t.Fatalf("products after remove: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty session, got %v", ids)
	}
}

func TestManager_ClearKeepsSessionAlive(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	id, _ := m.Create(ctx)
	_ = m.Add(ctx, id, "p1")
	_ = m.Add(ctx, id, "p2")

	if err := m.Clear(ctx, id); err != nil {
		t.Fatalf("clear: %v", err)
	}

	// 清空后会话仍然存在，可以继续加入
	ids, err := m.Products(ctx, id)
	if err != nil {
		t.Fatalf("products after clear: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("expected empty session after clear, got %v", ids)
	}
	if err := m.Add(ctx, id, "p3"); err != nil {
		t.Fatalf("add after clear: %v", err)
	}
}

func TestManager_MissingSession(t *testing.T) {
	m := newManager(t)
	ctx := context.Background()

	if err := m.Add(ctx, "nope", "p1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("add: expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Remove(ctx, "nope", "p1"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("remove: expected ErrSessionNotFound, got %v", err)
	}
	if err := m.Clear(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("clear: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := m.Products(ctx, "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("products: expected ErrSessionNotFound, got %v", err)
	}
}
