package dedup

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "phonescout:refresh:claim:"

// Window 基于 Redis SetNX 的去重窗口。
//
// 刷新器在窗口期内对同一商品最多执行一次刷新，避免调度周期
// 重叠时的重复劳动。
type Window struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWindow(rdb *redis.Client, ttl time.Duration) *Window {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Window{rdb: rdb, ttl: ttl}
}

// Claim 尝试在窗口内占据一个 key，返回是否占据成功。
// 返回 false 表示窗口内已被处理过，调用方应跳过。
func (w *Window) Claim(ctx context.Context, key string) (bool, error) {
	if w == nil || w.rdb == nil || key == "" {
		return true, nil
	}
	ok, err := w.rdb.SetNX(ctx, keyPrefix+hashKey(key), "1", w.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("dedup setnx: %w", err)
	}
	return ok, nil
}

// Release 提前释放一个占据，例如刷新失败需要尽快重试时。
func (w *Window) Release(ctx context.Context, key string) error {
	if w == nil || w.rdb == nil || key == "" {
		return nil
	}
	if err := w.rdb.Del(ctx, keyPrefix+hashKey(key)).Err(); err != nil {
		return fmt.Errorf("dedup del: %w", err)
	}
	return nil
}

func hashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
