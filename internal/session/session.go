package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "phonescout:compare:session:"

// MaxProducts 是一个对比会话可容纳的商品数上限。
const MaxProducts = 4

var (
	// ErrSessionNotFound 表示会话不存在或已过期。
	ErrSessionNotFound = errors.New("session: not found")
	// ErrSessionFull 表示会话已满，新增被拒绝而不是挤掉最旧的。
	ErrSessionFull = errors.New("session: full")
)

// addScript 原子执行“存在性检查 + 去重 + 容量检查 + 追加”。
// 同一会话的并发 add/remove 由 Redis 单线程串行化，不会丢更新。
//
// KEYS[1] = 会话 ID 列表
// ARGV[1] = product_id, ARGV[2] = 容量上限, ARGV[3] = TTL 毫秒
// 返回: 1 = 已加入或已存在, 0 = 会话已满, -1 = 会话不存在
var addScript = redis.NewScript(`
	if redis.call('EXISTS', KEYS[1]) == 0 then
		return -1
	end
	local items = redis.call('LRANGE', KEYS[1], 1, -1)
	for _, v in ipairs(items) do
		if v == ARGV[1] then
			redis.call('PEXPIRE', KEYS[1], ARGV[3])
			return 1
		end
	end
	if #items >= tonumber(ARGV[2]) then
		return 0
	end
	redis.call('RPUSH', KEYS[1], ARGV[1])
	redis.call('PEXPIRE', KEYS[1], ARGV[3])
	return 1
`)

// Manager 管理 Redis 中的对比会话。
//
// 会话是一个有上限的商品 ID 列表，保持加入顺序，按 TTL 过期（由存储
// 策略回收，不提供显式销毁）。列表头部放一个哨兵元素，使“空会话”
// 与“会话不存在”可区分。
type Manager struct {
	rdb *redis.Client
	ttl time.Duration
	cap int
}

// NewManager 创建会话管理器。ttl<=0 时默认 24 小时。
func NewManager(rdb *redis.Client, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{rdb: rdb, ttl: ttl, cap: MaxProducts}
}

// 哨兵元素：占据列表下标 0，保证空会话的 key 依然存在。
const sentinel = "\x00"

// Create 新建一个空会话并返回不透明的会话 ID。
func (m *Manager) Create(ctx context.Context) (string, error) {
	id := uuid.NewString()
	key := keyPrefix + id
	pipe := m.rdb.TxPipeline()
	pipe.RPush(ctx, key, sentinel)
	pipe.PExpire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// Add 向会话加入一个商品 ID。
//
// 重复加入是成功的空操作；超过容量返回 ErrSessionFull（不截断）；
// 会话不存在返回 ErrSessionNotFound。
func (m *Manager) Add(ctx context.Context, sessionID, productID string) error {
	res, err := addScript.Run(ctx, m.rdb,
		[]string{keyPrefix + sessionID},
		productID, m.cap, m.ttl.Milliseconds(),
	).Int()
	if err != nil {
		return fmt.Errorf("session add: %w", err)
	}
	switch res {
	case 1:
		return nil
	case 0:
		return ErrSessionFull
	default:
		return ErrSessionNotFound
	}
}

// Remove 从会话移除一个商品 ID。移除不存在的 ID 是成功的空操作。
func (m *Manager) Remove(ctx context.Context, sessionID, productID string) error {
	key := keyPrefix + sessionID
	exists, err := m.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("session exists: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	pipe := m.rdb.TxPipeline()
	pipe.LRem(ctx, key, 0, productID)
	pipe.PExpire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session remove: %w", err)
	}
	return nil
}

// Clear 清空会话中的全部商品，保留会话本身。
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	key := keyPrefix + sessionID
	exists, err := m.rdb.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("session exists: %w", err)
	}
	if exists == 0 {
		return ErrSessionNotFound
	}
	pipe := m.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, sentinel)
	pipe.PExpire(ctx, key, m.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("session clear: %w", err)
	}
	return nil
}

// Products 返回会话中的商品 ID，保持加入顺序。
func (m *Manager) Products(ctx context.Context, sessionID string) ([]string, error) {
	key := keyPrefix + sessionID
	items, err := m.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("session lrange: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrSessionNotFound
	}
	// 跳过哨兵
	ids := make([]string, 0, len(items)-1)
	for _, v := range items {
		if v != sentinel {
			ids = append(ids, v)
		}
	}
	return ids, nil
}
