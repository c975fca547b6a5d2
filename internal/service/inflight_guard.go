package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"

	"soul-chat-go/pkg/log"
)

// InflightKey 由会话 ID 与原始消息文本组成，用于识别完全相同的并发提交。
func InflightKey(conversationID uint, message string) string {
	return fmt.Sprintf("%d-%s", conversationID, message)
}

// InflightGuard 记录正在处理中的请求。
// Admit 返回 true 表示准入，false 表示同一个 key 已在处理中。
type InflightGuard interface {
	Admit(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string)
}

// Acquire 尝试准入并返回释放函数，调用方应立即 defer 该函数，保证任意退出路径都会释放。
func Acquire(ctx context.Context, guard InflightGuard, key string) (release func(), admitted bool, err error) {
	admitted, err = guard.Admit(ctx, key)
	if err != nil || !admitted {
		return func() {}, admitted, err
	}
	var once sync.Once
	return func() {
		once.Do(func() {
			// 请求上下文可能已取消，释放时使用独立的上下文
			guard.Release(context.Background(), key)
		})
	}, true, nil
}

type memoryInflightGuard struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

// NewMemoryInflightGuard 创建一个进程内的 InflightGuard，仅在单副本部署下有效。
func NewMemoryInflightGuard() InflightGuard {
	return &memoryInflightGuard{keys: make(map[string]struct{})}
}

func (g *memoryInflightGuard) Admit(ctx context.Context, key string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.keys[key]; ok {
		return false, nil
	}
	g.keys[key] = struct{}{}
	return true, nil
}

func (g *memoryInflightGuard) Release(ctx context.Context, key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.keys, key)
}

// Len 返回当前在途的 key 数量。
func (g *memoryInflightGuard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.keys)
}

const redisInflightPrefix = "chat:inflight:"

type redisInflightGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisInflightGuard 创建一个基于 Redis SET NX 的 InflightGuard，多副本之间共享。
// ttl 保证持有者异常退出后 key 最终会过期。
func NewRedisInflightGuard(rdb *redis.Client, ttl time.Duration) InflightGuard {
	return &redisInflightGuard{rdb: rdb, ttl: ttl}
}

// redisKey 对消息内容取哈希，避免超长消息成为超长 key。
func redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return redisInflightPrefix + hex.EncodeToString(sum[:])
}

func (g *redisInflightGuard) Admit(ctx context.Context, key string) (bool, error) {
	ok, err := g.rdb.SetNX(ctx, redisKey(key), 1, g.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func (g *redisInflightGuard) Release(ctx context.Context, key string) {
	if err := g.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		log.Errorf("[InflightGuard] 释放 redis 在途 key 失败: %v", err)
	}
}
