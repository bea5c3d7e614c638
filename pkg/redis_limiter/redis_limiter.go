package redis_limiter

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisLimiter 基于Redis的并发限制器
type RedisLimiter struct {
	client        *redis.Client
	maxConcurrent int
	keyPrefix     string
	ttl           time.Duration
}

// NewRedisLimiter 创建基于Redis的并发限制器
func NewRedisLimiter(client *redis.Client, maxConcurrent int, keyPrefix string, ttl time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:        client,
		maxConcurrent: maxConcurrent,
		keyPrefix:     keyPrefix,
		ttl:           ttl,
	}
}

// acquireScript 原子获取槽位:未超上限则INCR并续期,否则返回超限值
var acquireScript = redis.NewScript(
	`local current = redis.call('GET', KEYS[1])
	if current == false then
		current = 0
	else
		current = tonumber(current)
	end

	if current >= tonumber(ARGV[1]) then
		return current + 1
	end

	local newCount = redis.call('INCR', KEYS[1])
	redis.call('EXPIRE', KEYS[1], tonumber(ARGV[2]))
	return newCount`,
)

// releaseScript 原子释放槽位:计数归零时删除key,否则续期
var releaseScript = redis.NewScript(
	`local count = redis.call('DECR', KEYS[1])
	if tonumber(count) <= 0 then
		redis.call('DEL', KEYS[1])
		return 0
	else
		redis.call('EXPIRE', KEYS[1], tonumber(ARGV[1]))
		return count
	end`,
)

// Acquire 获取并发槽位
func (rl *RedisLimiter) Acquire(ctx context.Context, key string) error {
	redisKey := rl.keyPrefix + key

	result, err := acquireScript.Run(ctx, rl.client, []string{redisKey}, rl.maxConcurrent, int(rl.ttl.Seconds())).Result()
	if err != nil {
		return fmt.Errorf("failed to run acquire script: %w", err)
	}

	newCount := int(result.(int64))
	if newCount > rl.maxConcurrent {
		return fmt.Errorf("concurrency limit reached: %d", rl.maxConcurrent)
	}

	return nil
}

// Release 释放并发槽位
func (rl *RedisLimiter) Release(ctx context.Context, key string) {
	redisKey := rl.keyPrefix + key

	// 释放失败只能等待TTL过期回收
	_, _ = releaseScript.Run(ctx, rl.client, []string{redisKey}, int(rl.ttl.Seconds())).Result()
}

// GetCurrent 获取当前并发数
func (rl *RedisLimiter) GetCurrent(ctx context.Context, key string) (int, error) {
	redisKey := rl.keyPrefix + key
	current, err := rl.client.Get(ctx, redisKey).Int()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read current concurrency: %w", err)
	}
	return current, nil
}

// GetMaxConcurrent 获取最大并发数
func (rl *RedisLimiter) GetMaxConcurrent() int {
	return rl.maxConcurrent
}
