package cache

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/go-redis/redis/v8"

	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/metrics"
	"illineats/internal/pkg/common"
)

const keyPrefix = "illineats:"

// Service Redis 快取
type Service struct {
	client *redis.Client
	cfg    *config.CacheConfig
	hits   int64
	misses int64
}

// NewService 連線 Redis
func NewService(cfg *config.CacheConfig) (*Service, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	// 測試連接
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewServiceWithClient(client, cfg), nil
}

// NewServiceWithClient 使用既有的客戶端
func NewServiceWithClient(client *redis.Client, cfg *config.CacheConfig) *Service {
	return &Service{client: client, cfg: cfg}
}

// Get 取得快取值
func (s *Service) Get(ctx context.Context, key string) (string, error) {
	val, err := s.client.Get(ctx, keyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		atomic.AddInt64(&s.misses, 1)
		metrics.RecordCache("redis", false)
		common.LogCacheMiss("redis", key)
		return "", common.ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("failed to get cache: %w", err)
	}
	atomic.AddInt64(&s.hits, 1)
	metrics.RecordCache("redis", true)
	common.LogCacheHit("redis", key)
	return val, nil
}

// Set 寫入快取
func (s *Service) Set(ctx context.Context, key, value string) error {
	if err := s.client.Set(ctx, keyPrefix+key, value, s.cfg.TTL).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}
	return nil
}

// Delete 移除快取值
func (s *Service) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete cache: %w", err)
	}
	return nil
}

func (s *Service) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"backend": "redis",
		"addr":    s.cfg.RedisAddr,
		"hits":    atomic.LoadInt64(&s.hits),
		"misses":  atomic.LoadInt64(&s.misses),
	}
}

func (s *Service) Close() error {
	return s.client.Close()
}
