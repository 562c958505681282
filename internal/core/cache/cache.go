// Package cache 提供目錄快照的快取，支援記憶體與 Redis 兩種後端
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"illineats/internal/infrastructure/config"
	"illineats/internal/pkg/common"
)

// Cache 快取介面，值為序列化後的字串
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
	GetStats() map[string]interface{}
	Close() error
}

// New 依設定建立快取，停用時回傳 nil
func New(cfg *config.Config) (Cache, error) {
	if !cfg.Cache.Enabled {
		common.LogInfo("快取已停用")
		return nil, nil
	}
	switch cfg.Cache.Backend {
	case "redis":
		svc, err := NewService(&cfg.Cache)
		if err != nil {
			return nil, err
		}
		return svc, nil
	case "memory", "":
		return NewManager(&cfg.Cache), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// GetJSON 讀取並解碼，未命中時回傳 common.ErrCacheMiss
func GetJSON(ctx context.Context, c Cache, key string, v interface{}) error {
	if c == nil {
		return common.ErrCacheDisabled
	}
	raw, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := common.ParseJSON(raw, v); err != nil {
		// 壞掉的項目直接移除
		_ = c.Delete(ctx, key)
		common.LogWarn("快取內容無法解析", zap.String("鍵", key), zap.Error(err))
		return common.ErrCacheMiss
	}
	return nil
}

// SetJSON 編碼後寫入
func SetJSON(ctx context.Context, c Cache, key string, v interface{}) error {
	if c == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return c.Set(ctx, key, string(data))
}

// IsMiss 是否為未命中或快取停用
func IsMiss(err error) bool {
	return errors.Is(err, common.ErrCacheMiss) || errors.Is(err, common.ErrCacheDisabled)
}
