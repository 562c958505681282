package recommend

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"illineats/internal/core/cache"
	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/metrics"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// CatalogCacheKey 目錄快照的快取鍵
const CatalogCacheKey = "catalog:snapshot"

// Service 串接使用者、目錄快照、推薦引擎與寫入
type Service struct {
	store       store.Store
	cache       cache.Cache
	engine      *Engine
	publisher   *Publisher
	defaultType string
}

// NewService c 可為 nil，代表不使用快取
func NewService(s store.Store, c cache.Cache, cfg config.RecommendationConfig) *Service {
	defaultType := cfg.DefaultType
	if defaultType == "" {
		defaultType = "dashboard"
	}
	return &Service{
		store:       s,
		cache:       c,
		engine:      NewEngine(cfg.Limit),
		publisher:   NewPublisher(s),
		defaultType: defaultType,
	}
}

func (s *Service) recType(t string) string {
	if t = strings.TrimSpace(t); t != "" {
		return t
	}
	return s.defaultType
}

// Catalog 讀取目錄快照，先查快取
func (s *Service) Catalog(ctx context.Context) ([]common.FoodItem, error) {
	var foods []common.FoodItem
	err := cache.GetJSON(ctx, s.cache, CatalogCacheKey, &foods)
	if err == nil {
		return foods, nil
	}
	if !cache.IsMiss(err) {
		common.LogWarn("讀取目錄快取失敗", zap.Error(err))
	}

	foods, err = s.store.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	if err := cache.SetJSON(ctx, s.cache, CatalogCacheKey, foods); err != nil {
		common.LogWarn("寫入目錄快取失敗", zap.Error(err))
	}
	return foods, nil
}

// InvalidateCatalog 目錄變更後清除快照
func (s *Service) InvalidateCatalog(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CatalogCacheKey); err != nil {
		common.LogWarn("清除目錄快取失敗", zap.Error(err))
	}
}

// Generate 計算並寫入使用者的推薦
func (s *Service) Generate(ctx context.Context, userID, recType string) (*common.Recommendation, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	foods, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	ids := s.engine.Recommend(user, foods)
	rec, err := s.publisher.Publish(ctx, user.ID, s.recType(recType), ids)
	if err != nil {
		common.LogError("推薦結果寫入失敗",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		return nil, err
	}

	goal := string(user.Goal)
	switch {
	case !user.Goal.Valid():
		goal = "unknown"
	case goal == "":
		goal = "none"
	}
	metrics.RecommendationsGenerated.WithLabelValues(goal).Inc()
	metrics.RecommendationSize.Observe(float64(len(ids)))

	common.LogInfo("推薦已產生",
		zap.String("user_id", user.ID),
		zap.String("type", rec.Type),
		zap.Int("count", len(ids)),
	)
	return rec, nil
}

// Get 讀取已儲存的推薦
func (s *Service) Get(ctx context.Context, userID, recType string) (*common.Recommendation, error) {
	return s.store.GetRecommendation(ctx, userID, s.recType(recType))
}

// Explain 回傳推薦分數明細，不寫入
func (s *Service) Explain(ctx context.Context, userID string) ([]Scored, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	foods, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.engine.Rank(user, foods), nil
}
