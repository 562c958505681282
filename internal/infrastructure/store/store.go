// Package store 提供 FoodInfo、mealDetails、Recommendation、User 四張表的存取
package store

import (
	"context"
	"fmt"

	"illineats/internal/infrastructure/config"
	"illineats/internal/pkg/common"
)

// Store 資料存取介面
type Store interface {
	// FindFoodByName 依名稱精確查詢，查無資料時回傳 nil, nil
	FindFoodByName(ctx context.Context, name string) (*common.FoodItem, error)
	InsertFood(ctx context.Context, food *common.FoodItem) (string, error)

	ListMealEntries(ctx context.Context, foodID string) ([]common.MealEntry, error)
	InsertMealEntry(ctx context.Context, entry *common.MealEntry) (string, error)

	// ListCatalog 回傳至少有一筆供餐紀錄的食物，依名稱排序並帶入供餐地點
	ListCatalog(ctx context.Context) ([]common.FoodItem, error)

	ServingDates(ctx context.Context) ([]string, error)
	DeleteMealEntriesByDate(ctx context.Context, dateServed string) (int64, error)

	// UpsertRecommendation 以 (userId, type) 為衝突鍵覆寫
	UpsertRecommendation(ctx context.Context, rec *common.Recommendation) (string, error)
	GetRecommendation(ctx context.Context, userID, recType string) (*common.Recommendation, error)

	GetUser(ctx context.Context, id string) (*common.UserProfile, error)
	UpsertUser(ctx context.Context, user *common.UserProfile) error

	// WithTx 在同一交易中執行 fn；不支援交易的實作依序執行
	WithTx(ctx context.Context, fn func(Store) error) error
	Ping(ctx context.Context) error
	Close() error
}

// New 依設定建立對應的儲存實作
func New(cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres, config.DriverSQLite:
		return NewGormStore(cfg.Store)
	case config.DriverSupabase:
		return NewSupabaseStore(cfg.Store.SupabaseURL, cfg.Store.SupabaseKey)
	case config.DriverMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// attachFacilities 依 foodId 彙整供餐地點，保留首次出現順序
func attachFacilities(foods []common.FoodItem, entries []common.MealEntry) []common.FoodItem {
	facilities := make(map[string][]string)
	seen := make(map[string]map[string]bool)
	for _, e := range entries {
		if seen[e.FoodID] == nil {
			seen[e.FoodID] = make(map[string]bool)
		}
		if e.DiningFacility == "" || seen[e.FoodID][e.DiningFacility] {
			continue
		}
		seen[e.FoodID][e.DiningFacility] = true
		facilities[e.FoodID] = append(facilities[e.FoodID], e.DiningFacility)
	}

	out := make([]common.FoodItem, 0, len(foods))
	for _, f := range foods {
		if _, ok := seen[f.ID]; !ok {
			continue
		}
		f.DiningFacilities = facilities[f.ID]
		f.Nutrition.Normalize()
		out = append(out, f)
	}
	return out
}
