package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/supabase-community/supabase-go"
	"go.uber.org/zap"

	"illineats/internal/pkg/common"
)

// supabasePageSize 與 Supabase 預設的 max-rows 相同，整表讀取需分頁
const supabasePageSize = 1000

// pageAll 以固定頁長反覆呼叫 fetch，直到回傳不足一頁為止
func pageAll[T any](pageSize int, fetch func(from, to int) ([]T, error)) ([]T, error) {
	all := make([]T, 0)
	for from := 0; ; from += pageSize {
		page, err := fetch(from, from+pageSize-1)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			return all, nil
		}
	}
}

// SupabaseStore 透過 PostgREST 存取既有的 Supabase 專案
type SupabaseStore struct {
	client *supabase.Client
}

// NewSupabaseStore 建立 Supabase 客戶端
func NewSupabaseStore(url, key string) (*SupabaseStore, error) {
	client, err := supabase.NewClient(url, key, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to create supabase client: %w", err)
	}
	common.LogInfo("Supabase 客戶端已建立", zap.String("url", url))
	return &SupabaseStore{client: client}, nil
}

func (s *SupabaseStore) FindFoodByName(ctx context.Context, name string) (*common.FoodItem, error) {
	start := time.Now()
	var rows []FoodInfo
	_, err := s.client.From(TableFoodInfo).Select("*", "", false).Eq("name", name).ExecuteTo(&rows)
	common.LogStoreCall("select FoodInfo", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select food by name: %w", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	item := rows[0].toItem()
	return &item, nil
}

func (s *SupabaseStore) InsertFood(ctx context.Context, food *common.FoodItem) (string, error) {
	row := foodRowFrom(food)
	if row.ID == "" {
		row.ID = common.GenerateUUID()
	}

	start := time.Now()
	var inserted []FoodInfo
	_, err := s.client.From(TableFoodInfo).Insert(row, false, "", "representation", "").ExecuteTo(&inserted)
	common.LogStoreCall("insert FoodInfo", time.Since(start), err)
	if err != nil {
		return "", common.NewStoreWriteError("insert food", food.Name, err)
	}
	if len(inserted) > 0 && inserted[0].ID != "" {
		row.ID = inserted[0].ID
	}
	food.ID = row.ID
	return row.ID, nil
}

func (s *SupabaseStore) ListMealEntries(ctx context.Context, foodID string) ([]common.MealEntry, error) {
	start := time.Now()
	var rows []MealDetail
	_, err := s.client.From(TableMealDetails).Select("*", "", false).Eq("foodId", foodID).ExecuteTo(&rows)
	common.LogStoreCall("select mealDetails", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select meal entries: %w", err)
	}
	entries := make([]common.MealEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, r.toEntry())
	}
	return entries, nil
}

func (s *SupabaseStore) InsertMealEntry(ctx context.Context, entry *common.MealEntry) (string, error) {
	row := mealRowFrom(entry)
	if row.ID == "" {
		row.ID = common.GenerateUUID()
	}

	start := time.Now()
	_, _, err := s.client.From(TableMealDetails).Insert(row, false, "", "minimal", "").Execute()
	common.LogStoreCall("insert mealDetails", time.Since(start), err)
	if err != nil {
		return "", common.NewStoreWriteError("insert meal entry", entry.FoodID, err)
	}
	entry.ID = row.ID
	return row.ID, nil
}

func (s *SupabaseStore) ListCatalog(ctx context.Context) ([]common.FoodItem, error) {
	start := time.Now()
	details, err := pageAll(supabasePageSize, func(from, to int) ([]MealDetail, error) {
		var page []MealDetail
		_, err := s.client.From(TableMealDetails).Select("*", "", false).
			Order("id", nil).Range(from, to, "").ExecuteTo(&page)
		return page, err
	})
	common.LogStoreCall("select mealDetails", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select meal entries: %w", err)
	}
	if len(details) == 0 {
		return []common.FoodItem{}, nil
	}

	// PostgREST 的 in 過濾條件有 URL 長度限制，直接取整張表再比對
	start = time.Now()
	rows, err := pageAll(supabasePageSize, func(from, to int) ([]FoodInfo, error) {
		var page []FoodInfo
		_, err := s.client.From(TableFoodInfo).Select("*", "", false).
			Order("id", nil).Range(from, to, "").ExecuteTo(&page)
		return page, err
	})
	common.LogStoreCall("select FoodInfo", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select foods: %w", err)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	entries := make([]common.MealEntry, 0, len(details))
	for _, d := range details {
		entries = append(entries, d.toEntry())
	}
	foods := make([]common.FoodItem, 0, len(rows))
	for _, r := range rows {
		foods = append(foods, r.toItem())
	}
	return attachFacilities(foods, entries), nil
}

func (s *SupabaseStore) ServingDates(ctx context.Context) ([]string, error) {
	start := time.Now()
	rows, err := pageAll(supabasePageSize, func(from, to int) ([]MealDetail, error) {
		var page []MealDetail
		_, err := s.client.From(TableMealDetails).Select("id,dateServed", "", false).
			Order("id", nil).Range(from, to, "").ExecuteTo(&page)
		return page, err
	})
	common.LogStoreCall("select mealDetails.dateServed", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select serving dates: %w", err)
	}

	seen := make(map[string]bool)
	dates := make([]string, 0)
	for _, r := range rows {
		if !seen[r.DateServed] {
			seen[r.DateServed] = true
			dates = append(dates, r.DateServed)
		}
	}
	return dates, nil
}

func (s *SupabaseStore) DeleteMealEntriesByDate(ctx context.Context, dateServed string) (int64, error) {
	start := time.Now()
	var deleted []MealDetail
	_, err := s.client.From(TableMealDetails).Delete("representation", "").Eq("dateServed", dateServed).ExecuteTo(&deleted)
	common.LogStoreCall("delete mealDetails", time.Since(start), err)
	if err != nil {
		return 0, common.NewStoreWriteError("delete meal entries", dateServed, err)
	}
	return int64(len(deleted)), nil
}

func (s *SupabaseStore) UpsertRecommendation(ctx context.Context, rec *common.Recommendation) (string, error) {
	row := recommendationRowFrom(rec)

	existing, err := s.GetRecommendation(ctx, rec.UserID, rec.Type)
	switch {
	case err == nil:
		row.ID = existing.ID
	case errors.Is(err, common.ErrRecommendationNotFound):
		row.ID = common.GenerateUUID()
	default:
		return "", common.NewStoreWriteError("upsert recommendation", rec.UserID, err)
	}

	start := time.Now()
	_, _, err = s.client.From(TableRecommendation).Upsert(row, "userId,type", "minimal", "").Execute()
	common.LogStoreCall("upsert Recommendation", time.Since(start), err)
	if err != nil {
		return "", common.NewStoreWriteError("upsert recommendation", rec.UserID, err)
	}
	rec.ID = row.ID
	return row.ID, nil
}

func (s *SupabaseStore) GetRecommendation(ctx context.Context, userID, recType string) (*common.Recommendation, error) {
	start := time.Now()
	var rows []RecommendationRow
	_, err := s.client.From(TableRecommendation).Select("*", "", false).
		Eq("userId", userID).Eq("type", recType).ExecuteTo(&rows)
	common.LogStoreCall("select Recommendation", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select recommendation: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrRecommendationNotFound
	}
	return rows[0].toRecommendation(), nil
}

func (s *SupabaseStore) GetUser(ctx context.Context, id string) (*common.UserProfile, error) {
	start := time.Now()
	var rows []UserRow
	_, err := s.client.From(TableUser).Select("*", "", false).Eq("id", id).ExecuteTo(&rows)
	common.LogStoreCall("select User", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if len(rows) == 0 {
		return nil, common.ErrUserNotFound
	}
	return rows[0].toProfile(), nil
}

func (s *SupabaseStore) UpsertUser(ctx context.Context, user *common.UserProfile) error {
	start := time.Now()
	_, _, err := s.client.From(TableUser).Upsert(userRowFrom(user), "id", "minimal", "").Execute()
	common.LogStoreCall("upsert User", time.Since(start), err)
	if err != nil {
		return common.NewStoreWriteError("upsert user", user.ID, err)
	}
	return nil
}

// WithTx PostgREST 沒有跨請求交易，依序執行
func (s *SupabaseStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *SupabaseStore) Ping(ctx context.Context) error {
	_, _, err := s.client.From(TableFoodInfo).Select("id", "exact", true).Execute()
	return err
}

func (s *SupabaseStore) Close() error { return nil }
