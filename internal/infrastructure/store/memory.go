package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"illineats/internal/pkg/common"
)

// MemoryStore 行程內儲存，供測試與本機開發使用
type MemoryStore struct {
	mu              sync.RWMutex
	foods           map[string]common.FoodItem
	names           map[string]string
	entries         []common.MealEntry
	recommendations map[string]common.Recommendation
	users           map[string]common.UserProfile
}

// NewMemoryStore 建立空的記憶體儲存
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		foods:           make(map[string]common.FoodItem),
		names:           make(map[string]string),
		recommendations: make(map[string]common.Recommendation),
		users:           make(map[string]common.UserProfile),
	}
}

var errDuplicate = errors.New("duplicate key value violates unique constraint")

func recKey(userID, recType string) string { return userID + "\x00" + recType }

func (s *MemoryStore) FindFoodByName(ctx context.Context, name string) (*common.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	if !ok {
		return nil, nil
	}
	item := s.foods[id]
	return &item, nil
}

func (s *MemoryStore) InsertFood(ctx context.Context, food *common.FoodItem) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[food.Name]; ok {
		return "", common.NewStoreWriteError("insert food", food.Name, errDuplicate)
	}
	item := *food
	if item.ID == "" {
		item.ID = common.GenerateUUID()
	}
	item.DiningFacilities = nil
	item.Nutrition.Normalize()
	s.foods[item.ID] = item
	s.names[item.Name] = item.ID
	food.ID = item.ID
	return item.ID, nil
}

func (s *MemoryStore) ListMealEntries(ctx context.Context, foodID string) ([]common.MealEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]common.MealEntry, 0)
	for _, e := range s.entries {
		if e.FoodID == foodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *MemoryStore) InsertMealEntry(ctx context.Context, entry *common.MealEntry) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.FoodID == entry.FoodID && e.Key() == entry.Key() {
			return "", common.NewStoreWriteError("insert meal entry", entry.FoodID, errDuplicate)
		}
	}
	e := *entry
	if e.ID == "" {
		e.ID = common.GenerateUUID()
	}
	s.entries = append(s.entries, e)
	entry.ID = e.ID
	return e.ID, nil
}

func (s *MemoryStore) ListCatalog(ctx context.Context) ([]common.FoodItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	foods := make([]common.FoodItem, 0, len(s.foods))
	for _, f := range s.foods {
		foods = append(foods, f)
	}
	sort.Slice(foods, func(i, j int) bool { return foods[i].Name < foods[j].Name })
	return attachFacilities(foods, s.entries), nil
}

func (s *MemoryStore) ServingDates(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[string]bool)
	dates := make([]string, 0)
	for _, e := range s.entries {
		if !seen[e.DateServed] {
			seen[e.DateServed] = true
			dates = append(dates, e.DateServed)
		}
	}
	return dates, nil
}

func (s *MemoryStore) DeleteMealEntriesByDate(ctx context.Context, dateServed string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.entries[:0]
	var n int64
	for _, e := range s.entries {
		if e.DateServed == dateServed {
			n++
			continue
		}
		kept = append(kept, e)
	}
	s.entries = kept
	return n, nil
}

func (s *MemoryStore) UpsertRecommendation(ctx context.Context, rec *common.Recommendation) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := recKey(rec.UserID, rec.Type)
	stored := *rec
	stored.FoodIDs = append([]string(nil), rec.FoodIDs...)
	if prev, ok := s.recommendations[key]; ok {
		stored.ID = prev.ID
	} else if stored.ID == "" {
		stored.ID = common.GenerateUUID()
	}
	s.recommendations[key] = stored
	rec.ID = stored.ID
	return stored.ID, nil
}

func (s *MemoryStore) GetRecommendation(ctx context.Context, userID, recType string) (*common.Recommendation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recommendations[recKey(userID, recType)]
	if !ok {
		return nil, common.ErrRecommendationNotFound
	}
	rec.FoodIDs = append([]string{}, rec.FoodIDs...)
	return &rec, nil
}

func (s *MemoryStore) GetUser(ctx context.Context, id string) (*common.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, common.ErrUserNotFound
	}
	return &u, nil
}

func (s *MemoryStore) UpsertUser(ctx context.Context, user *common.UserProfile) error {
	if strings.TrimSpace(user.ID) == "" {
		return common.NewStoreWriteError("upsert user", user.ID, errors.New("empty id"))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[user.ID] = *userRowFrom(user).toProfile()
	return nil
}

// WithTx 依序執行，不提供回滾
func (s *MemoryStore) WithTx(ctx context.Context, fn func(Store) error) error {
	return fn(s)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
