package recommend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illineats/internal/core/cache"
	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// failingStore 推薦寫入一律失敗
type failingStore struct {
	*store.MemoryStore
}

func (s *failingStore) UpsertRecommendation(ctx context.Context, rec *common.Recommendation) (string, error) {
	return "", common.NewStoreWriteError("upsert recommendation", rec.UserID, errors.New("timeout"))
}

func seedCatalog(t *testing.T, s store.Store) map[string]string {
	t.Helper()
	ctx := context.Background()
	ids := map[string]string{}
	for _, f := range []common.FoodItem{
		{Name: "Chicken Breast", Allergens: "", Preferences: "halal", Nutrition: common.Nutrition{Calories: 300, Protein: 40}},
		{Name: "Peanut Noodles", Allergens: "Peanuts, Wheat", Preferences: "vegan vegetarian", Nutrition: common.Nutrition{Calories: 500, Protein: 12}},
		{Name: "Garden Salad", Allergens: "", Preferences: "vegan vegetarian", Nutrition: common.Nutrition{Calories: 120, Protein: 3}},
	} {
		f := f
		_, err := s.InsertFood(ctx, &f)
		require.NoError(t, err)
		_, err = s.InsertMealEntry(ctx, &common.MealEntry{FoodID: f.ID, DiningFacility: "Sky Garden", MealType: "Lunch", DateServed: "Monday, March 04, 2024"})
		require.NoError(t, err)
		ids[f.Name] = f.ID
	}
	return ids
}

func TestService_GenerateAndGet(t *testing.T) {
	s := store.NewMemoryStore()
	ids := seedCatalog(t, s)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, &common.UserProfile{ID: "u1", Allergies: []string{"peanuts"}, Goal: common.GoalBulk}))

	svc := NewService(s, nil, config.RecommendationConfig{Limit: 20, DefaultType: "dashboard"})
	rec, err := svc.Generate(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, "dashboard", rec.Type)
	assert.Equal(t, []string{ids["Chicken Breast"], ids["Garden Salad"]}, rec.FoodIDs)
	assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)

	got, err := svc.Get(ctx, "u1", "dashboard")
	require.NoError(t, err)
	assert.Equal(t, rec.FoodIDs, got.FoodIDs)

	_, err = svc.Get(ctx, "u1", "weekly")
	assert.ErrorIs(t, err, common.ErrRecommendationNotFound)
}

func TestService_GenerateOverwrites(t *testing.T) {
	s := store.NewMemoryStore()
	ids := seedCatalog(t, s)
	ctx := context.Background()
	svc := NewService(s, nil, config.RecommendationConfig{Limit: 20})

	require.NoError(t, s.UpsertUser(ctx, &common.UserProfile{ID: "u1"}))
	first, err := svc.Generate(ctx, "u1", "dashboard")
	require.NoError(t, err)
	assert.Len(t, first.FoodIDs, 3)

	require.NoError(t, s.UpsertUser(ctx, &common.UserProfile{ID: "u1", DietaryRestrictions: []string{"halal"}}))
	second, err := svc.Generate(ctx, "u1", "dashboard")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	got, err := svc.Get(ctx, "u1", "dashboard")
	require.NoError(t, err)
	assert.Equal(t, []string{ids["Chicken Breast"]}, got.FoodIDs)
}

func TestService_UnknownUser(t *testing.T) {
	svc := NewService(store.NewMemoryStore(), nil, config.RecommendationConfig{})
	_, err := svc.Generate(context.Background(), "nobody", "")
	assert.ErrorIs(t, err, common.ErrUserNotFound)
}

func TestService_PublishFailureSurfaced(t *testing.T) {
	mem := store.NewMemoryStore()
	seedCatalog(t, mem)
	ctx := context.Background()
	require.NoError(t, mem.UpsertUser(ctx, &common.UserProfile{ID: "u1"}))

	svc := NewService(&failingStore{MemoryStore: mem}, nil, config.RecommendationConfig{})
	_, err := svc.Generate(ctx, "u1", "dashboard")
	require.Error(t, err)
	assert.True(t, common.IsStoreWriteError(err))

	_, err = mem.GetRecommendation(ctx, "u1", "dashboard")
	assert.ErrorIs(t, err, common.ErrRecommendationNotFound)
}

func TestService_CatalogCache(t *testing.T) {
	s := store.NewMemoryStore()
	seedCatalog(t, s)
	ctx := context.Background()

	c := cache.NewManager(&config.CacheConfig{MaxSize: 10, TTL: time.Minute})
	defer c.Close()
	svc := NewService(s, c, config.RecommendationConfig{})

	foods, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, foods, 3)

	extra := common.NewFoodItem("Late Addition", common.Nutrition{})
	_, err = s.InsertFood(ctx, &extra)
	require.NoError(t, err)
	_, err = s.InsertMealEntry(ctx, &common.MealEntry{FoodID: extra.ID, DiningFacility: "Latitude", MealType: "Dinner", DateServed: "Monday, March 04, 2024"})
	require.NoError(t, err)

	cached, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, cached, 3)

	svc.InvalidateCatalog(ctx)
	fresh, err := svc.Catalog(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh, 4)
}

func TestService_Explain(t *testing.T) {
	s := store.NewMemoryStore()
	seedCatalog(t, s)
	ctx := context.Background()
	require.NoError(t, s.UpsertUser(ctx, &common.UserProfile{ID: "u1", Goal: common.GoalLoseWeight}))

	ranked, err := NewService(s, nil, config.RecommendationConfig{}).Explain(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, ranked, 3)
	assert.Equal(t, "Garden Salad", ranked[0].Item.Name)
}

func TestPublisher_FreshTimestamp(t *testing.T) {
	s := store.NewMemoryStore()
	p := NewPublisher(s)
	fixed := time.Date(2024, 3, 4, 12, 0, 0, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	rec, err := p.Publish(context.Background(), "u1", "dashboard", []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, fixed, rec.CreatedAt)
	assert.NotEmpty(t, rec.ID)
}
