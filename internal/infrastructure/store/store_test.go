package store

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illineats/internal/infrastructure/config"
	"illineats/internal/pkg/common"
)

func newSQLiteStore(t *testing.T) *GormStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	s, err := NewGormStore(config.StoreConfig{
		Driver:      config.DriverSQLite,
		DSN:         fmt.Sprintf("file:%s?mode=memory&cache=shared", name),
		AutoMigrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, NewMemoryStore()) })
	t.Run("sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func TestStore_FoodAndEntries(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		missing, err := s.FindFoodByName(ctx, "Spaghetti")
		require.NoError(t, err)
		assert.Nil(t, missing)

		food := common.NewFoodItem("Spaghetti", common.Nutrition{Calories: 400, Protein: 12})
		food.Preferences = "vegan vegetarian"
		id, err := s.InsertFood(ctx, &food)
		require.NoError(t, err)
		assert.NotEmpty(t, id)
		assert.Equal(t, id, food.ID)

		found, err := s.FindFoodByName(ctx, "Spaghetti")
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, id, found.ID)
		assert.Equal(t, 400, found.Calories)

		_, err = s.InsertFood(ctx, &common.FoodItem{Name: "Spaghetti"})
		assert.Error(t, err)

		entry := common.MealEntry{FoodID: id, DiningHall: "ISR", DiningFacility: "Isr Dining Center", MealType: "Lunch", DateServed: "Monday, March 04, 2024"}
		_, err = s.InsertMealEntry(ctx, &entry)
		require.NoError(t, err)

		dup := entry
		dup.ID = ""
		_, err = s.InsertMealEntry(ctx, &dup)
		assert.True(t, common.IsStoreWriteError(err))

		entries, err := s.ListMealEntries(ctx, id)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, entry.Key(), entries[0].Key())

		none, err := s.ListMealEntries(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestStore_ListCatalog(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		empty, err := s.ListCatalog(ctx)
		require.NoError(t, err)
		assert.Empty(t, empty)

		for _, name := range []string{"Waffles", "Apple", "Orphan"} {
			f := common.NewFoodItem(name, common.Nutrition{Calories: 100})
			_, err := s.InsertFood(ctx, &f)
			require.NoError(t, err)
			if name == "Orphan" {
				continue
			}
			for _, fac := range []string{"Ikenberry Dining Center (Ike)", "Field of Greens (LAR)", "Ikenberry Dining Center (Ike)"} {
				for _, meal := range []string{"Lunch", "Dinner"} {
					e := common.MealEntry{FoodID: f.ID, DiningFacility: fac, MealType: meal, DateServed: "Monday, March 04, 2024"}
					_, _ = s.InsertMealEntry(ctx, &e)
				}
			}
		}

		foods, err := s.ListCatalog(ctx)
		require.NoError(t, err)
		require.Len(t, foods, 2)
		assert.Equal(t, "Apple", foods[0].Name)
		assert.Equal(t, "Waffles", foods[1].Name)
		assert.ElementsMatch(t, []string{"Ikenberry Dining Center (Ike)", "Field of Greens (LAR)"}, foods[0].DiningFacilities)
	})
}

func TestStore_ServingDatesAndDelete(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		f := common.NewFoodItem("Toast", common.Nutrition{})
		_, err := s.InsertFood(ctx, &f)
		require.NoError(t, err)

		dates := []string{"Monday, March 04, 2024", "Tuesday, March 05, 2024"}
		for _, d := range dates {
			for _, meal := range []string{"Breakfast", "Lunch"} {
				e := common.MealEntry{FoodID: f.ID, DiningFacility: "Isr Dining Center", MealType: meal, DateServed: d}
				_, err := s.InsertMealEntry(ctx, &e)
				require.NoError(t, err)
			}
		}

		got, err := s.ServingDates(ctx)
		require.NoError(t, err)
		assert.ElementsMatch(t, dates, got)

		n, err := s.DeleteMealEntriesByDate(ctx, dates[0])
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		got, err = s.ServingDates(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{dates[1]}, got)
	})
}

func TestStore_Recommendations(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetRecommendation(ctx, "u1", "dashboard")
		assert.ErrorIs(t, err, common.ErrRecommendationNotFound)

		first := &common.Recommendation{UserID: "u1", Type: "dashboard", FoodIDs: []string{"a", "b"}, CreatedAt: time.Now().UTC()}
		id1, err := s.UpsertRecommendation(ctx, first)
		require.NoError(t, err)

		second := &common.Recommendation{UserID: "u1", Type: "dashboard", FoodIDs: []string{"c"}, CreatedAt: time.Now().UTC()}
		id2, err := s.UpsertRecommendation(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, id1, id2)

		got, err := s.GetRecommendation(ctx, "u1", "dashboard")
		require.NoError(t, err)
		assert.Equal(t, []string{"c"}, got.FoodIDs)

		empty := &common.Recommendation{UserID: "u1", Type: "weekly", FoodIDs: []string{}, CreatedAt: time.Now().UTC()}
		_, err = s.UpsertRecommendation(ctx, empty)
		require.NoError(t, err)
		got, err = s.GetRecommendation(ctx, "u1", "weekly")
		require.NoError(t, err)
		assert.Empty(t, got.FoodIDs)
	})
}

func TestStore_Users(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.GetUser(ctx, "u1")
		assert.ErrorIs(t, err, common.ErrUserNotFound)

		u := &common.UserProfile{
			ID:                  "u1",
			Allergies:           []string{"Peanuts", " peanuts ", ""},
			DietaryRestrictions: []string{"vegan"},
			Goal:                common.GoalBulk,
			Locations:           []string{"Isr Dining Center"},
		}
		require.NoError(t, s.UpsertUser(ctx, u))

		u.Goal = common.GoalLoseWeight
		require.NoError(t, s.UpsertUser(ctx, u))

		got, err := s.GetUser(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, []string{"Peanuts"}, got.Allergies)
		assert.Equal(t, []string{"vegan"}, got.DietaryRestrictions)
		assert.Equal(t, common.GoalLoseWeight, got.Goal)
		assert.Empty(t, got.Preferences)
	})
}

func TestGormStore_WithTxRollsBack(t *testing.T) {
	s := newSQLiteStore(t)
	ctx := context.Background()

	err := s.WithTx(ctx, func(tx Store) error {
		f := common.NewFoodItem("Rollback Soup", common.Nutrition{})
		if _, err := tx.InsertFood(ctx, &f); err != nil {
			return err
		}
		return fmt.Errorf("abort")
	})
	require.Error(t, err)

	found, err := s.FindFoodByName(ctx, "Rollback Soup")
	require.NoError(t, err)
	assert.Nil(t, found)
	assert.NoError(t, s.Ping(ctx))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(&config.Config{Store: config.StoreConfig{Driver: "mongo"}})
	assert.Error(t, err)

	s, err := New(&config.Config{Store: config.StoreConfig{Driver: config.DriverMemory}})
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)
}

func TestPageAll(t *testing.T) {
	rows := make([]int, 2500)
	for i := range rows {
		rows[i] = i
	}
	var calls [][2]int
	fetch := func(from, to int) ([]int, error) {
		calls = append(calls, [2]int{from, to})
		if from >= len(rows) {
			return nil, nil
		}
		return rows[from:min(to+1, len(rows))], nil
	}

	got, err := pageAll(1000, fetch)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
	assert.Equal(t, [][2]int{{0, 999}, {1000, 1999}, {2000, 2999}}, calls)

	// 剛好整頁時需多取一次空頁才停止
	calls = nil
	rows = rows[:2000]
	got, err = pageAll(1000, fetch)
	require.NoError(t, err)
	assert.Len(t, got, 2000)
	assert.Len(t, calls, 3)

	_, err = pageAll(1000, func(from, to int) ([]int, error) { return nil, fmt.Errorf("max-rows") })
	assert.Error(t, err)
}
