package scrape

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"illineats/internal/infrastructure/config"
)

// stubFetcher 依任務回傳固定資料，fails 記錄每個任務需要失敗的次數
type stubFetcher struct {
	mu      sync.Mutex
	fails   map[Task]int
	calls   map[Task]int
	active  int32
	maxSeen int32
}

func (f *stubFetcher) Fetch(ctx context.Context, task Task) ([]RawRecord, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		old := atomic.LoadInt32(&f.maxSeen)
		if n <= old || atomic.CompareAndSwapInt32(&f.maxSeen, old, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.calls[task]++
	call := f.calls[task]
	failTimes := f.fails[task]
	f.mu.Unlock()

	if call <= failTimes {
		return nil, errors.New("page did not load")
	}
	return []RawRecord{
		{Name: "Oatmeal", Ingredients: "Oats, Water", DiningFacility: "Rise & Dine"},
		{Name: task.MealType + " Special", Ingredients: "Rice", DiningFacility: "Fusion 48"},
	}, nil
}

func newStub() *stubFetcher {
	return &stubFetcher{fails: map[Task]int{}, calls: map[Task]int{}}
}

func TestTasks(t *testing.T) {
	now := time.Date(2024, 2, 26, 9, 0, 0, 0, time.UTC)
	tasks := Tasks(now, 7, 2, []string{"Breakfast", "Dinner"})

	require.Len(t, tasks, 4)
	assert.Equal(t, Task{Date: "Monday, March 04, 2024", MealType: "Breakfast"}, tasks[0])
	assert.Equal(t, Task{Date: "Tuesday, March 05, 2024", MealType: "Dinner"}, tasks[3])
	assert.Equal(t, "Monday, March 04, 2024 - Breakfast", tasks[0].String())
}

func TestRunner_RetriesOnce(t *testing.T) {
	tasks := Tasks(time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), 0, 2, []string{"Breakfast", "Lunch", "Dinner"})
	f := newStub()
	f.fails[tasks[1]] = 1 // 第二輪成功
	f.fails[tasks[4]] = 5 // 兩輪都失敗

	res, err := NewRunner(f, 4).Run(context.Background(), tasks)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Retried)
	require.Len(t, res.Dropped, 1)
	assert.Equal(t, tasks[4], res.Dropped[0].Task)
	assert.Equal(t, 2, f.calls[tasks[4]])
	assert.Equal(t, 2, f.calls[tasks[1]])
	assert.Equal(t, 1, f.calls[tasks[0]])

	// Oatmeal 合併為一筆，每個成功任務各一筆供餐紀錄
	assert.Equal(t, 4, res.Batch.Len())
	foods := res.Batch.Foods()
	var oatmeal int
	for _, food := range foods {
		if food.Name == "Oatmeal" {
			oatmeal = len(food.MealEntries)
		}
	}
	assert.Equal(t, 5, oatmeal)
	assert.Equal(t, 10, res.Records)
}

func TestRunner_RespectsWorkerLimit(t *testing.T) {
	tasks := Tasks(time.Now(), 0, 5, []string{"Breakfast", "Lunch", "Dinner"})
	f := newStub()

	_, err := NewRunner(f, 2).Run(context.Background(), tasks)
	require.NoError(t, err)
	assert.LessOrEqual(t, atomic.LoadInt32(&f.maxSeen), int32(2))
}

func TestRunner_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewRunner(newStub(), 4).Run(ctx, Tasks(time.Now(), 0, 1, []string{"Lunch"}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, res.Batch.Len())
}

func TestFeedFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/menus" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("meal") == "Brunch" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "Monday, March 04, 2024", r.URL.Query().Get("date"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[{"name":"Tofu Stir Fry","ingredients":"Tofu, Soy Sauce","diningFacility":"Soytainly","nutrients":{"calories":"310"}}]`))
	}))
	defer srv.Close()

	f := NewFeedFetcher(config.ScrapeConfig{FeedURL: srv.URL + "/", Timeout: time.Second})

	records, err := f.Fetch(context.Background(), Task{Date: "Monday, March 04, 2024", MealType: "Lunch"})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "310", records[0].Nutrients["calories"])

	_, err = f.Fetch(context.Background(), Task{Date: "Monday, March 04, 2024", MealType: "Brunch"})
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "food_data.json")
	data := `[{"name":" Bagel ","servingSize":"N/A","ingredients":"N/A","allergens":"Wheat","preferences":"N/A",
		"calories":280,"protein":-1,
		"mealEntries":[{"diningFacility":"Cafe a la Crumb","mealType":"Breakfast","dateServed":"Monday, March 04, 2024"}]}]`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	foods, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, foods, 1)
	assert.Equal(t, "Bagel", foods[0].Name)
	assert.Empty(t, foods[0].Ingredients)
	assert.Empty(t, foods[0].Preferences)
	assert.Equal(t, 0, foods[0].Protein)
	assert.Equal(t, "Illinois Street Dining Center (ISR)", foods[0].MealEntries[0].DiningHall)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
