package catalog

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"illineats/internal/infrastructure/metrics"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// ItemError 單一食物合併失敗的原因
type ItemError struct {
	Name   string `json:"name"`
	FoodID string `json:"food_id,omitempty"`
	Err    error  `json:"-"`
	Reason string `json:"error"`
}

func (e ItemError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e ItemError) Unwrap() error { return e.Err }

// Report 一次合併的統計
type Report struct {
	FoodsCreated    int           `json:"foods_created"`
	FoodsMatched    int           `json:"foods_matched"`
	EntriesInserted int           `json:"entries_inserted"`
	EntriesSkipped  int           `json:"entries_skipped"`
	Errors          []ItemError   `json:"errors"`
	Duration        time.Duration `json:"-"`
}

// OK 是否沒有任何項目失敗
func (r *Report) OK() bool { return len(r.Errors) == 0 }

func (r *Report) fail(name, foodID string, err error) {
	r.Errors = append(r.Errors, ItemError{Name: name, FoodID: foodID, Err: err, Reason: err.Error()})
	common.LogError("食物合併失敗",
		zap.String("name", name),
		zap.String("food_id", foodID),
		zap.Error(err),
	)
}

// Reconciler 將觀察到的食物寫入目錄。
// 查詢後寫入並非原子操作，同一目錄的呼叫在此序列化。
type Reconciler struct {
	store    store.Store
	validate *validator.Validate
	mu       sync.Mutex
}

// NewReconciler 建立合併器
func NewReconciler(s store.Store) *Reconciler {
	return &Reconciler{
		store:    s,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Reconcile 依輸入順序處理每筆食物。單筆失敗只影響該筆，其餘照常處理。
func (r *Reconciler) Reconcile(ctx context.Context, foods []common.ObservedFood) *Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	start := time.Now()
	report := &Report{Errors: []ItemError{}}
	// 本批次內已處理的供餐紀錄，以 foodId 分組
	seen := make(map[string]map[common.ServingKey]bool)

	for i := range foods {
		if err := ctx.Err(); err != nil {
			report.fail(foods[i].Name, "", err)
			break
		}
		r.reconcileOne(ctx, foods[i], seen, report)
	}

	report.Duration = time.Since(start)
	metrics.RecordReconcile(report.FoodsCreated, report.EntriesInserted, report.EntriesSkipped, len(report.Errors))
	common.LogInfo("目錄合併完成",
		zap.Int("foods", len(foods)),
		zap.Int("foods_created", report.FoodsCreated),
		zap.Int("entries_inserted", report.EntriesInserted),
		zap.Int("entries_skipped", report.EntriesSkipped),
		zap.Int("errors", len(report.Errors)),
		zap.Duration("duration", report.Duration),
	)
	return report
}

func (r *Reconciler) reconcileOne(ctx context.Context, food common.ObservedFood, seen map[string]map[common.ServingKey]bool, report *Report) {
	food.Name = strings.TrimSpace(food.Name)
	if err := r.validate.Struct(&food.FoodItem); err != nil {
		report.fail(food.Name, "", common.NewValidationError(fmt.Sprintf("invalid food record: %v", err)))
		return
	}

	entries := make([]common.MealEntry, 0, len(food.MealEntries))
	for _, e := range food.MealEntries {
		if err := r.validate.Struct(&e); err != nil {
			report.fail(food.Name, "", common.NewValidationError(fmt.Sprintf("invalid meal entry: %v", err)))
			continue
		}
		entries = append(entries, e)
	}

	existing, err := r.store.FindFoodByName(ctx, food.Name)
	if err != nil {
		report.fail(food.Name, "", err)
		return
	}

	if existing != nil {
		report.FoodsMatched++
		r.appendHistory(ctx, existing, entries, seen, report)
		return
	}
	r.create(ctx, food, entries, seen, report)
}

// appendHistory 既有食物只寫入尚未出現過的供餐紀錄
func (r *Reconciler) appendHistory(ctx context.Context, existing *common.FoodItem, entries []common.MealEntry, seen map[string]map[common.ServingKey]bool, report *Report) {
	keys := seen[existing.ID]
	if keys == nil {
		persisted, err := r.store.ListMealEntries(ctx, existing.ID)
		if err != nil {
			report.fail(existing.Name, existing.ID, err)
			return
		}
		keys = make(map[common.ServingKey]bool, len(persisted))
		for _, p := range persisted {
			keys[p.Key()] = true
		}
		seen[existing.ID] = keys
	}

	for _, e := range entries {
		if keys[e.Key()] {
			report.EntriesSkipped++
			continue
		}
		e.ID = ""
		e.FoodID = existing.ID
		if _, err := r.store.InsertMealEntry(ctx, &e); err != nil {
			report.fail(existing.Name, existing.ID, asWriteError("insert meal entry", existing.Name, err))
			return
		}
		keys[e.Key()] = true
		report.EntriesInserted++
	}
}

// create 新食物與其供餐紀錄在同一交易內寫入
func (r *Reconciler) create(ctx context.Context, food common.ObservedFood, entries []common.MealEntry, seen map[string]map[common.ServingKey]bool, report *Report) {
	item := food.FoodItem
	item.ID = common.GenerateUUID()
	item.DiningFacilities = nil
	item.Nutrition.Normalize()

	keys := make(map[common.ServingKey]bool, len(entries))
	inserted, skipped := 0, 0

	err := r.store.WithTx(ctx, func(tx store.Store) error {
		if _, err := tx.InsertFood(ctx, &item); err != nil {
			return asWriteError("insert food", item.Name, err)
		}
		for _, e := range entries {
			if keys[e.Key()] {
				skipped++
				continue
			}
			e.ID = ""
			e.FoodID = item.ID
			if _, err := tx.InsertMealEntry(ctx, &e); err != nil {
				return asWriteError("insert meal entry", item.Name, err)
			}
			keys[e.Key()] = true
			inserted++
		}
		return nil
	})
	if err != nil {
		report.fail(item.Name, item.ID, err)
		return
	}

	seen[item.ID] = keys
	report.FoodsCreated++
	report.EntriesInserted += inserted
	report.EntriesSkipped += skipped
}

func asWriteError(op, item string, err error) error {
	if common.IsStoreWriteError(err) {
		return err
	}
	return common.NewStoreWriteError(op, item, err)
}
