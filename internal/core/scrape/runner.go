package scrape

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"illineats/internal/core/catalog"
	"illineats/internal/infrastructure/metrics"
	"illineats/internal/pkg/common"
)

// Task 一個抓取單位：某日的某一餐
type Task struct {
	Date     string `json:"date"`
	MealType string `json:"meal_type"`
}

func (t Task) String() string {
	return fmt.Sprintf("%s - %s", t.Date, t.MealType)
}

// Tasks 建立日期 × 餐別的任務表，日期從 now 加 daysAhead 天起算連續 days 天
func Tasks(now time.Time, daysAhead, days int, mealTypes []string) []Task {
	tasks := make([]Task, 0, days*len(mealTypes))
	start := now.AddDate(0, 0, daysAhead)
	for d := 0; d < days; d++ {
		date := start.AddDate(0, 0, d).Format(DateLayout)
		for _, meal := range mealTypes {
			tasks = append(tasks, Task{Date: date, MealType: meal})
		}
	}
	return tasks
}

// Fetcher 取得單一任務的原始紀錄
type Fetcher interface {
	Fetch(ctx context.Context, task Task) ([]RawRecord, error)
}

// TaskFailure 重試後仍失敗的任務
type TaskFailure struct {
	Task  Task   `json:"task"`
	Error string `json:"error"`
}

// Result 一次抓取的結果
type Result struct {
	Batch   *catalog.Batch
	Records int
	Retried int
	Dropped []TaskFailure
}

// Runner 以固定大小的工作池執行任務，第一輪失敗的任務全部重跑一次
type Runner struct {
	fetcher Fetcher
	workers int
}

// NewRunner 建立任務池，workers 小於 1 時視為 1
func NewRunner(f Fetcher, workers int) *Runner {
	if workers < 1 {
		workers = 1
	}
	return &Runner{fetcher: f, workers: workers}
}

// Run 執行所有任務。第二輪的錯誤只記錄後捨棄，不會再重試。
func (r *Runner) Run(ctx context.Context, tasks []Task) (*Result, error) {
	res := &Result{Batch: catalog.NewBatch(), Dropped: []TaskFailure{}}

	failed := r.wave(ctx, tasks, res)
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if len(failed) > 0 {
		common.LogWarn("部分抓取任務失敗，重試一次", zap.Int("count", len(failed)))
		retry := make([]Task, 0, len(failed))
		for _, t := range tasks {
			if _, ok := failed[t]; ok {
				retry = append(retry, t)
			}
		}
		res.Retried = len(retry)
		metrics.ScrapeTasks.WithLabelValues("retried").Add(float64(len(retry)))

		again := r.wave(ctx, retry, res)
		for _, t := range retry {
			err, ok := again[t]
			if !ok {
				continue
			}
			common.LogError("抓取任務重試失敗",
				zap.String("task", t.String()),
				zap.Error(err),
			)
			res.Dropped = append(res.Dropped, TaskFailure{Task: t, Error: err.Error()})
		}
		metrics.ScrapeTasks.WithLabelValues("dropped").Add(float64(len(res.Dropped)))
		if err := ctx.Err(); err != nil {
			return res, err
		}
	}

	common.LogInfo("抓取完成",
		zap.Int("tasks", len(tasks)),
		zap.Int("foods", res.Batch.Len()),
		zap.Int("records", res.Records),
		zap.Int("retried", res.Retried),
		zap.Int("dropped", len(res.Dropped)),
	)
	return res, nil
}

// wave 平行執行一輪任務，回傳失敗者
func (r *Runner) wave(ctx context.Context, tasks []Task, res *Result) map[Task]error {
	var mu sync.Mutex
	failed := make(map[Task]error)

	var g errgroup.Group
	g.SetLimit(r.workers)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				failed[task] = err
				mu.Unlock()
				return nil
			}

			records, err := r.fetcher.Fetch(ctx, task)
			if err != nil {
				mu.Lock()
				failed[task] = err
				mu.Unlock()
				return nil
			}

			for _, raw := range records {
				res.Batch.Add(Normalize(raw, task))
			}
			mu.Lock()
			res.Records += len(records)
			mu.Unlock()
			metrics.ScrapeTasks.WithLabelValues("ok").Inc()
			return nil
		})
	}
	_ = g.Wait()
	return failed
}
