package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"illineats/internal/core/cache"
	"illineats/internal/core/catalog"
	"illineats/internal/core/recommend"
	"illineats/internal/core/scrape"
	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

func main() {
	var (
		file      string
		daysAhead int
		days      int
		workers   int
		dryRun    bool
	)
	pflag.StringVarP(&file, "file", "f", "", "food_data.json export to load instead of the menu feed")
	pflag.IntVar(&daysAhead, "days-ahead", -1, "first menu day, counted from today (default from config)")
	pflag.IntVar(&days, "days", 0, "number of days to fetch (default from config)")
	pflag.IntVarP(&workers, "workers", "w", 0, "concurrent fetch workers (default from config)")
	pflag.BoolVar(&dryRun, "dry-run", false, "collect records without writing to the store")
	pflag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, "illineats-ingest"); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	if daysAhead >= 0 {
		cfg.Scrape.DaysAhead = daysAhead
	}
	if days > 0 {
		cfg.Scrape.Days = days
	}
	if workers > 0 {
		cfg.Scrape.Workers = workers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	batch, err := collect(ctx, cfg, file)
	if err != nil {
		common.LogFatal("Failed to collect menu records", zap.Error(err))
	}
	common.LogInfo("菜單資料收集完成",
		zap.Int("foods", batch.Len()),
		zap.Int("entries", batch.EntryCount()),
	)
	if dryRun {
		return
	}

	db, err := store.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	report := catalog.NewReconciler(db).Reconcile(ctx, batch.Foods())

	// API 使用 redis 時需要清掉舊的目錄快照
	if c, err := cache.New(cfg); err != nil {
		common.LogWarn("Failed to connect cache, catalog snapshot not invalidated", zap.Error(err))
	} else if c != nil {
		if err := c.Delete(ctx, recommend.CatalogCacheKey); err != nil {
			common.LogWarn("Failed to invalidate catalog snapshot", zap.Error(err))
		}
		_ = c.Close()
	}

	summary, _ := common.ToJSON(report)
	fmt.Println(summary)
	if !report.OK() {
		common.LogWarn("部分食物合併失敗", zap.Int("errors", len(report.Errors)))
	}
}

// collect 從匯出檔或菜單來源取得這次要合併的食物
func collect(ctx context.Context, cfg *config.Config, file string) (*catalog.Batch, error) {
	if file != "" {
		foods, err := scrape.LoadFile(file)
		if err != nil {
			return nil, err
		}
		batch := catalog.NewBatch()
		for _, f := range foods {
			batch.Add(f)
		}
		return batch, nil
	}

	if cfg.Scrape.FeedURL == "" {
		return nil, fmt.Errorf("menu feed url is not configured, set MENU_FEED_URL or pass --file")
	}

	tasks := scrape.Tasks(time.Now(), cfg.Scrape.DaysAhead, cfg.Scrape.Days, cfg.Scrape.MealTypes)
	runner := scrape.NewRunner(scrape.NewFeedFetcher(cfg.Scrape), cfg.Scrape.Workers)
	res, err := runner.Run(ctx, tasks)
	if err != nil {
		return nil, err
	}
	for _, d := range res.Dropped {
		common.LogWarn("任務放棄", zap.String("task", d.Task.String()), zap.String("error", d.Error))
	}
	return res.Batch, nil
}
