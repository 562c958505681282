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
	"illineats/internal/core/cleanup"
	"illineats/internal/core/recommend"
	"illineats/internal/infrastructure/config"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

func main() {
	var asOf string
	pflag.StringVar(&asOf, "as-of", "", "treat this date (YYYY-MM-DD) as today")
	pflag.Parse()

	now := time.Now().UTC()
	if asOf != "" {
		t, err := time.Parse("2006-01-02", asOf)
		if err != nil {
			fmt.Printf("Invalid --as-of value: %v\n", err)
			os.Exit(1)
		}
		now = t
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := common.InitLogger(cfg.LogLevel, cfg.LogDir, "illineats-cleanup"); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := store.New(cfg)
	if err != nil {
		common.LogFatal("Failed to initialize store", zap.Error(err))
	}
	defer db.Close()

	report, err := cleanup.NewCleaner(db).Run(ctx, now)
	if report != nil && report.Deleted > 0 {
		if c, cerr := cache.New(cfg); cerr == nil && c != nil {
			_ = c.Delete(ctx, recommend.CatalogCacheKey)
			_ = c.Close()
		}
	}
	if err != nil {
		common.LogError("Cleanup failed", zap.Error(err))
		os.Exit(1)
	}

	summary, _ := common.ToJSON(report)
	fmt.Println(summary)
}
