package scrape

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"illineats/internal/infrastructure/config"
	"illineats/internal/pkg/common"
)

// FeedFetcher 從 JSON 菜單來源取得每一餐的營養標示
type FeedFetcher struct {
	client *resty.Client
}

// NewFeedFetcher 建立菜單來源客戶端
func NewFeedFetcher(cfg config.ScrapeConfig) *FeedFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := resty.New().
		SetBaseURL(strings.TrimRight(cfg.FeedURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "illineats-ingest")

	return &FeedFetcher{client: client}
}

// Fetch 取得單一任務的原始紀錄
func (f *FeedFetcher) Fetch(ctx context.Context, task Task) ([]RawRecord, error) {
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"date": task.Date,
			"meal": task.MealType,
		}).
		Get("/menus")
	if err != nil {
		return nil, fmt.Errorf("failed to request menu feed: %w", err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("menu feed returned %d: %s", resp.StatusCode(), resp.String())
	}

	var records []RawRecord
	if err := common.ParseJSONBytes(resp.Body(), &records); err != nil {
		return nil, fmt.Errorf("failed to parse menu feed: %w", err)
	}

	common.LogDebug("菜單來源回應",
		zap.String("task", task.String()),
		zap.Int("records", len(records)),
	)
	return records, nil
}

// LoadFile 讀取 food_data.json 匯出檔，整理成可合併的觀察結果
func LoadFile(path string) ([]common.ObservedFood, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var foods []common.ObservedFood
	if err := common.DecodeJSON(f, &foods); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}

	Prepare(foods)
	return foods, nil
}

// Prepare 就地整理外部匯入的觀察結果，缺少的用餐大樓由餐廳名稱推得
func Prepare(foods []common.ObservedFood) {
	for i := range foods {
		food := &foods[i]
		food.Name = strings.TrimSpace(food.Name)
		food.ServingSize = common.CleanText(food.ServingSize)
		food.Ingredients = common.CleanText(food.Ingredients)
		food.Allergens = common.CleanText(food.Allergens)
		food.Preferences = common.CleanText(food.Preferences)
		food.Nutrition.Normalize()
		for j := range food.MealEntries {
			e := &food.MealEntries[j]
			if e.DiningHall == "" {
				e.DiningHall = DiningHall(e.DiningFacility)
			}
		}
	}
}
