// Package cleanup 刪除供餐日期已過的紀錄
package cleanup

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"illineats/internal/infrastructure/metrics"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// 網站有時不補零
var layouts = []string{
	"Monday, January 02, 2006",
	"Monday, January 2, 2006",
}

// ParseServed 解析 dateServed 欄位
func ParseServed(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	var lastErr error
	for _, layout := range layouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// Report 清理結果
type Report struct {
	Deleted     int64    `json:"deleted"`
	Dates       []string `json:"dates"`
	Unparseable []string `json:"unparseable"`
}

// Cleaner 清理過期的供餐紀錄
type Cleaner struct {
	store store.Store
}

func NewCleaner(s store.Store) *Cleaner {
	return &Cleaner{store: s}
}

// Run 刪除 dateServed 早於 now 當天的所有紀錄。無法解析的日期保留並記錄。
func (c *Cleaner) Run(ctx context.Context, now time.Time) (*Report, error) {
	dates, err := c.store.ServingDates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list serving dates: %w", err)
	}

	y, m, d := now.UTC().Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	report := &Report{Dates: []string{}, Unparseable: []string{}}
	for _, raw := range dates {
		served, err := ParseServed(raw)
		if err != nil {
			common.LogWarn("無法解析供餐日期", zap.String("dateServed", raw), zap.Error(err))
			report.Unparseable = append(report.Unparseable, raw)
			continue
		}
		if !served.Before(today) {
			continue
		}

		n, err := c.store.DeleteMealEntriesByDate(ctx, raw)
		if err != nil {
			metrics.EntriesPurged.Add(float64(report.Deleted))
			return report, err
		}
		report.Deleted += n
		report.Dates = append(report.Dates, raw)
	}

	metrics.EntriesPurged.Add(float64(report.Deleted))
	common.LogInfo("過期供餐紀錄已清理",
		zap.Int("dates", len(report.Dates)),
		zap.Int64("deleted", report.Deleted),
	)
	return report, nil
}
