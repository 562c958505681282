// Package metrics 定義服務的 Prometheus 指標
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FoodsCreated 目錄新增的食物數
	FoodsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "illineats_catalog_foods_created_total",
		Help: "Total number of foods inserted into the catalog",
	})

	// EntriesInserted 新增的供餐紀錄數
	EntriesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "illineats_catalog_entries_inserted_total",
		Help: "Total number of meal entries inserted",
	})

	// EntriesSkipped 因重複而略過的供餐紀錄數
	EntriesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "illineats_catalog_entries_skipped_total",
		Help: "Total number of duplicate meal entries skipped",
	})

	// ReconcileErrors 合併時寫入失敗的項目數
	ReconcileErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "illineats_catalog_reconcile_errors_total",
		Help: "Total number of items that failed to reconcile",
	})

	// EntriesPurged 清理刪除的供餐紀錄數
	EntriesPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "illineats_cleanup_entries_purged_total",
		Help: "Total number of stale meal entries deleted",
	})

	// ScrapeTasks 爬取任務結果，result 為 ok、retried、dropped
	ScrapeTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "illineats_scrape_tasks_total",
		Help: "Total number of scrape tasks by result",
	}, []string{"result"})

	// RecommendationsGenerated 依目標統計產生的推薦數
	RecommendationsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "illineats_recommendations_generated_total",
		Help: "Total number of recommendation lists generated",
	}, []string{"goal"})

	// RecommendationSize 推薦清單長度
	RecommendationSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "illineats_recommendation_size",
		Help:    "Number of foods in each generated recommendation",
		Buckets: []float64{0, 1, 5, 10, 15, 20},
	})

	// CacheRequests 快取查詢，result 為 hit 或 miss
	CacheRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "illineats_cache_requests_total",
		Help: "Total number of cache lookups by result",
	}, []string{"backend", "result"})

	// HTTPRequests HTTP 請求數
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "illineats_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	// HTTPLatency HTTP 延遲
	HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "illineats_http_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
)

// RecordReconcile 記錄一次合併結果
func RecordReconcile(created, inserted, skipped, failed int) {
	FoodsCreated.Add(float64(created))
	EntriesInserted.Add(float64(inserted))
	EntriesSkipped.Add(float64(skipped))
	ReconcileErrors.Add(float64(failed))
}

// RecordCache 記錄快取命中
func RecordCache(backend string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheRequests.WithLabelValues(backend, result).Inc()
}

// RecordHTTP 記錄 HTTP 請求
func RecordHTTP(method, route string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPLatency.WithLabelValues(method, route).Observe(duration.Seconds())
}
