package catalog

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"illineats/internal/api/handlers"
	catalogService "illineats/internal/core/catalog"
	"illineats/internal/core/classifier"
	"illineats/internal/core/cleanup"
	"illineats/internal/core/recommend"
	"illineats/internal/core/scrape"
	"illineats/internal/pkg/common"
)

// ReconcileRequest 一批觀察到的食物，不接受未知欄位
type ReconcileRequest struct {
	Foods []common.ObservedFood `json:"foods" binding:"required"`
}

// ReconcileResponse 合併統計
type ReconcileResponse struct {
	FoodsCreated    int                        `json:"foods_created"`
	FoodsMatched    int                        `json:"foods_matched"`
	EntriesInserted int                        `json:"entries_inserted"`
	EntriesSkipped  int                        `json:"entries_skipped"`
	Errors          []catalogService.ItemError `json:"errors"`
	DurationMS      int64                      `json:"duration_ms"`
}

// ClassifyRequest 食材分類請求
type ClassifyRequest struct {
	Name        string `json:"name"`
	Ingredients string `json:"ingredients" binding:"required"`
}

// ClassifyResponse 分類結果與命中的成分
type ClassifyResponse struct {
	Tags          []string `json:"tags"`
	Preferences   string   `json:"preferences"`
	NonVegan      []string `json:"non_vegan"`
	NonVegetarian []string `json:"non_vegetarian"`
}

// Handler 目錄處理器
type Handler struct {
	reconciler *catalogService.Reconciler
	cleaner    *cleanup.Cleaner
	service    *recommend.Service
	now        func() time.Time
}

// NewHandler 建立目錄處理器
func NewHandler(r *catalogService.Reconciler, cl *cleanup.Cleaner, svc *recommend.Service) *Handler {
	return &Handler{
		reconciler: r,
		cleaner:    cl,
		service:    svc,
		now:        time.Now,
	}
}

// Reconcile POST /catalog/reconcile。部分項目失敗時仍回 200，失敗內容放在 errors。
func (h *Handler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if err := common.DecodeJSONStrict(c.Request.Body, &req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}
	if req.Foods == nil {
		handlers.RespondBadRequest(c, errors.New("foods is required"))
		return
	}

	scrape.Prepare(req.Foods)
	batch := catalogService.NewBatch()
	for _, f := range req.Foods {
		batch.Add(f)
	}

	common.LogInfo("開始合併目錄",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("foods", batch.Len()),
		zap.Int("entries", batch.EntryCount()),
	)

	report := h.reconciler.Reconcile(c.Request.Context(), batch.Foods())
	if report.FoodsCreated > 0 || report.EntriesInserted > 0 {
		h.service.InvalidateCatalog(c.Request.Context())
	}

	errs := report.Errors
	if errs == nil {
		errs = []catalogService.ItemError{}
	}
	c.JSON(http.StatusOK, ReconcileResponse{
		FoodsCreated:    report.FoodsCreated,
		FoodsMatched:    report.FoodsMatched,
		EntriesInserted: report.EntriesInserted,
		EntriesSkipped:  report.EntriesSkipped,
		Errors:          errs,
		DurationMS:      report.Duration.Milliseconds(),
	})
}

// ListFoods GET /catalog/foods，可用 name 做不分大小寫的篩選
func (h *Handler) ListFoods(c *gin.Context) {
	foods, err := h.service.Catalog(c.Request.Context())
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	if q := strings.TrimSpace(c.Query("name")); q != "" {
		filtered := make([]common.FoodItem, 0, len(foods))
		for _, f := range foods {
			if common.ContainsFold(f.Name, q) {
				filtered = append(filtered, f)
			}
		}
		foods = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"count": len(foods),
		"foods": foods,
	})
}

// Classify POST /classify
func (h *Handler) Classify(c *gin.Context) {
	var req ClassifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}

	tags := classifier.Classify(req.Ingredients, req.Name)
	nonVegan, nonVegetarian := classifier.Matched(req.Ingredients)
	c.JSON(http.StatusOK, ClassifyResponse{
		Tags:          append([]string{}, tags...),
		Preferences:   tags.String(),
		NonVegan:      append([]string{}, nonVegan...),
		NonVegetarian: append([]string{}, nonVegetarian...),
	})
}

// Cleanup POST /catalog/cleanup
func (h *Handler) Cleanup(c *gin.Context) {
	report, err := h.cleaner.Run(c.Request.Context(), h.now())
	if report != nil && report.Deleted > 0 {
		h.service.InvalidateCatalog(c.Request.Context())
	}
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
