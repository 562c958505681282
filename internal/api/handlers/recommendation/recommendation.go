package recommendation

import (
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"illineats/internal/api/handlers"
	"illineats/internal/core/recommend"
	"illineats/internal/pkg/common"
)

// GenerateRequest 產生推薦請求，type 省略時使用預設類型
type GenerateRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Type   string `json:"type,omitempty"`
}

// Response 推薦結果
type Response struct {
	ID        string   `json:"id"`
	UserID    string   `json:"user_id"`
	Type      string   `json:"type"`
	FoodIDs   []string `json:"food_ids"`
	CreatedAt string   `json:"created_at"`
}

// ScoreResponse 單一食物的分數明細
type ScoreResponse struct {
	FoodID           string  `json:"food_id"`
	Name             string  `json:"name"`
	PreferenceScore  float64 `json:"preference_score"`
	NutritionalScore float64 `json:"nutritional_score"`
	LocationScore    float64 `json:"location_score"`
	FinalScore       float64 `json:"final_score"`
}

// Handler 推薦處理器
type Handler struct {
	service *recommend.Service
}

// NewHandler 建立推薦處理器
func NewHandler(service *recommend.Service) *Handler {
	return &Handler{service: service}
}

func toResponse(rec *common.Recommendation) Response {
	ids := rec.FoodIDs
	if ids == nil {
		ids = []string{}
	}
	return Response{
		ID:        rec.ID,
		UserID:    rec.UserID,
		Type:      rec.Type,
		FoodIDs:   ids,
		CreatedAt: rec.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// Generate POST /recommendations
func (h *Handler) Generate(c *gin.Context) {
	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}

	common.LogInfo("開始產生推薦",
		zap.String("request_id", requestid.Get(c)),
		zap.String("user_id", req.UserID),
		zap.String("type", req.Type),
	)

	rec, err := h.service.Generate(c.Request.Context(), req.UserID, req.Type)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(rec))
}

// Get GET /recommendations/:user_id
func (h *Handler) Get(c *gin.Context) {
	rec, err := h.service.Get(c.Request.Context(), c.Param("user_id"), c.Query("type"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toResponse(rec))
}

// Explain GET /recommendations/:user_id/explain，只計算不寫入
func (h *Handler) Explain(c *gin.Context) {
	scored, err := h.service.Explain(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}

	out := make([]ScoreResponse, 0, len(scored))
	for _, s := range scored {
		out = append(out, ScoreResponse{
			FoodID:           s.Item.ID,
			Name:             s.Item.Name,
			PreferenceScore:  s.PreferenceScore,
			NutritionalScore: s.NutritionalScore,
			LocationScore:    s.LocationScore,
			FinalScore:       s.FinalScore,
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id": c.Param("user_id"),
		"scores":  out,
	})
}
