package user

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"illineats/internal/api/handlers"
	"illineats/internal/infrastructure/store"
	"illineats/internal/pkg/common"
)

// ProfileRequest 使用者設定
type ProfileRequest struct {
	Allergies           []string `json:"allergies"`
	DietaryRestrictions []string `json:"dietary_restrictions"`
	Goal                string   `json:"goal"`
	Preferences         []string `json:"preferences"`
	Locations           []string `json:"locations"`
}

// Handler 使用者處理器
type Handler struct {
	store store.Store
}

// NewHandler 建立使用者處理器
func NewHandler(s store.Store) *Handler {
	return &Handler{store: s}
}

// Put PUT /users/:id，整筆覆寫
func (h *Handler) Put(c *gin.Context) {
	var req ProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		handlers.RespondBadRequest(c, err)
		return
	}

	goal := common.Goal(req.Goal)
	if !goal.Valid() {
		handlers.RespondError(c, common.NewValidationError("unknown goal "+req.Goal))
		return
	}

	profile := &common.UserProfile{
		ID:                  c.Param("id"),
		Allergies:           req.Allergies,
		DietaryRestrictions: req.DietaryRestrictions,
		Goal:                goal,
		Preferences:         req.Preferences,
		Locations:           req.Locations,
	}
	if err := h.store.UpsertUser(c.Request.Context(), profile); err != nil {
		handlers.RespondError(c, err)
		return
	}

	saved, err := h.store.GetUser(c.Request.Context(), profile.ID)
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Get GET /users/:id
func (h *Handler) Get(c *gin.Context) {
	u, err := h.store.GetUser(c.Request.Context(), c.Param("id"))
	if err != nil {
		handlers.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
