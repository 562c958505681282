// Package handlers API 處理器共用的回應格式
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"illineats/internal/pkg/common"
)

// RespondError 依錯誤類型回傳對應的狀態碼與 ErrorResponse
func RespondError(c *gin.Context, err error) {
	status := common.StatusOf(err)
	resp := common.ErrorResponse{
		Code:    common.ErrCodeInternalError,
		Message: common.ErrInternalError.Message,
	}

	var ce *common.CustomError
	switch {
	case errors.As(err, &ce):
		resp.Code = ce.Code
		resp.Message = ce.Message
	case common.IsStoreWriteError(err):
		resp.Code = common.ErrStoreWrite.Code
		resp.Message = common.ErrStoreWrite.Message
	case common.IsValidationError(err):
		resp.Code = common.ErrCodeInvalidRequest
		resp.Message = err.Error()
	}

	if gin.Mode() != gin.ReleaseMode && resp.Message != err.Error() {
		resp.Details = err.Error()
	}

	if status >= http.StatusInternalServerError {
		common.LogError("請求處理失敗",
			zap.String("request_id", requestid.Get(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, resp)
}

// RespondBadRequest 請求格式錯誤
func RespondBadRequest(c *gin.Context, err error) {
	common.LogWarn("請求格式無效",
		zap.String("request_id", requestid.Get(c)),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrorResponse{
		Code:    common.ErrCodeInvalidRequest,
		Message: common.ErrInvalidRequest.Message,
		Details: err.Error(),
	})
}
