package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/healthmate/healthmate/middleware"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
	"github.com/healthmate/healthmate/vitals"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func getUserID(ctx *gin.Context) (uint, bool) {
	value, exists := ctx.Get(middleware.ContextUserIDKey)
	if !exists {
		return 0, false
	}

	switch v := value.(type) {
	case uint:
		return v, true
	case int:
		return uint(v), true
	case int64:
		return uint(v), true
	case float64:
		return uint(v), true
	default:
		return 0, false
	}
}

func mustUserID(ctx *gin.Context) (uint, bool) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
	}
	return userID, ok
}

// respondProgressError maps domain failures onto status and business codes.
func respondProgressError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, vitals.ErrInvalidReading):
		utils.Error(ctx, http.StatusBadRequest, 40020, err.Error())
	case errors.Is(err, progress.ErrUnknownUser):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, progress.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40901, "progress changed concurrently, please resubmit")
	case errors.Is(err, progress.ErrHistoryRewrite):
		utils.Error(ctx, http.StatusConflict, 40902, "reading history is append-only")
	case errors.Is(err, progress.ErrPersistenceTimeout):
		utils.Error(ctx, http.StatusGatewayTimeout, 50401, "progress storage timed out")
	default:
		utils.Logger.Error("progress request failed", zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, 50020, "failed to update progress")
	}
}
