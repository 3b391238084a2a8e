package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/healthmate/healthmate/models"
	"github.com/healthmate/healthmate/utils"
)

const (
	statsCacheKey = "cache:stats:global"
	statsCacheTTL = time.Minute
)

// StatsController provides aggregate statistics such as user and reading counts.
type StatsController struct {
	db    *gorm.DB
	cache *utils.RedisCache
	now   func() time.Time
}

// NewStatsController creates a new StatsController instance. cache may be nil.
func NewStatsController(db *gorm.DB, cache *utils.RedisCache) *StatsController {
	return &StatsController{db: db, cache: cache, now: time.Now}
}

type stats struct {
	UserCount     int64 `json:"user_count"`
	ReadingCount  int64 `json:"reading_count"`
	ReadingsToday int64 `json:"readings_today"`
	ActiveToday   int64 `json:"active_today"`
}

// GetStats returns aggregate statistics for the service.
func (s *StatsController) GetStats(ctx *gin.Context) {
	var out stats
	if s.cache.GetJSON(ctx.Request.Context(), statsCacheKey, &out) {
		utils.Success(ctx, out)
		return
	}

	if err := s.db.Model(&models.User{}).Count(&out.UserCount).Error; err != nil {
		// Fallback to 0 instead of failing the whole endpoint
		out.UserCount = 0
	}
	if err := s.db.Model(&models.VitalsRecord{}).Count(&out.ReadingCount).Error; err != nil {
		out.ReadingCount = 0
	}

	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := s.db.Model(&models.VitalsRecord{}).Where("taken_at >= ?", start).Count(&out.ReadingsToday).Error; err != nil {
		out.ReadingsToday = 0
	}
	if err := s.db.Model(&models.VitalsRecord{}).Where("taken_at >= ?", start).Distinct("user_id").Count(&out.ActiveToday).Error; err != nil {
		out.ActiveToday = 0
	}

	s.cache.SetJSON(ctx.Request.Context(), statsCacheKey, out, statsCacheTTL)
	utils.Success(ctx, out)
}
