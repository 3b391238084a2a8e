package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
)

// ProgressController exposes streaks, points and badges.
type ProgressController struct {
	svc *progress.Service
}

// NewProgressController creates a new ProgressController instance.
func NewProgressController(svc *progress.Service) *ProgressController {
	return &ProgressController{svc: svc}
}

// Get returns the caller's progress snapshot.
func (p *ProgressController) Get(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	snap, err := p.svc.Snapshot(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}
	utils.Success(ctx, snap)
}

type rewardBadge struct {
	gamify.Badge
	Unlocked bool `json:"unlocked"`
}

// Rewards lists every badge with its unlocked flag next to the level.
func (p *ProgressController) Rewards(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	snap, err := p.svc.Snapshot(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}

	badges := []rewardBadge{}
	for _, b := range gamify.Badges() {
		badges = append(badges, rewardBadge{Badge: b, Unlocked: b.RequiredStreakDays <= snap.CurrentStreakDays})
	}
	utils.Success(ctx, gin.H{
		"badges":       badges,
		"next_badge":   snap.NextBadge,
		"streak":       snap.CurrentStreakDays,
		"total_points": snap.TotalPoints,
		"level":        snap.Level,
	})
}
