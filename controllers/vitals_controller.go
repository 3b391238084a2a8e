package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/utils"
	"github.com/healthmate/healthmate/vitals"
)

// VitalsController records readings and answers questions about them.
type VitalsController struct {
	svc *progress.Service
}

// NewVitalsController creates a new VitalsController instance.
func NewVitalsController(svc *progress.Service) *VitalsController {
	return &VitalsController{svc: svc}
}

type readingResponse struct {
	vitals.Reading
	BloodPressure string         `json:"bp"`
	Alerts        []vitals.Alert `json:"alerts"`
	Points        int            `json:"points"`
}

func newReadingResponse(r vitals.Reading) readingResponse {
	return readingResponse{
		Reading:       r,
		BloodPressure: r.BloodPressure(),
		Alerts:        vitals.Evaluate(r),
		Points:        gamify.PointsForReading(r),
	}
}

// Record stores a reading for the caller and returns the progress summary.
// The server clock decides the reading's day; a client supplied taken_at is ignored.
func (v *VitalsController) Record(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	var in vitals.Input
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	in.TakenAt = nil

	reading, err := in.Reading(time.Time{})
	if err != nil {
		respondProgressError(ctx, err)
		return
	}

	summary, err := v.svc.Record(ctx.Request.Context(), userID, reading)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}
	utils.Created(ctx, summary)
}

// List returns the caller's readings newest first, each with its alerts.
func (v *VitalsController) List(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	p, err := v.svc.Progress(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}

	total := len(p.History)
	items := []readingResponse{}
	for i := total - 1 - (page-1)*pageSize; i >= 0 && len(items) < pageSize; i-- {
		items = append(items, newReadingResponse(p.History[i]))
	}
	utils.Paginated(ctx, items, int64(total), page, pageSize)
}

// Evaluate grades a reading without storing it.
func (v *VitalsController) Evaluate(ctx *gin.Context) {
	var in vitals.Input
	if err := ctx.ShouldBindJSON(&in); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40021, "invalid request payload")
		return
	}
	reading, err := in.Reading(time.Now())
	if err != nil {
		respondProgressError(ctx, err)
		return
	}

	utils.Success(ctx, gin.H{
		"alerts":       vitals.Evaluate(reading),
		"points":       gamify.PointsForReading(reading),
		"health_score": gamify.HealthScore(reading),
		"critical":     vitals.Critical(reading),
	})
}

// Insights runs trend analysis over the caller's history.
func (v *VitalsController) Insights(ctx *gin.Context) {
	userID, ok := mustUserID(ctx)
	if !ok {
		return
	}

	p, err := v.svc.Progress(ctx.Request.Context(), userID)
	if err != nil {
		respondProgressError(ctx, err)
		return
	}

	report := vitals.AnalyzeTrends(p.History)
	if len(p.History) < vitals.MinTrendReadings {
		utils.Success(ctx, gin.H{
			"report":  report,
			"message": "Log at least 3 readings to unlock trend insights.",
		})
		return
	}
	utils.Success(ctx, gin.H{"report": report})
}
