package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/progress"
	"github.com/healthmate/healthmate/vitals"
)

// Context is shared by every command.
type Context struct {
	Out      io.Writer
	Log      *zap.Logger
	Timezone string
}

func (c *Context) location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("unknown timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Context) emit(v interface{}) error {
	enc := json.NewEncoder(c.Out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type EvaluateCmd struct {
	HeartRate   string `help:"Heart rate in bpm." name:"heart-rate" required:""`
	SpO2        string `help:"Blood oxygen saturation in percent." name:"spo2" required:""`
	BP          string `help:"Blood pressure as systolic/diastolic, e.g. 120/80." name:"bp" required:""`
	Temperature string `help:"Body temperature in Fahrenheit." name:"temp" required:""`
	Steps       string `help:"Steps walked today." default:"0"`
}

type evaluation struct {
	Alerts      []vitals.Alert        `json:"alerts"`
	Points      int                   `json:"points"`
	HealthScore int                   `json:"health_score"`
	Level       gamify.Level          `json:"level_if_first_log"`
	Critical    *vitals.CriticalIssue `json:"critical,omitempty"`
}

func (e *EvaluateCmd) Run(ctx *Context) error {
	in := vitals.Input{
		HeartRate:     vitals.Text(e.HeartRate),
		SpO2:          vitals.Text(e.SpO2),
		BloodPressure: vitals.Text(e.BP),
		TemperatureF:  vitals.Text(e.Temperature),
		Steps:         vitals.Text(e.Steps),
	}
	r, err := in.Reading(time.Now())
	if err != nil {
		return err
	}

	points := gamify.PointsForReading(r)
	ctx.Log.Debug("evaluated reading", zap.Float64("heart_rate", r.HeartRate), zap.Int("points", points))
	return ctx.emit(evaluation{
		Alerts:      vitals.Evaluate(r),
		Points:      points,
		HealthScore: gamify.HealthScore(r),
		Level:       gamify.LevelForPoints(points),
		Critical:    vitals.Critical(r),
	})
}

type ReplayCmd struct {
	File string `arg:"" help:"JSON array of readings; each may carry a user id." type:"existingfile"`
}

// replayEntry is one line of a replay file. User defaults to 1.
type replayEntry struct {
	User uint `json:"user"`
	vitals.Input
}

type replayResult struct {
	User    uint             `json:"user"`
	Day     gamify.Date      `json:"day"`
	Summary progress.Summary `json:"summary"`
}

func (c *ReplayCmd) Run(ctx *Context) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()
	return replay(ctx, f)
}

func replay(ctx *Context, r io.Reader) error {
	var entries []replayEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return fmt.Errorf("decode readings: %w", err)
	}
	loc, err := ctx.location()
	if err != nil {
		return err
	}

	svc := progress.NewService(progress.NewMemoryStore(),
		progress.WithLocation(loc),
		progress.WithLogger(ctx.Log),
	)

	bg := context.Background()
	results := make([]replayResult, 0, len(entries))
	for i, e := range entries {
		if e.User == 0 {
			e.User = 1
		}
		reading, err := e.Input.Reading(time.Now())
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		sum, err := svc.Record(bg, e.User, reading)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		ctx.Log.Debug("replayed reading", zap.Int("entry", i), zap.Uint("user", e.User), zap.Int("streak", sum.NewStreak))
		results = append(results, replayResult{User: e.User, Day: gamify.DateIn(reading.TakenAt, loc), Summary: sum})
	}
	return ctx.emit(results)
}
