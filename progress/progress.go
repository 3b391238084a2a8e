// Package progress folds vitals readings into a user's streak, points and
// badges, and persists the result.
package progress

import (
	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/vitals"
)

// UserProgress is everything the gamification layer knows about one user.
//
// CurrentStreakDays is zero exactly when LastLogDate is nil. History only ever
// grows, and Version is advanced by the store on each successful save.
type UserProgress struct {
	CurrentStreakDays int              `json:"current_streak_days"`
	LongestStreakDays int              `json:"longest_streak_days"`
	LastLogDate       *gamify.Date     `json:"last_log_date"`
	TotalPoints       int              `json:"total_points"`
	History           []vitals.Reading `json:"history"`
	Version           int64            `json:"version"`
}

// Summary is the outcome of recording one reading.
type Summary struct {
	NewStreak     int                   `json:"new_streak"`
	LongestStreak int                   `json:"longest_streak"`
	PointsEarned  int                   `json:"points_earned"`
	TotalPoints   int                   `json:"total_points"`
	Badges        []gamify.Badge        `json:"badges"`
	Alerts        []vitals.Alert        `json:"alerts"`
	Level         gamify.Level          `json:"level"`
	HealthScore   int                   `json:"health_score"`
	Motivation    string                `json:"motivation"`
	Critical      *vitals.CriticalIssue `json:"critical,omitempty"`
}

// RecordReading appends r to p as a log made on today and returns the updated
// progress together with its summary. p itself is left untouched.
func RecordReading(p UserProgress, r vitals.Reading, today gamify.Date) (UserProgress, Summary) {
	next := p
	next.History = make([]vitals.Reading, len(p.History), len(p.History)+1)
	copy(next.History, p.History)
	next.History = append(next.History, r)

	streak := gamify.Advance(p.CurrentStreakDays, p.LastLogDate, today)
	if streak < 1 {
		// a stored date with a zero streak is repaired by the new log
		streak = 1
	}
	next.CurrentStreakDays = streak
	if streak > next.LongestStreakDays {
		next.LongestStreakDays = streak
	}
	logged := today
	next.LastLogDate = &logged

	earned := gamify.PointsForReading(r)
	next.TotalPoints = p.TotalPoints + earned

	return next, Summary{
		NewStreak:     streak,
		LongestStreak: next.LongestStreakDays,
		PointsEarned:  earned,
		TotalPoints:   next.TotalPoints,
		Badges:        gamify.BadgesForStreak(streak),
		Alerts:        vitals.Evaluate(r),
		Level:         gamify.LevelForPoints(next.TotalPoints),
		HealthScore:   gamify.HealthScore(r),
		Motivation:    gamify.Motivation(streak),
		Critical:      vitals.Critical(r),
	}
}

// Snapshot is the read-only view of a user's progress.
type Snapshot struct {
	CurrentStreakDays int            `json:"current_streak_days"`
	LongestStreakDays int            `json:"longest_streak_days"`
	TotalPoints       int            `json:"total_points"`
	Level             gamify.Level   `json:"level"`
	Badges            []gamify.Badge `json:"badges"`
	NextBadge         *gamify.Badge  `json:"next_badge,omitempty"`
	Readings          int            `json:"readings"`
	LastLogDate       *gamify.Date   `json:"last_log_date"`
	Motivation        string         `json:"motivation"`
}

// Snapshot derives badges and level from the stored counters.
func (p UserProgress) Snapshot() Snapshot {
	return Snapshot{
		CurrentStreakDays: p.CurrentStreakDays,
		LongestStreakDays: p.LongestStreakDays,
		TotalPoints:       p.TotalPoints,
		Level:             gamify.LevelForPoints(p.TotalPoints),
		Badges:            gamify.BadgesForStreak(p.CurrentStreakDays),
		NextBadge:         gamify.NextBadge(p.CurrentStreakDays),
		Readings:          len(p.History),
		LastLogDate:       p.LastLogDate,
		Motivation:        gamify.Motivation(p.CurrentStreakDays),
	}
}

// Latest returns the most recent reading, if any.
func (p UserProgress) Latest() (vitals.Reading, bool) {
	if len(p.History) == 0 {
		return vitals.Reading{}, false
	}
	return p.History[len(p.History)-1], true
}

func clone(p UserProgress) UserProgress {
	out := p
	out.History = append([]vitals.Reading(nil), p.History...)
	if p.LastLogDate != nil {
		d := *p.LastLogDate
		out.LastLogDate = &d
	}
	return out
}
