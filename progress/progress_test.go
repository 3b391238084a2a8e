package progress

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthmate/healthmate/gamify"
	"github.com/healthmate/healthmate/vitals"
)

func healthyAt(ts time.Time) vitals.Reading {
	return vitals.Reading{HeartRate: 72, SpO2: 98, Systolic: 118, Diastolic: 76, TemperatureF: 98.6, Steps: 6000, TakenAt: ts}
}

func seeded(streak, points int, last string) UserProgress {
	d := gamify.MustDate(last)
	return UserProgress{
		CurrentStreakDays: streak,
		LongestStreakDays: streak,
		LastLogDate:       &d,
		TotalPoints:       points,
		History:           []vitals.Reading{healthyAt(d.Time())},
	}
}

func TestRecordReadingNextDay(t *testing.T) {
	p := seeded(2, 40, "2024-01-05")
	today := gamify.MustDate("2024-01-06")

	next, sum := RecordReading(p, healthyAt(today.Time()), today)

	assert.Equal(t, 3, sum.NewStreak)
	assert.Equal(t, 35, sum.PointsEarned)
	assert.Equal(t, 75, sum.TotalPoints)
	assert.Equal(t, []string{"Getting Started"}, gamify.BadgeNames(sum.Badges))
	assert.Empty(t, sum.Alerts)
	assert.Nil(t, sum.Critical)
	assert.Equal(t, gamify.Level{Level: 1, ProgressWithinLevel: 75, Title: "Beginner"}, sum.Level)

	require.NotNil(t, next.LastLogDate)
	assert.Equal(t, today, *next.LastLogDate)
	assert.Len(t, next.History, 2)
	assert.Equal(t, 3, next.LongestStreakDays)
}

func TestRecordReadingAfterGap(t *testing.T) {
	p := seeded(2, 40, "2024-01-05")
	today := gamify.MustDate("2024-01-09")

	next, sum := RecordReading(p, healthyAt(today.Time()), today)

	assert.Equal(t, 1, sum.NewStreak)
	assert.NotNil(t, sum.Badges)
	assert.Empty(t, sum.Badges)
	assert.Equal(t, 2, next.LongestStreakDays)
}

func TestRecordReadingFirstEver(t *testing.T) {
	today := gamify.MustDate("2024-03-01")
	r := healthyAt(today.Time())
	r.HeartRate = 45
	r.Systolic, r.Diastolic = 150, 95

	next, sum := RecordReading(UserProgress{}, r, today)

	assert.Equal(t, 1, sum.NewStreak)
	assert.Equal(t, 1, next.CurrentStreakDays)
	assert.Equal(t, 30, sum.PointsEarned)
	kinds := []vitals.Kind{}
	for _, a := range sum.Alerts {
		kinds = append(kinds, a.Kind)
	}
	assert.Equal(t, []vitals.Kind{vitals.KindAbnormalHeartRate, vitals.KindHighBloodPressure}, kinds)
}

func TestRecordReadingSameDayKeepsStreak(t *testing.T) {
	p := seeded(4, 100, "2024-01-05")
	today := gamify.MustDate("2024-01-05")

	next, sum := RecordReading(p, healthyAt(today.Time().Add(3*time.Hour)), today)

	assert.Equal(t, 4, sum.NewStreak)
	assert.Equal(t, 135, next.TotalPoints)
	assert.Equal(t, gamify.Level{Level: 2, ProgressWithinLevel: 35, Title: "Active"}, sum.Level)
}

func TestRecordReadingRepairsZeroStreak(t *testing.T) {
	d := gamify.MustDate("2024-01-05")
	p := UserProgress{LastLogDate: &d}

	next, _ := RecordReading(p, healthyAt(d.Time()), d)
	assert.Equal(t, 1, next.CurrentStreakDays)
}

func TestRecordReadingLeavesInputUntouched(t *testing.T) {
	p := seeded(2, 40, "2024-01-05")
	p.History = make([]vitals.Reading, 1, 8) // spare capacity must not be shared
	p.History[0] = healthyAt(p.LastLogDate.Time())
	before := clone(p)

	today := gamify.MustDate("2024-01-06")
	next, _ := RecordReading(p, healthyAt(today.Time()), today)
	next.History[0].Steps = 1

	assert.Equal(t, before, p)
	assert.Len(t, p.History, 1)
}

func TestRecordReadingProperties(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())
	start := gamify.MustDate("2024-01-01")

	properties.Property("points never decrease and history grows by one", prop.ForAll(
		func(streak, points, gap, steps int, hr float64) bool {
			p := seeded(streak, points, start.String())
			today := start.AddDays(gap)
			r := healthyAt(today.Time())
			r.Steps = steps
			r.HeartRate = hr

			next, sum := RecordReading(p, r, today)
			return next.TotalPoints >= p.TotalPoints &&
				sum.TotalPoints == next.TotalPoints &&
				len(next.History) == len(p.History)+1 &&
				next.LongestStreakDays >= next.CurrentStreakDays &&
				next.CurrentStreakDays >= 1 &&
				*next.LastLogDate == today
		},
		gen.IntRange(1, 60), gen.IntRange(0, 5000), gen.IntRange(0, 10),
		gen.IntRange(0, 20000), gen.Float64Range(30, 200),
	))

	properties.TestingRun(t)
}

func TestSnapshot(t *testing.T) {
	p := seeded(8, 260, "2024-01-05")
	snap := p.Snapshot()

	assert.Equal(t, 8, snap.CurrentStreakDays)
	assert.Equal(t, 3, snap.Level.Level)
	assert.Equal(t, "Fit Champ", snap.Level.Title)
	assert.Equal(t, []string{"Getting Started", "Consistency Hero"}, gamify.BadgeNames(snap.Badges))
	require.NotNil(t, snap.NextBadge)
	assert.Equal(t, "Wellness Warrior", snap.NextBadge.Name)
	assert.Equal(t, 1, snap.Readings)
}
