package gamify

import "github.com/healthmate/healthmate/vitals"

// Point awards for a single reading.
const (
	BasePoints       = 10
	HeartRateBonus   = 5
	SpO2Bonus        = 5
	TemperatureBonus = 5
	StepsBonus       = 10
	MaxPoints        = BasePoints + HeartRateBonus + SpO2Bonus + TemperatureBonus + StepsBonus

	PointsPerLevel = 100
)

// PointsForReading awards the base points for logging plus an independent
// bonus for each vital in its healthy band.
func PointsForReading(r vitals.Reading) int {
	points := BasePoints
	if r.HeartRate >= vitals.HeartRateMin && r.HeartRate <= vitals.HeartRateMax {
		points += HeartRateBonus
	}
	if r.SpO2 >= vitals.SpO2Min {
		points += SpO2Bonus
	}
	if r.TemperatureF >= 97 && r.TemperatureF <= 99 {
		points += TemperatureBonus
	}
	if r.Steps > vitals.ActiveStepsDaily {
		points += StepsBonus
	}
	return points
}

// HealthScore grades a reading from 0 to 100, 20 per vital in its normal band.
func HealthScore(r vitals.Reading) int {
	score := 0
	if r.HeartRate >= vitals.HeartRateMin && r.HeartRate <= vitals.HeartRateMax {
		score += 20
	}
	if r.SpO2 >= vitals.SpO2Min {
		score += 20
	}
	if r.TemperatureF >= 97 && r.TemperatureF <= 99 {
		score += 20
	}
	if r.Steps >= vitals.ActiveStepsDaily {
		score += 20
	}
	if r.Systolic >= 90 && r.Systolic <= 120 && r.Diastolic >= 60 && r.Diastolic <= 80 {
		score += 20
	}
	return score
}

// Level is the coarse progression tier derived from total points.
type Level struct {
	Level               int    `json:"level"`
	ProgressWithinLevel int    `json:"progress_within_level"`
	Title               string `json:"title"`
}

// LevelForPoints gives one level per hundred points, starting at level 1.
func LevelForPoints(points int) Level {
	if points < 0 {
		points = 0
	}
	return Level{
		Level:               points/PointsPerLevel + 1,
		ProgressWithinLevel: points % PointsPerLevel,
		Title:               LevelTitle(points),
	}
}

// LevelTitle names the player's tier.
func LevelTitle(points int) string {
	switch {
	case points < 100:
		return "Beginner"
	case points < 200:
		return "Active"
	case points < 300:
		return "Fit Champ"
	default:
		return "Health Hero"
	}
}
