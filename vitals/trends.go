package vitals

import (
	"fmt"
	"math"
)

const (
	// MinTrendReadings is how many readings AnalyzeTrends needs before it says anything.
	MinTrendReadings = 3
	trendWindow      = 7
)

// Prediction flags a worrying pattern across recent readings.
type Prediction struct {
	Type        string   `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Prediction  string   `json:"prediction"`
	Confidence  int      `json:"confidence"`
	Actions     []string `json:"actions"`
}

// Insight is positive feedback about a consistent habit.
type Insight struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Tip         string `json:"tip"`
}

// TrendReport is the outcome of AnalyzeTrends.
type TrendReport struct {
	Window      int          `json:"window"`
	Predictions []Prediction `json:"predictions"`
	Insights    []Insight    `json:"insights"`
}

// AnalyzeTrends looks at the last seven readings of a chronological history.
// Histories shorter than MinTrendReadings produce an empty report.
func AnalyzeTrends(history []Reading) TrendReport {
	report := TrendReport{Predictions: []Prediction{}, Insights: []Insight{}}
	if len(history) < MinTrendReadings {
		return report
	}

	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}
	report.Window = len(recent)

	heartRates := make([]float64, len(recent))
	spo2 := make([]float64, len(recent))
	steps := make([]float64, len(recent))
	temps := make([]float64, len(recent))
	for i, r := range recent {
		heartRates[i] = r.HeartRate
		spo2[i] = r.SpO2
		steps[i] = float64(r.Steps)
		temps[i] = r.TemperatureF
	}

	if change := delta(heartRates); change > 10 {
		report.Predictions = append(report.Predictions, Prediction{
			Type:        "warning",
			Title:       "Rising Heart Rate Pattern",
			Description: fmt.Sprintf("Your heart rate has increased by %.1f bpm over the last week", change),
			Prediction:  "Possible stress, overexertion, or early illness in 2-3 days",
			Confidence:  75,
			Actions: []string{
				"Ensure adequate rest and sleep",
				"Reduce physical exertion",
				"Monitor for other symptoms",
				"Consider stress management techniques",
			},
		})
	}

	if change := delta(spo2); change < -2 {
		report.Predictions = append(report.Predictions, Prediction{
			Type:        "danger",
			Title:       "Oxygen Level Declining",
			Description: fmt.Sprintf("SpO2 has decreased by %.1f%% over the last week", math.Abs(change)),
			Prediction:  "Possible respiratory issue developing",
			Confidence:  80,
			Actions: []string{
				"Ensure good ventilation indoors",
				"Avoid polluted environments",
				"Practice deep breathing exercises",
				"Consult doctor if continues declining",
			},
		})
	}

	if change := delta(steps); change < -2000 {
		report.Predictions = append(report.Predictions, Prediction{
			Type:        "warning",
			Title:       "Decreased Physical Activity",
			Description: fmt.Sprintf("Daily steps dropped by %.0f on average", math.Abs(change)),
			Prediction:  "May indicate fatigue or low energy - possible illness in 1-3 days",
			Confidence:  70,
			Actions: []string{
				"Listen to your body - rest if needed",
				"Maintain light activity if possible",
				"Stay hydrated",
				"Monitor energy levels",
			},
		})
	}

	if sd := stdDev(temps); sd > 1.5 {
		report.Predictions = append(report.Predictions, Prediction{
			Type:        "warning",
			Title:       "Unstable Body Temperature",
			Description: fmt.Sprintf("Temperature varying more than usual (±%.1f°F)", sd),
			Prediction:  "May indicate immune system fighting something",
			Confidence:  65,
			Actions: []string{
				"Monitor temperature regularly",
				"Stay hydrated",
				"Get adequate sleep",
				"Consider vitamin C supplementation",
			},
		})
	}

	if all(heartRates, func(v float64) bool { return v >= HeartRateMin && v <= HeartRateMax }) {
		report.Insights = append(report.Insights, Insight{
			Title:       "Excellent Heart Rate Stability",
			Description: "Your heart rate has been consistently in the healthy range",
			Tip:         "Keep up your current exercise and stress management routine!",
		})
	}
	if all(steps, func(v float64) bool { return v >= 8000 }) {
		report.Insights = append(report.Insights, Insight{
			Title:       "Outstanding Activity Level",
			Description: "You're consistently hitting 8000+ steps daily",
			Tip:         "Your cardiovascular health is likely improving!",
		})
	}
	if all(spo2, func(v float64) bool { return v >= SpO2Min }) {
		report.Insights = append(report.Insights, Insight{
			Title:       "Perfect Oxygen Levels",
			Description: "SpO2 consistently above 95% - excellent respiratory health",
			Tip:         "Your breathing exercises or cardio is paying off!",
		})
	}

	return report
}

// delta is last minus first.
func delta(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	return values[len(values)-1] - values[0]
}

func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		sq += (v - mean) * (v - mean)
	}
	return math.Sqrt(sq / float64(len(values)))
}

func all(values []float64, ok func(float64) bool) bool {
	for _, v := range values {
		if !ok(v) {
			return false
		}
	}
	return true
}
