package vitals

import (
	"fmt"
	"strconv"
	"time"
)

// Clinical thresholds used by Evaluate.
const (
	HeartRateMin     = 60
	HeartRateMax     = 100
	SpO2Min          = 95
	SystolicHigh     = 140
	DiastolicHigh    = 90
	SystolicLow      = 90
	DiastolicLow     = 60
	FeverF           = 100.4
	HypothermiaF     = 95
	ActiveStepsDaily = 5000
)

// Kind identifies which rule produced an alert.
type Kind string

const (
	KindAbnormalHeartRate Kind = "abnormal_heart_rate"
	KindLowOxygen         Kind = "low_oxygen"
	KindHighBloodPressure Kind = "high_blood_pressure"
	KindLowBloodPressure  Kind = "low_blood_pressure"
	KindFever             Kind = "fever"
	KindHypothermia       Kind = "hypothermia"
	KindLowActivity       Kind = "low_activity"
)

// Severity separates clinical alerts from lifestyle nudges.
type Severity string

const (
	SeverityClinical      Severity = "clinical"
	SeverityInformational Severity = "informational"
)

// Alert is a human readable finding about one reading.
type Alert struct {
	Kind     Kind     `json:"kind"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    string   `json:"value"`
}

// Evaluate applies the fixed threshold table to a reading. The result is empty
// when every vital is in range, and never nil.
func Evaluate(r Reading) []Alert {
	alerts := []Alert{}

	if r.HeartRate < HeartRateMin || r.HeartRate > HeartRateMax {
		v := formatFloat(r.HeartRate)
		alerts = append(alerts, clinical(KindAbnormalHeartRate, v, fmt.Sprintf("Abnormal heart rate: %s bpm", v)))
	}

	if r.SpO2 < SpO2Min {
		v := formatFloat(r.SpO2)
		alerts = append(alerts, clinical(KindLowOxygen, v, fmt.Sprintf("Low oxygen saturation: %s%%", v)))
	}

	bp := r.BloodPressure()
	switch {
	case r.Systolic > SystolicHigh || r.Diastolic > DiastolicHigh:
		alerts = append(alerts, clinical(KindHighBloodPressure, bp, fmt.Sprintf("High blood pressure: %s mmHg", bp)))
	case r.Systolic < SystolicLow || r.Diastolic < DiastolicLow:
		alerts = append(alerts, clinical(KindLowBloodPressure, bp, fmt.Sprintf("Low blood pressure: %s mmHg", bp)))
	}

	temp := formatFloat(r.TemperatureF)
	switch {
	case r.TemperatureF > FeverF:
		alerts = append(alerts, clinical(KindFever, temp, fmt.Sprintf("Fever: %s°F", temp)))
	case r.TemperatureF < HypothermiaF:
		alerts = append(alerts, clinical(KindHypothermia, temp, fmt.Sprintf("Hypothermia: %s°F", temp)))
	}

	if r.Steps < ActiveStepsDaily {
		steps := strconv.Itoa(r.Steps)
		alerts = append(alerts, Alert{
			Kind:     KindLowActivity,
			Severity: SeverityInformational,
			Message:  fmt.Sprintf("Low activity: only %s steps today", steps),
			Value:    steps,
		})
	}

	return alerts
}

// EvaluateInput parses a raw payload and evaluates it. A blood pressure that
// cannot be split into two integers yields a *FormatError.
func EvaluateInput(in Input) ([]Alert, error) {
	r, err := in.Reading(time.Time{})
	if err != nil {
		return nil, err
	}
	return Evaluate(r), nil
}

// HasKind reports whether alerts contains an alert of the given kind.
func HasKind(alerts []Alert, kind Kind) bool {
	for _, a := range alerts {
		if a.Kind == kind {
			return true
		}
	}
	return false
}

// Messages flattens alerts into their display strings.
func Messages(alerts []Alert) []string {
	out := make([]string, 0, len(alerts))
	for _, a := range alerts {
		out = append(out, a.Message)
	}
	return out
}

func clinical(kind Kind, value, msg string) Alert {
	return Alert{Kind: kind, Severity: SeverityClinical, Message: msg, Value: value}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
