package vitals

import "fmt"

// CriticalIssue describes a reading that needs immediate attention rather than a routine alert.
type CriticalIssue struct {
	Issue    string   `json:"issue"`
	Value    string   `json:"value"`
	Action   string   `json:"action"`
	FirstAid []string `json:"first_aid"`
}

var (
	heartFirstAid = []string{
		"Sit down immediately and stay calm",
		"Loosen tight clothing around neck/chest",
		"Take slow, deep breaths",
		"Do NOT exercise or exert yourself",
		"Have someone stay with you",
	}
	oxygenFirstAid = []string{
		"Sit upright immediately",
		"Open windows for fresh air",
		"Remove tight clothing",
		"Use prescribed oxygen if available",
		"Do NOT lie down flat",
	}
	feverFirstAid = []string{
		"Remove excess clothing",
		"Apply cool, wet cloths to forehead/neck",
		"Drink cool water slowly",
		"Take acetaminophen if available",
		"Do NOT use ice or cold bath",
	}
	generalFirstAid = []string{
		"Stay calm and sit down",
		"Call emergency services",
		"Note time symptoms started",
		"Gather medications list",
		"Have someone stay with you",
	}
)

// Critical returns the most urgent emergency-level finding for r, or nil.
// Checks run in a fixed order and the first match wins.
func Critical(r Reading) *CriticalIssue {
	hr := formatFloat(r.HeartRate)
	switch {
	case r.HeartRate > 150:
		return &CriticalIssue{Issue: "Dangerously High Heart Rate", Value: hr + " bpm", Action: "Tachycardia detected", FirstAid: heartFirstAid}
	case r.HeartRate < 40:
		return &CriticalIssue{Issue: "Critically Low Heart Rate", Value: hr + " bpm", Action: "Bradycardia detected", FirstAid: heartFirstAid}
	case r.SpO2 < 90:
		return &CriticalIssue{Issue: "Oxygen Emergency", Value: formatFloat(r.SpO2) + "%", Action: "Severe hypoxemia", FirstAid: oxygenFirstAid}
	case r.TemperatureF > 103:
		return &CriticalIssue{Issue: "High Fever Emergency", Value: formatFloat(r.TemperatureF) + "°F", Action: "Dangerously high temperature", FirstAid: feverFirstAid}
	case r.Systolic > 180 || r.Diastolic > 120:
		return &CriticalIssue{Issue: "Hypertensive Crisis", Value: r.BloodPressure(), Action: "Extremely high blood pressure", FirstAid: generalFirstAid}
	}
	return nil
}

// EmergencyMessage renders the notification body sent to an emergency contact.
func EmergencyMessage(name string, issue *CriticalIssue, r Reading) string {
	if name == "" {
		name = "the user"
	}
	return fmt.Sprintf("HEALTH EMERGENCY ALERT\n\n%s: %s\n\nVitals:\nHeart Rate: %s bpm\nSpO2: %s%%\nBP: %s\nTemp: %s°F\n\nTime: %s\n\nPlease check on %s immediately.",
		issue.Issue, issue.Value,
		formatFloat(r.HeartRate), formatFloat(r.SpO2), r.BloodPressure(), formatFloat(r.TemperatureF),
		r.TakenAt.Format("2006-01-02 15:04:05"), name)
}
