// Package chat answers health questions with fixed rules over the user's
// latest reading. Questions outside the health domain get a redirect.
package chat

import (
	"regexp"
	"strings"

	"github.com/healthmate/healthmate/vitals"
)

var healthTopics = regexp.MustCompile(`(?i)(health|diet|sleep|exercise|heart|bp|blood pressure|oxygen|spo2|body|fitness|food|calories|hydration|water|vitamin|nutrition|workout|cardio|weight|bmi|stress|mental|wellness|vitals|temperature|fever|steps|walk|run|sugar|diabetes|cholesterol|medicine|doctor|symptoms|pain|fatigue|energy)`)

const (
	GreetingReply = "👋 Hello! What would you like to know about your health today?"

	OffTopicReply = "I'm your HealthMate assistant 🤖 and I specialise in health and wellness topics!\n\n" +
		"I can help you with:\n" +
		"• Understanding your vitals 💓\n" +
		"• Nutrition advice 🥗\n" +
		"• Exercise tips 🏃\n" +
		"• Sleep improvement 😴\n" +
		"• General wellness 🌟\n\n" +
		`Try asking: "Is my heart rate normal?" or "How can I improve my sleep?"`

	DefaultReply = "I'm here to help with your vitals. Try asking about heart rate, SpO₂, BP, or temperature."
	noVitalsReply = "I don't have a reading from you yet. Log your vitals and ask me again!"
)

// Reply is the assistant's answer.
type Reply struct {
	Text    string `json:"reply"`
	OnTopic bool   `json:"on_topic"`
}

// IsHealthRelated reports whether msg mentions a health topic.
func IsHealthRelated(msg string) bool {
	return healthTopics.MatchString(msg)
}

// Answer replies to msg using latest, which may be nil when the user has not
// logged anything.
func Answer(msg string, latest *vitals.Reading) Reply {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return Reply{Text: GreetingReply, OnTopic: true}
	}
	if !IsHealthRelated(msg) {
		return Reply{Text: OffTopicReply}
	}
	return Reply{Text: ruleReply(strings.ToLower(msg), latest), OnTopic: true}
}

func ruleReply(text string, r *vitals.Reading) string {
	switch {
	case strings.Contains(text, "heart"):
		if r == nil {
			return noVitalsReply
		}
		if r.HeartRate > 120 {
			return "Your heart rate is high. Try relaxing and deep breathing."
		}
		if r.HeartRate < 50 {
			return "Your heart rate is quite low. Make sure you're hydrated and rested."
		}
		return "Your heart rate looks okay right now."

	case strings.Contains(text, "spo2"), strings.Contains(text, "oxygen"):
		if r == nil {
			return noVitalsReply
		}
		if r.SpO2 < vitals.SpO2Min {
			return "Low SpO₂ detected. Try breathing exercises or check the sensor placement."
		}
		return "Your oxygen levels seem normal. Keep it up!"

	case strings.Contains(text, "fever"), strings.Contains(text, "temperature"):
		if r == nil {
			return noVitalsReply
		}
		if r.TemperatureF > vitals.FeverF {
			return "You might have a fever. Stay hydrated and rest."
		}
		return "Your temperature is normal."

	case strings.Contains(text, "pressure"), strings.Contains(text, "bp"):
		if r == nil {
			return "Please log your blood pressure first."
		}
		if r.Systolic > vitals.SystolicHigh || r.Diastolic > vitals.DiastolicHigh {
			return "High blood pressure detected. Consider relaxation and a low-salt diet."
		}
		return "Your BP seems stable."

	case strings.Contains(text, "steps"), strings.Contains(text, "walk"):
		return "Regular walking helps maintain a healthy heart. Aim for 8-10k steps per day!"
	}
	return DefaultReply
}
