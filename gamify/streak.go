package gamify

import "strconv"

// Advance returns the streak after logging on today.
//
// A first ever log starts the streak at 1, a second log on the same day leaves
// it alone, a log exactly one calendar day after the previous one extends it,
// and anything else (a gap, or a previous date in the future) restarts it at 1.
func Advance(prevStreak int, prevDate *Date, today Date) int {
	if prevDate == nil {
		return 1
	}
	switch DaysBetween(*prevDate, today) {
	case 0:
		return prevStreak
	case 1:
		return prevStreak + 1
	default:
		return 1
	}
}

// Motivation is the encouragement shown next to a streak.
func Motivation(streak int) string {
	switch {
	case streak >= 10:
		return "Incredible! " + strconv.Itoa(streak) + "-day streak, you're setting records!"
	case streak >= 5:
		return strconv.Itoa(streak) + "-day streak! You're on fire!"
	case streak >= 3:
		return strconv.Itoa(streak) + "-day streak! Keep building the habit!"
	case streak > 0:
		return "New streak started! Let's grow stronger every day!"
	default:
		return "Log your vitals today to start a streak."
	}
}
