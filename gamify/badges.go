package gamify

// Badge is a streak achievement. Badges are derived from the current streak on
// every read and are not stored per user.
type Badge struct {
	Name               string `json:"name"`
	RequiredStreakDays int    `json:"required_streak_days"`
	Symbol             string `json:"symbol"`
}

// ascending by RequiredStreakDays
var badgeTable = []Badge{
	{Name: "Getting Started", RequiredStreakDays: 3, Symbol: "🥉"},
	{Name: "Consistency Hero", RequiredStreakDays: 7, Symbol: "🥈"},
	{Name: "Wellness Warrior", RequiredStreakDays: 14, Symbol: "🥇"},
	{Name: "Health Champion", RequiredStreakDays: 30, Symbol: "🏆"},
}

// Badges returns a copy of the full badge table.
func Badges() []Badge {
	out := make([]Badge, len(badgeTable))
	copy(out, badgeTable)
	return out
}

// BadgesForStreak returns every badge unlocked by streakDays, lowest first.
// A streak that resets loses the higher badges again.
func BadgesForStreak(streakDays int) []Badge {
	out := []Badge{}
	for _, b := range badgeTable {
		if b.RequiredStreakDays <= streakDays {
			out = append(out, b)
		}
	}
	return out
}

// BadgeNames is a convenience for summaries.
func BadgeNames(badges []Badge) []string {
	names := make([]string, 0, len(badges))
	for _, b := range badges {
		names = append(names, b.Name)
	}
	return names
}

// NextBadge is the lowest badge not yet unlocked, or nil when all are held.
func NextBadge(streakDays int) *Badge {
	for _, b := range badgeTable {
		if b.RequiredStreakDays > streakDays {
			next := b
			return &next
		}
	}
	return nil
}
