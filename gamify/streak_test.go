package gamify

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func datePtr(s string) *Date {
	d := MustDate(s)
	return &d
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name  string
		prev  int
		date  *Date
		today string
		want  int
	}{
		{"first log", 0, nil, "2024-01-05", 1},
		{"same day", 4, datePtr("2024-01-05"), "2024-01-05", 4},
		{"next day", 4, datePtr("2024-01-05"), "2024-01-06", 5},
		{"gap", 4, datePtr("2024-01-05"), "2024-01-08", 1},
		{"previous date in the future", 4, datePtr("2024-01-07"), "2024-01-05", 1},
		{"across month", 2, datePtr("2024-01-31"), "2024-02-01", 3},
		{"across leap day", 9, datePtr("2024-02-28"), "2024-02-29", 10},
		{"across year", 6, datePtr("2023-12-31"), "2024-01-01", 7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.prev, tt.date, MustDate(tt.today)))
		})
	}
}

func TestAdvanceProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	base := MustDate("2020-01-01")

	properties.Property("same day keeps the streak", prop.ForAll(
		func(n, offset int) bool {
			d := base.AddDays(offset)
			return Advance(n, &d, d) == n
		},
		gen.IntRange(0, 1000), gen.IntRange(0, 3000),
	))

	properties.Property("consecutive day extends by one", prop.ForAll(
		func(n, offset int) bool {
			d := base.AddDays(offset)
			return Advance(n, &d, d.AddDays(1)) == n+1
		},
		gen.IntRange(0, 1000), gen.IntRange(0, 3000),
	))

	properties.Property("any other gap resets to one", prop.ForAll(
		func(n, offset, gap int) bool {
			d := base.AddDays(offset)
			return Advance(n, &d, d.AddDays(gap)) == 1
		},
		gen.IntRange(0, 1000), gen.IntRange(0, 3000), gen.IntRange(2, 400),
	))

	properties.TestingRun(t)
}

func TestDateIn(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	// 02:30 UTC on the 6th is still the evening of the 5th in New York.
	ts := time.Date(2024, 1, 6, 2, 30, 0, 0, time.UTC)
	assert.Equal(t, MustDate("2024-01-05"), DateIn(ts, loc))
	assert.Equal(t, MustDate("2024-01-06"), DateIn(ts, time.UTC))
}

func TestDaysBetweenAcrossDST(t *testing.T) {
	assert.Equal(t, 1, DaysBetween(MustDate("2024-03-09"), MustDate("2024-03-10")))
	assert.Equal(t, 1, DaysBetween(MustDate("2024-11-02"), MustDate("2024-11-03")))
	assert.Equal(t, -2, DaysBetween(MustDate("2024-03-10"), MustDate("2024-03-08")))
}

func TestDateJSON(t *testing.T) {
	d := MustDate("2024-01-05")
	b, err := d.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-05"`, string(b))

	var back Date
	require.NoError(t, back.UnmarshalJSON(b))
	assert.Equal(t, d, back)
	assert.Error(t, back.UnmarshalJSON([]byte(`"05/01/2024"`)))
}

func TestMotivation(t *testing.T) {
	assert.Contains(t, Motivation(0), "start a streak")
	assert.Contains(t, Motivation(1), "New streak started")
	assert.Contains(t, Motivation(3), "3-day streak! Keep building")
	assert.Contains(t, Motivation(6), "on fire")
	assert.Contains(t, Motivation(12), "12-day streak")
}
