package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCurrentStreak(t *testing.T) {
	asOf := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)
	today := Day(asOf)

	days := func(offsets ...int) []time.Time {
		out := make([]time.Time, 0, len(offsets))
		for _, off := range offsets {
			out = append(out, today.AddDate(0, 0, -off))
		}
		return out
	}

	cases := []struct {
		name     string
		doneDays []time.Time
		want     int
	}{
		{name: "empty history", doneDays: nil, want: 0},
		{name: "single completion today", doneDays: days(0), want: 1},
		{name: "three consecutive days", doneDays: days(0, 1, 2), want: 3},
		{name: "gap after three days stops the walk", doneDays: days(0, 1, 2, 4, 5), want: 3},
		{name: "most recent completion was yesterday", doneDays: days(1, 2, 3), want: 0},
		{name: "only old completions", doneDays: days(7, 8, 9), want: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CurrentStreak(tc.doneDays, asOf))
		})
	}
}

func TestCurrentStreakNormalizesInstants(t *testing.T) {
	asOf := time.Date(2025, time.March, 10, 23, 59, 0, 0, time.UTC)
	// Done-days carrying intra-day time components still count.
	doneDays := []time.Time{
		time.Date(2025, time.March, 10, 6, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 9, 22, 15, 0, 0, time.UTC),
	}
	require.Equal(t, 2, CurrentStreak(doneDays, asOf))
}

func TestCurrentStreakAtScanBound(t *testing.T) {
	asOf := time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)
	today := Day(asOf)

	doneDays := make([]time.Time, DefaultStreakScanLimit)
	for i := range doneDays {
		doneDays[i] = today.AddDate(0, 0, -i)
	}

	// A streak spanning the whole bounded scan reports the bound itself.
	require.Equal(t, DefaultStreakScanLimit, CurrentStreak(doneDays, asOf))
}

func TestNextLongestStreak(t *testing.T) {
	require.Equal(t, 5, NextLongestStreak(5, 3), "longest never decreases")
	require.Equal(t, 7, NextLongestStreak(5, 7), "longer current ratchets up")
	require.Equal(t, 5, NextLongestStreak(5, 5))
	require.Equal(t, 0, NextLongestStreak(0, 0))
}
