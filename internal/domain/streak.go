package domain

import "time"

// DefaultStreakScanLimit bounds how many recent done-days the streak walk may
// inspect. A streak longer than the bound is reported as the bound itself, so
// the cap must stay comfortably above any realistic streak; callers override
// it through config, never by silently truncating results.
const DefaultStreakScanLimit = 100

// CurrentStreak walks done-days from most recent to oldest and counts how many
// line up consecutively ending at asOf. doneDays must be sorted descending and
// contain only days with a done log. Index i is expected to equal asOf minus i
// days; the first mismatch terminates the walk, so a gap of any size breaks
// the streak and there is no grace day. An empty slice yields 0.
func CurrentStreak(doneDays []time.Time, asOf time.Time) int {
	today := Day(asOf)
	streak := 0
	for i, day := range doneDays {
		expected := today.AddDate(0, 0, -i)
		if !Day(day).Equal(expected) {
			break
		}
		streak++
	}
	return streak
}

// NextLongestStreak applies the monotonic longest-streak rule: the cached
// longest only ever ratchets up against a freshly computed current streak.
func NextLongestStreak(existingLongest, newCurrent int) int {
	if newCurrent > existingLongest {
		return newCurrent
	}
	return existingLongest
}
