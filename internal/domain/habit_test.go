package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDayNormalizesToUTCMidnight(t *testing.T) {
	loc := time.FixedZone("UTC-5", -5*60*60)

	cases := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{
			name: "utc afternoon",
			in:   time.Date(2025, time.March, 10, 15, 45, 30, 123, time.UTC),
			want: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "late evening in a western zone crosses the date line",
			in:   time.Date(2025, time.March, 10, 22, 0, 0, 0, loc),
			want: time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "already midnight",
			in:   time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
			want: time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.True(t, Day(tc.in).Equal(tc.want))
		})
	}
}

func TestParseStatus(t *testing.T) {
	for _, valid := range []string{"done", "skipped", "failed", "pending"} {
		status, ok := ParseStatus(valid)
		require.True(t, ok)
		require.Equal(t, Status(valid), status)
	}

	_, ok := ParseStatus("Done")
	require.False(t, ok, "statuses are case sensitive")
	_, ok = ParseStatus("")
	require.False(t, ok)
}
