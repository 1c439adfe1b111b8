package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"example.com/habits/internal/domain"
)

var now = time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)

func TestAggregateRejectsNonPositiveWindow(t *testing.T) {
	agg := NewAggregator(&stubHabits{}, &stubLogs{}, WithClock(func() time.Time { return now }))

	_, err := agg.Aggregate(context.Background(), "u", 0)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)

	_, err = agg.Aggregate(context.Background(), "u", -3)
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestAggregateDailyCompletionsCountsDistinctHabits(t *testing.T) {
	today := domain.Day(now)
	logs := &stubLogs{done: []domain.CompletionLog{
		{HabitID: "h1", UserID: "u", Day: today, Status: domain.StatusDone},
		{HabitID: "h2", UserID: "u", Day: today, Status: domain.StatusDone},
		// Second done log for the same habit and day must not double count.
		{HabitID: "h1", UserID: "u", Day: today, Status: domain.StatusDone},
		{HabitID: "h1", UserID: "u", Day: today.AddDate(0, 0, -3), Status: domain.StatusDone},
	}}
	agg := NewAggregator(&stubHabits{}, logs, WithClock(func() time.Time { return now }))

	result, err := agg.Aggregate(context.Background(), "u", 7)
	require.NoError(t, err)

	// Sparse: only days with completions appear, sorted ascending.
	require.Len(t, result.DailyCompletions, 2)
	require.Equal(t, today.AddDate(0, 0, -3).Format("2006-01-02"), result.DailyCompletions[0].Date)
	require.Equal(t, 1, result.DailyCompletions[0].Count)
	require.Equal(t, today.Format("2006-01-02"), result.DailyCompletions[1].Date)
	require.Equal(t, 2, result.DailyCompletions[1].Count)
}

func TestAggregateCategoryBreakdownSumsToHabitTotal(t *testing.T) {
	habits := &stubHabits{habits: []domain.Habit{
		{ID: "h1", UserID: "u", Category: "Health"},
		{ID: "h2", UserID: "u", Category: "Work"},
		{ID: "h3", UserID: "u", Category: "Health"},
	}}
	agg := NewAggregator(habits, &stubLogs{}, WithClock(func() time.Time { return now }))

	result, err := agg.Aggregate(context.Background(), "u", 7)
	require.NoError(t, err)

	total := 0
	for _, entry := range result.CategoryBreakdown {
		total += entry.Count
	}
	require.Equal(t, len(habits.habits), total, "category counts sum to the habit total regardless of window")

	require.Equal(t, "Health", result.CategoryBreakdown[0].Category)
	require.Equal(t, 2, result.CategoryBreakdown[0].Count)
	require.Equal(t, "Work", result.CategoryBreakdown[1].Category)
	require.Equal(t, 1, result.CategoryBreakdown[1].Count)
}

func TestAggregateStreakHistorySnapshotsCachedFields(t *testing.T) {
	updated := time.Date(2025, time.March, 8, 16, 30, 0, 0, time.UTC)
	habits := &stubHabits{habits: []domain.Habit{
		{ID: "h1", UserID: "u", CurrentStreak: 5, UpdatedAt: updated},
	}}
	agg := NewAggregator(habits, &stubLogs{}, WithClock(func() time.Time { return now }))

	result, err := agg.Aggregate(context.Background(), "u", 7)
	require.NoError(t, err)

	require.Len(t, result.StreakHistory, 1)
	require.Equal(t, "2025-03-08", result.StreakHistory[0].Date)
	require.Equal(t, 5, result.StreakHistory[0].Streak)
}

func TestDashboardSummaryZeroHabits(t *testing.T) {
	agg := NewAggregator(&stubHabits{}, &stubLogs{}, WithClock(func() time.Time { return now }))

	stats, err := agg.DashboardSummary(context.Background(), "u")
	require.NoError(t, err)
	require.Zero(t, stats.TotalHabits)
	require.Zero(t, stats.CompletedToday)
	require.Zero(t, stats.CurrentStreak)
	require.Zero(t, stats.WeeklyProgress)
	require.Zero(t, stats.SuccessRate)
}

func TestDashboardSummaryProgressFieldsStayEqual(t *testing.T) {
	habits := &stubHabits{habits: []domain.Habit{
		{ID: "h1", UserID: "u", CurrentStreak: 2},
		{ID: "h2", UserID: "u", CurrentStreak: 6},
		{ID: "h3", UserID: "u", CurrentStreak: 1},
	}}
	logs := &stubLogs{doneToday: 2}
	agg := NewAggregator(habits, logs, WithClock(func() time.Time { return now }))

	stats, err := agg.DashboardSummary(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, 3, stats.TotalHabits)
	require.Equal(t, 2, stats.CompletedToday)
	require.Equal(t, 6, stats.CurrentStreak)
	require.Equal(t, 67, stats.WeeklyProgress, "2/3 rounds to 67")
	require.Equal(t, stats.WeeklyProgress, stats.SuccessRate,
		"the two progress fields share one formula until the product decides otherwise")
}

type stubHabits struct {
	habits []domain.Habit
}

func (s *stubHabits) Create(context.Context, domain.Habit) error { return nil }

func (s *stubHabits) Get(context.Context, string, string) (*domain.Habit, error) { return nil, nil }

func (s *stubHabits) ListByUser(_ context.Context, userID string) ([]domain.Habit, error) {
	out := make([]domain.Habit, 0, len(s.habits))
	for _, habit := range s.habits {
		if habit.UserID == userID {
			out = append(out, habit)
		}
	}
	return out, nil
}

func (s *stubHabits) Update(context.Context, domain.Habit) error { return nil }

func (s *stubHabits) Delete(context.Context, string, string) (bool, error) { return false, nil }

func (s *stubHabits) UpdateStreaks(context.Context, string, string, int, int) error { return nil }

type stubLogs struct {
	done      []domain.CompletionLog
	doneToday int
}

func (s *stubLogs) Upsert(context.Context, domain.CompletionLog) (*domain.CompletionLog, error) {
	return nil, nil
}

func (s *stubLogs) DoneDays(context.Context, string, int) ([]time.Time, error) { return nil, nil }

func (s *stubLogs) ListByHabit(context.Context, string, time.Time, *domain.LogCursor, int) ([]domain.CompletionLog, *domain.LogCursor, error) {
	return nil, nil, nil
}

func (s *stubLogs) ListDoneByUserSince(_ context.Context, userID string, since time.Time) ([]domain.CompletionLog, error) {
	out := make([]domain.CompletionLog, 0)
	for _, log := range s.done {
		if log.UserID == userID && !log.Day.Before(since) {
			out = append(out, log)
		}
	}
	return out, nil
}

func (s *stubLogs) CountDoneOn(context.Context, string, time.Time) (int, error) {
	return s.doneToday, nil
}
