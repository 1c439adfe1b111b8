// Package analytics derives windowed aggregates and the dashboard summary from
// the two stores. It is stateless: everything is recomputed per call except
// streakHistory, which snapshots the cached streak fields.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"example.com/habits/internal/domain"
)

const dayFormat = "2006-01-02"

// Result is the analytics payload. The three slices deliberately mix time
// bases: dailyCompletions is windowed, categoryBreakdown and streakHistory are
// all-time. Collapsing them into one window would change observable behavior.
type Result struct {
	DailyCompletions  []DailyCompletion `json:"dailyCompletions"`
	CategoryBreakdown []CategoryCount   `json:"categoryBreakdown"`
	StreakHistory     []StreakSnapshot  `json:"streakHistory"`
}

// DailyCompletion counts distinct habits completed on one calendar day.
type DailyCompletion struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// CategoryCount counts habits (not completions) per category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

// StreakSnapshot pairs a habit's cached current streak with its last update
// day. It is a snapshot, never a recomputation.
type StreakSnapshot struct {
	Date   string `json:"date"`
	Streak int    `json:"streak"`
}

// DashboardStats is the cheap derived view for the dashboard.
//
// WeeklyProgress and SuccessRate share one formula under two names. The
// upstream product has not decided whether that is a placeholder or final, so
// both fields stay and a regression test pins their equality.
type DashboardStats struct {
	TotalHabits    int `json:"totalHabits"`
	CompletedToday int `json:"completedToday"`
	CurrentStreak  int `json:"currentStreak"`
	WeeklyProgress int `json:"weeklyProgress"`
	SuccessRate    int `json:"successRate"`
}

// Aggregator reads both stores and computes the derived views.
type Aggregator struct {
	habits domain.HabitStore
	logs   domain.CompletionLogStore
	now    func() time.Time
}

// Option configures optional behaviour for the Aggregator.
type Option func(*Aggregator)

// WithClock overrides the wall clock for tests that pin "today".
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		if now != nil {
			a.now = now
		}
	}
}

// NewAggregator constructs an Aggregator.
func NewAggregator(habits domain.HabitStore, logs domain.CompletionLogStore, opts ...Option) *Aggregator {
	a := &Aggregator{habits: habits, logs: logs, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Aggregate computes the analytics result for a lookback window of windowDays
// ending today. Any positive window is accepted; the week/month/year periods
// of the API layer are just conventional values.
func (a *Aggregator) Aggregate(ctx context.Context, userID string, windowDays int) (*Result, error) {
	if windowDays <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", domain.ErrInvalidArgument, windowDays)
	}

	since := domain.Day(a.now()).AddDate(0, 0, -windowDays)
	logs, err := a.logs.ListDoneByUserSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}

	habits, err := a.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &Result{
		DailyCompletions:  dailyCompletions(logs),
		CategoryBreakdown: categoryBreakdown(habits),
		StreakHistory:     streakHistory(habits),
	}, nil
}

// dailyCompletions groups done logs by day, counting distinct habits. Days
// with no completions are absent rather than zero-filled; output is sorted
// ascending by date.
func dailyCompletions(logs []domain.CompletionLog) []DailyCompletion {
	habitsPerDay := make(map[string]map[string]struct{})
	for _, log := range logs {
		date := log.Day.Format(dayFormat)
		if habitsPerDay[date] == nil {
			habitsPerDay[date] = make(map[string]struct{})
		}
		habitsPerDay[date][log.HabitID] = struct{}{}
	}

	out := make([]DailyCompletion, 0, len(habitsPerDay))
	for date, habitIDs := range habitsPerDay {
		out = append(out, DailyCompletion{Date: date, Count: len(habitIDs)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// categoryBreakdown counts the user's habits per category regardless of any
// window, so the per-category counts always sum to the habit total.
func categoryBreakdown(habits []domain.Habit) []CategoryCount {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, habit := range habits {
		if _, seen := counts[habit.Category]; !seen {
			order = append(order, habit.Category)
		}
		counts[habit.Category]++
	}

	out := make([]CategoryCount, 0, len(order))
	for _, category := range order {
		out = append(out, CategoryCount{Category: category, Count: counts[category]})
	}
	return out
}

func streakHistory(habits []domain.Habit) []StreakSnapshot {
	out := make([]StreakSnapshot, 0, len(habits))
	for _, habit := range habits {
		out = append(out, StreakSnapshot{
			Date:   domain.Day(habit.UpdatedAt).Format(dayFormat),
			Streak: habit.CurrentStreak,
		})
	}
	return out
}

// DashboardSummary assembles the dashboard view: habit total, today's done
// count, the maximum cached streak, and the duplicated progress percentage.
func (a *Aggregator) DashboardSummary(ctx context.Context, userID string) (*DashboardStats, error) {
	habits, err := a.habits.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	today := domain.Day(a.now())
	completedToday, err := a.logs.CountDoneOn(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	maxStreak := 0
	for _, habit := range habits {
		if habit.CurrentStreak > maxStreak {
			maxStreak = habit.CurrentStreak
		}
	}

	progress := 0
	if len(habits) > 0 {
		progress = int(math.Round(float64(completedToday) / float64(len(habits)) * 100))
	}

	return &DashboardStats{
		TotalHabits:    len(habits),
		CompletedToday: completedToday,
		CurrentStreak:  maxStreak,
		WeeklyProgress: progress,
		SuccessRate:    progress,
	}, nil
}
