package domain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestCreateHabitDefaults(t *testing.T) {
	habits := newFakeHabitStore()
	svc := NewService(habits, newFakeLogStore())

	habit, err := svc.CreateHabit(context.Background(), CreateHabitInput{
		UserID: "user-1",
		Name:   "  Read  ",
	})
	require.NoError(t, err)
	require.Equal(t, "Read", habit.Name)
	require.Equal(t, "Personal", habit.Category)
	require.Equal(t, FrequencyDaily, habit.Frequency)
	require.Equal(t, "#6366f1", habit.Color)
	require.Equal(t, "target", habit.Icon)
	require.Equal(t, PriorityMedium, habit.Priority)
	require.NotEmpty(t, habit.ID)
}

func TestCreateHabitValidation(t *testing.T) {
	svc := NewService(newFakeHabitStore(), newFakeLogStore())

	_, err := svc.CreateHabit(context.Background(), CreateHabitInput{UserID: "u", Name: "   "})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateHabit(context.Background(), CreateHabitInput{UserID: "u", Name: "Read", Frequency: "hourly"})
	require.ErrorIs(t, err, ErrInvalidArgument)

	_, err = svc.CreateHabit(context.Background(), CreateHabitInput{UserID: "u", Name: "Read", Priority: "Critical"})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestGetHabitOwnershipIsOpaque(t *testing.T) {
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "owner"})
	svc := NewService(habits, newFakeLogStore())

	_, err := svc.GetHabit(context.Background(), "intruder", "h1")
	require.ErrorIs(t, err, ErrHabitNotFound)

	_, err = svc.GetHabit(context.Background(), "owner", "missing")
	require.ErrorIs(t, err, ErrHabitNotFound)
}

func TestDeleteHabitNotFound(t *testing.T) {
	svc := NewService(newFakeHabitStore(), newFakeLogStore())
	err := svc.DeleteHabit(context.Background(), "user-1", "missing")
	require.ErrorIs(t, err, ErrHabitNotFound)
}

func TestUpdateHabitPartialEdit(t *testing.T) {
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u", Name: "Read", Category: "Personal", Frequency: FrequencyDaily, Priority: PriorityMedium})
	svc := NewService(habits, newFakeLogStore())

	newName := "Read more"
	newPriority := "High"
	habit, err := svc.UpdateHabit(context.Background(), "u", "h1", UpdateHabitInput{
		Name:     &newName,
		Priority: &newPriority,
	})
	require.NoError(t, err)
	require.Equal(t, "Read more", habit.Name)
	require.Equal(t, PriorityHigh, habit.Priority)
	require.Equal(t, "Personal", habit.Category, "untouched fields survive")

	badFrequency := "hourly"
	_, err = svc.UpdateHabit(context.Background(), "u", "h1", UpdateHabitInput{Frequency: &badFrequency})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecordCompletionRejectsUnknownStatus(t *testing.T) {
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	svc := NewService(habits, newFakeLogStore())

	_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "sorta",
	})
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRecordCompletionEnforcesOwnership(t *testing.T) {
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "owner"})
	svc := NewService(habits, newFakeLogStore())

	_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "intruder", Status: "done",
	})
	require.ErrorIs(t, err, ErrHabitNotFound)
}

func TestRecordCompletionSameDayOverwrites(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	logs := newFakeLogStore()
	svc := NewService(habits, logs, WithClock(fixedClock(now)))

	first, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
	})
	require.NoError(t, err)

	second, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "skipped",
	})
	require.NoError(t, err)

	// The second write lands on the same (habit, day) row: same id, new status.
	require.Equal(t, first.ID, second.ID)
	require.Equal(t, StatusSkipped, second.Status)
	require.Nil(t, second.CompletedAt)
	require.Len(t, logs.entries, 1)
}

func TestRecordCompletionCompletedAtOnlyForDone(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	svc := NewService(habits, newFakeLogStore(), WithClock(fixedClock(now)))

	done, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
	})
	require.NoError(t, err)
	require.NotNil(t, done.CompletedAt)
	require.Equal(t, now, *done.CompletedAt)

	habits.put(Habit{ID: "h2", UserID: "u"})
	failed, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h2", UserID: "u", Status: "failed",
	})
	require.NoError(t, err)
	require.Nil(t, failed.CompletedAt)
}

func TestRecordCompletionNormalizesExplicitDate(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	svc := NewService(habits, newFakeLogStore(), WithClock(fixedClock(now)))

	log, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
		Date: time.Date(2025, time.March, 8, 18, 45, 12, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Equal(t, time.Date(2025, time.March, 8, 0, 0, 0, 0, time.UTC), log.Day)
}

func TestRecordCompletionOnlyDoneTriggersRecompute(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u", CurrentStreak: 4, LongestStreak: 9})
	logs := newFakeLogStore()
	svc := NewService(habits, logs, WithClock(fixedClock(now)))

	_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "skipped",
	})
	require.NoError(t, err)
	require.Zero(t, habits.streakCalls, "non-done statuses leave the cached streak alone")

	stored := habits.byID["h1"]
	require.Equal(t, 4, stored.CurrentStreak)

	_, err = svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
	})
	require.NoError(t, err)
	require.Equal(t, 1, habits.streakCalls)
}

func TestRecordCompletionLongestStreakIsMonotonic(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u", CurrentStreak: 0, LongestStreak: 10})
	svc := NewService(habits, newFakeLogStore(), WithClock(fixedClock(now)))

	_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
	})
	require.NoError(t, err)

	stored := habits.byID["h1"]
	require.Equal(t, 1, stored.CurrentStreak)
	require.Equal(t, 10, stored.LongestStreak, "cached longest never regresses")
}

func TestRecordCompletionStreakWalkAcrossDays(t *testing.T) {
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	logs := newFakeLogStore()

	base := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	record := func(day time.Time) {
		svc := NewService(habits, logs, WithClock(fixedClock(day)))
		_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
			HabitID: "h1", UserID: "u", Status: "done",
		})
		require.NoError(t, err)
	}

	record(base)
	record(base.AddDate(0, 0, 1))
	record(base.AddDate(0, 0, 2))

	stored := habits.byID["h1"]
	require.Equal(t, 3, stored.CurrentStreak)
	require.Equal(t, 3, stored.LongestStreak)

	// Skipping a day breaks the streak on the next completion.
	record(base.AddDate(0, 0, 4))
	stored = habits.byID["h1"]
	require.Equal(t, 1, stored.CurrentStreak)
	require.Equal(t, 3, stored.LongestStreak)
}

func TestRecordCompletionRespectsScanLimit(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	logs := newFakeLogStore()
	svc := NewService(habits, logs, WithClock(fixedClock(now)), WithStreakScanLimit(7))

	_, err := svc.RecordCompletion(context.Background(), RecordCompletionInput{
		HabitID: "h1", UserID: "u", Status: "done",
	})
	require.NoError(t, err)
	require.Equal(t, 7, logs.lastDoneDaysLimit)
}

func TestListLogsDefaultsWindowAndLimit(t *testing.T) {
	now := time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC)
	habits := newFakeHabitStore()
	habits.put(Habit{ID: "h1", UserID: "u"})
	logs := newFakeLogStore()
	svc := NewService(habits, logs, WithClock(fixedClock(now)))

	_, _, err := svc.ListLogs(context.Background(), "u", "h1", 0, nil, 0)
	require.NoError(t, err)
	require.Equal(t, Day(now).AddDate(0, 0, -30), logs.lastSince)
	require.Equal(t, 100, logs.lastListLimit)

	_, _, err = svc.ListLogs(context.Background(), "u", "h1", 7, nil, 10)
	require.NoError(t, err)
	require.Equal(t, Day(now).AddDate(0, 0, -7), logs.lastSince)
	require.Equal(t, 10, logs.lastListLimit)

	_, _, err = svc.ListLogs(context.Background(), "intruder", "h1", 0, nil, 0)
	require.ErrorIs(t, err, ErrHabitNotFound)
}

type fakeHabitStore struct {
	byID        map[string]Habit
	streakCalls int
}

func newFakeHabitStore() *fakeHabitStore {
	return &fakeHabitStore{byID: make(map[string]Habit)}
}

func (f *fakeHabitStore) put(habit Habit) {
	f.byID[habit.ID] = habit
}

func (f *fakeHabitStore) Create(_ context.Context, habit Habit) error {
	f.put(habit)
	return nil
}

func (f *fakeHabitStore) Get(_ context.Context, userID, habitID string) (*Habit, error) {
	habit, ok := f.byID[habitID]
	if !ok || habit.UserID != userID {
		return nil, nil
	}
	return &habit, nil
}

func (f *fakeHabitStore) ListByUser(_ context.Context, userID string) ([]Habit, error) {
	out := make([]Habit, 0)
	for _, habit := range f.byID {
		if habit.UserID == userID {
			out = append(out, habit)
		}
	}
	return out, nil
}

func (f *fakeHabitStore) Update(_ context.Context, habit Habit) error {
	if _, ok := f.byID[habit.ID]; !ok {
		return ErrHabitNotFound
	}
	f.byID[habit.ID] = habit
	return nil
}

func (f *fakeHabitStore) Delete(_ context.Context, userID, habitID string) (bool, error) {
	habit, ok := f.byID[habitID]
	if !ok || habit.UserID != userID {
		return false, nil
	}
	delete(f.byID, habitID)
	return true, nil
}

func (f *fakeHabitStore) UpdateStreaks(_ context.Context, userID, habitID string, current, longest int) error {
	f.streakCalls++
	habit, ok := f.byID[habitID]
	if !ok || habit.UserID != userID {
		return ErrHabitNotFound
	}
	habit.CurrentStreak = current
	habit.LongestStreak = longest
	f.byID[habitID] = habit
	return nil
}

type fakeLogStore struct {
	entries           []CompletionLog
	lastDoneDaysLimit int
	lastSince         time.Time
	lastListLimit     int
}

func newFakeLogStore() *fakeLogStore {
	return &fakeLogStore{}
}

func (f *fakeLogStore) Upsert(_ context.Context, log CompletionLog) (*CompletionLog, error) {
	for i, existing := range f.entries {
		if existing.HabitID == log.HabitID && existing.Day.Equal(log.Day) {
			log.ID = existing.ID
			f.entries[i] = log
			return &log, nil
		}
	}
	f.entries = append(f.entries, log)
	return &log, nil
}

func (f *fakeLogStore) DoneDays(_ context.Context, habitID string, limit int) ([]time.Time, error) {
	f.lastDoneDaysLimit = limit
	out := make([]time.Time, 0)
	for _, log := range f.entries {
		if log.HabitID == habitID && log.Status == StatusDone {
			out = append(out, log.Day)
		}
	}
	// Newest first, as the SQL store guarantees.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeLogStore) ListByHabit(_ context.Context, habitID string, since time.Time, _ *LogCursor, limit int) ([]CompletionLog, *LogCursor, error) {
	f.lastSince = since
	f.lastListLimit = limit
	out := make([]CompletionLog, 0)
	for _, log := range f.entries {
		if log.HabitID == habitID && !log.Day.Before(since) {
			out = append(out, log)
		}
	}
	return out, nil, nil
}

func (f *fakeLogStore) ListDoneByUserSince(_ context.Context, userID string, since time.Time) ([]CompletionLog, error) {
	out := make([]CompletionLog, 0)
	for _, log := range f.entries {
		if log.UserID == userID && log.Status == StatusDone && !log.Day.Before(since) {
			out = append(out, log)
		}
	}
	return out, nil
}

func (f *fakeLogStore) CountDoneOn(_ context.Context, userID string, day time.Time) (int, error) {
	count := 0
	for _, log := range f.entries {
		if log.UserID == userID && log.Status == StatusDone && log.Day.Equal(day) {
			count++
		}
	}
	return count, nil
}
