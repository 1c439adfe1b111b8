// Package domain defines the business logic for the habit service.
package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrHabitNotFound is returned when a habit does not exist or is not owned
	// by the caller. The two cases are indistinguishable on purpose.
	ErrHabitNotFound = errors.New("habit not found")
	// ErrInvalidArgument wraps input-shape violations (bad status, bad date,
	// bad window, malformed habit fields).
	ErrInvalidArgument = errors.New("invalid argument")
)

// HabitStore captures persistence operations for habit aggregates. Get and
// Delete filter by owner; a habit owned by someone else behaves as missing.
type HabitStore interface {
	Create(ctx context.Context, habit Habit) error
	Get(ctx context.Context, userID, habitID string) (*Habit, error)
	ListByUser(ctx context.Context, userID string) ([]Habit, error)
	Update(ctx context.Context, habit Habit) error
	Delete(ctx context.Context, userID, habitID string) (bool, error)
	UpdateStreaks(ctx context.Context, userID, habitID string, current, longest int) error
}

// CompletionLogStore captures persistence operations for completion logs.
// Upsert must be atomic on the (habitID, day) natural key: a concurrent write
// for the same day overwrites cleanly instead of producing a second row.
type CompletionLogStore interface {
	Upsert(ctx context.Context, log CompletionLog) (*CompletionLog, error)
	DoneDays(ctx context.Context, habitID string, limit int) ([]time.Time, error)
	ListByHabit(ctx context.Context, habitID string, since time.Time, cursor *LogCursor, limit int) ([]CompletionLog, *LogCursor, error)
	ListDoneByUserSince(ctx context.Context, userID string, since time.Time) ([]CompletionLog, error)
	CountDoneOn(ctx context.Context, userID string, day time.Time) (int, error)
}

// LogCursor models the pagination token for log listings.
type LogCursor struct {
	Day time.Time
	ID  string
}

// Service orchestrates habit and completion-log workflows.
type Service struct {
	habits          HabitStore
	logs            CompletionLogStore
	streakScanLimit int
	now             func() time.Time
}

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithStreakScanLimit overrides the bounded done-history scan used by streak
// recomputation.
func WithStreakScanLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.streakScanLimit = limit
		}
	}
}

// WithClock overrides the wall clock, primarily for tests that pin "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService constructs a Service.
func NewService(habits HabitStore, logs CompletionLogStore, opts ...Option) *Service {
	s := &Service{
		habits:          habits,
		logs:            logs,
		streakScanLimit: DefaultStreakScanLimit,
		now:             time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateHabitInput captures the payload from the API layer for habit creation.
type CreateHabitInput struct {
	UserID        string
	Name          string
	Description   string
	Category      string
	Frequency     string
	FrequencyDays []int
	Color         string
	Icon          string
	Priority      string
}

// CreateHabit persists a new habit with the service's defaulting rules.
func (s *Service) CreateHabit(ctx context.Context, input CreateHabitInput) (*Habit, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
	}

	frequency := FrequencyDaily
	if input.Frequency != "" {
		parsed, ok := ParseFrequency(input.Frequency)
		if !ok {
			return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidArgument, input.Frequency)
		}
		frequency = parsed
	}

	priority := PriorityMedium
	if input.Priority != "" {
		parsed, ok := ParsePriority(input.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, input.Priority)
		}
		priority = parsed
	}

	now := s.now().UTC()
	habit := Habit{
		ID:            uuid.NewString(),
		UserID:        input.UserID,
		Name:          strings.TrimSpace(input.Name),
		Description:   input.Description,
		Category:      defaultString(input.Category, "Personal"),
		Frequency:     frequency,
		FrequencyDays: input.FrequencyDays,
		Color:         defaultString(input.Color, "#6366f1"),
		Icon:          defaultString(input.Icon, "target"),
		Priority:      priority,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.habits.Create(ctx, habit); err != nil {
		return nil, err
	}
	return &habit, nil
}

// GetHabit fetches a habit owned by userID.
func (s *Service) GetHabit(ctx context.Context, userID, habitID string) (*Habit, error) {
	habit, err := s.habits.Get(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}
	if habit == nil {
		return nil, ErrHabitNotFound
	}
	return habit, nil
}

// ListHabits returns all habits owned by userID, newest first.
func (s *Service) ListHabits(ctx context.Context, userID string) ([]Habit, error) {
	return s.habits.ListByUser(ctx, userID)
}

// UpdateHabitInput carries partial habit edits; nil fields are untouched.
type UpdateHabitInput struct {
	Name          *string
	Description   *string
	Category      *string
	Frequency     *string
	FrequencyDays []int
	Color         *string
	Icon          *string
	Priority      *string
}

// UpdateHabit applies a partial edit to a habit owned by userID.
func (s *Service) UpdateHabit(ctx context.Context, userID, habitID string, input UpdateHabitInput) (*Habit, error) {
	habit, err := s.GetHabit(ctx, userID, habitID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, fmt.Errorf("%w: name is required", ErrInvalidArgument)
		}
		habit.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		habit.Description = *input.Description
	}
	if input.Category != nil {
		habit.Category = *input.Category
	}
	if input.Frequency != nil {
		parsed, ok := ParseFrequency(*input.Frequency)
		if !ok {
			return nil, fmt.Errorf("%w: unknown frequency %q", ErrInvalidArgument, *input.Frequency)
		}
		habit.Frequency = parsed
	}
	if input.FrequencyDays != nil {
		habit.FrequencyDays = input.FrequencyDays
	}
	if input.Color != nil {
		habit.Color = *input.Color
	}
	if input.Icon != nil {
		habit.Icon = *input.Icon
	}
	if input.Priority != nil {
		parsed, ok := ParsePriority(*input.Priority)
		if !ok {
			return nil, fmt.Errorf("%w: unknown priority %q", ErrInvalidArgument, *input.Priority)
		}
		habit.Priority = parsed
	}

	habit.UpdatedAt = s.now().UTC()
	if err := s.habits.Update(ctx, *habit); err != nil {
		return nil, err
	}
	return habit, nil
}

// DeleteHabit removes a habit owned by userID; logs go with it via the store's
// cascade, so orphan logs cannot exist.
func (s *Service) DeleteHabit(ctx context.Context, userID, habitID string) error {
	deleted, err := s.habits.Delete(ctx, userID, habitID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrHabitNotFound
	}
	return nil
}

// RecordCompletionInput captures the payload for a completion toggle.
type RecordCompletionInput struct {
	HabitID string
	UserID  string
	Date    time.Time // zero value means "today"
	Status  string
	Note    string
}

// RecordCompletion upserts a completion log keyed on (habit, day) and, when
// the resulting status is done, recomputes the habit's streak fields from its
// bounded done-history. Any other status leaves the cached streak untouched:
// un-marking a day never decrements the current streak.
func (s *Service) RecordCompletion(ctx context.Context, input RecordCompletionInput) (*CompletionLog, error) {
	status, ok := ParseStatus(input.Status)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, input.Status)
	}

	habit, err := s.GetHabit(ctx, input.UserID, input.HabitID)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	day := Day(now)
	if !input.Date.IsZero() {
		day = Day(input.Date)
	}

	log := CompletionLog{
		ID:        uuid.NewString(),
		HabitID:   habit.ID,
		UserID:    habit.UserID,
		Day:       day,
		Status:    status,
		Note:      input.Note,
		CreatedAt: now,
	}
	if status == StatusDone {
		completedAt := now
		log.CompletedAt = &completedAt
	}

	persisted, err := s.logs.Upsert(ctx, log)
	if err != nil {
		return nil, err
	}

	if status == StatusDone {
		if err := s.recomputeStreak(ctx, habit, now); err != nil {
			return nil, err
		}
	}

	return persisted, nil
}

// recomputeStreak reads the habit's bounded done-history and persists the two
// cached integers back. It runs after the triggering upsert has committed, so
// within a request the walk always sees its own write; racing recomputes for
// different days of the same habit converge on the next completion event.
func (s *Service) recomputeStreak(ctx context.Context, habit *Habit, now time.Time) error {
	doneDays, err := s.logs.DoneDays(ctx, habit.ID, s.streakScanLimit)
	if err != nil {
		return err
	}

	current := CurrentStreak(doneDays, now)
	longest := NextLongestStreak(habit.LongestStreak, current)
	return s.habits.UpdateStreaks(ctx, habit.UserID, habit.ID, current, longest)
}

// ListLogs returns completion logs for a habit owned by userID with
// day >= today - days, newest first. days defaults to 30.
func (s *Service) ListLogs(ctx context.Context, userID, habitID string, days int, cursor *LogCursor, limit int) ([]CompletionLog, *LogCursor, error) {
	if _, err := s.GetHabit(ctx, userID, habitID); err != nil {
		return nil, nil, err
	}

	if days <= 0 {
		days = 30
	}
	if limit <= 0 {
		limit = 100
	}
	since := Day(s.now()).AddDate(0, 0, -days)
	return s.logs.ListByHabit(ctx, habitID, since, cursor, limit)
}

func defaultString(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}
