package domain

import "time"

// Frequency describes how often a habit is meant to be performed.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

// Priority ranks a habit for display ordering.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// Status captures the outcome recorded for a habit on a given day.
type Status string

const (
	StatusDone    Status = "done"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
	StatusPending Status = "pending"
)

// Habit is the aggregate stored in Postgres. CurrentStreak and LongestStreak
// are cached derived values maintained by the ingestion path; they are never
// recomputed by scanning full history.
type Habit struct {
	ID            string
	UserID        string
	Name          string
	Description   string
	Category      string
	Frequency     Frequency
	FrequencyDays []int
	Color         string
	Icon          string
	Priority      Priority
	CurrentStreak int
	LongestStreak int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CompletionLog is one record of a habit's status for a specific calendar day.
// (HabitID, Day) is the natural key; Day is always a UTC midnight instant.
type CompletionLog struct {
	ID          string
	HabitID     string
	UserID      string
	Day         time.Time
	Status      Status
	Note        string
	CompletedAt *time.Time
	CreatedAt   time.Time
}

// Day truncates an instant to its UTC calendar day. Every date comparison in
// this service goes through this normalization: "today", stored log days, and
// analytics window bounds.
func Day(t time.Time) time.Time {
	utc := t.UTC()
	year, month, day := utc.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// ParseStatus validates a raw status string.
func ParseStatus(raw string) (Status, bool) {
	switch Status(raw) {
	case StatusDone, StatusSkipped, StatusFailed, StatusPending:
		return Status(raw), true
	}
	return "", false
}

// ParseFrequency validates a raw frequency string.
func ParseFrequency(raw string) (Frequency, bool) {
	switch Frequency(raw) {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return Frequency(raw), true
	}
	return "", false
}

// ParsePriority validates a raw priority string.
func ParsePriority(raw string) (Priority, bool) {
	switch Priority(raw) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(raw), true
	}
	return "", false
}
