// Package events defines the payloads emitted through the outbox pipeline.
package events

import "time"

// CompletionLogged is emitted whenever a completion toggle is persisted,
// including overwrites of an existing (habit, day) row.
type CompletionLogged struct {
	LogID       string     `json:"log_id"`
	HabitID     string     `json:"habit_id"`
	UserID      string     `json:"user_id"`
	Day         string     `json:"day"`
	Status      string     `json:"status"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// StreakUpdated is emitted after the ingestion path persists freshly computed
// streak fields onto a habit.
type StreakUpdated struct {
	HabitID       string    `json:"habit_id"`
	UserID        string    `json:"user_id"`
	CurrentStreak int       `json:"current_streak"`
	LongestStreak int       `json:"longest_streak"`
	OccurredAt    time.Time `json:"occurred_at"`
}
