// Package postgres provides pgx-backed persistence for habits, completion
// logs, and the transactional outbox.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"example.com/habits/internal/domain"
	"example.com/habits/internal/events"
	"example.com/habits/internal/observability"
)

// Repository implements domain.HabitStore and domain.CompletionLogStore on a
// single pgx pool. Outbox rows are written in the same transaction as the row
// they describe.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const habitColumns = `habit_id, user_id, name, description, category, frequency, frequency_days,
        color, icon, priority, current_streak, longest_streak, created_at, updated_at`

// Create persists a new habit.
func (r *Repository) Create(ctx context.Context, habit domain.Habit) error {
	const stmt = `INSERT INTO habits (habit_id, user_id, name, description, category, frequency, frequency_days, color, icon, priority, current_streak, longest_streak, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

	_, err := r.pool.Exec(ctx, stmt,
		habit.ID,
		habit.UserID,
		habit.Name,
		habit.Description,
		habit.Category,
		habit.Frequency,
		toInt32Slice(habit.FrequencyDays),
		habit.Color,
		habit.Icon,
		habit.Priority,
		habit.CurrentStreak,
		habit.LongestStreak,
		habit.CreatedAt,
		habit.UpdatedAt,
	)
	return err
}

// Get retrieves a habit by id, scoped to its owner. A habit owned by someone
// else scans as no rows, so missing and not-yours are indistinguishable.
func (r *Repository) Get(ctx context.Context, userID, habitID string) (*domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE habit_id=$1 AND user_id=$2`

	row := r.pool.QueryRow(ctx, query, habitID, userID)
	habit, err := scanHabit(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return habit, nil
}

// ListByUser returns all habits owned by userID, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]domain.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id=$1 ORDER BY created_at DESC, habit_id DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	habits := make([]domain.Habit, 0)
	for rows.Next() {
		habit, scanErr := scanHabit(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		habits = append(habits, *habit)
	}
	return habits, rows.Err()
}

// Update overwrites a habit's editable fields.
func (r *Repository) Update(ctx context.Context, habit domain.Habit) error {
	const stmt = `UPDATE habits
        SET name=$3, description=$4, category=$5, frequency=$6, frequency_days=$7, color=$8, icon=$9, priority=$10, updated_at=$11
        WHERE habit_id=$1 AND user_id=$2`

	tag, err := r.pool.Exec(ctx, stmt,
		habit.ID,
		habit.UserID,
		habit.Name,
		habit.Description,
		habit.Category,
		habit.Frequency,
		toInt32Slice(habit.FrequencyDays),
		habit.Color,
		habit.Icon,
		habit.Priority,
		habit.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrHabitNotFound
	}
	return nil
}

// Delete removes a habit; habit_logs rows cascade via the foreign key, so no
// orphan logs survive. Returns false when nothing matched.
func (r *Repository) Delete(ctx context.Context, userID, habitID string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM habits WHERE habit_id=$1 AND user_id=$2`, habitID, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// UpdateStreaks persists freshly computed streak fields and records a
// habit.streak_updated outbox event in the same transaction.
func (r *Repository) UpdateStreaks(ctx context.Context, userID, habitID string, current, longest int) error {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	now := time.Now().UTC()
	var tag pgconn.CommandTag
	tag, err = tx.Exec(ctx,
		`UPDATE habits SET current_streak=$3, longest_streak=$4, updated_at=$5 WHERE habit_id=$1 AND user_id=$2`,
		habitID, userID, current, longest, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = domain.ErrHabitNotFound
		return err
	}

	if err = insertOutbox(ctx, tx, habitID, "habit.streak_updated", events.StreakUpdated{
		HabitID:       habitID,
		UserID:        userID,
		CurrentStreak: current,
		LongestStreak: longest,
		OccurredAt:    now,
	}); err != nil {
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return err
	}
	observability.RecordStreakRecomputed(now)
	return nil
}

const logColumns = `log_id, habit_id, user_id, day, status, note, completed_at, created_at`

// Upsert inserts or overwrites the completion log for (habit, day) and records
// a habit.completion_logged outbox event in the same transaction. The natural
// key conflict target makes concurrent toggles for the same day last-write-win
// instead of producing a second row.
func (r *Repository) Upsert(ctx context.Context, log domain.CompletionLog) (*domain.CompletionLog, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			tx.Rollback(ctx)
		}
	}()

	const stmt = `INSERT INTO habit_logs (log_id, habit_id, user_id, day, status, note, completed_at, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
        ON CONFLICT (habit_id, day) DO UPDATE
        SET status = EXCLUDED.status, note = EXCLUDED.note, completed_at = EXCLUDED.completed_at
        RETURNING ` + logColumns

	row := tx.QueryRow(ctx, stmt,
		log.ID,
		log.HabitID,
		log.UserID,
		log.Day,
		log.Status,
		log.Note,
		log.CompletedAt,
		log.CreatedAt,
	)

	persisted, err := scanLog(row)
	if err != nil {
		return nil, err
	}

	if err = insertOutbox(ctx, tx, persisted.HabitID, "habit.completion_logged", events.CompletionLogged{
		LogID:       persisted.ID,
		HabitID:     persisted.HabitID,
		UserID:      persisted.UserID,
		Day:         persisted.Day.Format("2006-01-02"),
		Status:      string(persisted.Status),
		CompletedAt: persisted.CompletedAt,
	}); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, err
	}
	observability.RecordCompletionPersisted(log.CreatedAt)
	return persisted, nil
}

// DoneDays returns the most recent done-log days for a habit, newest first,
// bounded by limit. Day normalization happens at write time, so rows come back
// as UTC midnights.
func (r *Repository) DoneDays(ctx context.Context, habitID string, limit int) ([]time.Time, error) {
	const query = `SELECT day FROM habit_logs WHERE habit_id=$1 AND status='done' ORDER BY day DESC LIMIT $2`

	rows, err := r.pool.Query(ctx, query, habitID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]time.Time, 0, limit)
	for rows.Next() {
		var day time.Time
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, domain.Day(day))
	}
	return days, rows.Err()
}

// ListByHabit returns logs for a habit with day >= since, newest first, with
// optional keyset pagination on (day, log_id).
func (r *Repository) ListByHabit(ctx context.Context, habitID string, since time.Time, cursor *domain.LogCursor, limit int) ([]domain.CompletionLog, *domain.LogCursor, error) {
	args := []interface{}{habitID, since, limit}
	query := `SELECT ` + logColumns + ` FROM habit_logs WHERE habit_id=$1 AND day >= $2`

	if cursor != nil {
		query += ` AND (day, log_id) < ($4, $5)`
		args = append(args, cursor.Day, cursor.ID)
	}

	query += ` ORDER BY day DESC, log_id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	logs := make([]domain.CompletionLog, 0, limit)
	for rows.Next() {
		log, scanErr := scanLog(rows)
		if scanErr != nil {
			return nil, nil, scanErr
		}
		logs = append(logs, *log)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	var next *domain.LogCursor
	if len(logs) == limit {
		last := logs[len(logs)-1]
		next = &domain.LogCursor{Day: last.Day, ID: last.ID}
	}
	return logs, next, nil
}

// ListDoneByUserSince returns all of a user's done logs with day >= since.
func (r *Repository) ListDoneByUserSince(ctx context.Context, userID string, since time.Time) ([]domain.CompletionLog, error) {
	query := `SELECT ` + logColumns + ` FROM habit_logs WHERE user_id=$1 AND status='done' AND day >= $2 ORDER BY day ASC`

	rows, err := r.pool.Query(ctx, query, userID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.CompletionLog, 0)
	for rows.Next() {
		log, scanErr := scanLog(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		logs = append(logs, *log)
	}
	return logs, rows.Err()
}

// CountDoneOn counts a user's done logs dated exactly day.
func (r *Repository) CountDoneOn(ctx context.Context, userID string, day time.Time) (int, error) {
	const query = `SELECT COUNT(*) FROM habit_logs WHERE user_id=$1 AND day=$2 AND status='done'`

	var count int
	if err := r.pool.QueryRow(ctx, query, userID, day).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

func insertOutbox(ctx context.Context, tx pgx.Tx, habitID, eventType string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[eventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", eventType)
	}

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload)
        VALUES ($1,$2,$3,$4,$5,$6,$7)`

	_, err = tx.Exec(ctx, stmt,
		"habit",
		habitID,
		eventType,
		meta.Topic,
		meta.SchemaSubject,
		meta.PartitionKeyFn(habitID),
		body,
	)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHabit(row rowScanner) (*domain.Habit, error) {
	var habit domain.Habit
	var frequencyDays []int32
	if err := row.Scan(
		&habit.ID,
		&habit.UserID,
		&habit.Name,
		&habit.Description,
		&habit.Category,
		&habit.Frequency,
		&frequencyDays,
		&habit.Color,
		&habit.Icon,
		&habit.Priority,
		&habit.CurrentStreak,
		&habit.LongestStreak,
		&habit.CreatedAt,
		&habit.UpdatedAt,
	); err != nil {
		return nil, err
	}
	habit.FrequencyDays = toIntSlice(frequencyDays)
	return &habit, nil
}

func scanLog(row rowScanner) (*domain.CompletionLog, error) {
	var log domain.CompletionLog
	if err := row.Scan(
		&log.ID,
		&log.HabitID,
		&log.UserID,
		&log.Day,
		&log.Status,
		&log.Note,
		&log.CompletedAt,
		&log.CreatedAt,
	); err != nil {
		return nil, err
	}
	log.Day = domain.Day(log.Day)
	return &log, nil
}

func toInt32Slice(values []int) []int32 {
	if values == nil {
		return nil
	}
	out := make([]int32, len(values))
	for i, v := range values {
		out[i] = int32(v)
	}
	return out
}

func toIntSlice(values []int32) []int {
	if values == nil {
		return nil
	}
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}

// EventMetadata describes how to route an outbox event. Both event types key
// partitions by habit id so downstream consumers observe per-habit ordering.
type EventMetadata struct {
	Topic          string
	SchemaSubject  string
	PartitionKeyFn func(habitID string) string
}

var eventCatalog = map[string]EventMetadata{
	"habit.completion_logged": {
		Topic:          "habit_completion_events",
		SchemaSubject:  "habit_completion_events-value",
		PartitionKeyFn: func(habitID string) string { return habitID },
	},
	"habit.streak_updated": {
		Topic:          "habit_streak_events",
		SchemaSubject:  "habit_streak_events-value",
		PartitionKeyFn: func(habitID string) string { return habitID },
	},
}
