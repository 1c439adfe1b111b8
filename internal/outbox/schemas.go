package outbox

const completionLoggedSchema = `{
  "type": "object",
  "title": "CompletionLogged",
  "properties": {
    "log_id": {"type": "string"},
    "habit_id": {"type": "string"},
    "user_id": {"type": "string"},
    "day": {"type": "string", "format": "date"},
    "status": {"type": "string", "enum": ["done", "skipped", "failed", "pending"]},
    "completed_at": {"type": "string", "format": "date-time"}
  },
  "required": ["log_id", "habit_id", "user_id", "day", "status"],
  "additionalProperties": false
}`

const streakUpdatedSchema = `{
  "type": "object",
  "title": "StreakUpdated",
  "properties": {
    "habit_id": {"type": "string"},
    "user_id": {"type": "string"},
    "current_streak": {"type": "integer", "minimum": 0},
    "longest_streak": {"type": "integer", "minimum": 0},
    "occurred_at": {"type": "string", "format": "date-time"}
  },
  "required": ["habit_id", "user_id", "current_streak", "longest_streak", "occurred_at"],
  "additionalProperties": false
}`
