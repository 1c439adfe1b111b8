// Package api exposes HTTP handlers for the habit service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"example.com/habits/internal/analytics"
	"example.com/habits/internal/auth"
	"example.com/habits/internal/domain"
	"example.com/habits/internal/persistence"
)

// Handler coordinates HTTP requests with the domain service and the
// analytics aggregator.
type Handler struct {
	service    *domain.Service
	aggregator *analytics.Aggregator
}

// NewHandler builds a Handler.
func NewHandler(service *domain.Service, aggregator *analytics.Aggregator) *Handler {
	return &Handler{service: service, aggregator: aggregator}
}

// RegisterRoutes wires endpoints to the mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/habits", h.habits)
	mux.HandleFunc("/v1/habits/", h.habitSubtree)
	mux.HandleFunc("/v1/stats/analytics", h.analytics)
	mux.HandleFunc("/v1/stats/dashboard", h.dashboard)
	mux.HandleFunc("/healthz", healthz)
}

// healthz reports a simple OK status for container health checks.
func healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) habits(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.createHabit(w, r)
	case http.MethodGet:
		h.listHabits(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

// habitSubtree dispatches /v1/habits/{id}, /v1/habits/{id}/log, and
// /v1/habits/{id}/logs.
func (h *Handler) habitSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/habits/")
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "invalid_request", "missing habit id")
		return
	}

	switch tail {
	case "":
		h.habitByID(w, r, id)
	case "log":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.recordCompletion(w, r, id)
	case "logs":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
			return
		}
		h.listLogs(w, r, id)
	default:
		writeError(w, http.StatusNotFound, "not_found", "unknown resource")
	}
}

func (h *Handler) habitByID(w http.ResponseWriter, r *http.Request, id string) {
	switch r.Method {
	case http.MethodGet:
		h.getHabit(w, r, id)
	case http.MethodPatch:
		h.updateHabit(w, r, id)
	case http.MethodDelete:
		h.deleteHabit(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
	}
}

func (h *Handler) createHabit(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	var req CreateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	habit, err := h.service.CreateHabit(r.Context(), domain.CreateHabitInput{
		UserID:        claims.Subject,
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Frequency:     req.Frequency,
		FrequencyDays: req.FrequencyDays,
		Color:         req.Color,
		Icon:          req.Icon,
		Priority:      req.Priority,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toHabitView(*habit))
}

func (h *Handler) getHabit(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsRead, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	habit, err := h.service.GetHabit(r.Context(), claims.Subject, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHabitView(*habit))
}

func (h *Handler) listHabits(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsRead, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	habits, err := h.service.ListHabits(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]HabitView, 0, len(habits))
	for _, habit := range habits {
		items = append(items, toHabitView(habit))
	}
	writeJSON(w, http.StatusOK, ListHabitsResponse{Items: items})
}

func (h *Handler) updateHabit(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	var req UpdateHabitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	habit, err := h.service.UpdateHabit(r.Context(), claims.Subject, id, domain.UpdateHabitInput{
		Name:          req.Name,
		Description:   req.Description,
		Category:      req.Category,
		Frequency:     req.Frequency,
		FrequencyDays: req.FrequencyDays,
		Color:         req.Color,
		Icon:          req.Icon,
		Priority:      req.Priority,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toHabitView(*habit))
}

func (h *Handler) deleteHabit(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	if err := h.service.DeleteHabit(r.Context(), claims.Subject, id); err != nil {
		writeDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) recordCompletion(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	var req RecordCompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "unable to parse body")
		return
	}

	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	var date time.Time
	if req.Date != "" {
		parsed, err := time.Parse("2006-01-02", req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "validation_failed", "date must be formatted YYYY-MM-DD")
			return
		}
		date = parsed
	}

	log, err := h.service.RecordCompletion(r.Context(), domain.RecordCompletionInput{
		HabitID: id,
		UserID:  claims.Subject,
		Date:    date,
		Status:  req.Status,
		Note:    req.Note,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toLogView(*log))
}

func (h *Handler) listLogs(w http.ResponseWriter, r *http.Request, id string) {
	claims, ok := requireScope(w, r, auth.ScopeHabitsRead, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	days := 0
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "validation_failed", "days must be a positive integer")
			return
		}
		days = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	cursorToken := r.URL.Query().Get("cursor")
	cursor, err := persistence.DecodeCursor(cursorToken)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", "invalid cursor")
		return
	}

	logs, next, err := h.service.ListLogs(r.Context(), claims.Subject, id, days, cursor, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	items := make([]CompletionLogView, 0, len(logs))
	for _, log := range logs {
		items = append(items, toLogView(log))
	}

	writeJSON(w, http.StatusOK, ListLogsResponse{
		Items:      items,
		NextCursor: persistence.EncodeCursor(next),
	})
}

func (h *Handler) analytics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeHabitsRead, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	windowDays, err := resolveWindow(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
		return
	}

	result, err := h.aggregator.Aggregate(r.Context(), claims.Subject, windowDays)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", "unsupported method")
		return
	}

	claims, ok := requireScope(w, r, auth.ScopeHabitsRead, auth.ScopeHabitsWrite)
	if !ok {
		return
	}

	stats, err := h.aggregator.DashboardSummary(r.Context(), claims.Subject)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, stats)
}

// resolveWindow maps ?period=week|month|year to a day count, with ?days=N as
// an explicit override. The default window is one week.
func resolveWindow(r *http.Request) (int, error) {
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return 0, errors.New("days must be a positive integer")
		}
		return parsed, nil
	}

	switch r.URL.Query().Get("period") {
	case "", "week":
		return 7, nil
	case "month":
		return 30, nil
	case "year":
		return 365, nil
	default:
		return 0, errors.New("period must be week, month, or year")
	}
}

// requireScope extracts claims and enforces that at least one of the given
// scopes is present. It writes the error response itself on failure.
func requireScope(w http.ResponseWriter, r *http.Request, scopes ...string) (*auth.Claims, bool) {
	claims, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing bearer token")
		return nil, false
	}
	for _, scope := range scopes {
		if claims.HasScope(scope) {
			return claims, true
		}
	}
	writeError(w, http.StatusForbidden, "forbidden", "scope "+scopes[0]+" required")
	return nil, false
}

// CreateHabitRequest is the payload for POST /v1/habits.
type CreateHabitRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Category      string `json:"category"`
	Frequency     string `json:"frequency"`
	FrequencyDays []int  `json:"frequencyDays"`
	Color         string `json:"color"`
	Icon          string `json:"icon"`
	Priority      string `json:"priority"`
}

// Validate ensures request correctness.
func (r CreateHabitRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	return nil
}

// UpdateHabitRequest is the payload for PATCH /v1/habits/{id}. Absent fields
// are left untouched.
type UpdateHabitRequest struct {
	Name          *string `json:"name"`
	Description   *string `json:"description"`
	Category      *string `json:"category"`
	Frequency     *string `json:"frequency"`
	FrequencyDays []int   `json:"frequencyDays"`
	Color         *string `json:"color"`
	Icon          *string `json:"icon"`
	Priority      *string `json:"priority"`
}

// RecordCompletionRequest is the payload for POST /v1/habits/{id}/log.
type RecordCompletionRequest struct {
	Date   string `json:"date"`
	Status string `json:"status"`
	Note   string `json:"note"`
}

// Validate ensures request correctness.
func (r RecordCompletionRequest) Validate() error {
	if strings.TrimSpace(r.Status) == "" {
		return errors.New("status is required")
	}
	return nil
}

// HabitView exposes full details about a habit.
type HabitView struct {
	HabitID       string    `json:"habitId"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	Category      string    `json:"category"`
	Frequency     string    `json:"frequency"`
	FrequencyDays []int     `json:"frequencyDays,omitempty"`
	Color         string    `json:"color"`
	Icon          string    `json:"icon"`
	Priority      string    `json:"priority"`
	CurrentStreak int       `json:"currentStreak"`
	LongestStreak int       `json:"longestStreak"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ListHabitsResponse packages list results.
type ListHabitsResponse struct {
	Items []HabitView `json:"items"`
}

// CompletionLogView exposes one completion log entry.
type CompletionLogView struct {
	LogID       string     `json:"logId"`
	HabitID     string     `json:"habitId"`
	Date        string     `json:"date"`
	Status      string     `json:"status"`
	Note        string     `json:"note,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ListLogsResponse packages log listings with an optional pagination cursor.
type ListLogsResponse struct {
	Items      []CompletionLogView `json:"items"`
	NextCursor string              `json:"next_cursor,omitempty"`
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

// writeDomainError maps service errors onto HTTP statuses. A missing habit
// and a habit owned by someone else produce the same 404.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrHabitNotFound):
		writeError(w, http.StatusNotFound, "not_found", "habit not found")
	case errors.Is(err, domain.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "validation_failed", err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "server_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toHabitView(habit domain.Habit) HabitView {
	return HabitView{
		HabitID:       habit.ID,
		Name:          habit.Name,
		Description:   habit.Description,
		Category:      habit.Category,
		Frequency:     string(habit.Frequency),
		FrequencyDays: habit.FrequencyDays,
		Color:         habit.Color,
		Icon:          habit.Icon,
		Priority:      string(habit.Priority),
		CurrentStreak: habit.CurrentStreak,
		LongestStreak: habit.LongestStreak,
		CreatedAt:     habit.CreatedAt,
		UpdatedAt:     habit.UpdatedAt,
	}
}

func toLogView(log domain.CompletionLog) CompletionLogView {
	return CompletionLogView{
		LogID:       log.ID,
		HabitID:     log.HabitID,
		Date:        log.Day.Format("2006-01-02"),
		Status:      string(log.Status),
		Note:        log.Note,
		CompletedAt: log.CompletedAt,
	}
}
