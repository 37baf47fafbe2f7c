package model

import (
	"time"

	"github.com/google/uuid"

	"routinekeeper/internal/schedule"
)

// StreakData is derived from a routine's completion history and schedule.
// It is always recomputed from the full history, never patched in place.
type StreakData struct {
	CurrentStreak     int        `json:"current_streak"`
	LongestStreak     int        `json:"longest_streak"`
	LastCompletedDate *time.Time `json:"last_completed_date,omitempty"`
}

// Routine is a persisted recurring habit. CompletionDates is kept in
// chronological order; StreakData and AdherenceRate are derived fields.
type Routine struct {
	ID              string            `json:"id"`
	Title           string            `json:"title"`
	Schedule        schedule.Schedule `json:"schedule"`
	CompletionDates []time.Time       `json:"completion_dates"`
	StreakData      StreakData        `json:"streak_data"`
	AdherenceRate   float64           `json:"adherence_rate"`
	OwnerID         string            `json:"owner_id"`
	GoalID          string            `json:"goal_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

// RoutineDraft is a routine before persistence: no identity, no timestamps.
// Promotion to a Routine happens exactly once, through NewRoutine.
type RoutineDraft struct {
	Title    string            `json:"title"`
	Schedule schedule.Schedule `json:"schedule"`
	OwnerID  string            `json:"owner_id"`
	GoalID   string            `json:"goal_id,omitempty"`
}

// NewRoutine validates the draft's schedule and promotes it to a persisted
// routine, stamping identity and timestamps.
func NewRoutine(draft RoutineDraft, now time.Time) (*Routine, error) {
	if err := draft.Schedule.Validate(); err != nil {
		return nil, err
	}
	return &Routine{
		ID:        uuid.NewString(),
		Title:     draft.Title,
		Schedule:  draft.Schedule,
		OwnerID:   draft.OwnerID,
		GoalID:    draft.GoalID,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CompletedIn reports whether at least one completion falls within
// [start, end).
func (r *Routine) CompletedIn(start, end time.Time) bool {
	for _, c := range r.CompletionDates {
		if !c.Before(start) && c.Before(end) {
			return true
		}
	}
	return false
}
