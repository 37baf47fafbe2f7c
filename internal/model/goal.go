package model

import (
	"fmt"
	"time"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/reviewcycle"
)

type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusMissed    TaskStatus = "missed"
	TaskStatusArchived  TaskStatus = "archived"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// Task is a concrete dated work item on a goal. Tasks materialized from a
// routine occurrence carry the routine's id in SourceRoutineID.
type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	DueDate         time.Time  `json:"due_date"`
	Status          TaskStatus `json:"status"`
	SourceRoutineID string     `json:"source_routine_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

type Milestone struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	PhaseOrder  int       `json:"phase_order"`
	TargetDate  time.Time `json:"target_date"`
	Status      string    `json:"status"` // pending / in_progress / completed
}

// TimeTrackingMode selects how a goal's progress is paced.
type TimeTrackingMode string

const (
	TrackFixedDeadline   TimeTrackingMode = "fixed_deadline"
	TrackRecurringReview TimeTrackingMode = "recurring_review"
)

// TimeTracking is the tagged union pacing a goal: either a fixed deadline,
// or a recurring review at a fixed cycle. Deadline is meaningful only under
// TrackFixedDeadline; the review fields only under TrackRecurringReview.
type TimeTracking struct {
	Mode             TimeTrackingMode  `json:"mode"`
	Deadline         *time.Time        `json:"deadline,omitempty"`
	Cycle            reviewcycle.Cycle `json:"cycle,omitempty"`
	NextReviewDate   *time.Time        `json:"next_review_date,omitempty"`
	LastReviewDate   *time.Time        `json:"last_review_date,omitempty"`
	CompletedReviews []time.Time       `json:"completed_reviews,omitempty"`
}

// Validate checks the union's shape and its ordering invariant. A
// NextReviewDate at or before LastReviewDate is an internal inconsistency,
// reported loudly rather than coerced.
func (t TimeTracking) Validate() error {
	switch t.Mode {
	case TrackFixedDeadline:
		if t.Deadline == nil {
			return errs.NewValidation("deadline", "required for fixed_deadline tracking")
		}
	case TrackRecurringReview:
		if !t.Cycle.Valid() {
			return errs.NewValidation("cycle", fmt.Sprintf("unknown review cycle %q", t.Cycle))
		}
		if t.NextReviewDate == nil {
			return errs.NewValidation("next_review_date", "required for recurring_review tracking")
		}
		if t.LastReviewDate != nil && !t.NextReviewDate.After(*t.LastReviewDate) {
			return errs.NewInvariant("next_after_last",
				fmt.Sprintf("next_review_date %s is not after last_review_date %s",
					t.NextReviewDate.Format(time.RFC3339), t.LastReviewDate.Format(time.RFC3339)))
		}
	default:
		return errs.NewValidation("mode", fmt.Sprintf("unknown time tracking mode %q", t.Mode))
	}
	return nil
}

// Goal is a long-running objective document. Routines attached to the goal
// live in their own collection and are referenced by id, so a routine
// completion never rewrites the whole goal document.
type Goal struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	TimeTracking TimeTracking `json:"time_tracking"`
	Milestones   []Milestone  `json:"milestones,omitempty"`
	Tasks        []Task       `json:"tasks,omitempty"`
	RoutineIDs   []string     `json:"routine_ids,omitempty"`
	AreaID       string       `json:"area_id,omitempty"`
	OwnerID      string       `json:"owner_id"`
	SharedWith   []string     `json:"shared_with,omitempty"`
	Notes        string       `json:"notes,omitempty"`
	NotesVersion int64        `json:"notes_version"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// FindTask returns a pointer to the task with the given id, or nil.
func (g *Goal) FindTask(taskID string) *Task {
	for i := range g.Tasks {
		if g.Tasks[i].ID == taskID {
			return &g.Tasks[i]
		}
	}
	return nil
}
