package model

import "time"

// SessionPhase is the review session's lifecycle phase. A session moves
// Planning -> Review -> Closed and never cycles back; the next planning
// checkpoint creates a fresh session.
type SessionPhase string

const (
	PhasePlanning SessionPhase = "planning"
	PhaseReview   SessionPhase = "review"
	PhaseClosed   SessionPhase = "closed"
)

// ItemKind identifies what a review item refers to.
type ItemKind string

const (
	ItemTask       ItemKind = "task"
	ItemRoutine    ItemKind = "routine"
	ItemGoalReview ItemKind = "goal_review"
)

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemCompleted ItemStatus = "completed"
	ItemMissed    ItemStatus = "missed"
	ItemArchived  ItemStatus = "archived"
)

// TaskReviewItem is one due item aggregated into a review session. RefID
// points at the underlying task, routine, or goal; GoalID is set for task
// items so dispositions can locate the owning goal document.
type TaskReviewItem struct {
	ID      string     `json:"id"`
	Kind    ItemKind   `json:"kind"`
	RefID   string     `json:"ref_id"`
	GoalID  string     `json:"goal_id,omitempty"`
	Status  ItemStatus `json:"status"`
	DueDate time.Time  `json:"due_date"`
}

// SharedGoalReview tracks collaborative task disposition on a shared goal,
// independently of the owner's personal task review.
type SharedGoalReview struct {
	GoalID           string   `json:"goal_id"`
	CompletedTaskIDs []string `json:"completed_task_ids,omitempty"`
	PendingTaskIDs   []string `json:"pending_task_ids,omitempty"`
	RemindedUserIDs  []string `json:"reminded_user_ids,omitempty"`
}

// ReviewPhaseState is the aggregate of items due at a planning checkpoint.
type ReviewPhaseState struct {
	TaskReviews       []TaskReviewItem   `json:"task_reviews,omitempty"`
	SharedGoalReviews []SharedGoalReview `json:"shared_goal_reviews,omitempty"`
}

// ReviewSessionDoc is the per-user, per-cycle review session document.
type ReviewSessionDoc struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Phase       SessionPhase     `json:"phase"`
	ReviewPhase ReviewPhaseState `json:"review_phase"`
	CreatedAt   time.Time        `json:"created_at"`
}

// FindItem returns a pointer to the review item with the given id, or nil.
func (d *ReviewSessionDoc) FindItem(itemID string) *TaskReviewItem {
	for i := range d.ReviewPhase.TaskReviews {
		if d.ReviewPhase.TaskReviews[i].ID == itemID {
			return &d.ReviewPhase.TaskReviews[i]
		}
	}
	return nil
}

// FindSharedReview returns the shared review entry for a goal, or nil.
func (d *ReviewSessionDoc) FindSharedReview(goalID string) *SharedGoalReview {
	for i := range d.ReviewPhase.SharedGoalReviews {
		if d.ReviewPhase.SharedGoalReviews[i].GoalID == goalID {
			return &d.ReviewPhase.SharedGoalReviews[i]
		}
	}
	return nil
}

// PendingCount returns the number of items still pending disposition.
func (d *ReviewSessionDoc) PendingCount() int {
	n := 0
	for _, item := range d.ReviewPhase.TaskReviews {
		if item.Status == ItemPending {
			n++
		}
	}
	return n
}
