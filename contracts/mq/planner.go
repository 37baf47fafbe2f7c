package mq

// RoutineDuePayload is published when a routine's current period has an
// unmet occurrence whose due instant has elapsed.
type RoutineDuePayload struct {
	RoutineID  string `json:"routine_id"`
	GoalID     string `json:"goal_id,omitempty"`
	OwnerID    string `json:"owner_id"`
	Title      string `json:"title"`
	DueDate    string `json:"due_date"` // RFC 3339
	AssignedTo string `json:"assigned_to,omitempty"`
}

// TaskOverduePayload is published when a goal task's due date has elapsed
// without the task being completed.
type TaskOverduePayload struct {
	TaskID  string `json:"task_id"`
	GoalID  string `json:"goal_id"`
	OwnerID string `json:"owner_id"`
	Title   string `json:"title"`
	DueDate string `json:"due_date"` // RFC 3339
}

// GoalReviewDuePayload is published when a recurring-review goal's next
// review date has elapsed.
type GoalReviewDuePayload struct {
	GoalID         string `json:"goal_id"`
	OwnerID        string `json:"owner_id"`
	Name           string `json:"name"`
	Cycle          string `json:"cycle"`
	NextReviewDate string `json:"next_review_date"` // RFC 3339
}

// TaskMaterializedPayload is published after a due routine occurrence has
// been materialized into a concrete task on the owning goal.
type TaskMaterializedPayload struct {
	TaskID    string `json:"task_id"`
	RoutineID string `json:"routine_id"`
	GoalID    string `json:"goal_id"`
	OwnerID   string `json:"owner_id"`
	DueDate   string `json:"due_date"` // RFC 3339
}
