package mq

// ReviewRemindPayload is a notification request asking an external channel
// to nudge a collaborator about their pending tasks on a shared goal.
type ReviewRemindPayload struct {
	SessionID string `json:"session_id"`
	GoalID    string `json:"goal_id"`
	FromUser  string `json:"from_user"`
	ToUser    string `json:"to_user"`
	GoalName  string `json:"goal_name,omitempty"`
}

// SessionClosedPayload is published when a review session reaches its
// terminal phase.
type SessionClosedPayload struct {
	SessionID string `json:"session_id"`
	OwnerID   string `json:"owner_id"`
	ClosedAt  string `json:"closed_at"` // RFC 3339
	Completed int    `json:"completed"`
	Missed    int    `json:"missed"`
	Archived  int    `json:"archived"`
}
