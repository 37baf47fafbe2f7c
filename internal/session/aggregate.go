package session

import (
	"time"

	"github.com/google/uuid"

	"routinekeeper/internal/model"
)

// aggregate builds the review-phase state as of now from the user's goals
// and routines.
func (m *Manager) aggregate(goals []model.Goal, routines []model.Routine, now time.Time) (model.ReviewPhaseState, error) {
	var state model.ReviewPhaseState

	for _, goal := range goals {
		for _, task := range goal.Tasks {
			if !dueForReview(task, now) {
				continue
			}
			state.TaskReviews = append(state.TaskReviews, model.TaskReviewItem{
				ID:      uuid.NewString(),
				Kind:    model.ItemTask,
				RefID:   task.ID,
				GoalID:  goal.ID,
				Status:  model.ItemPending,
				DueDate: task.DueDate,
			})
		}

		if goal.TimeTracking.Mode == model.TrackRecurringReview &&
			goal.TimeTracking.NextReviewDate != nil &&
			!goal.TimeTracking.NextReviewDate.After(now) {
			state.TaskReviews = append(state.TaskReviews, model.TaskReviewItem{
				ID:      uuid.NewString(),
				Kind:    model.ItemGoalReview,
				RefID:   goal.ID,
				GoalID:  goal.ID,
				Status:  model.ItemPending,
				DueDate: *goal.TimeTracking.NextReviewDate,
			})
		}

		if len(goal.SharedWith) > 0 {
			state.SharedGoalReviews = append(state.SharedGoalReviews, sharedReview(goal))
		}
	}

	for _, routine := range routines {
		due, ok, err := unmetOccurrence(&routine, now)
		if err != nil {
			return model.ReviewPhaseState{}, err
		}
		if !ok {
			continue
		}
		state.TaskReviews = append(state.TaskReviews, model.TaskReviewItem{
			ID:      uuid.NewString(),
			Kind:    model.ItemRoutine,
			RefID:   routine.ID,
			GoalID:  routine.GoalID,
			Status:  model.ItemPending,
			DueDate: due,
		})
	}

	return state, nil
}

// dueForReview reports whether a task belongs in the review aggregate: its
// due date has elapsed and it has not been completed or archived.
func dueForReview(task model.Task, now time.Time) bool {
	if task.DueDate.After(now) {
		return false
	}
	return task.Status == model.TaskStatusPending || task.Status == model.TaskStatusOverdue
}

// unmetOccurrence reports whether the routine's current period has more
// elapsed expected occurrences than completions, returning the earliest
// uncovered due instant.
func unmetOccurrence(r *model.Routine, now time.Time) (time.Time, bool, error) {
	expected, err := r.Schedule.ExpectedInPeriod(now)
	if err != nil {
		return time.Time{}, false, err
	}

	periodStart, periodEnd := r.Schedule.PeriodOf(now)
	completions := 0
	for _, c := range r.CompletionDates {
		if !c.Before(periodStart) && c.Before(periodEnd) {
			completions++
		}
	}

	elapsed := 0
	var earliestUncovered time.Time
	for _, occ := range expected {
		if occ.At.After(now) {
			break
		}
		elapsed++
		if elapsed > completions && earliestUncovered.IsZero() {
			earliestUncovered = occ.At
		}
	}

	if elapsed <= completions {
		return time.Time{}, false, nil
	}
	return earliestUncovered, true, nil
}

// sharedReview seeds the collaborative review entry for a shared goal from
// its current task statuses.
func sharedReview(goal model.Goal) model.SharedGoalReview {
	review := model.SharedGoalReview{GoalID: goal.ID}
	for _, task := range goal.Tasks {
		switch task.Status {
		case model.TaskStatusCompleted:
			review.CompletedTaskIDs = append(review.CompletedTaskIDs, task.ID)
		case model.TaskStatusPending, model.TaskStatusOverdue:
			review.PendingTaskIDs = append(review.PendingTaskIDs, task.ID)
		}
	}
	return review
}
