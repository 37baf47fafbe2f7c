package session

import (
	"context"

	"go.uber.org/zap"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/model"
)

// MarkSharedTaskCompleted moves a task between the pending and completed
// sets of a shared goal's collaborative review. This tracking is
// independent of the owner's personal task review items.
func (s *Session) MarkSharedTaskCompleted(ctx context.Context, goalID, taskID string) error {
	s.mu.Lock()
	if s.doc.Phase != model.PhaseReview {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	review := s.doc.FindSharedReview(goalID)
	if review == nil {
		s.mu.Unlock()
		return errs.ErrNotFound
	}

	prev := cloneSharedReview(*review)
	review.PendingTaskIDs = removeID(review.PendingTaskIDs, taskID)
	if !containsID(review.CompletedTaskIDs, taskID) {
		review.CompletedTaskIDs = append(review.CompletedTaskIDs, taskID)
	}
	snapshot := *s.doc
	s.mu.Unlock()

	if err := s.mgr.sessions.Update(ctx, &snapshot); err != nil {
		s.mu.Lock()
		if r := s.doc.FindSharedReview(goalID); r != nil {
			*r = prev
		}
		s.mu.Unlock()
		return err
	}

	s.mgr.logger.Debug("Shared task marked completed",
		zap.String("session_id", s.doc.ID),
		zap.String("goal_id", goalID),
		zap.String("task_id", taskID),
	)
	return nil
}

// RemindCollaborators sends a reminder to the given collaborator user ids
// for a shared goal and records who was reminded in the session.
func (s *Session) RemindCollaborators(ctx context.Context, goalID string, userIDs []string) error {
	s.mu.Lock()
	if s.doc.Phase != model.PhaseReview {
		s.mu.Unlock()
		return ErrWrongPhase
	}
	review := s.doc.FindSharedReview(goalID)
	if review == nil {
		s.mu.Unlock()
		return errs.ErrNotFound
	}
	sessionID := s.doc.ID
	ownerID := s.doc.OwnerID
	s.mu.Unlock()

	goal, err := s.mgr.goals.Get(ctx, goalID)
	if err != nil {
		return err
	}

	sentIDs, remindErr := s.mgr.reminders.Remind(ctx, sessionID, goalID, goal.Name, ownerID, userIDs)
	if len(sentIDs) == 0 {
		return remindErr
	}

	s.mu.Lock()
	review = s.doc.FindSharedReview(goalID)
	if review == nil {
		s.mu.Unlock()
		return remindErr
	}
	prev := cloneSharedReview(*review)
	for _, userID := range sentIDs {
		if !containsID(review.RemindedUserIDs, userID) {
			review.RemindedUserIDs = append(review.RemindedUserIDs, userID)
		}
	}
	snapshot := *s.doc
	s.mu.Unlock()

	if err := s.mgr.sessions.Update(ctx, &snapshot); err != nil {
		s.mu.Lock()
		if r := s.doc.FindSharedReview(goalID); r != nil {
			*r = prev
		}
		s.mu.Unlock()
		return err
	}

	return remindErr
}

func containsID(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}

// removeID returns a fresh slice so rollback copies keep their backing
// arrays intact.
func removeID(ids []string, id string) []string {
	var out []string
	for _, existing := range ids {
		if existing != id {
			out = append(out, existing)
		}
	}
	return out
}

func cloneSharedReview(r model.SharedGoalReview) model.SharedGoalReview {
	out := r
	out.CompletedTaskIDs = append([]string(nil), r.CompletedTaskIDs...)
	out.PendingTaskIDs = append([]string(nil), r.PendingTaskIDs...)
	out.RemindedUserIDs = append([]string(nil), r.RemindedUserIDs...)
	return out
}
