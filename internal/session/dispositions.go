package session

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/model"
	"routinekeeper/internal/reviewcycle"
	"routinekeeper/pkg/metrics"
)

// beginAction admits one disposition action for an item: the session must
// be in Review, the item must exist and be pending, and no other action on
// the same item may be awaiting persistence. The returned release must be
// called when the action resolves.
func (s *Session) beginAction(itemID string) (model.TaskReviewItem, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.doc.Phase != model.PhaseReview {
		return model.TaskReviewItem{}, nil, ErrWrongPhase
	}
	item := s.doc.FindItem(itemID)
	if item == nil {
		return model.TaskReviewItem{}, nil, errs.ErrNotFound
	}
	if s.inFlight[itemID] {
		return model.TaskReviewItem{}, nil, errs.ErrActionInFlight
	}
	if item.Status != model.ItemPending {
		return model.TaskReviewItem{}, nil, fmt.Errorf("item %s is %s, not pending", itemID, item.Status)
	}

	s.inFlight[itemID] = true
	release := func() {
		s.mu.Lock()
		delete(s.inFlight, itemID)
		s.mu.Unlock()
	}
	return *item, release, nil
}

// applyItem mutates the item in the session document and persists the
// session. A failed persistence restores the item to its pre-action state;
// the action must be re-issued by the caller, nothing retries here.
func (s *Session) applyItem(ctx context.Context, prev model.TaskReviewItem, mutate func(*model.TaskReviewItem)) error {
	s.mu.Lock()
	if item := s.doc.FindItem(prev.ID); item != nil {
		mutate(item)
	}
	snapshot := *s.doc
	s.mu.Unlock()

	if err := s.mgr.sessions.Update(ctx, &snapshot); err != nil {
		s.mu.Lock()
		if item := s.doc.FindItem(prev.ID); item != nil {
			*item = prev
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// flushNotes pushes any coalesced note edits for the goal ahead of a
// disposition write, preserving write ordering.
func (s *Session) flushNotes(ctx context.Context, goalID string) error {
	if s.mgr.notesQ == nil || goalID == "" {
		return nil
	}
	return s.mgr.notesQ.Flush(ctx, goalID)
}

// MarkCompleted disposes an item as completed. Routine occurrences are
// recorded through the completion tracker; recurring-review goals get
// their review stamped and the next review date recomputed.
func (s *Session) MarkCompleted(ctx context.Context, itemID string) error {
	item, release, err := s.beginAction(itemID)
	if err != nil {
		return err
	}
	defer release()

	now := s.mgr.clock.Now()

	switch item.Kind {
	case model.ItemRoutine:
		// Always rederive from the latest persisted history, never from a
		// stale in-memory copy.
		routine, err := s.mgr.routines.Get(ctx, item.RefID)
		if err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}
		if _, err := s.mgr.tracker.RecordCompletion(routine, now); err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}
		routine.UpdatedAt = now
		if err := s.mgr.routines.Update(ctx, routine); err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}

	case model.ItemGoalReview:
		if err := s.flushNotes(ctx, item.GoalID); err != nil {
			return err
		}
		goal, err := s.mgr.goals.Get(ctx, item.RefID)
		if err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}
		tt := &goal.TimeTracking
		next, err := reviewcycle.NextReviewDate(tt.Cycle, now)
		if err != nil {
			return err
		}
		tt.LastReviewDate = &now
		tt.NextReviewDate = &next
		tt.CompletedReviews = append(tt.CompletedReviews, now)
		if err := tt.Validate(); err != nil {
			return err
		}
		goal.UpdatedAt = now
		if err := s.mgr.goals.Update(ctx, goal); err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}

	case model.ItemTask:
		if err := s.flushNotes(ctx, item.GoalID); err != nil {
			return err
		}
		goal, err := s.mgr.goals.Get(ctx, item.GoalID)
		if err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}
		task := goal.FindTask(item.RefID)
		if task == nil {
			return errs.ErrNotFound
		}
		task.Status = model.TaskStatusCompleted
		goal.UpdatedAt = now
		if err := s.mgr.goals.Update(ctx, goal); err != nil {
			metrics.IncrementDisposition("completed", "failed")
			return err
		}
	}

	if err := s.applyItem(ctx, item, func(it *model.TaskReviewItem) {
		it.Status = model.ItemCompleted
	}); err != nil {
		metrics.IncrementDisposition("completed", "failed")
		return err
	}

	metrics.IncrementDisposition("completed", "ok")
	s.mgr.logger.Info("Item marked completed",
		zap.String("session_id", s.doc.ID),
		zap.String("item_id", itemID),
		zap.String("kind", string(item.Kind)),
	)
	return nil
}

// PushForward advances the item's due date to the next scheduled
// occurrence without recording a completion. The item stays pending.
func (s *Session) PushForward(ctx context.Context, itemID string) error {
	item, release, err := s.beginAction(itemID)
	if err != nil {
		return err
	}
	defer release()

	var newDue time.Time

	switch item.Kind {
	case model.ItemRoutine:
		routine, err := s.mgr.routines.Get(ctx, item.RefID)
		if err != nil {
			metrics.IncrementDisposition("pushed", "failed")
			return err
		}
		next, ok := routine.Schedule.NextAfter(item.DueDate)
		if !ok {
			return fmt.Errorf("routine %s has no further occurrences", item.RefID)
		}
		newDue = next.At

	case model.ItemGoalReview:
		if err := s.flushNotes(ctx, item.GoalID); err != nil {
			return err
		}
		goal, err := s.mgr.goals.Get(ctx, item.RefID)
		if err != nil {
			metrics.IncrementDisposition("pushed", "failed")
			return err
		}
		tt := &goal.TimeTracking
		if tt.NextReviewDate == nil {
			return errs.NewInvariant("next_review_set", "recurring review goal has no next review date")
		}
		next, err := reviewcycle.NextReviewDate(tt.Cycle, *tt.NextReviewDate)
		if err != nil {
			return err
		}
		tt.NextReviewDate = &next
		if err := tt.Validate(); err != nil {
			return err
		}
		goal.UpdatedAt = s.mgr.clock.Now()
		if err := s.mgr.goals.Update(ctx, goal); err != nil {
			metrics.IncrementDisposition("pushed", "failed")
			return err
		}
		newDue = next

	case model.ItemTask:
		if err := s.flushNotes(ctx, item.GoalID); err != nil {
			return err
		}
		goal, err := s.mgr.goals.Get(ctx, item.GoalID)
		if err != nil {
			metrics.IncrementDisposition("pushed", "failed")
			return err
		}
		task := goal.FindTask(item.RefID)
		if task == nil {
			return errs.ErrNotFound
		}
		// Plain tasks advance to the next planning cycle.
		newDue = item.DueDate.AddDate(0, 0, 7)
		task.DueDate = newDue
		task.Status = model.TaskStatusPending
		goal.UpdatedAt = s.mgr.clock.Now()
		if err := s.mgr.goals.Update(ctx, goal); err != nil {
			metrics.IncrementDisposition("pushed", "failed")
			return err
		}
	}

	if err := s.applyItem(ctx, item, func(it *model.TaskReviewItem) {
		it.DueDate = newDue
	}); err != nil {
		metrics.IncrementDisposition("pushed", "failed")
		return err
	}

	metrics.IncrementDisposition("pushed", "ok")
	s.mgr.logger.Info("Item pushed forward",
		zap.String("session_id", s.doc.ID),
		zap.String("item_id", itemID),
		zap.Time("new_due", newDue),
	)
	return nil
}

// MarkMissed disposes an item as missed. No completion is recorded and
// future scheduling is unaffected.
func (s *Session) MarkMissed(ctx context.Context, itemID string) error {
	item, release, err := s.beginAction(itemID)
	if err != nil {
		return err
	}
	defer release()

	if err := s.applyItem(ctx, item, func(it *model.TaskReviewItem) {
		it.Status = model.ItemMissed
	}); err != nil {
		metrics.IncrementDisposition("missed", "failed")
		return err
	}

	metrics.IncrementDisposition("missed", "ok")
	return nil
}

// Archive removes the item from future aggregation for this entity. The
// underlying entity keeps existing; archived is terminal per item.
func (s *Session) Archive(ctx context.Context, itemID string) error {
	item, release, err := s.beginAction(itemID)
	if err != nil {
		return err
	}
	defer release()

	now := s.mgr.clock.Now()

	// Archiving a task item also archives the underlying task so the next
	// session does not re-aggregate it.
	if item.Kind == model.ItemTask {
		if err := s.flushNotes(ctx, item.GoalID); err != nil {
			return err
		}
		goal, err := s.mgr.goals.Get(ctx, item.GoalID)
		if err != nil {
			metrics.IncrementDisposition("archived", "failed")
			return err
		}
		if task := goal.FindTask(item.RefID); task != nil {
			task.Status = model.TaskStatusArchived
			goal.UpdatedAt = now
			if err := s.mgr.goals.Update(ctx, goal); err != nil {
				metrics.IncrementDisposition("archived", "failed")
				return err
			}
		}
	}

	if err := s.applyItem(ctx, item, func(it *model.TaskReviewItem) {
		it.Status = model.ItemArchived
	}); err != nil {
		metrics.IncrementDisposition("archived", "failed")
		return err
	}

	metrics.IncrementDisposition("archived", "ok")
	return nil
}
