package notes

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/store"
)

type pendingNote struct {
	notes   string
	version int64
}

// Coalescer collapses rapid free-text note edits into a single store write
// per goal. Edits carry a monotonic version token; an edit at or below the
// highest accepted version is rejected as stale instead of silently
// clobbering newer text. Flush must be called before disposition actions
// that persist the same goal, so note writes are never reordered past them.
type Coalescer struct {
	mu       sync.Mutex
	pending  map[string]pendingNote
	accepted map[string]int64
	goals    *store.GoalRepository
	logger   *zap.Logger
}

func NewCoalescer(goals *store.GoalRepository, logger *zap.Logger) *Coalescer {
	return &Coalescer{
		pending:  make(map[string]pendingNote),
		accepted: make(map[string]int64),
		goals:    goals,
		logger:   logger,
	}
}

// Queue records an edit for later flushing, replacing any pending edit for
// the same goal. Returns ErrStaleWrite when version is not newer than the
// highest version seen for the goal.
func (c *Coalescer) Queue(goalID, notes string, version int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if version <= c.accepted[goalID] {
		c.logger.Warn("Rejected stale note edit",
			zap.String("goal_id", goalID),
			zap.Int64("version", version),
			zap.Int64("accepted", c.accepted[goalID]),
		)
		return errs.ErrStaleWrite
	}

	c.pending[goalID] = pendingNote{notes: notes, version: version}
	c.accepted[goalID] = version
	return nil
}

// Flush writes the latest pending edit for the goal, if any, as a single
// store write. A failed write restores the pending edit so the caller can
// re-issue the flush; nothing is retried automatically.
func (c *Coalescer) Flush(ctx context.Context, goalID string) error {
	c.mu.Lock()
	note, ok := c.pending[goalID]
	if ok {
		delete(c.pending, goalID)
	}
	c.mu.Unlock()

	if !ok {
		return nil
	}

	if err := c.goals.UpdateNotes(ctx, goalID, note.notes, note.version); err != nil {
		c.mu.Lock()
		// Keep the newest edit: a Queue may have landed while unlocked.
		if cur, exists := c.pending[goalID]; !exists || cur.version < note.version {
			c.pending[goalID] = note
		}
		c.mu.Unlock()

		c.logger.Error("Failed to flush note edit",
			zap.String("goal_id", goalID),
			zap.Int64("version", note.version),
			zap.Error(err),
		)
		return err
	}

	c.logger.Debug("Note edit flushed",
		zap.String("goal_id", goalID),
		zap.Int64("version", note.version),
	)
	return nil
}

// FlushAll flushes every goal with a pending edit, returning the first
// error encountered.
func (c *Coalescer) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	ids := make([]string, 0, len(c.pending))
	for id := range c.pending {
		ids = append(ids, id)
	}
	c.mu.Unlock()

	var firstErr error
	for _, id := range ids {
		if err := c.Flush(ctx, id); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
