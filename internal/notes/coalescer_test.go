package notes

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/model"
	"routinekeeper/internal/store"
)

func newGoalFixture(t *testing.T) (*Coalescer, *store.GoalRepository, *store.MemoryStore, string) {
	t.Helper()
	mem := store.NewMemoryStore()
	goals := store.NewGoalRepository(mem, zap.NewNop())

	deadline := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	goal := &model.Goal{
		ID:      "goal-1",
		Name:    "learn piano",
		OwnerID: "user-1",
		TimeTracking: model.TimeTracking{
			Mode:     model.TrackFixedDeadline,
			Deadline: &deadline,
		},
	}
	if err := goals.Insert(context.Background(), goal); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	return NewCoalescer(goals, zap.NewNop()), goals, mem, goal.ID
}

func TestQueueFlush_CoalescesToSingleWrite(t *testing.T) {
	c, goals, _, goalID := newGoalFixture(t)
	ctx := context.Background()

	if err := c.Queue(goalID, "first draft", 1); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := c.Queue(goalID, "second draft", 2); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := c.Queue(goalID, "final draft", 3); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	if err := c.Flush(ctx, goalID); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	goal, err := goals.Get(ctx, goalID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if goal.Notes != "final draft" {
		t.Errorf("notes = %q, want %q", goal.Notes, "final draft")
	}
	if goal.NotesVersion != 3 {
		t.Errorf("notes version = %d, want 3", goal.NotesVersion)
	}
}

func TestQueue_RejectsStaleVersion(t *testing.T) {
	c, _, _, goalID := newGoalFixture(t)

	if err := c.Queue(goalID, "newer", 5); err != nil {
		t.Fatalf("Queue: %v", err)
	}
	if err := c.Queue(goalID, "older", 5); !errors.Is(err, errs.ErrStaleWrite) {
		t.Errorf("Queue(same version) = %v, want ErrStaleWrite", err)
	}
	if err := c.Queue(goalID, "older still", 3); !errors.Is(err, errs.ErrStaleWrite) {
		t.Errorf("Queue(older version) = %v, want ErrStaleWrite", err)
	}
}

func TestFlush_NothingPending(t *testing.T) {
	c, _, _, goalID := newGoalFixture(t)
	if err := c.Flush(context.Background(), goalID); err != nil {
		t.Errorf("Flush with nothing pending = %v, want nil", err)
	}
}

func TestFlush_FailureKeepsEditPending(t *testing.T) {
	c, goals, mem, goalID := newGoalFixture(t)
	ctx := context.Background()

	if err := c.Queue(goalID, "important notes", 1); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	mem.FailWrites(1, errors.New("connection reset"))
	if err := c.Flush(ctx, goalID); err == nil {
		t.Fatal("Flush during store failure = nil, want error")
	}

	// The edit survives the failure and the next flush lands it.
	if err := c.Flush(ctx, goalID); err != nil {
		t.Fatalf("Flush after recovery: %v", err)
	}
	goal, err := goals.Get(ctx, goalID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if goal.Notes != "important notes" {
		t.Errorf("notes = %q, want %q", goal.Notes, "important notes")
	}
}
