package mqhandler

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/internal/store"
)

type recordingPublisher struct {
	mu   sync.Mutex
	keys []string
}

func (p *recordingPublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.keys = append(p.keys, routingKey)
	return nil
}

func newHandlerFixture(t *testing.T) (*RoutineDueHandler, *store.GoalRepository, *recordingPublisher) {
	t.Helper()
	mem := store.NewMemoryStore()
	log := zap.NewNop()
	goals := store.NewGoalRepository(mem, log)

	deadline := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	goal := &model.Goal{
		ID:      "goal-1",
		Name:    "get fit",
		OwnerID: "user-1",
		TimeTracking: model.TimeTracking{
			Mode:     model.TrackFixedDeadline,
			Deadline: &deadline,
		},
	}
	if err := goals.Insert(context.Background(), goal); err != nil {
		t.Fatalf("insert goal: %v", err)
	}

	pub := &recordingPublisher{}
	clk := clock.Fixed{T: time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)}
	return NewRoutineDueHandler(goals, pub, clk, log), goals, pub
}

func duePayload(t *testing.T, goalID string) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(map[string]string{
		"routine_id": "routine-1",
		"goal_id":    goalID,
		"owner_id":   "user-1",
		"title":      "stretch",
		"due_date":   "2024-03-18T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestHandle_MaterializesTask(t *testing.T) {
	h, goals, pub := newHandlerFixture(t)
	ctx := context.Background()

	if err := h.Handle(ctx, duePayload(t, "goal-1")); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	goal, err := goals.Get(ctx, "goal-1")
	if err != nil {
		t.Fatalf("Get goal: %v", err)
	}
	if len(goal.Tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(goal.Tasks))
	}
	task := goal.Tasks[0]
	if task.SourceRoutineID != "routine-1" {
		t.Errorf("source routine = %s, want routine-1", task.SourceRoutineID)
	}
	if task.Status != model.TaskStatusPending {
		t.Errorf("status = %s, want pending", task.Status)
	}
	if want := time.Date(2024, 3, 18, 0, 0, 0, 0, time.UTC); !task.DueDate.Equal(want) {
		t.Errorf("due date = %v, want %v", task.DueDate, want)
	}

	if len(pub.keys) != 1 || pub.keys[0] != "task.materialized" {
		t.Errorf("published = %v, want [task.materialized]", pub.keys)
	}
}

func TestHandle_RedeliveryDoesNotDuplicate(t *testing.T) {
	h, goals, _ := newHandlerFixture(t)
	ctx := context.Background()

	if err := h.Handle(ctx, duePayload(t, "goal-1")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := h.Handle(ctx, duePayload(t, "goal-1")); err != nil {
		t.Fatalf("Handle redelivery: %v", err)
	}

	goal, err := goals.Get(ctx, "goal-1")
	if err != nil {
		t.Fatalf("Get goal: %v", err)
	}
	if len(goal.Tasks) != 1 {
		t.Errorf("tasks after redelivery = %d, want 1", len(goal.Tasks))
	}
}

func TestHandle_StandaloneRoutineIgnored(t *testing.T) {
	h, _, pub := newHandlerFixture(t)

	if err := h.Handle(context.Background(), duePayload(t, "")); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if len(pub.keys) != 0 {
		t.Errorf("published = %v, want none", pub.keys)
	}
}

func TestHandle_RejectsMalformedPayload(t *testing.T) {
	h, _, _ := newHandlerFixture(t)

	if err := h.Handle(context.Background(), json.RawMessage(`{not json`)); err == nil {
		t.Error("Handle malformed payload = nil, want error")
	}

	raw, _ := json.Marshal(map[string]string{
		"routine_id": "routine-1",
		"goal_id":    "goal-1",
		"due_date":   "not a timestamp",
	})
	if err := h.Handle(context.Background(), raw); err == nil {
		t.Error("Handle bad due_date = nil, want error")
	}
}
