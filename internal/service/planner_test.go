package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/internal/notify"
	"routinekeeper/internal/schedule"
	"routinekeeper/internal/session"
	"routinekeeper/internal/store"
	"routinekeeper/internal/tracker"
)

type capturePublisher struct {
	mu       sync.Mutex
	messages []capturedMessage
}

type capturedMessage struct {
	routingKey string
	payload    any
}

func (p *capturePublisher) Publish(routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, capturedMessage{routingKey: routingKey, payload: payload})
	return nil
}

func (p *capturePublisher) countKey(key string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.routingKey == key {
			n++
		}
	}
	return n
}

type plannerFixture struct {
	planner  *Planner
	pub      *capturePublisher
	mem      *store.MemoryStore
	routines *store.RoutineRepository
	goals    *store.GoalRepository
	now      time.Time
}

// newPlannerFixture wires a planner against in-memory storage as of Monday
// 2024-03-18 10:00 UTC, with Monday as the review weekday.
func newPlannerFixture(t *testing.T) *plannerFixture {
	t.Helper()
	now := time.Date(2024, 3, 18, 10, 0, 0, 0, time.UTC)

	mem := store.NewMemoryStore()
	log := zap.NewNop()
	routines := store.NewRoutineRepository(mem, log)
	goals := store.NewGoalRepository(mem, log)
	sessions := store.NewSessionRepository(mem, log)

	pub := &capturePublisher{}
	clk := clock.Fixed{T: now}
	trk := tracker.New(clk, 0, log)
	reminders := notify.NewReminderService(pub, notify.NewMemoryDeduper(), log)
	mgr := session.NewManager(sessions, routines, goals, trk, reminders, nil, pub, clk, log)

	planner := NewPlanner(routines, goals, mgr, pub, notify.NewMemoryDeduper(),
		clk, time.Monday, log)

	return &plannerFixture{
		planner:  planner,
		pub:      pub,
		mem:      mem,
		routines: routines,
		goals:    goals,
		now:      now,
	}
}

func insertDailyRoutine(t *testing.T, f *plannerFixture, id string, completions ...time.Time) {
	t.Helper()
	r := &model.Routine{
		ID:              id,
		Title:           "stretch",
		OwnerID:         "user-1",
		Schedule:        schedule.Schedule{Frequency: schedule.FrequencyDaily, TargetCount: 1},
		CompletionDates: completions,
		CreatedAt:       time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
	}
	if err := f.routines.Insert(context.Background(), r); err != nil {
		t.Fatalf("insert routine: %v", err)
	}
}

func TestSweepDueRoutines_PublishesUnmetOccurrence(t *testing.T) {
	f := newPlannerFixture(t)
	insertDailyRoutine(t, f, "routine-1")

	if err := f.planner.SweepDueRoutines(context.Background()); err != nil {
		t.Fatalf("SweepDueRoutines: %v", err)
	}
	if got := f.pub.countKey("routine.due"); got != 1 {
		t.Errorf("routine.due published %d times, want 1", got)
	}
}

func TestSweepDueRoutines_DeduplicatesAcrossSweeps(t *testing.T) {
	f := newPlannerFixture(t)
	insertDailyRoutine(t, f, "routine-1")
	ctx := context.Background()

	if err := f.planner.SweepDueRoutines(ctx); err != nil {
		t.Fatalf("SweepDueRoutines: %v", err)
	}
	if err := f.planner.SweepDueRoutines(ctx); err != nil {
		t.Fatalf("SweepDueRoutines: %v", err)
	}
	if got := f.pub.countKey("routine.due"); got != 1 {
		t.Errorf("routine.due published %d times across two sweeps, want 1", got)
	}
}

func TestSweepDueRoutines_CompletedPeriodIsQuiet(t *testing.T) {
	f := newPlannerFixture(t)
	insertDailyRoutine(t, f, "routine-1", time.Date(2024, 3, 18, 7, 0, 0, 0, time.UTC))

	if err := f.planner.SweepDueRoutines(context.Background()); err != nil {
		t.Fatalf("SweepDueRoutines: %v", err)
	}
	if got := f.pub.countKey("routine.due"); got != 0 {
		t.Errorf("routine.due published %d times, want 0", got)
	}
}

func TestSweepOverdueTasks_MarksAndPublishes(t *testing.T) {
	f := newPlannerFixture(t)
	ctx := context.Background()

	deadline := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	goal := &model.Goal{
		ID:      "goal-1",
		Name:    "get fit",
		OwnerID: "user-1",
		TimeTracking: model.TimeTracking{
			Mode:     model.TrackFixedDeadline,
			Deadline: &deadline,
		},
		Tasks: []model.Task{
			{ID: "late", Status: model.TaskStatusPending,
				DueDate: time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC)},
			{ID: "future", Status: model.TaskStatusPending,
				DueDate: time.Date(2024, 3, 25, 0, 0, 0, 0, time.UTC)},
			{ID: "done", Status: model.TaskStatusCompleted,
				DueDate: time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		},
	}
	if err := f.goals.Insert(ctx, goal); err != nil {
		t.Fatalf("insert goal: %v", err)
	}

	if err := f.planner.SweepOverdueTasks(ctx); err != nil {
		t.Fatalf("SweepOverdueTasks: %v", err)
	}

	if got := f.pub.countKey("task.overdue"); got != 1 {
		t.Errorf("task.overdue published %d times, want 1", got)
	}

	stored, err := f.goals.Get(ctx, "goal-1")
	if err != nil {
		t.Fatalf("Get goal: %v", err)
	}
	if got := stored.FindTask("late").Status; got != model.TaskStatusOverdue {
		t.Errorf("late task status = %s, want overdue", got)
	}
	if got := stored.FindTask("future").Status; got != model.TaskStatusPending {
		t.Errorf("future task status = %s, want pending", got)
	}
	if got := stored.FindTask("done").Status; got != model.TaskStatusCompleted {
		t.Errorf("done task status = %s, want completed", got)
	}

	// A second sweep finds nothing pending past due.
	if err := f.planner.SweepOverdueTasks(ctx); err != nil {
		t.Fatalf("SweepOverdueTasks: %v", err)
	}
	if got := f.pub.countKey("task.overdue"); got != 1 {
		t.Errorf("task.overdue published %d times after second sweep, want 1", got)
	}
}

func TestSweepGoalReviews_PublishesElapsedReviews(t *testing.T) {
	f := newPlannerFixture(t)
	ctx := context.Background()

	elapsed := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	upcoming := time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC)
	deadline := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)

	for _, goal := range []*model.Goal{
		{ID: "due-review", Name: "a", OwnerID: "user-1",
			TimeTracking: model.TimeTracking{Mode: model.TrackRecurringReview, Cycle: "monthly", NextReviewDate: &elapsed}},
		{ID: "future-review", Name: "b", OwnerID: "user-1",
			TimeTracking: model.TimeTracking{Mode: model.TrackRecurringReview, Cycle: "monthly", NextReviewDate: &upcoming}},
		{ID: "deadline-goal", Name: "c", OwnerID: "user-1",
			TimeTracking: model.TimeTracking{Mode: model.TrackFixedDeadline, Deadline: &deadline}},
	} {
		if err := f.goals.Insert(ctx, goal); err != nil {
			t.Fatalf("insert goal %s: %v", goal.ID, err)
		}
	}

	if err := f.planner.SweepGoalReviews(ctx); err != nil {
		t.Fatalf("SweepGoalReviews: %v", err)
	}
	if got := f.pub.countKey("goal.review.due"); got != 1 {
		t.Errorf("goal.review.due published %d times, want 1", got)
	}

	// The review date only moves when the review completes; repeats are
	// deduplicated per due date.
	if err := f.planner.SweepGoalReviews(ctx); err != nil {
		t.Fatalf("SweepGoalReviews: %v", err)
	}
	if got := f.pub.countKey("goal.review.due"); got != 1 {
		t.Errorf("goal.review.due published %d times after second sweep, want 1", got)
	}
}

func TestOpenWeeklySessions_OncePerOwnerPerWeek(t *testing.T) {
	f := newPlannerFixture(t)
	insertDailyRoutine(t, f, "routine-1")
	ctx := context.Background()

	if err := f.planner.OpenWeeklySessions(ctx); err != nil {
		t.Fatalf("OpenWeeklySessions: %v", err)
	}
	docs, err := f.mem.List(ctx, store.CollectionSessions)
	if err != nil {
		t.Fatalf("List sessions: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("sessions after first run = %d, want 1", len(docs))
	}

	if err := f.planner.OpenWeeklySessions(ctx); err != nil {
		t.Fatalf("OpenWeeklySessions: %v", err)
	}
	docs, err = f.mem.List(ctx, store.CollectionSessions)
	if err != nil {
		t.Fatalf("List sessions: %v", err)
	}
	if len(docs) != 1 {
		t.Errorf("sessions after second run = %d, want 1", len(docs))
	}
}

func TestOpenWeeklySessions_SkipsOtherWeekdays(t *testing.T) {
	f := newPlannerFixture(t)
	insertDailyRoutine(t, f, "routine-1")

	tuesday := clock.Fixed{T: time.Date(2024, 3, 19, 10, 0, 0, 0, time.UTC)}
	f.planner.clock = tuesday

	if err := f.planner.OpenWeeklySessions(context.Background()); err != nil {
		t.Fatalf("OpenWeeklySessions: %v", err)
	}
	docs, err := f.mem.List(context.Background(), store.CollectionSessions)
	if err != nil {
		t.Fatalf("List sessions: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("sessions on a Tuesday = %d, want 0", len(docs))
	}
}
