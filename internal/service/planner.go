package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	mqcontracts "routinekeeper/contracts/mq"
	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/internal/notify"
	"routinekeeper/internal/schedule"
	"routinekeeper/internal/session"
	"routinekeeper/internal/store"
	"routinekeeper/pkg/metrics"
)

// Planner runs the periodic sweeps that turn stored schedules into due
// events, and opens the weekly review sessions. Each sweep is safe to run
// repeatedly: due events are deduplicated per due instant, and downstream
// task materialization is idempotent.
type Planner struct {
	routines      *store.RoutineRepository
	goals         *store.GoalRepository
	sessions      *session.Manager
	publisher     notify.Publisher
	dedup         notify.Deduper
	clock         clock.Clock
	reviewWeekday time.Weekday
	logger        *zap.Logger
}

func NewPlanner(
	routines *store.RoutineRepository,
	goals *store.GoalRepository,
	sessions *session.Manager,
	publisher notify.Publisher,
	dedup notify.Deduper,
	clk clock.Clock,
	reviewWeekday time.Weekday,
	logger *zap.Logger,
) *Planner {
	return &Planner{
		routines:      routines,
		goals:         goals,
		sessions:      sessions,
		publisher:     publisher,
		dedup:         dedup,
		clock:         clk,
		reviewWeekday: reviewWeekday,
		logger:        logger,
	}
}

// RunSweeps executes all due-item sweeps once. Errors from one sweep do not
// stop the others; the first error is returned.
func (p *Planner) RunSweeps(ctx context.Context) error {
	var first error
	for _, sweep := range []func(context.Context) error{
		p.SweepDueRoutines,
		p.SweepOverdueTasks,
		p.SweepGoalReviews,
	} {
		if err := sweep(ctx); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// SweepDueRoutines publishes routine.due events for every elapsed occurrence
// in each routine's current period that has no completion covering it.
func (p *Planner) SweepDueRoutines(ctx context.Context) error {
	now := p.clock.Now()
	started := time.Now()
	defer func() { metrics.RecordSweep("routines", time.Since(started)) }()

	p.logger.Info("Checking for due routine occurrences...")

	routines, err := p.routines.ListAll(ctx)
	if err != nil {
		p.logger.Error("Failed to list routines", zap.Error(err))
		return err
	}

	dueCount := 0
	for i := range routines {
		routine := &routines[i]
		due, err := p.dueOccurrences(routine, now)
		if err != nil {
			p.logger.Error("Failed to expand routine schedule",
				zap.String("routine_id", routine.ID),
				zap.Error(err),
			)
			continue
		}

		for _, occ := range due {
			dueKey := routine.ID + ":" + occ.At.Format(time.RFC3339)
			if !p.dedup.AcquireOnce(ctx, "routine.due", dueKey) {
				continue
			}

			payload := mqcontracts.RoutineDuePayload{
				RoutineID:  routine.ID,
				GoalID:     routine.GoalID,
				OwnerID:    routine.OwnerID,
				Title:      routine.Title,
				DueDate:    occ.At.Format(time.RFC3339),
				AssignedTo: occ.AssignedTo,
			}
			if err := p.publisher.Publish("routine.due", payload); err != nil {
				p.logger.Error("Failed to publish routine.due event",
					zap.String("routine_id", routine.ID),
					zap.Error(err),
				)
				continue
			}
			dueCount++
			metrics.DueEventsPublished.WithLabelValues("routine.due").Inc()
			p.logger.Info("Published routine.due event",
				zap.String("routine_id", routine.ID),
				zap.String("due_date", payload.DueDate),
			)
		}
	}

	p.logger.Info("Due routine check completed",
		zap.Int("total_routines", len(routines)),
		zap.Int("due_count", dueCount),
	)
	return nil
}

// dueOccurrences returns the elapsed occurrences of the routine's current
// period that are not yet covered by a completion. Completions cover
// occurrences in order: two completions this period cover the period's two
// earliest due instants.
func (p *Planner) dueOccurrences(routine *model.Routine, now time.Time) ([]schedule.Occurrence, error) {
	computeStart := time.Now()
	expected, err := routine.Schedule.ExpectedInPeriod(now)
	metrics.RecordOccurrenceCompute(string(routine.Schedule.Frequency), time.Since(computeStart))
	if err != nil {
		return nil, err
	}

	periodStart, periodEnd := routine.Schedule.PeriodOf(now)
	completed := 0
	for _, c := range routine.CompletionDates {
		if !c.Before(periodStart) && c.Before(periodEnd) {
			completed++
		}
	}

	var due []schedule.Occurrence
	for i, occ := range expected {
		if occ.At.After(now) {
			break
		}
		if i < completed {
			continue
		}
		due = append(due, occ)
	}
	return due, nil
}

// SweepOverdueTasks marks elapsed pending goal tasks as overdue and
// publishes task.overdue events for them.
func (p *Planner) SweepOverdueTasks(ctx context.Context) error {
	now := p.clock.Now()
	started := time.Now()
	defer func() { metrics.RecordSweep("tasks", time.Since(started)) }()

	p.logger.Info("Checking for overdue tasks...")

	goals, err := p.goals.ListAll(ctx)
	if err != nil {
		p.logger.Error("Failed to list goals", zap.Error(err))
		return err
	}

	overdueCount := 0
	for i := range goals {
		goal := &goals[i]

		var expired []model.Task
		for j := range goal.Tasks {
			task := &goal.Tasks[j]
			if task.Status == model.TaskStatusPending && task.DueDate.Before(now) {
				task.Status = model.TaskStatusOverdue
				expired = append(expired, *task)
			}
		}
		if len(expired) == 0 {
			continue
		}

		// Mark as overdue in the store before announcing.
		goal.UpdatedAt = now
		if err := p.goals.Update(ctx, goal); err != nil {
			p.logger.Error("Failed to mark tasks as overdue",
				zap.String("goal_id", goal.ID),
				zap.Error(err),
			)
			continue
		}

		for _, task := range expired {
			payload := mqcontracts.TaskOverduePayload{
				TaskID:  task.ID,
				GoalID:  goal.ID,
				OwnerID: goal.OwnerID,
				Title:   task.Title,
				DueDate: task.DueDate.Format(time.RFC3339),
			}
			if err := p.publisher.Publish("task.overdue", payload); err != nil {
				p.logger.Error("Failed to publish task.overdue event",
					zap.String("task_id", task.ID),
					zap.Error(err),
				)
				continue
			}
			overdueCount++
			metrics.DueEventsPublished.WithLabelValues("task.overdue").Inc()
			p.logger.Info("Published task.overdue event",
				zap.String("task_id", task.ID),
				zap.String("goal_id", goal.ID),
			)
		}
	}

	p.logger.Info("Overdue check completed",
		zap.Int("overdue_count", overdueCount),
	)
	return nil
}

// SweepGoalReviews publishes goal.review.due events for recurring-review
// goals whose next review date has elapsed. The review date itself only
// advances when the review is completed in a session, so events are
// deduplicated per due review date.
func (p *Planner) SweepGoalReviews(ctx context.Context) error {
	now := p.clock.Now()
	started := time.Now()
	defer func() { metrics.RecordSweep("goal_reviews", time.Since(started)) }()

	p.logger.Info("Checking for due goal reviews...")

	goals, err := p.goals.ListAll(ctx)
	if err != nil {
		p.logger.Error("Failed to list goals", zap.Error(err))
		return err
	}

	dueCount := 0
	for i := range goals {
		goal := &goals[i]
		tt := goal.TimeTracking
		if tt.Mode != model.TrackRecurringReview || tt.NextReviewDate == nil {
			continue
		}
		if tt.NextReviewDate.After(now) {
			continue
		}

		dueKey := goal.ID + ":" + tt.NextReviewDate.Format(time.RFC3339)
		if !p.dedup.AcquireOnce(ctx, "goal.review.due", dueKey) {
			continue
		}

		payload := mqcontracts.GoalReviewDuePayload{
			GoalID:         goal.ID,
			OwnerID:        goal.OwnerID,
			Name:           goal.Name,
			Cycle:          string(tt.Cycle),
			NextReviewDate: tt.NextReviewDate.Format(time.RFC3339),
		}
		if err := p.publisher.Publish("goal.review.due", payload); err != nil {
			p.logger.Error("Failed to publish goal.review.due event",
				zap.String("goal_id", goal.ID),
				zap.Error(err),
			)
			continue
		}
		dueCount++
		metrics.DueEventsPublished.WithLabelValues("goal.review.due").Inc()
		p.logger.Info("Published goal.review.due event",
			zap.String("goal_id", goal.ID),
			zap.String("next_review_date", payload.NextReviewDate),
		)
	}

	p.logger.Info("Goal review check completed",
		zap.Int("due_count", dueCount),
	)
	return nil
}

// OpenWeeklySessions opens a planning session for every owner with stored
// goals or routines, once per review week. Outside the configured review
// weekday it does nothing.
func (p *Planner) OpenWeeklySessions(ctx context.Context) error {
	now := p.clock.Now()
	if now.Weekday() != p.reviewWeekday {
		return nil
	}

	p.logger.Info("Opening weekly review sessions...")

	owners, err := p.allOwners(ctx)
	if err != nil {
		return err
	}

	weekKey := now.Format("2006-01-02")
	openedCount := 0
	for _, ownerID := range owners {
		if !p.dedup.AcquireOnce(ctx, "session.open", ownerID+":"+weekKey) {
			continue
		}

		sess, err := p.sessions.Open(ctx, ownerID)
		if err != nil {
			p.logger.Error("Failed to open review session",
				zap.String("owner_id", ownerID),
				zap.Error(err),
			)
			continue
		}
		openedCount++
		p.logger.Info("Opened weekly review session",
			zap.String("session_id", sess.Doc().ID),
			zap.String("owner_id", ownerID),
		)
	}

	p.logger.Info("Weekly session opening completed",
		zap.Int("total_owners", len(owners)),
		zap.Int("opened_count", openedCount),
	)
	return nil
}

func (p *Planner) allOwners(ctx context.Context) ([]string, error) {
	goals, err := p.goals.ListAll(ctx)
	if err != nil {
		p.logger.Error("Failed to list goals", zap.Error(err))
		return nil, err
	}
	routines, err := p.routines.ListAll(ctx)
	if err != nil {
		p.logger.Error("Failed to list routines", zap.Error(err))
		return nil, err
	}

	seen := make(map[string]struct{})
	var owners []string
	for _, g := range goals {
		if _, ok := seen[g.OwnerID]; !ok {
			seen[g.OwnerID] = struct{}{}
			owners = append(owners, g.OwnerID)
		}
	}
	for _, r := range routines {
		if _, ok := seen[r.OwnerID]; !ok {
			seen[r.OwnerID] = struct{}{}
			owners = append(owners, r.OwnerID)
		}
	}
	return owners, nil
}
