package mqhandler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "routinekeeper/contracts/mq"
	"routinekeeper/internal/clock"
	"routinekeeper/internal/model"
	"routinekeeper/internal/notify"
	"routinekeeper/internal/store"
	"routinekeeper/pkg/logger"
)

// RoutineDueHandler materializes a due routine occurrence into a concrete
// task on the owning goal. Materialization is idempotent per routine and due
// date, so redelivered events are absorbed.
type RoutineDueHandler struct {
	goals     *store.GoalRepository
	publisher notify.Publisher
	clock     clock.Clock
	logger    *zap.Logger
}

func NewRoutineDueHandler(goals *store.GoalRepository, publisher notify.Publisher, clk clock.Clock, logger *zap.Logger) *RoutineDueHandler {
	return &RoutineDueHandler{
		goals:     goals,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

func (h *RoutineDueHandler) Handle(ctx context.Context, raw json.RawMessage) error {
	log := logger.WithTrace(ctx, h.logger)

	var p mqcontracts.RoutineDuePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error("Failed to unmarshal RoutineDuePayload", zap.Error(err))
		return err
	}

	log.Info("Handling routine.due event",
		zap.String("routine_id", p.RoutineID),
		zap.String("goal_id", p.GoalID),
		zap.String("due_date", p.DueDate),
	)

	if p.GoalID == "" {
		// Standalone routines have no goal to carry tasks; the due event
		// still feeds reminders downstream.
		log.Debug("Routine is not attached to a goal, nothing to materialize",
			zap.String("routine_id", p.RoutineID),
		)
		return nil
	}

	dueDate, err := time.Parse(time.RFC3339, p.DueDate)
	if err != nil {
		log.Error("Invalid due_date in routine.due event",
			zap.String("due_date", p.DueDate),
			zap.Error(err),
		)
		return err
	}

	task := model.Task{
		ID:              uuid.NewString(),
		Title:           p.Title,
		DueDate:         dueDate,
		Status:          model.TaskStatusPending,
		SourceRoutineID: p.RoutineID,
		CreatedAt:       h.clock.Now(),
	}

	if err := h.goals.AppendTask(ctx, p.GoalID, task); err != nil {
		log.Error("Failed to materialize task",
			zap.String("goal_id", p.GoalID),
			zap.String("routine_id", p.RoutineID),
			zap.Error(err),
		)
		return err
	}

	materialized := mqcontracts.TaskMaterializedPayload{
		TaskID:    task.ID,
		RoutineID: p.RoutineID,
		GoalID:    p.GoalID,
		OwnerID:   p.OwnerID,
		DueDate:   p.DueDate,
	}
	if err := h.publisher.Publish("task.materialized", materialized); err != nil {
		// The task is already stored; announcing it is best effort.
		log.Error("Failed to publish task.materialized event",
			zap.String("task_id", task.ID),
			zap.Error(err),
		)
	}

	log.Info("Task materialized successfully",
		zap.String("task_id", task.ID),
		zap.String("goal_id", p.GoalID),
		zap.String("routine_id", p.RoutineID),
	)
	return nil
}
