package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"routinekeeper/internal/errs"
	"routinekeeper/internal/model"
	"routinekeeper/pkg/metrics"
)

// GoalRepository is the typed access layer for goal documents.
type GoalRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

func NewGoalRepository(store DocumentStore, logger *zap.Logger) *GoalRepository {
	return &GoalRepository{store: store, logger: logger}
}

func (r *GoalRepository) Insert(ctx context.Context, goal *model.Goal) error {
	r.logger.Debug("Inserting goal",
		zap.String("id", goal.ID),
		zap.String("owner_id", goal.OwnerID),
		zap.String("name", goal.Name),
	)

	if err := goal.TimeTracking.Validate(); err != nil {
		return err
	}

	if err := r.store.Create(ctx, CollectionGoals, goal.ID, goal); err != nil {
		metrics.IncrementPersistenceFailure(CollectionGoals)
		return errs.NewPersistence("create", CollectionGoals, goal.ID, err)
	}

	r.logger.Info("Goal inserted successfully",
		zap.String("id", goal.ID),
		zap.String("owner_id", goal.OwnerID),
	)
	return nil
}

func (r *GoalRepository) Get(ctx context.Context, id string) (*model.Goal, error) {
	raw, err := r.store.Get(ctx, CollectionGoals, id)
	if err != nil {
		return nil, err
	}
	var goal model.Goal
	if err := json.Unmarshal(raw, &goal); err != nil {
		return nil, fmt.Errorf("failed to decode goal %s: %w", id, err)
	}
	return &goal, nil
}

func (r *GoalRepository) Update(ctx context.Context, goal *model.Goal) error {
	if err := goal.TimeTracking.Validate(); err != nil {
		return err
	}
	if err := r.store.Update(ctx, CollectionGoals, goal.ID, goal); err != nil {
		metrics.IncrementPersistenceFailure(CollectionGoals)
		return errs.NewPersistence("update", CollectionGoals, goal.ID, err)
	}
	r.logger.Debug("Goal updated", zap.String("id", goal.ID))
	return nil
}

func (r *GoalRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionGoals, id); err != nil {
		metrics.IncrementPersistenceFailure(CollectionGoals)
		return errs.NewPersistence("delete", CollectionGoals, id, err)
	}
	return nil
}

func (r *GoalRepository) ListAll(ctx context.Context) ([]model.Goal, error) {
	raws, err := r.store.List(ctx, CollectionGoals)
	if err != nil {
		return nil, err
	}

	var goals []model.Goal
	for _, raw := range raws {
		var goal model.Goal
		if err := json.Unmarshal(raw, &goal); err != nil {
			return nil, fmt.Errorf("failed to decode goal: %w", err)
		}
		goals = append(goals, goal)
	}

	r.logger.Debug("Listed goals", zap.Int("count", len(goals)))
	return goals, nil
}

func (r *GoalRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Goal, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var goals []model.Goal
	for _, goal := range all {
		if goal.OwnerID == ownerID {
			goals = append(goals, goal)
		}
	}
	return goals, nil
}

// AppendTask adds a task to the goal document. Appending is idempotent per
// source routine and due date, so a redelivered due event does not create a
// duplicate task.
func (r *GoalRepository) AppendTask(ctx context.Context, goalID string, task model.Task) error {
	goal, err := r.Get(ctx, goalID)
	if err != nil {
		return err
	}

	if task.SourceRoutineID != "" {
		for _, existing := range goal.Tasks {
			if existing.SourceRoutineID == task.SourceRoutineID && existing.DueDate.Equal(task.DueDate) {
				r.logger.Debug("Task already materialized",
					zap.String("goal_id", goalID),
					zap.String("routine_id", task.SourceRoutineID),
				)
				return nil
			}
		}
	}

	goal.Tasks = append(goal.Tasks, task)
	return r.Update(ctx, goal)
}

// UpdateNotes writes the goal's free-text notes at the given version. The
// version must be newer than the stored one; a stale version is rejected
// without touching the document.
func (r *GoalRepository) UpdateNotes(ctx context.Context, goalID, notes string, version int64) error {
	goal, err := r.Get(ctx, goalID)
	if err != nil {
		return err
	}
	if version <= goal.NotesVersion {
		return errs.ErrStaleWrite
	}
	goal.Notes = notes
	goal.NotesVersion = version
	return r.Update(ctx, goal)
}
