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

// RoutineRepository is the typed access layer for routine documents.
type RoutineRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

func NewRoutineRepository(store DocumentStore, logger *zap.Logger) *RoutineRepository {
	return &RoutineRepository{store: store, logger: logger}
}

func (r *RoutineRepository) Insert(ctx context.Context, routine *model.Routine) error {
	r.logger.Debug("Inserting routine",
		zap.String("id", routine.ID),
		zap.String("owner_id", routine.OwnerID),
		zap.String("title", routine.Title),
	)

	if err := r.store.Create(ctx, CollectionRoutines, routine.ID, routine); err != nil {
		metrics.IncrementPersistenceFailure(CollectionRoutines)
		return errs.NewPersistence("create", CollectionRoutines, routine.ID, err)
	}

	r.logger.Info("Routine inserted successfully",
		zap.String("id", routine.ID),
		zap.String("owner_id", routine.OwnerID),
	)
	return nil
}

func (r *RoutineRepository) Get(ctx context.Context, id string) (*model.Routine, error) {
	raw, err := r.store.Get(ctx, CollectionRoutines, id)
	if err != nil {
		return nil, err
	}
	var routine model.Routine
	if err := json.Unmarshal(raw, &routine); err != nil {
		return nil, fmt.Errorf("failed to decode routine %s: %w", id, err)
	}
	return &routine, nil
}

func (r *RoutineRepository) Update(ctx context.Context, routine *model.Routine) error {
	if err := r.store.Update(ctx, CollectionRoutines, routine.ID, routine); err != nil {
		metrics.IncrementPersistenceFailure(CollectionRoutines)
		return errs.NewPersistence("update", CollectionRoutines, routine.ID, err)
	}
	r.logger.Debug("Routine updated", zap.String("id", routine.ID))
	return nil
}

func (r *RoutineRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollectionRoutines, id); err != nil {
		metrics.IncrementPersistenceFailure(CollectionRoutines)
		return errs.NewPersistence("delete", CollectionRoutines, id, err)
	}
	return nil
}

func (r *RoutineRepository) ListAll(ctx context.Context) ([]model.Routine, error) {
	raws, err := r.store.List(ctx, CollectionRoutines)
	if err != nil {
		return nil, err
	}

	var routines []model.Routine
	for _, raw := range raws {
		var routine model.Routine
		if err := json.Unmarshal(raw, &routine); err != nil {
			return nil, fmt.Errorf("failed to decode routine: %w", err)
		}
		routines = append(routines, routine)
	}

	r.logger.Debug("Listed routines", zap.Int("count", len(routines)))
	return routines, nil
}

func (r *RoutineRepository) ListByOwner(ctx context.Context, ownerID string) ([]model.Routine, error) {
	all, err := r.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	var routines []model.Routine
	for _, routine := range all {
		if routine.OwnerID == ownerID {
			routines = append(routines, routine)
		}
	}
	return routines, nil
}
