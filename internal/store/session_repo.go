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

// SessionRepository is the typed access layer for review session documents.
type SessionRepository struct {
	store  DocumentStore
	logger *zap.Logger
}

func NewSessionRepository(store DocumentStore, logger *zap.Logger) *SessionRepository {
	return &SessionRepository{store: store, logger: logger}
}

func (r *SessionRepository) Insert(ctx context.Context, doc *model.ReviewSessionDoc) error {
	r.logger.Debug("Inserting review session",
		zap.String("id", doc.ID),
		zap.String("owner_id", doc.OwnerID),
	)

	if err := r.store.Create(ctx, CollectionSessions, doc.ID, doc); err != nil {
		metrics.IncrementPersistenceFailure(CollectionSessions)
		return errs.NewPersistence("create", CollectionSessions, doc.ID, err)
	}

	r.logger.Info("Review session inserted successfully",
		zap.String("id", doc.ID),
		zap.String("owner_id", doc.OwnerID),
	)
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, id string) (*model.ReviewSessionDoc, error) {
	raw, err := r.store.Get(ctx, CollectionSessions, id)
	if err != nil {
		return nil, err
	}
	var doc model.ReviewSessionDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode review session %s: %w", id, err)
	}
	return &doc, nil
}

func (r *SessionRepository) Update(ctx context.Context, doc *model.ReviewSessionDoc) error {
	if err := r.store.Update(ctx, CollectionSessions, doc.ID, doc); err != nil {
		metrics.IncrementPersistenceFailure(CollectionSessions)
		return errs.NewPersistence("update", CollectionSessions, doc.ID, err)
	}
	r.logger.Debug("Review session updated",
		zap.String("id", doc.ID),
		zap.String("phase", string(doc.Phase)),
	)
	return nil
}
