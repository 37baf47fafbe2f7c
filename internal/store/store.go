package store

import (
	"context"
	"encoding/json"
)

// Collections used by the engine.
const (
	CollectionRoutines = "routines"
	CollectionGoals    = "goals"
	CollectionSessions = "review_sessions"
)

// DocumentStore is the narrow persistence collaborator the engine writes
// through. Documents are plain structured records addressed by collection
// and id; the engine defines no wire protocol of its own.
type DocumentStore interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	List(ctx context.Context, collection string) ([]json.RawMessage, error)
	Create(ctx context.Context, collection, id string, doc any) error
	Update(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
}
