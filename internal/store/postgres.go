package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"routinekeeper/internal/errs"
)

// PostgresStore keeps every collection in a single jsonb documents table.
type PostgresStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

func NewPostgresStore(db *pgxpool.Pool, logger *zap.Logger) *PostgresStore {
	return &PostgresStore{db: db, logger: logger}
}

// EnsureSchema creates the documents table if it does not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	query := `
        CREATE TABLE IF NOT EXISTS documents (
            collection TEXT NOT NULL,
            id         TEXT NOT NULL,
            doc        JSONB NOT NULL,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            PRIMARY KEY (collection, id)
        )
    `
	if _, err := s.db.Exec(ctx, query); err != nil {
		s.logger.Error("Failed to ensure documents schema", zap.Error(err))
		return fmt.Errorf("failed to ensure documents schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, collection, id string) (json.RawMessage, error) {
	s.logger.Debug("Getting document",
		zap.String("collection", collection),
		zap.String("id", id),
	)

	query := `
        SELECT doc FROM documents
        WHERE collection = $1 AND id = $2
    `
	var doc json.RawMessage
	err := s.db.QueryRow(ctx, query, collection, id).Scan(&doc)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errs.ErrNotFound
		}
		s.logger.Error("Failed to get document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return nil, err
	}
	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string) ([]json.RawMessage, error) {
	s.logger.Debug("Listing documents", zap.String("collection", collection))

	query := `
        SELECT doc FROM documents
        WHERE collection = $1
        ORDER BY created_at ASC
    `
	rows, err := s.db.Query(ctx, query, collection)
	if err != nil {
		s.logger.Error("Failed to list documents",
			zap.String("collection", collection),
			zap.Error(err),
		)
		return nil, err
	}
	defer rows.Close()

	var docs []json.RawMessage
	for rows.Next() {
		var doc json.RawMessage
		if err := rows.Scan(&doc); err != nil {
			s.logger.Error("Failed to scan document",
				zap.String("collection", collection),
				zap.Error(err),
			)
			return nil, err
		}
		docs = append(docs, doc)
	}

	s.logger.Debug("Listed documents",
		zap.String("collection", collection),
		zap.Int("count", len(docs)),
	)
	return docs, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
        INSERT INTO documents (collection, id, doc)
        VALUES ($1, $2, $3)
    `
	if _, err := s.db.Exec(ctx, query, collection, id, body); err != nil {
		s.logger.Error("Failed to create document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}

	s.logger.Info("Document created",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, collection, id string, doc any) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to marshal document: %w", err)
	}

	query := `
        UPDATE documents
        SET doc = $3, updated_at = NOW()
        WHERE collection = $1 AND id = $2
    `
	tag, err := s.db.Exec(ctx, query, collection, id, body)
	if err != nil {
		s.logger.Error("Failed to update document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	s.logger.Debug("Document updated",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection, id string) error {
	query := `
        DELETE FROM documents
        WHERE collection = $1 AND id = $2
    `
	tag, err := s.db.Exec(ctx, query, collection, id)
	if err != nil {
		s.logger.Error("Failed to delete document",
			zap.String("collection", collection),
			zap.String("id", id),
			zap.Error(err),
		)
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	s.logger.Info("Document deleted",
		zap.String("collection", collection),
		zap.String("id", id),
	)
	return nil
}
