package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"walottery/database"
	"walottery/models"

	"github.com/jackc/pgx/v5"
)

// CursorRepository persists the indexer's event-stream position. The
// cursor lives in a single-row table and is treated as an opaque token
// issued by the ledger's event-query API.
type CursorRepository struct {
	q queryable
}

// NewCursorRepository creates a new cursor repository
func NewCursorRepository(db *database.DB) *CursorRepository {
	return &CursorRepository{q: db.Pool}
}

// Get returns the saved cursor, or nil if indexing has never progressed
// past the start of history.
func (r *CursorRepository) Get(ctx context.Context) (*models.IndexerCursor, error) {
	query := `
		SELECT cursor
		FROM indexer_state
		WHERE singleton = TRUE
	`

	var raw []byte
	err := r.q.QueryRow(ctx, query).Scan(&raw)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load indexer cursor: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var cursor models.IndexerCursor
	if err := json.Unmarshal(raw, &cursor); err != nil {
		return nil, fmt.Errorf("failed to decode indexer cursor: %w", err)
	}

	return &cursor, nil
}

// Save replaces the singleton cursor row. Callers must only save a cursor
// after the corresponding event's mirror upsert has succeeded; saving is
// what makes that event's processing durable.
func (r *CursorRepository) Save(ctx context.Context, cursor *models.IndexerCursor) error {
	raw, err := json.Marshal(cursor)
	if err != nil {
		return fmt.Errorf("failed to encode indexer cursor: %w", err)
	}

	query := `
		INSERT INTO indexer_state (singleton, cursor, updated_at)
		VALUES (TRUE, $1, NOW())
		ON CONFLICT (singleton) DO UPDATE
		SET cursor = EXCLUDED.cursor,
		    updated_at = EXCLUDED.updated_at
	`

	if _, err := r.q.Exec(ctx, query, raw); err != nil {
		return fmt.Errorf("failed to save indexer cursor: %w", err)
	}

	return nil
}
