package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"arwaeduc/internal/records"
)

func (r *SQLiteRepository) LoadState(ctx context.Context, key string) (records.Document, error) {
	var (
		doc     records.Document
		updated int64
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT key, schema_version, payload, updated_at FROM app_state WHERE key = ?", key).
		Scan(&doc.Key, &doc.SchemaVersion, &doc.Payload, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return records.Document{}, fmt.Errorf("%s: %w", key, records.ErrStateNotFound)
	}
	if err != nil {
		return records.Document{}, fmt.Errorf("load state %s: %w", key, err)
	}
	doc.UpdatedAt = fromMillis(updated)
	return doc, nil
}

// SaveState upserts doc under its key.
func (r *SQLiteRepository) SaveState(ctx context.Context, doc records.Document) error {
	if strings.TrimSpace(doc.Key) == "" {
		return errors.New("state key is required")
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_state (key, schema_version, payload, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			schema_version = excluded.schema_version,
			payload = excluded.payload,
			updated_at = excluded.updated_at`,
		doc.Key, doc.SchemaVersion, doc.Payload, toMillis(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save state %s: %w", doc.Key, err)
	}
	return nil
}
