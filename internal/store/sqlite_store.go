package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
)

// SQLiteStore persists partitions in the kv_entries table.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger.With("component", "sqlite_store")}
}

func (s *SQLiteStore) Get(ctx context.Context, partition, key string) Result {
	var value string
	err := s.db.QueryRowContext(ctx, `
		SELECT value FROM kv_entries WHERE partition = ? AND key = ?
	`, partition, key).Scan(&value)

	if err == sql.ErrNoRows {
		return Result{Status: Absent}
	}
	if err != nil {
		return Result{Status: Unavailable, Err: fmt.Errorf("failed to read entry: %w", err)}
	}
	if !json.Valid([]byte(value)) {
		return Result{Status: Corrupt, Err: errInvalidJSON}
	}
	return Result{Status: Found, Value: json.RawMessage(value)}
}

func (s *SQLiteStore) Set(ctx context.Context, partition, key string, value any) error {
	raw, err := encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode entry: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO kv_entries (partition, key, value) VALUES (?, ?, ?)
		ON CONFLICT (partition, key) DO UPDATE SET value = excluded.value, updated_at = datetime('now')
	`, partition, key, string(raw))
	if err != nil {
		return fmt.Errorf("failed to write entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, partition, key string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM kv_entries WHERE partition = ? AND key = ?
	`, partition, key)
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetAll(ctx context.Context, partition string) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage)

	rows, err := s.db.QueryContext(ctx, `
		SELECT key, value FROM kv_entries WHERE partition = ?
	`, partition)
	if err != nil {
		s.logger.Warn("failed to list partition", "partition", partition, "error", err)
		return out
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Error("failed to close rows", "error", err)
		}
	}()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			s.logger.Warn("failed to scan entry", "partition", partition, "error", err)
			continue
		}
		if !json.Valid([]byte(value)) {
			s.logger.Warn("skipping corrupt entry", "partition", partition, "key", key)
			continue
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		s.logger.Warn("error iterating partition", "partition", partition, "error", err)
	}

	return out
}
