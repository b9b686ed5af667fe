package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/hermes/model"
)

// SqliteStore implements Store on a single SQLite database file. Useful
// when histories should live in one place instead of a directory tree.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteStore struct {
	db *sql.DB
}

// OpenSqlite opens or creates a SQLite database at the given path,
// creating parent directories if they don't exist.
func OpenSqlite(path string) (*SqliteStore, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// NewSqliteInMemory creates an in-memory database (useful for testing).
func NewSqliteInMemory() (*SqliteStore, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}

	store := &SqliteStore{db: db}
	if err := store.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *SqliteStore) Close() error {
	return s.db.Close()
}

func (s *SqliteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			updated_at TEXT NOT NULL DEFAULT (datetime('now')),
			PRIMARY KEY (user_id, conversation_id)
		);

		CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id TEXT NOT NULL,
			conversation_id TEXT NOT NULL,
			message_index INTEGER NOT NULL,
			payload TEXT NOT NULL,
			UNIQUE(user_id, conversation_id, message_index)
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
		ON messages(user_id, conversation_id, message_index);

		CREATE TABLE IF NOT EXISTS profiles (
			user_id TEXT PRIMARY KEY,
			payload TEXT NOT NULL
		);
	`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Read returns a conversation's history. An unknown conversation reads as
// empty.
func (s *SqliteStore) Read(ctx context.Context, userID, conversationID string) ([]model.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT payload FROM messages WHERE user_id = ? AND conversation_id = ? ORDER BY message_index ASC",
		userID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	history := []model.Message{}
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		var msg model.Message
		if err := json.Unmarshal([]byte(payload), &msg); err != nil {
			return nil, fmt.Errorf("corrupt message payload: %w", err)
		}
		history = append(history, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating messages: %w", err)
	}
	return history, nil
}

// Write replaces a conversation's history.
func (s *SqliteStore) Write(ctx context.Context, userID, conversationID string, history []model.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// Rollback is a no-op after Commit.
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO conversations (user_id, conversation_id) VALUES (?, ?)
		 ON CONFLICT(user_id, conversation_id) DO UPDATE SET updated_at = datetime('now')`,
		userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		"DELETE FROM messages WHERE user_id = ? AND conversation_id = ?",
		userID, conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear old messages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO messages (user_id, conversation_id, message_index, payload) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert statement: %w", err)
	}
	defer stmt.Close()

	for i, msg := range history {
		payload, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("failed to marshal message: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, userID, conversationID, i, string(payload)); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Clear removes a conversation and its messages.
func (s *SqliteStore) Clear(ctx context.Context, userID, conversationID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM messages WHERE user_id = ? AND conversation_id = ?",
		userID, conversationID); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM conversations WHERE user_id = ? AND conversation_id = ?",
		userID, conversationID); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// Conversations lists a user's conversation IDs, most recently written
// first.
func (s *SqliteStore) Conversations(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT conversation_id FROM conversations WHERE user_id = ? ORDER BY updated_at DESC, conversation_id",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}
	return ids, nil
}

// LoadProfile returns the stored profile, or zero values when none exists.
func (s *SqliteStore) LoadProfile(ctx context.Context, userID string) (model.ProfileSummary, model.ProfileMeta, error) {
	var payload string
	err := s.db.QueryRowContext(ctx,
		"SELECT payload FROM profiles WHERE user_id = ?", userID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return model.ProfileSummary{}, model.ProfileMeta{}, nil
	}
	if err != nil {
		return model.ProfileSummary{}, model.ProfileMeta{}, fmt.Errorf("failed to load profile: %w", err)
	}

	var wire profileWire
	if err := json.Unmarshal([]byte(payload), &wire); err != nil {
		return model.ProfileSummary{}, model.ProfileMeta{}, fmt.Errorf("corrupt profile for %s: %w", userID, err)
	}
	return wire.ProfileSummary.Normalize(), wire.Meta, nil
}

// SaveProfile replaces the stored profile.
func (s *SqliteStore) SaveProfile(ctx context.Context, userID string, summary model.ProfileSummary, meta model.ProfileMeta) error {
	payload, err := json.Marshal(profileWire{ProfileSummary: summary, Meta: meta})
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO profiles (user_id, payload) VALUES (?, ?)",
		userID, string(payload))
	if err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}
	return nil
}

// Verify SqliteStore implements Store
var _ Store = (*SqliteStore)(nil)
