// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/hermitclaw/internal/llm"
	"github.com/jeranaias/hermitclaw/internal/security"
)

// =============================================================================
// ERRORS
// =============================================================================

// ErrNotFound means the requested conversation does not exist or has
// no messages yet.
var ErrNotFound = errors.New("conversation not found")

// StoreError wraps a persistence failure. A failed resume is fatal to
// that resume attempt but must not prevent starting a fresh session.
type StoreError struct {
	Op    string
	Cause error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Cause)
}

func (e *StoreError) Unwrap() error { return e.Cause }

func storeErr(op string, cause error) error {
	return &StoreError{Op: op, Cause: cause}
}

// =============================================================================
// SCHEMA
// =============================================================================

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	working_dir TEXT,
	title TEXT,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	tool_call_id TEXT,
	tool_calls TEXT,
	created_at TEXT NOT NULL,
	FOREIGN KEY (conversation_id) REFERENCES conversations(id)
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation
	ON messages(conversation_id);
`

// =============================================================================
// STORE
// =============================================================================

// ConversationSummary is one row of the interactive resume listing.
type ConversationSummary struct {
	ID           string
	Title        string
	UpdatedAt    string
	MessageCount int
}

// Store is the SQLite-backed conversation store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path. A leading ~ is
// expanded and missing parent directories are created.
func Open(path string) (*Store, error) {
	expanded := security.ExpandHome(path)
	if dir := filepath.Dir(expanded); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, storeErr("creating database directory", err)
		}
	}
	return open(expanded)
}

// OpenInMemory returns a store backed by a throwaway in-memory
// database, used by tests.
func OpenInMemory() (*Store, error) {
	return open(":memory:")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeErr("opening database", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, storeErr("setting pragma", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, storeErr("initializing schema", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// =============================================================================
// CONVERSATIONS
// =============================================================================

// CreateConversation inserts a new conversation scoped to workingDir
// and returns its id.
func (s *Store) CreateConversation(workingDir string) (string, error) {
	id := uuid.NewString()
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		"INSERT INTO conversations (id, working_dir, created_at, updated_at) VALUES (?, ?, ?, ?)",
		id, workingDir, now, now,
	)
	if err != nil {
		return "", storeErr("creating conversation", err)
	}
	return id, nil
}

// UpdateTitle sets a human-readable title, typically derived from the
// first user message.
func (s *Store) UpdateTitle(id, title string) error {
	if _, err := s.db.Exec("UPDATE conversations SET title = ? WHERE id = ?", title, id); err != nil {
		return storeErr("updating title", err)
	}
	return nil
}

// LatestConversation returns the id of the most recently updated
// non-empty conversation for workingDir, or ErrNotFound.
func (s *Store) LatestConversation(workingDir string) (string, error) {
	var id string
	err := s.db.QueryRow(
		`SELECT c.id FROM conversations c
		 WHERE c.working_dir = ?
		   AND EXISTS (SELECT 1 FROM messages m WHERE m.conversation_id = c.id)
		 ORDER BY c.updated_at DESC, c.rowid DESC LIMIT 1`,
		workingDir,
	).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", storeErr("finding latest conversation", err)
	}
	return id, nil
}

// ListConversations returns the non-empty conversations for
// workingDir, most recent first.
func (s *Store) ListConversations(workingDir string) ([]ConversationSummary, error) {
	rows, err := s.db.Query(
		`SELECT c.id, COALESCE(c.title, ''), c.updated_at, COUNT(m.id)
		 FROM conversations c
		 JOIN messages m ON m.conversation_id = c.id
		 WHERE c.working_dir = ?
		 GROUP BY c.id
		 ORDER BY c.updated_at DESC, c.rowid DESC`,
		workingDir,
	)
	if err != nil {
		return nil, storeErr("listing conversations", err)
	}
	defer rows.Close()

	var out []ConversationSummary
	for rows.Next() {
		var c ConversationSummary
		if err := rows.Scan(&c.ID, &c.Title, &c.UpdatedAt, &c.MessageCount); err != nil {
			return nil, storeErr("scanning conversation row", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("listing conversations", err)
	}
	return out, nil
}

// =============================================================================
// MESSAGES
// =============================================================================

// SaveMessage appends one message to a conversation and bumps the
// conversation's updated_at.
func (s *Store) SaveMessage(conversationID string, msg llm.Message) error {
	var toolCallID sql.NullString
	if msg.ToolCallID != "" {
		toolCallID = sql.NullString{String: msg.ToolCallID, Valid: true}
	}

	var toolCalls sql.NullString
	if len(msg.ToolCalls) > 0 {
		raw, err := json.Marshal(msg.ToolCalls)
		if err != nil {
			return storeErr("encoding tool calls", err)
		}
		toolCalls = sql.NullString{String: string(raw), Valid: true}
	}

	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`INSERT INTO messages (conversation_id, role, content, tool_call_id, tool_calls, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		conversationID, string(msg.Role), msg.Content, toolCallID, toolCalls, now,
	)
	if err != nil {
		return storeErr("saving message", err)
	}

	if _, err := s.db.Exec("UPDATE conversations SET updated_at = ? WHERE id = ?", now, conversationID); err != nil {
		return storeErr("updating conversation timestamp", err)
	}
	return nil
}

// LoadMessages replays a conversation in insertion order, restoring
// roles, content, and tool-call payloads exactly as saved.
func (s *Store) LoadMessages(conversationID string) ([]llm.Message, error) {
	rows, err := s.db.Query(
		`SELECT role, content, tool_call_id, tool_calls FROM messages
		 WHERE conversation_id = ? ORDER BY id ASC`,
		conversationID,
	)
	if err != nil {
		return nil, storeErr("loading messages", err)
	}
	defer rows.Close()

	var out []llm.Message
	for rows.Next() {
		var (
			role, content         string
			toolCallID, toolCalls sql.NullString
		)
		if err := rows.Scan(&role, &content, &toolCallID, &toolCalls); err != nil {
			return nil, storeErr("scanning message row", err)
		}

		msg := llm.Message{
			Role:       llm.Role(role),
			Content:    content,
			ToolCallID: toolCallID.String,
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &msg.ToolCalls); err != nil {
				return nil, storeErr("decoding tool calls", err)
			}
		}
		out = append(out, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("loading messages", err)
	}
	return out, nil
}
