// internal/conversation/store.go
package conversation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/google/uuid"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	role            TEXT NOT NULL,
	content         TEXT NOT NULL,
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, id);
`

// Store persists chat turns in two tables.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate creates the tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return apperrors.NewDatabaseQueryFailedError("migrate conversations", err)
	}
	return nil
}

// NewID returns a fresh conversation id.
func NewID() string {
	return uuid.NewString()
}

// Append stores messages under id, creating the conversation on first use.
func (s *Store) Append(ctx context.Context, id string, messages ...models.ChatMessage) error {
	if id == "" {
		return apperrors.NewInvalidChatRequestError("conversation id is required")
	}
	now := s.now().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperrors.NewDatabaseQueryFailedError("begin append", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations (id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id, now, now); err != nil {
		return apperrors.NewDatabaseQueryFailedError("upsert conversation", err).WithMetadata("conversationId", id)
	}

	for _, msg := range messages {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (conversation_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
			id, msg.Role, msg.Content, now); err != nil {
			return apperrors.NewDatabaseQueryFailedError("insert message", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return apperrors.NewDatabaseQueryFailedError("commit append", err)
	}
	return nil
}

// Get loads a conversation with its messages in insertion order.
func (s *Store) Get(ctx context.Context, id string) (models.Conversation, error) {
	conv := models.Conversation{ID: id, Messages: []models.ChatMessage{}}

	var created, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT created_at, updated_at FROM conversations WHERE id = ?`, id).Scan(&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return conv, apperrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return conv, apperrors.NewDatabaseQueryFailedError("get conversation", err).WithMetadata("conversationId", id)
	}
	conv.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	conv.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)

	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE conversation_id = ? ORDER BY id`, id)
	if err != nil {
		return conv, apperrors.NewDatabaseQueryFailedError("list messages", err)
	}
	defer rows.Close()

	for rows.Next() {
		var msg models.ChatMessage
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return conv, apperrors.NewDatabaseQueryFailedError("scan message", err)
		}
		conv.Messages = append(conv.Messages, msg)
	}
	if err := rows.Err(); err != nil {
		return conv, fmt.Errorf("iterate messages: %w", err)
	}
	return conv, nil
}
