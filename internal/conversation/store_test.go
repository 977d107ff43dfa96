package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"versailles-assistant/internal/common/config"
	"versailles-assistant/internal/common/database"
	apperrors "versailles-assistant/internal/common/errors"
	"versailles-assistant/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	client, err := database.NewSQLite(config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "conversations.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	store := NewStore(client.DB)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestAppendAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	id := NewID()

	start := time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return start }
	require.NoError(t, store.Append(ctx, id,
		models.ChatMessage{Role: models.RoleUser, Content: "When does the palace open?"},
		models.ChatMessage{Role: models.RoleAssistant, Content: "At 9:00."},
	))

	store.now = func() time.Time { return start.Add(time.Minute) }
	require.NoError(t, store.Append(ctx, id, models.ChatMessage{Role: models.RoleUser, Content: "And the gardens?"}))

	conv, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, conv.ID)
	assert.Equal(t, start, conv.CreatedAt)
	assert.Equal(t, start.Add(time.Minute), conv.UpdatedAt)
	require.Len(t, conv.Messages, 3)
	assert.Equal(t, "And the gardens?", conv.Messages[2].Content)
}

func TestGet_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeConversationNotFound, stdErr.Code)
}

func TestAppend_RequiresID(t *testing.T) {
	store := newTestStore(t)
	assert.Equal(t, 400, apperrors.HTTPStatus(store.Append(context.Background(), "")))
}

func TestAppend_RollsBackOnInsertFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO conversations").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO messages").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err = NewStore(db).Append(context.Background(), "c-1", models.ChatMessage{Role: models.RoleUser, Content: "hi"})
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeDatabaseQueryFailed, stdErr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}
