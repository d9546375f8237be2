package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestPgRepository connects to the database named by VICHARMANTHAN_TEST_DSN,
// migrating it up and back down around the test.
func newTestPgRepository(t *testing.T) *PgRepository {
	dsn := os.Getenv("VICHARMANTHAN_TEST_DSN")
	if dsn == "" {
		t.Skip("VICHARMANTHAN_TEST_DSN not set")
	}

	require.NoError(t, Migrate(dsn, MigrateUp), "expected migrations to apply")
	repo, err := NewPgRepository(dsn)
	require.NoError(t, err, "expected repository to connect")

	t.Cleanup(func() {
		repo.Close()
		if err := Migrate(dsn, MigrateDown); err != nil {
			t.Logf("migrate down: %v", err)
		}
	})
	return repo
}

func TestPgRepository_Chats(t *testing.T) {
	repo := newTestPgRepository(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := repo.FindChatBetween(ctx, "alice", "bob")
	assert.ErrorIs(t, err, ErrNotFound, "expected no chat before creation")

	chat, err := repo.CreateChat(ctx, []string{"alice", "bob"})
	require.NoError(t, err)
	assert.NotEmpty(t, chat.Id)

	found, err := repo.FindChatBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, chat.Id, found.Id)
	assert.ElementsMatch(t, []string{"alice", "bob"}, found.Participants)

	msg, err := repo.AppendMessage(ctx, chat.Id, AppendMessageParams{SenderId: "alice", Text: "hello"})
	require.NoError(t, err)
	assert.NotEmpty(t, msg.Id)

	stored, err := repo.GetChat(ctx, chat.Id)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, msg.Id, stored.Messages[0].Id, "expected stored message id to match returned message")
	assert.True(t, msg.CreatedAt.Equal(stored.Messages[0].CreatedAt), "expected stored timestamp to match returned message")
	assert.Equal(t, "hello", stored.LastMessage)
	require.NotNil(t, stored.LastMessageAt)

	chats, err := repo.ListChats(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, chats, 1)

	_, err = repo.AppendMessage(ctx, "missing", AppendMessageParams{SenderId: "alice", Text: "hi"})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.GetChat(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPgRepository_Notifications(t *testing.T) {
	repo := newTestPgRepository(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	n, err := repo.CreateNotification(ctx, CreateNotificationParams{
		RecipientId: "alice",
		SenderId:    "bob",
		Type:        "proposal",
		Message:     "bob submitted a proposal",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, n.Id)

	list, err := repo.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.False(t, list[0].Read)

	assert.ErrorIs(t, repo.MarkNotificationRead(ctx, n.Id, "bob"), ErrNotFound, "expected other users not to mark read")
	assert.ErrorIs(t, repo.MarkNotificationRead(ctx, "abc", "alice"), ErrNotFound)
	require.NoError(t, repo.MarkNotificationRead(ctx, n.Id, "alice"))

	list, err = repo.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, list[0].Read)
}
