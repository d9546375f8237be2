package mongostore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func Test_chatDoc_toChat(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	chatId := primitive.NewObjectID()
	msgId := primitive.NewObjectID()

	doc := chatDoc{
		Id:           chatId,
		Participants: []string{"alice", "bob"},
		Messages: []messageDoc{
			{Id: msgId, Sender: "alice", Text: "hello", CreatedAt: now},
		},
		LastMessage:   "hello",
		LastMessageAt: &now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	chat := doc.toChat()
	assert.Equal(t, chatId.Hex(), chat.Id)
	assert.Equal(t, []string{"alice", "bob"}, chat.Participants)
	require.Len(t, chat.Messages, 1)
	assert.Equal(t, database.Message{
		Id:        msgId.Hex(),
		ChatId:    chatId.Hex(),
		SenderId:  "alice",
		Text:      "hello",
		CreatedAt: now,
	}, chat.Messages[0])
	require.NotNil(t, chat.LastMessageAt)
	assert.True(t, now.Equal(*chat.LastMessageAt))
}

func Test_chatDoc_toChat_NoMessages(t *testing.T) {
	chat := chatDoc{Id: primitive.NewObjectID()}.toChat()
	assert.NotNil(t, chat.Messages, "expected empty messages slice rather than nil")
	assert.Empty(t, chat.Messages)
	assert.Nil(t, chat.LastMessageAt)
}

func TestRepository_Integration(t *testing.T) {
	uri := os.Getenv("VICHARMANTHAN_TEST_MONGO_URI")
	if uri == "" {
		t.Skip("VICHARMANTHAN_TEST_MONGO_URI not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dbName := "vicharmanthan_test_" + primitive.NewObjectID().Hex()
	repo, err := NewRepository(ctx, uri, dbName)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.client.Database(dbName).Drop(context.Background())
		repo.Close()
	})

	_, err = repo.GetChat(ctx, "not-an-object-id")
	assert.ErrorIs(t, err, database.ErrNotFound)

	chat, err := repo.CreateChat(ctx, []string{"alice", "bob"})
	require.NoError(t, err)

	found, err := repo.FindChatBetween(ctx, "bob", "alice")
	require.NoError(t, err)
	assert.Equal(t, chat.Id, found.Id)

	msg, err := repo.AppendMessage(ctx, chat.Id, database.AppendMessageParams{SenderId: "alice", Text: "hello"})
	require.NoError(t, err)

	stored, err := repo.GetChat(ctx, chat.Id)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 1)
	assert.Equal(t, msg, stored.Messages[0], "expected stored message to equal returned message")
	assert.Equal(t, "hello", stored.LastMessage)

	n, err := repo.CreateNotification(ctx, database.CreateNotificationParams{
		RecipientId: "alice",
		SenderId:    "bob",
		Type:        "proposal",
		Message:     "bob submitted a proposal",
	})
	require.NoError(t, err)
	require.NoError(t, repo.MarkNotificationRead(ctx, n.Id, "alice"))

	list, err := repo.ListNotifications(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}
