package database

import (
	"context"

	"github.com/pkg/errors"
)

// ErrNotFound is returned when the requested chat or notification does not exist.
var ErrNotFound = errors.New("not found")

// Repository is the durable store behind the chat and notification endpoints.
// It is the source of truth; the real-time hub only relays what it returns.
type Repository interface {
	Ping(ctx context.Context) error
	ListChats(ctx context.Context, userId string) ([]Chat, error)
	FindChatBetween(ctx context.Context, userA, userB string) (Chat, error)
	CreateChat(ctx context.Context, participants []string) (Chat, error)
	GetChat(ctx context.Context, chatId string) (Chat, error)
	AppendMessage(ctx context.Context, chatId string, params AppendMessageParams) (Message, error)
	CreateNotification(ctx context.Context, params CreateNotificationParams) (Notification, error)
	ListNotifications(ctx context.Context, recipientId string) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id, recipientId string) error
	Close() error
}
