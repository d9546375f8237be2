package database

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
func (m *MockRepository) ListChats(ctx context.Context, userId string) ([]Chat, error) {
	args := m.Called(ctx, userId)
	if chats, ok := args.Get(0).([]Chat); ok {
		return chats, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) FindChatBetween(ctx context.Context, userA, userB string) (Chat, error) {
	args := m.Called(ctx, userA, userB)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) CreateChat(ctx context.Context, participants []string) (Chat, error) {
	args := m.Called(ctx, participants)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) GetChat(ctx context.Context, chatId string) (Chat, error) {
	args := m.Called(ctx, chatId)
	return args.Get(0).(Chat), args.Error(1)
}
func (m *MockRepository) AppendMessage(ctx context.Context, chatId string, params AppendMessageParams) (Message, error) {
	args := m.Called(ctx, chatId, params)
	return args.Get(0).(Message), args.Error(1)
}
func (m *MockRepository) CreateNotification(ctx context.Context, params CreateNotificationParams) (Notification, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(Notification), args.Error(1)
}
func (m *MockRepository) ListNotifications(ctx context.Context, recipientId string) ([]Notification, error) {
	args := m.Called(ctx, recipientId)
	if ns, ok := args.Get(0).([]Notification); ok {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockRepository) MarkNotificationRead(ctx context.Context, id, recipientId string) error {
	args := m.Called(ctx, id, recipientId)
	return args.Error(0)
}
func (m *MockRepository) Close() error {
	args := m.Called()
	return args.Error(0)
}
