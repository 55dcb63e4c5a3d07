package store

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) FindOrCreateDirect(ctx context.Context, userA, userB int64) (*Conversation, error) {
	args := m.Called(ctx, userA, userB)
	if conv, ok := args.Get(0).(*Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockConversationRepository) FindOrCreateEventGroup(ctx context.Context, eventId int64, eventTitle string, registrantIds []int64) (*Conversation, error) {
	args := m.Called(ctx, eventId, eventTitle, registrantIds)
	if conv, ok := args.Get(0).(*Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockConversationRepository) Get(ctx context.Context, conversationId string) (*Conversation, error) {
	args := m.Called(ctx, conversationId)
	if conv, ok := args.Get(0).(*Conversation); ok {
		return conv, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockConversationRepository) RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview LastMessage) error {
	args := m.Called(ctx, conversationId, senderId, preview)
	return args.Error(0)
}
func (m *MockConversationRepository) MarkRead(ctx context.Context, conversationId string, userId int64) error {
	args := m.Called(ctx, conversationId, userId)
	return args.Error(0)
}
func (m *MockConversationRepository) ListForUser(ctx context.Context, userId int64) ([]Conversation, error) {
	args := m.Called(ctx, userId)
	if convs, ok := args.Get(0).([]Conversation); ok {
		return convs, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) Append(ctx context.Context, conversationId string, senderId int64, content, msgType, fileUrl string) (*Message, error) {
	args := m.Called(ctx, conversationId, senderId, content, msgType, fileUrl)
	if msg, ok := args.Get(0).(*Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessageRepository) Page(ctx context.Context, conversationId string, limit int64, before time.Time, beforeId string) ([]Message, bool, error) {
	args := m.Called(ctx, conversationId, limit, before, beforeId)
	if msgs, ok := args.Get(0).([]Message); ok {
		return msgs, args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}
func (m *MockMessageRepository) Get(ctx context.Context, messageId string) (*Message, error) {
	args := m.Called(ctx, messageId)
	if msg, ok := args.Get(0).(*Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessageRepository) MarkReadBy(ctx context.Context, messageId string, userId int64) error {
	args := m.Called(ctx, messageId, userId)
	return args.Error(0)
}
func (m *MockMessageRepository) MarkAllReadBy(ctx context.Context, conversationId string, userId int64) error {
	args := m.Called(ctx, conversationId, userId)
	return args.Error(0)
}
func (m *MockMessageRepository) Edit(ctx context.Context, messageId string, editorId int64, newContent string) (*Message, error) {
	args := m.Called(ctx, messageId, editorId, newContent)
	if msg, ok := args.Get(0).(*Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockMessageRepository) SoftDelete(ctx context.Context, messageId string, requesterId int64) (*Message, error) {
	args := m.Called(ctx, messageId, requesterId)
	if msg, ok := args.Get(0).(*Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Save(ctx context.Context, n *Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}
func (m *MockNotificationRepository) ListForUser(ctx context.Context, userId int64, limit, offset int64, unreadOnly bool) ([]Notification, error) {
	args := m.Called(ctx, userId, limit, offset, unreadOnly)
	if ns, ok := args.Get(0).([]Notification); ok {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *MockNotificationRepository) MarkRead(ctx context.Context, notificationId string, userId int64) error {
	args := m.Called(ctx, notificationId, userId)
	return args.Error(0)
}
func (m *MockNotificationRepository) CountUnread(ctx context.Context, userId int64) (int64, error) {
	args := m.Called(ctx, userId)
	return args.Get(0).(int64), args.Error(1)
}
