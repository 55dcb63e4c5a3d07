package store

import (
	"context"
	"time"
)

type ConversationRepository interface {
	FindOrCreateDirect(ctx context.Context, userA, userB int64) (*Conversation, error)
	FindOrCreateEventGroup(ctx context.Context, eventId int64, eventTitle string, registrantIds []int64) (*Conversation, error)
	Get(ctx context.Context, conversationId string) (*Conversation, error)
	RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview LastMessage) error
	MarkRead(ctx context.Context, conversationId string, userId int64) error
	ListForUser(ctx context.Context, userId int64) ([]Conversation, error)
}

type MessageRepository interface {
	Append(ctx context.Context, conversationId string, senderId int64, content, msgType, fileUrl string) (*Message, error)
	Page(ctx context.Context, conversationId string, limit int64, before time.Time, beforeId string) ([]Message, bool, error)
	Get(ctx context.Context, messageId string) (*Message, error)
	MarkReadBy(ctx context.Context, messageId string, userId int64) error
	MarkAllReadBy(ctx context.Context, conversationId string, userId int64) error
	Edit(ctx context.Context, messageId string, editorId int64, newContent string) (*Message, error)
	SoftDelete(ctx context.Context, messageId string, requesterId int64) (*Message, error)
}

type NotificationRepository interface {
	Save(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userId int64, limit, offset int64, unreadOnly bool) ([]Notification, error)
	MarkRead(ctx context.Context, notificationId string, userId int64) error
	CountUnread(ctx context.Context, userId int64) (int64, error)
}
