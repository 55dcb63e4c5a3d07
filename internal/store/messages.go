package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	defaultPageSize = 50
	maxPageSize     = 100
)

type MessageStore struct {
	coll *mongo.Collection
}

func NewMessageStore(coll *mongo.Collection) *MessageStore {
	return &MessageStore{coll: coll}
}

func validateContent(content, msgType string) error {
	switch msgType {
	case "", MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeSystem:
	default:
		return fmt.Errorf("%w: unknown message type %q", ErrInvalidArgument, msgType)
	}
	if len(content) > MaxContentLength {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidArgument, MaxContentLength)
	}
	if (msgType == "" || msgType == MessageTypeText) && strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty message content", ErrInvalidArgument)
	}
	return nil
}

// Append persists a new message. Participancy is the caller's check, done
// against the conversation store before calling.
func (s *MessageStore) Append(ctx context.Context, conversationId string, senderId int64, content, msgType, fileUrl string) (*Message, error) {
	if err := validateContent(content, msgType); err != nil {
		return nil, err
	}
	if msgType == "" {
		msgType = MessageTypeText
	}

	oid, err := bson.ObjectIDFromHex(conversationId)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation %q", ErrNotFound, conversationId)
	}

	msg := &Message{
		ConversationId: oid,
		SenderId:       senderId,
		Content:        content,
		Type:           msgType,
		FileUrl:        fileUrl,
		ReadBy:         []int64{},
		CreatedAt:      time.Now().UTC(),
	}

	res, err := s.coll.InsertOne(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	msg.Id = res.InsertedID.(bson.ObjectID)

	return msg, nil
}

// Page returns up to limit messages older than the (before, beforeId) cursor,
// oldest first for display. beforeId breaks ties between messages stamped in
// the same millisecond; without it such messages would be skipped between
// pages. Soft-deleted rows stay in the result with tombstone content so
// ordering is stable. hasMore is a heuristic: true iff the page came back
// full.
func (s *MessageStore) Page(ctx context.Context, conversationId string, limit int64, before time.Time, beforeId string) ([]Message, bool, error) {
	oid, err := bson.ObjectIDFromHex(conversationId)
	if err != nil {
		return nil, false, fmt.Errorf("%w: conversation %q", ErrNotFound, conversationId)
	}

	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	filter := bson.M{"conversation_id": oid}
	if !before.IsZero() {
		if beforeId != "" {
			cursorId, err := bson.ObjectIDFromHex(beforeId)
			if err != nil {
				return nil, false, fmt.Errorf("%w: before_id %q", ErrInvalidArgument, beforeId)
			}
			filter["$or"] = bson.A{
				bson.M{"created_at": bson.M{"$lt": before}},
				bson.M{"created_at": before, "_id": bson.M{"$lt": cursorId}},
			}
		} else {
			filter["created_at"] = bson.M{"$lt": before}
		}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, false, fmt.Errorf("page messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []Message
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, false, fmt.Errorf("decode messages: %w", err)
	}

	hasMore := int64(len(messages)) == limit
	slices.Reverse(messages)

	return messages, hasMore, nil
}

func (s *MessageStore) Get(ctx context.Context, messageId string) (*Message, error) {
	oid, err := bson.ObjectIDFromHex(messageId)
	if err != nil {
		return nil, fmt.Errorf("%w: message %q", ErrNotFound, messageId)
	}

	var msg Message
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: message %q", ErrNotFound, messageId)
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}

	return &msg, nil
}

// MarkReadBy records a read receipt. The sender never reads their own
// message and repeat acknowledgements are idempotent ($addToSet).
func (s *MessageStore) MarkReadBy(ctx context.Context, messageId string, userId int64) error {
	oid, err := bson.ObjectIDFromHex(messageId)
	if err != nil {
		return fmt.Errorf("%w: message %q", ErrNotFound, messageId)
	}

	filter := bson.M{"_id": oid, "sender_id": bson.M{"$ne": userId}}
	update := bson.M{"$addToSet": bson.M{"read_by": userId}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("mark message read: %w", err)
	}
	if res.MatchedCount == 0 {
		// Either the message is missing or the reader is the sender; only
		// the former is an error.
		if _, err := s.Get(ctx, messageId); err != nil {
			return err
		}
	}

	return nil
}

// MarkAllReadBy adds a read receipt to every message in the conversation the
// user has not sent. Used when a conversation is marked read as a whole.
func (s *MessageStore) MarkAllReadBy(ctx context.Context, conversationId string, userId int64) error {
	oid, err := bson.ObjectIDFromHex(conversationId)
	if err != nil {
		return fmt.Errorf("%w: conversation %q", ErrNotFound, conversationId)
	}

	filter := bson.M{"conversation_id": oid, "sender_id": bson.M{"$ne": userId}}
	update := bson.M{"$addToSet": bson.M{"read_by": userId}}

	if _, err := s.coll.UpdateMany(ctx, filter, update); err != nil {
		return fmt.Errorf("mark conversation messages read: %w", err)
	}

	return nil
}

// Edit replaces a message's content. Only the sender may edit; the update is
// filtered on sender_id so the check and the write are one operation.
func (s *MessageStore) Edit(ctx context.Context, messageId string, editorId int64, newContent string) (*Message, error) {
	if err := validateContent(newContent, MessageTypeText); err != nil {
		return nil, err
	}

	oid, err := bson.ObjectIDFromHex(messageId)
	if err != nil {
		return nil, fmt.Errorf("%w: message %q", ErrNotFound, messageId)
	}

	now := time.Now().UTC()
	filter := bson.M{"_id": oid, "sender_id": editorId, "is_deleted": false}
	update := bson.M{"$set": bson.M{
		"content":   newContent,
		"is_edited": true,
		"edited_at": now,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.explainMutationFailure(ctx, messageId, editorId)
	}
	if err != nil {
		return nil, fmt.Errorf("edit message: %w", err)
	}

	return &msg, nil
}

// SoftDelete tombstones a message. Only the sender may delete; the row is
// kept so audit history and pagination ordering survive.
func (s *MessageStore) SoftDelete(ctx context.Context, messageId string, requesterId int64) (*Message, error) {
	oid, err := bson.ObjectIDFromHex(messageId)
	if err != nil {
		return nil, fmt.Errorf("%w: message %q", ErrNotFound, messageId)
	}

	filter := bson.M{"_id": oid, "sender_id": requesterId}
	update := bson.M{"$set": bson.M{
		"content":    Tombstone,
		"is_deleted": true,
	}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var msg Message
	err = s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&msg)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, s.explainMutationFailure(ctx, messageId, requesterId)
	}
	if err != nil {
		return nil, fmt.Errorf("delete message: %w", err)
	}

	return &msg, nil
}

// explainMutationFailure distinguishes a missing message from a sender
// mismatch after a filtered update matched nothing.
func (s *MessageStore) explainMutationFailure(ctx context.Context, messageId string, userId int64) error {
	msg, err := s.Get(ctx, messageId)
	if err != nil {
		return err
	}
	if msg.SenderId != userId {
		return fmt.Errorf("%w: user %d is not the sender of message %s", ErrNotAuthorized, userId, messageId)
	}
	return fmt.Errorf("%w: message %q", ErrNotFound, messageId)
}
