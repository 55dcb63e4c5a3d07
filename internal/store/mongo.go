// Package store persists conversations, messages and notifications in
// MongoDB. Relational data (users, events, registrations) lives in Postgres
// and is reached through internal/database.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const databaseName = "eventhub"

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

func New(ctx context.Context, mongoURI string) (*Store, error) {
	opts := options.Client().
		ApplyURI(mongoURI).
		SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return &Store{
		client: client,
		db:     client.Database(databaseName),
	}, nil
}

func (s *Store) Conversations() *ConversationStore {
	return &ConversationStore{coll: s.db.Collection("conversations")}
}

func (s *Store) Messages() *MessageStore {
	return &MessageStore{coll: s.db.Collection("messages")}
}

func (s *Store) Notifications() *NotificationStore {
	return &NotificationStore{coll: s.db.Collection("notifications")}
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes the stores rely on. The unique sparse
// indexes on pair_key and event_id back the find-or-create atomicity of
// direct and event group conversations; expires_at carries the notification
// retention policy.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	conversationIndexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "pair_key", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
		{
			Keys: bson.D{{Key: "participants", Value: 1}, {Key: "updated_at", Value: -1}},
		},
	}
	if _, err := s.db.Collection("conversations").Indexes().CreateMany(ctx, conversationIndexes); err != nil {
		return fmt.Errorf("create conversation indexes: %w", err)
	}

	messageIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "conversation_id", Value: 1}, {Key: "created_at", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "sender_id", Value: 1}},
		},
	}
	if _, err := s.db.Collection("messages").Indexes().CreateMany(ctx, messageIndexes); err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	notificationIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: -1}},
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		},
	}
	if _, err := s.db.Collection("notifications").Indexes().CreateMany(ctx, notificationIndexes); err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}

	return nil
}
