package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const defaultNotificationLimit = 50

type NotificationStore struct {
	coll *mongo.Collection
}

func NewNotificationStore(coll *mongo.Collection) *NotificationStore {
	return &NotificationStore{coll: coll}
}

// Save persists a notification for offline retrieval. Timestamp and the
// expiry horizon are stamped here; the TTL index reaps expired rows.
func (s *NotificationStore) Save(ctx context.Context, n *Notification) error {
	now := time.Now().UTC()
	n.Read = false
	n.Timestamp = now
	n.ExpiresAt = now.Add(NotificationTTL)

	res, err := s.coll.InsertOne(ctx, n)
	if err != nil {
		return fmt.Errorf("save notification: %w", err)
	}
	n.Id = res.InsertedID.(bson.ObjectID)

	return nil
}

func (s *NotificationStore) ListForUser(ctx context.Context, userId int64, limit, offset int64, unreadOnly bool) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	if offset < 0 {
		offset = 0
	}

	filter := bson.M{"user_id": userId}
	if unreadOnly {
		filter["read"] = false
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "timestamp", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)

	cursor, err := s.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer cursor.Close(ctx)

	var notifications []Notification
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, fmt.Errorf("decode notifications: %w", err)
	}

	return notifications, nil
}

// MarkRead flips the read flag. The filter carries the owner id so a user
// can only mutate their own notifications.
func (s *NotificationStore) MarkRead(ctx context.Context, notificationId string, userId int64) error {
	oid, err := bson.ObjectIDFromHex(notificationId)
	if err != nil {
		return fmt.Errorf("%w: notification %q", ErrNotFound, notificationId)
	}

	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "user_id": userId},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: notification %q", ErrNotFound, notificationId)
	}

	return nil
}

func (s *NotificationStore) CountUnread(ctx context.Context, userId int64) (int64, error) {
	count, err := s.coll.CountDocuments(ctx, bson.M{"user_id": userId, "read": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}

	return count, nil
}
