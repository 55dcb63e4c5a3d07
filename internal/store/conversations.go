package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// maxConversationList bounds the per-user conversation listing.
const maxConversationList = 50

type ConversationStore struct {
	coll *mongo.Collection
}

func NewConversationStore(coll *mongo.Collection) *ConversationStore {
	return &ConversationStore{coll: coll}
}

// FindOrCreateDirect returns the unique direct conversation between two
// users, creating it if absent. The participant pair is canonicalized before
// lookup and the upsert races on the unique pair_key index, so concurrent
// first-contact between the same pair always converges on one document.
func (s *ConversationStore) FindOrCreateDirect(ctx context.Context, userA, userB int64) (*Conversation, error) {
	if userA == userB {
		return nil, fmt.Errorf("%w: cannot open a direct conversation with yourself", ErrInvalidArgument)
	}

	pair, key := canonicalPair(userA, userB)
	now := time.Now().UTC()

	filter := bson.M{"kind": KindDirect, "pair_key": key}
	update := bson.M{
		"$setOnInsert": bson.M{
			"kind":         KindDirect,
			"participants": pair,
			"pair_key":     key,
			"unread_count": bson.M{},
			"created_at":   now,
			"updated_at":   now,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var conv Conversation
	err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv)
	if mongo.IsDuplicateKeyError(err) {
		// Lost the creation race; the winner's document is the conversation.
		err = s.coll.FindOne(ctx, filter).Decode(&conv)
	}
	if err != nil {
		return nil, fmt.Errorf("find or create direct conversation: %w", err)
	}

	return &conv, nil
}

// FindOrCreateEventGroup returns the group conversation for an event,
// creating it from the current registrant list if absent. An existing
// conversation is synced by unioning in registrants that are not yet
// participants; membership is add-only, users keep chat access after
// unregistering.
func (s *ConversationStore) FindOrCreateEventGroup(ctx context.Context, eventId int64, eventTitle string, registrantIds []int64) (*Conversation, error) {
	filter := bson.M{"kind": KindEventGroup, "event_id": eventId}

	var conv Conversation
	err := s.coll.FindOne(ctx, filter).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if len(registrantIds) < 2 {
			return nil, fmt.Errorf("%w: event %d has %d registrants", ErrNotEnoughParticipants, eventId, len(registrantIds))
		}

		now := time.Now().UTC()
		unread := make(map[string]int, len(registrantIds))
		for _, id := range registrantIds {
			unread[unreadKey(id)] = 0
		}

		conv = Conversation{
			Kind:         KindEventGroup,
			Participants: registrantIds,
			EventId:      eventId,
			Name:         eventTitle,
			UnreadCount:  unread,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		res, insertErr := s.coll.InsertOne(ctx, &conv)
		if mongo.IsDuplicateKeyError(insertErr) {
			// Another request created it first; fall through to the sync path.
			if err := s.coll.FindOne(ctx, filter).Decode(&conv); err != nil {
				return nil, fmt.Errorf("find event group conversation: %w", err)
			}
		} else if insertErr != nil {
			return nil, fmt.Errorf("create event group conversation: %w", insertErr)
		} else {
			conv.Id = res.InsertedID.(bson.ObjectID)
			return &conv, nil
		}
	} else if err != nil {
		return nil, fmt.Errorf("find event group conversation: %w", err)
	}

	var missing []any
	set := bson.M{"updated_at": time.Now().UTC()}
	for _, id := range registrantIds {
		if !conv.HasParticipant(id) {
			missing = append(missing, id)
			set["unread_count."+unreadKey(id)] = 0
		}
	}
	if len(missing) == 0 {
		return &conv, nil
	}

	update := bson.M{
		"$addToSet": bson.M{"participants": bson.M{"$each": missing}},
		"$set":      set,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	if err := s.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&conv); err != nil {
		return nil, fmt.Errorf("sync event group participants: %w", err)
	}

	return &conv, nil
}

func (s *ConversationStore) Get(ctx context.Context, conversationId string) (*Conversation, error) {
	oid, err := bson.ObjectIDFromHex(conversationId)
	if err != nil {
		return nil, fmt.Errorf("%w: conversation %q", ErrNotFound, conversationId)
	}

	var conv Conversation
	err = s.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&conv)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: conversation %q", ErrNotFound, conversationId)
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}

	return &conv, nil
}

// RecordNewMessage refreshes the last-message preview and bumps the unread
// counter of every participant except the sender. The counters are $inc'd in
// a single update, so concurrent messages never lose an increment.
func (s *ConversationStore) RecordNewMessage(ctx context.Context, conversationId string, senderId int64, preview LastMessage) error {
	conv, err := s.Get(ctx, conversationId)
	if err != nil {
		return err
	}

	update := bson.M{
		"$set": bson.M{
			"last_message": preview,
			"updated_at":   preview.Timestamp,
		},
	}
	inc := bson.M{}
	for _, p := range conv.Participants {
		if p != senderId {
			inc["unread_count."+unreadKey(p)] = 1
		}
	}
	if len(inc) > 0 {
		update["$inc"] = inc
	}

	if _, err := s.coll.UpdateOne(ctx, bson.M{"_id": conv.Id}, update); err != nil {
		return fmt.Errorf("record new message: %w", err)
	}

	return nil
}

// MarkRead zeroes the unread counter of a participant. A non-participant, or
// an unknown conversation, is a silent no-op.
func (s *ConversationStore) MarkRead(ctx context.Context, conversationId string, userId int64) error {
	oid, err := bson.ObjectIDFromHex(conversationId)
	if err != nil {
		return nil
	}

	filter := bson.M{"_id": oid, "participants": userId}
	update := bson.M{"$set": bson.M{"unread_count." + unreadKey(userId): 0}}

	if _, err := s.coll.UpdateOne(ctx, filter, update); err != nil {
		return fmt.Errorf("mark conversation read: %w", err)
	}

	return nil
}

// ListForUser returns the user's conversations, most recently updated first,
// capped at maxConversationList. The listing is a restartable projection, not
// a live stream.
func (s *ConversationStore) ListForUser(ctx context.Context, userId int64) ([]Conversation, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "updated_at", Value: -1}}).
		SetLimit(maxConversationList)

	cursor, err := s.coll.Find(ctx, bson.M{"participants": userId}, opts)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer cursor.Close(ctx)

	var conversations []Conversation
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("decode conversations: %w", err)
	}

	return conversations, nil
}
