package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Content and type validation run before any Mongo round trip, so an
// unconnected store is enough here.
func TestMessageStore_AppendValidation(t *testing.T) {
	msgs := &MessageStore{}
	ctx := context.Background()

	_, err := msgs.Append(ctx, "ignored", 1, "   ", "", "")
	assert.ErrorIs(t, err, ErrInvalidArgument, "expected blank text content to be rejected")

	_, err = msgs.Append(ctx, "ignored", 1, "hi", "carrier-pigeon", "")
	assert.ErrorIs(t, err, ErrInvalidArgument, "expected unknown message type to be rejected")
}

func TestMessageStore_AppendAndPage(t *testing.T) {
	s, ctx := newTestStore(t)
	msgs := s.Messages()

	conv, err := s.Conversations().FindOrCreateDirect(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateDirect failed: %v", err)
	}
	convId := conv.Id.Hex()

	var appended []string
	for _, content := range []string{"one", "two", "three", "four", "five"} {
		m, err := msgs.Append(ctx, convId, 1, content, "", "")
		if err != nil {
			t.Fatalf("Append %q failed: %v", content, err)
		}
		appended = append(appended, m.Id.Hex())
	}

	// page backwards through the history two at a time; the cursor is the
	// oldest message of each page
	var collected []string
	var before time.Time
	var beforeId string
	for {
		page, hasMore, err := msgs.Page(ctx, convId, 2, before, beforeId)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		if len(page) == 0 {
			break
		}
		pageIds := make([]string, 0, len(page))
		for i := range page {
			pageIds = append(pageIds, page[i].Id.Hex())
		}
		collected = append(pageIds, collected...)

		if !hasMore {
			break
		}
		before = page[0].CreatedAt
		beforeId = page[0].Id.Hex()
	}

	assert.Equal(t, appended, collected,
		"expected chained pages to reconstruct the full history without gaps or duplicates")
}

func TestMessageStore_PageSameTimestamp(t *testing.T) {
	s, ctx := newTestStore(t)
	msgs := s.Messages()

	conv, err := s.Conversations().FindOrCreateDirect(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateDirect failed: %v", err)
	}

	// three messages stamped in the same millisecond; only the id breaks the
	// ordering tie between them
	stamp := time.Now().UTC().Truncate(time.Millisecond)
	var inserted []string
	for _, content := range []string{"a", "b", "c"} {
		m := &Message{
			ConversationId: conv.Id,
			SenderId:       1,
			Content:        content,
			Type:           MessageTypeText,
			ReadBy:         []int64{},
			CreatedAt:      stamp,
		}
		res, err := msgs.coll.InsertOne(ctx, m)
		if err != nil {
			t.Fatalf("insert %q failed: %v", content, err)
		}
		inserted = append(inserted, res.InsertedID.(bson.ObjectID).Hex())
	}

	var collected []string
	var before time.Time
	var beforeId string
	for i := 0; i < len(inserted); i++ {
		page, _, err := msgs.Page(ctx, conv.Id.Hex(), 1, before, beforeId)
		if err != nil {
			t.Fatalf("Page failed: %v", err)
		}
		if len(page) != 1 {
			t.Fatalf("expected a single message per page, got %d", len(page))
		}
		collected = append([]string{page[0].Id.Hex()}, collected...)
		before = page[0].CreatedAt
		beforeId = page[0].Id.Hex()
	}

	assert.Equal(t, inserted, collected,
		"expected same-millisecond messages to survive page chaining")

	// the cursor id must be a well-formed object id
	_, _, err = msgs.Page(ctx, conv.Id.Hex(), 1, stamp, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMessageStore_MarkReadBy(t *testing.T) {
	s, ctx := newTestStore(t)
	msgs := s.Messages()

	conv, err := s.Conversations().FindOrCreateDirect(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateDirect failed: %v", err)
	}
	msg, err := msgs.Append(ctx, conv.Id.Hex(), 1, "hello", "", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	id := msg.Id.Hex()

	// repeat acknowledgements collapse to one receipt
	if err := msgs.MarkReadBy(ctx, id, 2); err != nil {
		t.Fatalf("MarkReadBy failed: %v", err)
	}
	if err := msgs.MarkReadBy(ctx, id, 2); err != nil {
		t.Fatalf("repeat MarkReadBy failed: %v", err)
	}

	got, err := msgs.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assert.Equal(t, []int64{2}, got.ReadBy, "expected a single receipt per reader")

	// the sender acknowledging their own message is a no-op
	if err := msgs.MarkReadBy(ctx, id, 1); err != nil {
		t.Fatalf("sender MarkReadBy failed: %v", err)
	}
	got, err = msgs.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get after sender ack failed: %v", err)
	}
	assert.Equal(t, []int64{2}, got.ReadBy, "expected sender ack to leave receipts unchanged")

	err = msgs.MarkReadBy(ctx, bson.NewObjectID().Hex(), 2)
	assert.ErrorIs(t, err, ErrNotFound, "expected unknown message to be reported")
}

func TestMessageStore_MarkAllReadBy(t *testing.T) {
	s, ctx := newTestStore(t)
	msgs := s.Messages()

	conv, err := s.Conversations().FindOrCreateDirect(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateDirect failed: %v", err)
	}
	convId := conv.Id.Hex()

	fromOther, err := msgs.Append(ctx, convId, 1, "from alice", "", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	own, err := msgs.Append(ctx, convId, 2, "from bob", "", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	if err := msgs.MarkAllReadBy(ctx, convId, 2); err != nil {
		t.Fatalf("MarkAllReadBy failed: %v", err)
	}

	got, err := msgs.Get(ctx, fromOther.Id.Hex())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assert.Equal(t, []int64{2}, got.ReadBy, "expected the other party's message to be receipted")

	got, err = msgs.Get(ctx, own.Id.Hex())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	assert.Empty(t, got.ReadBy, "expected the reader's own message to be skipped")
}

func TestMessageStore_EditAndSoftDelete(t *testing.T) {
	s, ctx := newTestStore(t)
	msgs := s.Messages()

	conv, err := s.Conversations().FindOrCreateDirect(ctx, 1, 2)
	if err != nil {
		t.Fatalf("FindOrCreateDirect failed: %v", err)
	}
	convId := conv.Id.Hex()

	msg, err := msgs.Append(ctx, convId, 1, "first draft", "", "")
	if err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	id := msg.Id.Hex()

	_, err = msgs.Edit(ctx, id, 2, "hijacked")
	assert.ErrorIs(t, err, ErrNotAuthorized, "expected a non-sender edit to be refused")

	edited, err := msgs.Edit(ctx, id, 1, "final draft")
	if err != nil {
		t.Fatalf("Edit failed: %v", err)
	}
	assert.Equal(t, "final draft", edited.Content)
	assert.True(t, edited.IsEdited)
	assert.NotNil(t, edited.EditedAt, "expected edit timestamp")

	_, err = msgs.SoftDelete(ctx, id, 2)
	assert.ErrorIs(t, err, ErrNotAuthorized, "expected a non-sender delete to be refused")

	deleted, err := msgs.SoftDelete(ctx, id, 1)
	if err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}
	assert.True(t, deleted.IsDeleted)
	assert.Equal(t, Tombstone, deleted.Content)

	// a deleted message cannot be edited
	_, err = msgs.Edit(ctx, id, 1, "necromancy")
	assert.ErrorIs(t, err, ErrNotFound)

	// the tombstone keeps its slot in the history
	page, _, err := msgs.Page(ctx, convId, 0, time.Time{}, "")
	if err != nil {
		t.Fatalf("Page failed: %v", err)
	}
	if assert.Len(t, page, 1) {
		assert.True(t, page[0].IsDeleted)
		assert.Equal(t, Tombstone, page[0].Content)
	}
}
