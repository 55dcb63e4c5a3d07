package store

import (
	"slices"
	"strconv"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	KindDirect     = "direct"
	KindEventGroup = "event_group"

	MessageTypeText   = "text"
	MessageTypeImage  = "image"
	MessageTypeFile   = "file"
	MessageTypeSystem = "system"

	// Tombstone replaces the content of soft-deleted messages. The row is
	// retained so pagination ordering stays stable.
	Tombstone = "This message was deleted"

	// MaxContentLength bounds message content in bytes.
	MaxContentLength = 5000

	// NotificationTTL is the retention horizon after which a notification
	// becomes eligible for deletion by the collection's TTL index.
	NotificationTTL = 30 * 24 * time.Hour
)

type Conversation struct {
	Id   bson.ObjectID `bson:"_id,omitempty"`
	Kind string        `bson:"kind"`
	// Participants holds user ids, sorted ascending for direct
	// conversations. Event group membership is add-only.
	Participants []int64 `bson:"participants"`
	// PairKey is the canonical "low:high" participant pair, set only for
	// direct conversations. A unique sparse index on it guarantees a single
	// conversation per pair under concurrent creation.
	PairKey string `bson:"pair_key,omitempty"`
	EventId int64  `bson:"event_id,omitempty"`
	Name    string `bson:"name,omitempty"`
	// LastMessage is a denormalized preview, refreshed on every accepted
	// message.
	LastMessage *LastMessage `bson:"last_message,omitempty"`
	// UnreadCount is keyed by stringified user id. The string keying is a
	// storage artifact; UnreadFor converts at the boundary.
	UnreadCount map[string]int `bson:"unread_count"`
	CreatedAt   time.Time      `bson:"created_at"`
	UpdatedAt   time.Time      `bson:"updated_at"`
}

type LastMessage struct {
	Content   string    `bson:"content" json:"content"`
	SenderId  int64     `bson:"sender_id" json:"sender_id"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}

func (c *Conversation) HasParticipant(userId int64) bool {
	return slices.Contains(c.Participants, userId)
}

func (c *Conversation) UnreadFor(userId int64) int {
	if c.UnreadCount == nil {
		return 0
	}
	return c.UnreadCount[unreadKey(userId)]
}

type Message struct {
	Id             bson.ObjectID `bson:"_id,omitempty"`
	ConversationId bson.ObjectID `bson:"conversation_id"`
	SenderId       int64         `bson:"sender_id"`
	Content        string        `bson:"content"`
	Type           string        `bson:"type"`
	FileUrl        string        `bson:"file_url,omitempty"`
	ReadBy         []int64       `bson:"read_by"`
	IsEdited       bool          `bson:"is_edited"`
	EditedAt       *time.Time    `bson:"edited_at,omitempty"`
	IsDeleted      bool          `bson:"is_deleted"`
	CreatedAt      time.Time     `bson:"created_at"`
}

type Notification struct {
	Id        bson.ObjectID    `bson:"_id,omitempty"`
	UserId    int64            `bson:"user_id"`
	Type      string           `bson:"type"`
	Title     string           `bson:"title"`
	Message   string           `bson:"message"`
	Icon      string           `bson:"icon"`
	Color     string           `bson:"color"`
	Data      NotificationData `bson:"data"`
	Read      bool             `bson:"read"`
	Timestamp time.Time        `bson:"timestamp"`
	ExpiresAt time.Time        `bson:"expires_at"`
}

// NotificationData is stored as a tagged union: exactly one field is set,
// matching the notification's Type. All notification kinds share one
// collection.
type NotificationData struct {
	Registration   *RegistrationData   `bson:"registration,omitempty" json:"registration,omitempty"`
	Unregistration *UnregistrationData `bson:"unregistration,omitempty" json:"unregistration,omitempty"`
	Report         *ReportData         `bson:"report,omitempty" json:"report,omitempty"`
}

type RegistrationData struct {
	EventId    int64  `bson:"event_id" json:"event_id"`
	EventTitle string `bson:"event_title" json:"event_title"`
	UserId     int64  `bson:"user_id" json:"user_id"`
	Username   string `bson:"username" json:"username"`
}

type UnregistrationData struct {
	EventId    int64  `bson:"event_id" json:"event_id"`
	EventTitle string `bson:"event_title" json:"event_title"`
	UserId     int64  `bson:"user_id" json:"user_id"`
	Username   string `bson:"username" json:"username"`
}

type ReportData struct {
	ReportId   int64  `bson:"report_id" json:"report_id"`
	EventId    int64  `bson:"event_id" json:"event_id"`
	EventTitle string `bson:"event_title" json:"event_title"`
	ReporterId int64  `bson:"reporter_id" json:"reporter_id"`
	Reason     string `bson:"reason" json:"reason"`
}

// canonicalPair sorts a direct conversation's participant pair and derives
// the unique lookup key.
func canonicalPair(a, b int64) ([]int64, string) {
	if b < a {
		a, b = b, a
	}
	return []int64{a, b}, strconv.FormatInt(a, 10) + ":" + strconv.FormatInt(b, 10)
}

func unreadKey(userId int64) string {
	return strconv.FormatInt(userId, 10)
}
