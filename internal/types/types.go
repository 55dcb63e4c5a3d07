package types

import (
	"time"
)

type User struct {
	Id           int64     `json:"id"`
	Username     string    `json:"username"`
	EmailAddress string    `json:"email_address,omitempty"`
	Role         string    `json:"role,omitempty"`
	IsOnline     bool      `json:"is_online,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

const (
	ConversationDirect     = "direct"
	ConversationEventGroup = "event_group"
)

type Conversation struct {
	Id           string       `json:"id"`
	Kind         string       `json:"kind"`
	Participants []User       `json:"participants"`
	EventId      int64        `json:"event_id,omitempty"`
	DisplayName  string       `json:"display_name"`
	LastMessage  *LastMessage `json:"last_message,omitempty"`
	UnreadCount  int          `json:"unread_count"`
	CreatedAt    time.Time    `json:"created_at,omitempty"`
	UpdatedAt    time.Time    `json:"updated_at,omitempty"`
}

type LastMessage struct {
	Content   string    `json:"content"`
	SenderId  int64     `json:"sender_id"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageFile   = "file"
	MessageSystem = "system"
)

type Message struct {
	Id             string     `json:"id"`
	ConversationId string     `json:"conversation_id"`
	SenderId       int64      `json:"sender_id"`
	Sender         *User      `json:"sender,omitempty"`
	Content        string     `json:"content"`
	Type           string     `json:"type"`
	FileUrl        string     `json:"file_url,omitempty"`
	ReadBy         []int64    `json:"read_by"`
	IsEdited       bool       `json:"is_edited,omitempty"`
	EditedAt       *time.Time `json:"edited_at,omitempty"`
	IsDeleted      bool       `json:"is_deleted,omitempty"`
	Timestamp      time.Time  `json:"timestamp"`
}

const (
	NotificationRegistration   = "registration"
	NotificationUnregistration = "unregistration"
	NotificationReport         = "report"
)

type Notification struct {
	Id        string           `json:"id"`
	Type      string           `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Icon      string           `json:"icon"`
	Color     string           `json:"color"`
	Data      NotificationData `json:"data"`
	Read      bool             `json:"read"`
	Timestamp time.Time        `json:"timestamp"`
}

// NotificationData is a tagged union keyed by the notification type:
// exactly one field is non-nil.
type NotificationData struct {
	Registration   *RegistrationData   `json:"registration,omitempty"`
	Unregistration *UnregistrationData `json:"unregistration,omitempty"`
	Report         *ReportData         `json:"report,omitempty"`
}

type RegistrationData struct {
	EventId    int64  `json:"event_id"`
	EventTitle string `json:"event_title"`
	UserId     int64  `json:"user_id"`
	Username   string `json:"username"`
}

type UnregistrationData struct {
	EventId    int64  `json:"event_id"`
	EventTitle string `json:"event_title"`
	UserId     int64  `json:"user_id"`
	Username   string `json:"username"`
}

type ReportData struct {
	ReportId   int64  `json:"report_id"`
	EventId    int64  `json:"event_id"`
	EventTitle string `json:"event_title"`
	ReporterId int64  `json:"reporter_id"`
	Reason     string `json:"reason"`
}
