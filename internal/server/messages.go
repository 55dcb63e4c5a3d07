package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/RobertSSmau/EventHub/internal/types"
)

type BaseMessage struct {
	Id        int       `json:"id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// ClientMessage is the inbound wire format. Exactly one of the operation
// fields is set.
type ClientMessage struct {
	BaseMessage
	Join    *Join    `json:"join,omitempty"`
	Leave   *Leave   `json:"leave,omitempty"`
	Publish *Publish `json:"publish,omitempty"`
	Read    *Read    `json:"read,omitempty"`
	Edit    *Edit    `json:"edit,omitempty"`
	Delete  *Delete  `json:"delete,omitempty"`
	Typing  *Typing  `json:"typing,omitempty"`
	UserId  int64    `json:"-"`
	client  *Client  `json:"-"`
}

type Join struct {
	ConversationId string `json:"conversation_id"`
}

type Leave struct {
	ConversationId string `json:"conversation_id"`
}

type Publish struct {
	ConversationId string `json:"conversation_id"`
	Content        string `json:"content"`
	Type           string `json:"type,omitempty"`
	FileUrl        string `json:"file_url,omitempty"`
}

type Read struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
}

type Edit struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
	Content        string `json:"content"`
}

type Delete struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
}

type Typing struct {
	ConversationId string `json:"conversation_id"`
	Started        bool   `json:"started"`
}

// ServerMessage is the outbound wire format: a Response answers one client
// request by id, Message carries a new chat message, Notification carries
// unsolicited events.
type ServerMessage struct {
	BaseMessage
	Response     *Response      `json:"response,omitempty"`
	Message      *types.Message `json:"message,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	// UserId targets the broadcast at one user's connection; zero means all
	// connected clients.
	UserId     int64   `json:"-"`
	SkipClient *Client `json:"-"`
}

type Response struct {
	ResponseCode int    `json:"response_code"`
	Error        string `json:"error,omitempty"`
	Data         any    `json:"data,omitempty"`
}

type Notification struct {
	Presence       *Presence           `json:"presence,omitempty"`
	Typing         *TypingEvent        `json:"typing,omitempty"`
	ReadReceipt    *ReadReceipt        `json:"read_receipt,omitempty"`
	MessageEdited  *types.Message      `json:"message_edited,omitempty"`
	MessageDeleted *MessageDeleted     `json:"message_deleted,omitempty"`
	Alert          *types.Notification `json:"alert,omitempty"`
}

// Presence is the global online/offline feed, broadcast to every connected
// client on connect and disconnect.
type Presence struct {
	UserId   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Online   bool   `json:"online"`
}

// TypingEvent is transient and room-scoped. Receivers clear a stale typing
// indicator after a short local timeout (~2s): delivery of the stop event is
// not guaranteed, this is a liveness heuristic, not a correctness guarantee.
type TypingEvent struct {
	ConversationId string `json:"conversation_id"`
	UserId         int64  `json:"user_id"`
	Username       string `json:"username,omitempty"`
	Started        bool   `json:"started"`
}

type ReadReceipt struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id,omitempty"`
	UserId         int64  `json:"user_id"`
}

type MessageDeleted struct {
	ConversationId string `json:"conversation_id"`
	MessageId      string `json:"message_id"`
}

func NoErrOK(id int, data any) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data:         data,
		},
	}
}

func NoErrAccepted(id int) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}
}

func errResponse(id, code int, msg string) *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        id,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: code,
			Error:        msg,
		},
	}
}

func ErrConversationNotFound(id int) *ServerMessage {
	return errResponse(id, http.StatusNotFound, "conversation not found")
}

func ErrNotAuthorized(id int) *ServerMessage {
	return errResponse(id, http.StatusForbidden, "not authorized")
}

func ErrInternalError(id int) *ServerMessage {
	return errResponse(id, http.StatusInternalServerError, "internal server error")
}

func ErrServiceUnavailable(id int) *ServerMessage {
	return errResponse(id, http.StatusServiceUnavailable, "service unavailable")
}

func ErrInvalidMessage(id int) *ServerMessage {
	msg := errResponse(0, http.StatusBadRequest, "invalid message format")
	if id > 0 {
		msg.Id = id
	}
	return msg
}

// storeErrResponse maps store errors onto a scoped error response. All
// operational failures go back to the initiating connection only, the
// connection itself stays open.
func storeErrResponse(id int, err error) *ServerMessage {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return errResponse(id, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrNotAuthorized):
		return ErrNotAuthorized(id)
	case errors.Is(err, store.ErrInvalidArgument):
		return errResponse(id, http.StatusBadRequest, "invalid argument")
	case errors.Is(err, store.ErrNotEnoughParticipants):
		return errResponse(id, http.StatusBadRequest, "not enough participants")
	default:
		return ErrInternalError(id)
	}
}

func Now() time.Time {
	return time.Now().UTC().Round(time.Millisecond)
}
