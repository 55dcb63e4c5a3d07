package store

import "errors"

var (
	// ErrNotFound is returned when a conversation, message or notification
	// does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotAuthorized is returned when the caller is not a participant of
	// the target conversation, or not the sender of the target message.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrInvalidArgument is returned for malformed input: empty or oversized
	// content, a user opening a direct conversation with themselves.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotEnoughParticipants is returned when an event group conversation
	// is requested before the event has at least two registrants. Callers
	// may retry once more users register.
	ErrNotEnoughParticipants = errors.New("not enough participants")
)
