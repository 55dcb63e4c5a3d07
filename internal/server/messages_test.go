package server

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestNoErrOk(t *testing.T) {
	expected := &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        1,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusOK,
			Data: map[string]any{
				"testkey": "testvalue",
			},
		},
	}

	result := NoErrOK(1, map[string]any{
		"testkey": "testvalue",
	})

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, expected.Id, result.Id, "expected Id to match")
	assert.WithinDuration(t, expected.Timestamp, result.Timestamp, time.Second, "expected Timestamp to be within 1 second")
	assert.Equal(t, expected.Response.ResponseCode, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, expected.Response.Data, result.Response.Data, "expected Data to match")
}

func TestNoErrAccepted(t *testing.T) {
	expected := &ServerMessage{
		BaseMessage: BaseMessage{
			Id:        1,
			Timestamp: Now(),
		},
		Response: &Response{
			ResponseCode: http.StatusAccepted,
		},
	}

	result := NoErrAccepted(1)

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, expected.Id, result.Id, "expected Id to match")
	assert.WithinDuration(t, expected.Timestamp, result.Timestamp, time.Second, "expected Timestamp to be within 1 second")
	assert.Equal(t, expected.Response.ResponseCode, result.Response.ResponseCode, "expected ResponseCode to match")
}

func TestErrConversationNotFound(t *testing.T) {
	result := ErrConversationNotFound(1)

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.Equal(t, http.StatusNotFound, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "conversation not found", result.Response.Error, "expected Error message to match")
}

func TestErrNotAuthorized(t *testing.T) {
	result := ErrNotAuthorized(1)

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.Equal(t, http.StatusForbidden, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "not authorized", result.Response.Error, "expected Error message to match")
}

func TestErrInternalError(t *testing.T) {
	result := ErrInternalError(1)

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.Equal(t, http.StatusInternalServerError, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "internal server error", result.Response.Error)
}

func TestErrServiceUnavailable(t *testing.T) {
	result := ErrServiceUnavailable(1)

	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 1, result.Id, "expected Id to match")
	assert.Equal(t, http.StatusServiceUnavailable, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "service unavailable", result.Response.Error)
}

func TestErrorInvalidMessage(t *testing.T) {
	result := ErrInvalidMessage(0)
	assert.NotNil(t, result, "expected result to be non-nil")
	assert.NotNil(t, result.Response, "expected response to be non-nil")
	assert.Equal(t, 0, result.Id, "expected Id to be zero")
	assert.Equal(t, http.StatusBadRequest, result.Response.ResponseCode, "expected ResponseCode to match")
	assert.Equal(t, "invalid message format", result.Response.Error, "expected Error message to match")

	// when id > 0, it should be set
	resultWithId := ErrInvalidMessage(42)
	assert.NotNil(t, resultWithId, "expected result to be non-nil")
	assert.Equal(t, 42, resultWithId.Id, "expected Id to match")
	assert.Equal(t, http.StatusBadRequest, resultWithId.Response.ResponseCode, "expected ResponseCode to match")
}

func Test_storeErrResponse(t *testing.T) {
	tcases := []struct {
		name         string
		err          error
		expectedCode int
	}{
		{
			name:         "not found",
			err:          store.ErrNotFound,
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "wrapped not found",
			err:          fmt.Errorf("get message: %w", store.ErrNotFound),
			expectedCode: http.StatusNotFound,
		},
		{
			name:         "not authorized",
			err:          store.ErrNotAuthorized,
			expectedCode: http.StatusForbidden,
		},
		{
			name:         "invalid argument",
			err:          store.ErrInvalidArgument,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "not enough participants",
			err:          store.ErrNotEnoughParticipants,
			expectedCode: http.StatusBadRequest,
		},
		{
			name:         "unknown error",
			err:          assert.AnError,
			expectedCode: http.StatusInternalServerError,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			result := storeErrResponse(1, tc.err)
			assert.NotNil(t, result, "expected result to be non-nil")
			assert.NotNil(t, result.Response, "expected response to be non-nil")
			assert.Equal(t, 1, result.Id, "expected Id to match")
			assert.Equal(t, tc.expectedCode, result.Response.ResponseCode, "expected ResponseCode to match")
		})
	}
}
