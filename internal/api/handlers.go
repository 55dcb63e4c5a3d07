package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/RobertSSmau/EventHub/internal/server"
	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/RobertSSmau/EventHub/internal/types"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type CreateDirectConversationRequest struct {
	UserId int64 `json:"user_id"`
}

type CreateEventConversationRequest struct {
	EventId int64 `json:"event_id"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
	Type    string `json:"type"`
	FileUrl string `json:"file_url"`
}

type EditMessageRequest struct {
	Content string `json:"content"`
}

type MessagePage struct {
	Messages []types.Message `json:"messages"`
	HasMore  bool            `json:"has_more"`
}

type RegistrationHookRequest struct {
	EventId   int64 `json:"event_id"`
	UserId    int64 `json:"user_id"`
	Cancelled bool  `json:"cancelled"`
}

type ReportHookRequest struct {
	ReportId   int64  `json:"report_id"`
	EventId    int64  `json:"event_id"`
	ReporterId int64  `json:"reporter_id"`
	Reason     string `json:"reason"`
}

func (s *EventHubApp) writeJson(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if v == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Printf("json encode: %v", err)
	}
}

func (s *EventHubApp) healthCheck(w http.ResponseWriter, _ *http.Request) {
	if err := s.db.Ping(); err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *EventHubApp) login(w http.ResponseWriter, r *http.Request) {
	var lr LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&lr); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if lr.Email == "" || lr.Password == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	dbUser, err := s.db.GetAccountByEmail(lr.Email)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if !verifyPassword(dbUser.PasswordHash, lr.Password) {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	u := types.User{
		Id:           dbUser.Id,
		Username:     dbUser.Username,
		EmailAddress: dbUser.EmailAddress,
		Role:         dbUser.Role,
		CreatedAt:    dbUser.CreatedAt,
		UpdatedAt:    dbUser.UpdatedAt,
	}

	token, err := s.createJwtForSession(u, defaultJwtExpiration)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	http.SetCookie(w, createJwtCookie(token, defaultJwtExpiration))

	s.writeJson(w, http.StatusOK, u)
}

func (s *EventHubApp) session(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(userId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		Role:         user.Role,
		CreatedAt:    user.CreatedAt,
		UpdatedAt:    user.UpdatedAt,
	})
}

func (s *EventHubApp) logout(w http.ResponseWriter, _ *http.Request) {
	// instruct browser to delete cookie by overwriting it with an expired token
	http.SetCookie(w, createJwtCookie("", time.Duration(time.Unix(0, 0).Unix())))
	w.WriteHeader(http.StatusNoContent)
}

// lookupParticipants resolves profiles for conversation enrichment. Missing
// accounts degrade to bare ids.
func (s *EventHubApp) lookupParticipants(ids []int64) map[int64]types.User {
	users, err := s.db.GetAccountsByIds(ids)
	if err != nil {
		s.log.Println("lookup participants:", err)
		return map[int64]types.User{}
	}

	byId := make(map[int64]types.User, len(users))
	for _, u := range users {
		byId[u.Id] = types.User{
			Id:           u.Id,
			Username:     u.Username,
			EmailAddress: u.EmailAddress,
		}
	}
	return byId
}

func (s *EventHubApp) listConversations(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	convs, err := s.conversations.ListForUser(r.Context(), userId)
	if err != nil {
		s.log.Println("list conversations:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var participantIds []int64
	for _, c := range convs {
		for _, id := range c.Participants {
			if !slices.Contains(participantIds, id) {
				participantIds = append(participantIds, id)
			}
		}
	}

	usersById := s.lookupParticipants(participantIds)

	out := make([]types.Conversation, 0, len(convs))
	for i := range convs {
		out = append(out, convs[i].WireFor(userId, usersById))
	}

	s.writeJson(w, http.StatusOK, out)
}

func (s *EventHubApp) createDirectConversation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateDirectConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if _, err := s.db.GetAccountById(req.UserId); err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conv, err := s.conversations.FindOrCreateDirect(r.Context(), userId, req.UserId)
	if err != nil {
		s.log.Println("create direct conversation:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	usersById := s.lookupParticipants(conv.Participants)
	s.writeJson(w, http.StatusCreated, conv.WireFor(userId, usersById))
}

func (s *EventHubApp) createEventConversation(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req CreateEventConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	event, err := s.db.GetEventById(req.EventId)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if event.OwnerId != userId && !s.db.RegistrationExists(userId, event.Id) {
		errResp := NewForbiddenError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	registrantIds, err := s.db.ListRegistrantIds(event.Id)
	if err != nil {
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	// the owner is always part of their event's conversation
	if !slices.Contains(registrantIds, event.OwnerId) {
		registrantIds = append(registrantIds, event.OwnerId)
	}

	conv, err := s.conversations.FindOrCreateEventGroup(r.Context(), event.Id, event.Title, registrantIds)
	if err != nil {
		s.log.Println("create event conversation:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	usersById := s.lookupParticipants(conv.Participants)
	s.writeJson(w, http.StatusCreated, conv.WireFor(userId, usersById))
}

// memberConversation loads the conversation and enforces the requester's
// membership.
func (s *EventHubApp) memberConversation(r *http.Request, conversationId string, userId int64) (*store.Conversation, *ApiError) {
	conv, err := s.conversations.Get(r.Context(), conversationId)
	if err != nil {
		return nil, newStoreError(err)
	}

	if !conv.HasParticipant(userId) {
		return nil, NewForbiddenError()
	}

	return conv, nil
}

func (s *EventHubApp) getMessages(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversationId := r.PathValue("id")
	if _, errResp := s.memberConversation(r, conversationId, userId); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit int64
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.ParseInt(limitStr, 10, 64)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		limit = n
	}

	var before time.Time
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		t, err := time.Parse(time.RFC3339Nano, beforeStr)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		before = t
	}
	beforeId := r.URL.Query().Get("before_id")

	msgs, hasMore, err := s.messages.Page(r.Context(), conversationId, limit, before, beforeId)
	if err != nil {
		s.log.Println("page messages:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var senderIds []int64
	for i := range msgs {
		if !slices.Contains(senderIds, msgs[i].SenderId) {
			senderIds = append(senderIds, msgs[i].SenderId)
		}
	}
	usersById := s.lookupParticipants(senderIds)

	page := MessagePage{Messages: make([]types.Message, 0, len(msgs)), HasMore: hasMore}
	for i := range msgs {
		wire := msgs[i].Wire()
		if sender, ok := usersById[wire.SenderId]; ok {
			wire.Sender = &sender
		}
		page.Messages = append(page.Messages, wire)
	}

	s.writeJson(w, http.StatusOK, page)
}

func (s *EventHubApp) sendMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversationId := r.PathValue("id")
	if _, errResp := s.memberConversation(r, conversationId, userId); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	msg, err := s.messages.Append(r.Context(), conversationId, userId, req.Content, req.Type, req.FileUrl)
	if err != nil {
		s.log.Println("append message:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	preview := store.LastMessage{
		Content:   msg.Content,
		SenderId:  msg.SenderId,
		Timestamp: msg.CreatedAt,
	}
	if err := s.conversations.RecordNewMessage(r.Context(), conversationId, userId, preview); err != nil {
		s.log.Println("record new message:", err)
	}

	wire := msg.Wire()
	if user, err := s.db.GetAccountById(userId); err == nil {
		wire.Sender = &types.User{Id: user.Id, Username: user.Username, EmailAddress: user.EmailAddress}
	}

	s.cs.NotifyConversation(conversationId, &server.ServerMessage{
		BaseMessage: server.BaseMessage{Timestamp: msg.CreatedAt},
		Message:     &wire,
	})

	s.writeJson(w, http.StatusCreated, wire)
}

func (s *EventHubApp) markConversationRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversationId := r.PathValue("id")
	if _, errResp := s.memberConversation(r, conversationId, userId); errResp != nil {
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.messages.MarkAllReadBy(r.Context(), conversationId, userId); err != nil {
		s.log.Println("mark all read:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.conversations.MarkRead(r.Context(), conversationId, userId); err != nil {
		s.log.Println("mark conversation read:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.cs.NotifyConversation(conversationId, &server.ServerMessage{
		BaseMessage: server.BaseMessage{Timestamp: server.Now()},
		Notification: &server.Notification{
			ReadReceipt: &server.ReadReceipt{
				ConversationId: conversationId,
				UserId:         userId,
			},
		},
	})

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *EventHubApp) editMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var req EditMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	edited, err := s.messages.Edit(r.Context(), r.PathValue("id"), userId, req.Content)
	if err != nil {
		s.log.Println("edit message:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	wire := edited.Wire()
	s.cs.NotifyConversation(wire.ConversationId, &server.ServerMessage{
		BaseMessage:  server.BaseMessage{Timestamp: server.Now()},
		Notification: &server.Notification{MessageEdited: &wire},
	})

	s.writeJson(w, http.StatusOK, wire)
}

func (s *EventHubApp) deleteMessage(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	messageId := r.PathValue("id")
	deleted, err := s.messages.SoftDelete(r.Context(), messageId, userId)
	if err != nil {
		s.log.Println("delete message:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	conversationId := deleted.ConversationId.Hex()
	s.cs.NotifyConversation(conversationId, &server.ServerMessage{
		BaseMessage: server.BaseMessage{Timestamp: server.Now()},
		Notification: &server.Notification{
			MessageDeleted: &server.MessageDeleted{
				ConversationId: conversationId,
				MessageId:      messageId,
			},
		},
	})

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *EventHubApp) onlineStatus(w http.ResponseWriter, r *http.Request) {
	idsParam := r.URL.Query().Get("ids")
	if idsParam == "" {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var ids []int64
	for _, part := range strings.Split(idsParam, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		ids = append(ids, id)
	}

	s.writeJson(w, http.StatusOK, s.cs.OnlineStatus(ids))
}

func (s *EventHubApp) listNotifications(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	var limit, offset int64
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		limit = n
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errResp := NewBadRequestError()
			s.writeJson(w, errResp.StatusCode, errResp)
			return
		}
		offset = n
	}
	unreadOnly := r.URL.Query().Get("unread") == "true"

	notifs, err := s.notifications.ListForUser(r.Context(), userId, limit, offset, unreadOnly)
	if err != nil {
		s.log.Println("list notifications:", err)
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	out := make([]types.Notification, 0, len(notifs))
	for i := range notifs {
		out = append(out, notifs[i].Wire())
	}

	s.writeJson(w, http.StatusOK, out)
}

func (s *EventHubApp) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if err := s.notifications.MarkRead(r.Context(), r.PathValue("id"), userId); err != nil {
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusNoContent, nil)
}

func (s *EventHubApp) unreadNotificationCount(w http.ResponseWriter, r *http.Request) {
	userId, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	count, err := s.notifications.CountUnread(r.Context(), userId)
	if err != nil {
		errResp := newStoreError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.writeJson(w, http.StatusOK, map[string]int64{"count": count})
}

// registrationHook is called by the registration service after a
// registration is created or cancelled. The notification fanout never fails
// the hook.
func (s *EventHubApp) registrationHook(w http.ResponseWriter, r *http.Request) {
	var req RegistrationHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventId == 0 || req.UserId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	if req.Cancelled {
		s.notifier.RegistrationCancelled(r.Context(), req.EventId, req.UserId)
	} else {
		s.notifier.RegistrationCreated(r.Context(), req.EventId, req.UserId)
	}

	s.writeJson(w, http.StatusAccepted, nil)
}

func (s *EventHubApp) reportHook(w http.ResponseWriter, r *http.Request) {
	var req ReportHookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.EventId == 0 || req.ReportId == 0 {
		errResp := NewBadRequestError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	s.notifier.ReportFiled(r.Context(), req.ReportId, req.EventId, req.ReporterId, req.Reason)

	s.writeJson(w, http.StatusAccepted, nil)
}

func (s *EventHubApp) serveWs(w http.ResponseWriter, r *http.Request) {
	id, ok := UserId(r.Context())
	if !ok {
		errResp := NewUnauthorizedError()
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	user, err := s.db.GetAccountById(id)
	if err != nil {
		var errResp *ApiError
		if errors.Is(err, sql.ErrNoRows) {
			errResp = NewNotFoundError()
		} else {
			errResp = NewInternalServerError(err)
		}
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	session, err := s.generateShortId()
	if err != nil {
		s.log.Print("generateShortId:", err)
		errResp := NewInternalServerError(err)
		s.writeJson(w, errResp.StatusCode, errResp)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			// only allow connections from allowed origins
			origin := r.Header.Get("Origin")
			if origin == "" {
				// if no origin header, allow the request
				return true
			}

			return slices.Contains(s.allowedOrigins, origin)
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Println("error upgrading connection:", err)
		return
	}

	client := server.NewClient(types.User{
		Id:           user.Id,
		Username:     user.Username,
		EmailAddress: user.EmailAddress,
		Role:         user.Role,
	}, session, conn, s.cs, s.log)

	s.cs.RegisterClient(client)
	go client.Write()
	go client.Read()
}
