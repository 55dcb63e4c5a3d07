package server

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/RobertSSmau/EventHub/internal/types"
)

const (
	idleRoomTimeout = time.Minute
	storeOpTimeout  = 5 * time.Second
)

type exitReq struct {
	done chan struct{}
}

// room is the in-memory broadcast scope of one loaded conversation. A single
// goroutine owns it, so message persistence order within a conversation is
// the order the room accepts operations: monotonic per conversation, though
// not necessarily wall-clock order across connections.
type room struct {
	// id is the conversation's hex id.
	id            string
	conv          *store.Conversation
	cs            *ChatServer
	joinChan      chan *ClientMessage
	leaveChan     chan *ClientMessage
	clientMsgChan chan *ClientMessage
	clients       map[*Client]struct{}
	userMap       map[int64]map[*Client]struct{}
	clientLock    sync.RWMutex
	log           *log.Logger
	// killTimer unloads the room once no client is subscribed.
	killTimer *time.Timer
	exit      chan exitReq
	done      chan struct{}
}

func newRoom(conv *store.Conversation, cs *ChatServer) *room {
	return &room{
		id:            conv.Id.Hex(),
		conv:          conv,
		cs:            cs,
		joinChan:      make(chan *ClientMessage, 256),
		leaveChan:     make(chan *ClientMessage, 256),
		clientMsgChan: make(chan *ClientMessage, 256),
		clients:       make(map[*Client]struct{}),
		userMap:       make(map[int64]map[*Client]struct{}),
		log:           cs.log,
		exit:          make(chan exitReq),
		done:          make(chan struct{}),
	}
}

func opCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), storeOpTimeout)
}

func (r *room) start() {
	r.log.Printf("starting room for conversation %q", r.id)
	r.killTimer = time.NewTimer(idleRoomTimeout)
	r.killTimer.Stop()

	for {
		select {
		case join := <-r.joinChan:
			r.handleJoin(join)
		case leaveMsg := <-r.leaveChan:
			r.handleLeave(leaveMsg)
		case msg := <-r.clientMsgChan:
			switch {
			case msg.Publish != nil:
				r.handlePublish(msg)
			case msg.Read != nil:
				r.handleRead(msg)
			case msg.Edit != nil:
				r.handleEdit(msg)
			case msg.Delete != nil:
				r.handleDelete(msg)
			case msg.Typing != nil:
				r.handleTyping(msg)
			}
		case <-r.killTimer.C:
			r.handleRoomTimeout()
		case e := <-r.exit:
			r.handleRoomExit(e)
			return
		}
	}
}

func (r *room) handleRoomTimeout() {
	r.log.Printf("room %q timed out", r.id)
	select {
	case r.cs.unloadRoomChan <- r.id:
	default:
		// server busy, try again after another idle period
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *room) handleRoomExit(e exitReq) {
	r.log.Printf("room %q is exiting", r.id)

	r.clientLock.Lock()
	for c := range r.clients {
		c.delRoom(r.id)
	}
	r.clientLock.Unlock()

	close(r.done)
	if e.done != nil {
		close(e.done)
	}
}

// handleJoin re-reads the conversation so registrants added since the room
// was loaded pass the membership check, then subscribes the client. Joining
// has no persisted side effect.
func (r *room) handleJoin(join *ClientMessage) {
	r.killTimer.Stop()

	c := join.client

	ctx, cancel := opCtx()
	defer cancel()

	conv, err := r.cs.conversations.Get(ctx, r.id)
	if err != nil {
		r.log.Println("get conversation:", err)
		c.queueMessage(storeErrResponse(join.Id, err))
		r.resetTimerIfEmpty()
		return
	}
	r.conv = conv

	if !conv.HasParticipant(c.user.Id) {
		c.queueMessage(ErrNotAuthorized(join.Id))
		r.resetTimerIfEmpty()
		return
	}

	r.addClient(c)

	c.queueMessage(NoErrOK(join.Id, conv.WireFor(c.user.Id, r.cs.lookupUsers(conv.Participants))))
}

func (r *room) handleLeave(leaveMsg *ClientMessage) {
	r.removeClient(leaveMsg.client)

	if leaveMsg.Id != 0 {
		leaveMsg.client.queueMessage(NoErrOK(leaveMsg.Id, nil))
	}
}

// handlePublish persists the message, then updates the conversation's
// preview and unread counters, then broadcasts. No distributed transaction
// spans the two stores: a crash in between leaves the message paged but the
// preview stale, which the next accepted message repairs.
func (r *room) handlePublish(msg *ClientMessage) {
	if !r.conv.HasParticipant(msg.UserId) {
		msg.client.queueMessage(ErrNotAuthorized(msg.Id))
		return
	}

	ctx, cancel := opCtx()
	defer cancel()

	stored, err := r.cs.messages.Append(ctx, r.id, msg.UserId, msg.Publish.Content, msg.Publish.Type, msg.Publish.FileUrl)
	if err != nil {
		r.log.Println("append message:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	preview := store.LastMessage{
		Content:   stored.Content,
		SenderId:  stored.SenderId,
		Timestamp: stored.CreatedAt,
	}
	if err := r.cs.conversations.RecordNewMessage(ctx, r.id, msg.UserId, preview); err != nil {
		// the message is durable; the stale preview is repaired by the next
		// accepted message
		r.log.Println("record new message:", err)
	}

	msg.client.queueMessage(NoErrAccepted(msg.Id))

	wire := stored.Wire()
	sender := msg.client.user
	wire.Sender = &sender

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: stored.CreatedAt},
		Message:     &wire,
	})

	r.cs.stats.Incr("NumMessagesSent")
}

func (r *room) handleRead(msg *ClientMessage) {
	ctx, cancel := opCtx()
	defer cancel()

	// the receipt must target a message of this conversation; joining one
	// room grants no read access to any other
	stored, err := r.cs.messages.Get(ctx, msg.Read.MessageId)
	if err != nil {
		r.log.Println("get message:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}
	if stored.ConversationId.Hex() != r.id {
		msg.client.queueMessage(ErrNotAuthorized(msg.Id))
		return
	}

	if err := r.cs.messages.MarkReadBy(ctx, msg.Read.MessageId, msg.UserId); err != nil {
		r.log.Println("mark message read:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	if err := r.cs.conversations.MarkRead(ctx, r.id, msg.UserId); err != nil {
		r.log.Println("mark conversation read:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			ReadReceipt: &ReadReceipt{
				ConversationId: r.id,
				MessageId:      msg.Read.MessageId,
				UserId:         msg.UserId,
			},
		},
	})
}

func (r *room) handleEdit(msg *ClientMessage) {
	ctx, cancel := opCtx()
	defer cancel()

	edited, err := r.cs.messages.Edit(ctx, msg.Edit.MessageId, msg.UserId, msg.Edit.Content)
	if err != nil {
		r.log.Println("edit message:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	wire := edited.Wire()
	r.broadcast(&ServerMessage{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		Notification: &Notification{MessageEdited: &wire},
	})
}

func (r *room) handleDelete(msg *ClientMessage) {
	ctx, cancel := opCtx()
	defer cancel()

	if _, err := r.cs.messages.SoftDelete(ctx, msg.Delete.MessageId, msg.UserId); err != nil {
		r.log.Println("delete message:", err)
		msg.client.queueMessage(storeErrResponse(msg.Id, err))
		return
	}

	msg.client.queueMessage(NoErrOK(msg.Id, nil))

	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			MessageDeleted: &MessageDeleted{
				ConversationId: r.id,
				MessageId:      msg.Delete.MessageId,
			},
		},
	})
}

// handleTyping relays the indicator to everyone else in the room. Nothing is
// persisted and no response is sent.
func (r *room) handleTyping(msg *ClientMessage) {
	r.broadcast(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			Typing: &TypingEvent{
				ConversationId: r.id,
				UserId:         msg.UserId,
				Username:       msg.client.user.Username,
				Started:        msg.Typing.Started,
			},
		},
		SkipClient: msg.client,
	})
}

func (r *room) addClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	r.clients[c] = struct{}{}
	if r.userMap[c.user.Id] == nil {
		r.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	r.userMap[c.user.Id][c] = struct{}{}

	c.addRoom(r)
}

func (r *room) removeClient(c *Client) {
	r.clientLock.Lock()
	defer r.clientLock.Unlock()

	if _, ok := r.clients[c]; !ok {
		return
	}

	delete(r.clients, c)
	c.delRoom(r.id)

	if userClients, ok := r.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(r.userMap, c.user.Id)
		}
	}

	if len(r.clients) == 0 {
		r.log.Printf("no clients in %q, starting kill timer", r.id)
		r.killTimer.Reset(idleRoomTimeout)
	}
}

func (r *room) resetTimerIfEmpty() {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	if len(r.clients) == 0 {
		r.killTimer.Reset(idleRoomTimeout)
	}
}

// broadcast fans a message out to the room's subscribers. Delivery to
// offline participants is not this gateway's job: durable unread counters
// and the notification fanout cover them.
func (r *room) broadcast(msg *ServerMessage) {
	r.clientLock.RLock()
	defer r.clientLock.RUnlock()

	for client := range r.clients {
		if client == msg.SkipClient {
			continue
		}

		client.queueMessage(msg)
	}
}

// lookupUsers resolves participant profiles for conversation enrichment.
// Lookup failures degrade to bare ids rather than failing the operation.
func (cs *ChatServer) lookupUsers(ids []int64) map[int64]types.User {
	users, err := cs.db.GetAccountsByIds(ids)
	if err != nil {
		cs.log.Println("lookup users:", err)
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
