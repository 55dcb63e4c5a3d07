package server

import (
	"context"
	"log"
	"sync"

	"github.com/RobertSSmau/EventHub/internal/database"
	"github.com/RobertSSmau/EventHub/internal/stats"
	"github.com/RobertSSmau/EventHub/internal/store"
)

type stopRequest struct {
	done chan struct{}
}

// ChatServer owns the room table and the global connection set. All room
// lifecycle and presence transitions flow through its run loop, so a
// conversation is loaded at most once and online/offline events are emitted
// exactly once per user regardless of how many sockets they open.
type ChatServer struct {
	log           *log.Logger
	db            database.EventHubRepository
	conversations store.ConversationRepository
	messages      store.MessageRepository
	presence      *PresenceRegistry
	stats         stats.StatsProvider

	joinChan       chan *ClientMessage
	registerChan   chan *Client
	deregisterChan chan *Client
	unloadRoomChan chan string
	stopChan       chan stopRequest

	rooms       map[string]*room
	roomsLock   sync.RWMutex
	clients     map[*Client]struct{}
	clientsLock sync.RWMutex
}

func NewChatServer(l *log.Logger, db database.EventHubRepository,
	conversations store.ConversationRepository, messages store.MessageRepository,
	presence *PresenceRegistry, su stats.StatsProvider) *ChatServer {

	cs := &ChatServer{
		log:            l,
		db:             db,
		conversations:  conversations,
		messages:       messages,
		presence:       presence,
		stats:          su,
		joinChan:       make(chan *ClientMessage, 256),
		registerChan:   make(chan *Client, 256),
		deregisterChan: make(chan *Client, 256),
		unloadRoomChan: make(chan string, 256),
		stopChan:       make(chan stopRequest),
		rooms:          make(map[string]*room),
		clients:        make(map[*Client]struct{}),
	}

	for _, metric := range []string{
		"NumConnections",
		"NumOnlineUsers",
		"NumActiveConversations",
		"NumMessagesSent",
	} {
		su.RegisterMetric(metric)
	}

	return cs
}

func (cs *ChatServer) Run() {
	cs.log.Println("starting chat server")

	for {
		select {
		case join := <-cs.joinChan:
			cs.handleJoinConversation(join)
		case c := <-cs.registerChan:
			cs.handleRegisterClient(c)
		case c := <-cs.deregisterChan:
			cs.handleDeregisterClient(c)
		case conversationId := <-cs.unloadRoomChan:
			cs.handleUnloadRoom(conversationId)
		case req := <-cs.stopChan:
			cs.handleStop(req)
			return
		}
	}
}

// handleJoinConversation forwards the join to the conversation's room,
// loading it first if no client has it open. Membership is checked by the
// room against a fresh read of the conversation.
func (cs *ChatServer) handleJoinConversation(join *ClientMessage) {
	conversationId := join.Join.ConversationId

	cs.roomsLock.RLock()
	r, ok := cs.rooms[conversationId]
	cs.roomsLock.RUnlock()

	if !ok {
		ctx, cancel := opCtx()
		conv, err := cs.conversations.Get(ctx, conversationId)
		cancel()
		if err != nil {
			cs.log.Printf("load conversation %q: %s", conversationId, err)
			join.client.queueMessage(storeErrResponse(join.Id, err))
			return
		}

		r = newRoom(conv, cs)

		cs.roomsLock.Lock()
		cs.rooms[conversationId] = r
		cs.roomsLock.Unlock()

		go r.start()
		cs.stats.Incr("NumActiveConversations")
	}

	select {
	case r.joinChan <- join:
	default:
		join.client.queueMessage(ErrServiceUnavailable(join.Id))
	}
}

func (cs *ChatServer) handleRegisterClient(c *Client) {
	cs.clientsLock.Lock()
	cs.clients[c] = struct{}{}
	cs.clientsLock.Unlock()

	cs.stats.Incr("NumConnections")

	replaced := cs.presence.Register(c.user.Id, c, c.session)
	if replaced {
		return
	}

	cs.stats.Incr("NumOnlineUsers")
	cs.broadcastAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			Presence: &Presence{
				UserId:   c.user.Id,
				Username: c.user.Username,
				Online:   true,
			},
		},
	})
}

func (cs *ChatServer) handleDeregisterClient(c *Client) {
	cs.clientsLock.Lock()
	if _, ok := cs.clients[c]; !ok {
		cs.clientsLock.Unlock()
		return
	}
	delete(cs.clients, c)
	cs.clientsLock.Unlock()

	cs.stats.Decr("NumConnections")

	// a newer session for the same user keeps them online
	wentOffline := cs.presence.Unregister(c.user.Id, c.session)
	if !wentOffline {
		return
	}

	cs.stats.Decr("NumOnlineUsers")
	cs.broadcastAll(&ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Notification: &Notification{
			Presence: &Presence{
				UserId:   c.user.Id,
				Username: c.user.Username,
				Online:   false,
			},
		},
	})
}

func (cs *ChatServer) handleUnloadRoom(conversationId string) {
	cs.roomsLock.Lock()
	r, ok := cs.rooms[conversationId]
	if ok {
		delete(cs.rooms, conversationId)
	}
	cs.roomsLock.Unlock()

	if !ok {
		return
	}

	done := make(chan struct{})
	r.exit <- exitReq{done: done}
	<-done

	cs.stats.Decr("NumActiveConversations")
	cs.log.Printf("unloaded room %q", conversationId)
}

func (cs *ChatServer) handleStop(req stopRequest) {
	cs.log.Println("stopping chat server")

	cs.roomsLock.Lock()
	for id, r := range cs.rooms {
		done := make(chan struct{})
		r.exit <- exitReq{done: done}
		<-done
		delete(cs.rooms, id)
	}
	cs.roomsLock.Unlock()

	cs.clientsLock.Lock()
	for c := range cs.clients {
		c.stopClient()
		delete(cs.clients, c)
	}
	cs.clientsLock.Unlock()

	cs.presence.Clear()

	close(req.done)
}

// RegisterClient adds a freshly upgraded connection to the server. The
// presence transition happens on the run loop.
func (cs *ChatServer) RegisterClient(c *Client) {
	cs.registerChan <- c
}

func (cs *ChatServer) DeregisterClient(c *Client) {
	cs.deregisterChan <- c
}

// PushToUser delivers a message to the user's active connection, if any.
// It reports whether the message was queued; callers fall back to durable
// storage when it was not.
func (cs *ChatServer) PushToUser(userId int64, msg *ServerMessage) bool {
	c, ok := cs.presence.Get(userId)
	if !ok {
		return false
	}

	c.queueMessage(msg)
	return true
}

// NotifyConversation fans a message out to the conversation's room, if it
// is loaded. Conversations nobody has open have no live subscribers to
// notify.
func (cs *ChatServer) NotifyConversation(conversationId string, msg *ServerMessage) {
	cs.roomsLock.RLock()
	r, ok := cs.rooms[conversationId]
	cs.roomsLock.RUnlock()

	if ok {
		r.broadcast(msg)
	}
}

// OnlineStatus reports presence for a batch of users.
func (cs *ChatServer) OnlineStatus(userIds []int64) map[int64]bool {
	status := make(map[int64]bool, len(userIds))
	for _, id := range userIds {
		status[id] = cs.presence.IsOnline(id)
	}
	return status
}

func (cs *ChatServer) broadcastAll(msg *ServerMessage) {
	cs.clientsLock.RLock()
	defer cs.clientsLock.RUnlock()

	for c := range cs.clients {
		if c == msg.SkipClient {
			continue
		}

		c.queueMessage(msg)
	}
}

// Shutdown stops the run loop, unloads every room and closes every client.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	req := stopRequest{done: make(chan struct{})}

	select {
	case cs.stopChan <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
