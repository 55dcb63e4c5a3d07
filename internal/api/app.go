package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"

	"github.com/RobertSSmau/EventHub/internal/config"
	"github.com/RobertSSmau/EventHub/internal/database"
	"github.com/RobertSSmau/EventHub/internal/server"
	"github.com/RobertSSmau/EventHub/internal/store"
)

type EventHubApp struct {
	log            *log.Logger
	db             database.EventHubRepository
	conversations  store.ConversationRepository
	messages       store.MessageRepository
	notifications  store.NotificationRepository
	cs             *server.ChatServer
	notifier       *server.Notifier
	mux            *http.Server
	signingKey     []byte
	allowedOrigins []string
	// generateShortId mints websocket session ids. Swappable in tests.
	generateShortId func() (string, error)
}

func NewEventHubApp(mux *http.ServeMux, logger *log.Logger, cs *server.ChatServer,
	notifier *server.Notifier, db database.EventHubRepository, st *store.Store,
	cfg *config.Config) *EventHubApp {

	s := &EventHubApp{
		log:             logger,
		db:              db,
		conversations:   st.Conversations(),
		messages:        st.Messages(),
		notifications:   st.Notifications(),
		cs:              cs,
		notifier:        notifier,
		signingKey:      cfg.SigningKey,
		allowedOrigins:  cfg.AllowedOrigins,
		generateShortId: shortid.Generate,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.Handle("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("GET /api/conversations", s.authMiddleware(s.listConversations))
	mux.Handle("POST /api/conversations/direct", s.authMiddleware(s.createDirectConversation))
	mux.Handle("POST /api/conversations/event", s.authMiddleware(s.createEventConversation))
	mux.Handle("GET /api/conversations/{id}/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/conversations/{id}/messages", s.authMiddleware(s.sendMessage))
	mux.Handle("POST /api/conversations/{id}/read", s.authMiddleware(s.markConversationRead))
	mux.Handle("PUT /api/messages/{id}", s.authMiddleware(s.editMessage))
	mux.Handle("DELETE /api/messages/{id}", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /api/users/online-status", s.authMiddleware(s.onlineStatus))
	mux.Handle("GET /api/notifications", s.authMiddleware(s.listNotifications))
	mux.Handle("POST /api/notifications/{id}/read", s.authMiddleware(s.markNotificationRead))
	mux.Handle("GET /api/notifications/unread-count", s.authMiddleware(s.unreadNotificationCount))
	mux.Handle("POST /api/hooks/registrations", s.authMiddleware(s.registrationHook))
	mux.Handle("POST /api/hooks/reports", s.authMiddleware(s.reportHook))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *EventHubApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *EventHubApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
