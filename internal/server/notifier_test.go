package server

import (
	"context"
	"testing"

	"github.com/RobertSSmau/EventHub/internal/database"
	"github.com/RobertSSmau/EventHub/internal/stats"
	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/RobertSSmau/EventHub/internal/testutil"
	"github.com/RobertSSmau/EventHub/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func newTestNotifier(t *testing.T, db database.EventHubRepository,
	notifications store.NotificationRepository, su *stats.MockStatsUpdater) (*Notifier, *ChatServer) {

	cs := newTestChatServer(t, db, &store.MockConversationRepository{}, &store.MockMessageRepository{}, su)

	su.On("RegisterMetric", mock.Anything).Times(2)
	n := NewNotifier(testutil.TestLogger(t), db, notifications, cs, su)
	return n, cs
}

func TestNotifier_RegistrationCreated(t *testing.T) {
	t.Run("persists and pushes to online owner", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		notifRepo.On("Save", mock.Anything, mock.MatchedBy(func(n *store.Notification) bool {
			return n.UserId == 1 && n.Type == types.NotificationRegistration &&
				n.Data.Registration != nil && n.Data.Registration.EventId == 10
		})).Return(nil).Once()
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumConnections").Once()
		su.On("Incr", "NumOnlineUsers").Once()
		su.On("Incr", "NumNotificationsSaved").Once()
		su.On("Incr", "NumNotificationsPushed").Once()
		defer su.AssertExpectations(t)

		n, cs := newTestNotifier(t, db, notifRepo, su)

		owner := newTestClient(types.User{Id: 1, Username: "alice"})
		owner.session = "s1"
		cs.handleRegisterClient(owner)
		<-owner.send // drain the owner's own online event

		n.RegistrationCreated(context.Background(), 10, 2)

		select {
		case msg := <-owner.send:
			assert.NotNil(t, msg.Notification, "expected notification message")
			assert.NotNil(t, msg.Notification.Alert, "expected alert payload")
			assert.Equal(t, types.NotificationRegistration, msg.Notification.Alert.Type, "expected registration alert")
		default:
			t.Error("expected alert to be pushed to online owner")
		}
	})

	t.Run("persists without push when owner offline", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		notifRepo.On("Save", mock.Anything, mock.Anything).Return(nil).Once()
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumNotificationsSaved").Once()
		defer su.AssertExpectations(t)

		n, _ := newTestNotifier(t, db, notifRepo, su)
		n.RegistrationCreated(context.Background(), 10, 2)
	})

	t.Run("self-registration produces no notification", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		n, _ := newTestNotifier(t, db, notifRepo, su)
		n.RegistrationCreated(context.Background(), 10, 1)
	})

	t.Run("save failure skips push and is swallowed", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		notifRepo.On("Save", mock.Anything, mock.Anything).Return(assert.AnError).Once()
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumConnections").Once()
		su.On("Incr", "NumOnlineUsers").Once()
		defer su.AssertExpectations(t)

		n, cs := newTestNotifier(t, db, notifRepo, su)

		owner := newTestClient(types.User{Id: 1, Username: "alice"})
		owner.session = "s1"
		cs.handleRegisterClient(owner)
		<-owner.send // drain the owner's own online event

		n.RegistrationCreated(context.Background(), 10, 2)

		assert.Len(t, owner.send, 0, "expected no push after failed save")
	})

	t.Run("event lookup failure is swallowed", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{}, assert.AnError).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		n, _ := newTestNotifier(t, db, notifRepo, su)
		n.RegistrationCreated(context.Background(), 10, 2)
	})
}

func TestNotifier_RegistrationCancelled(t *testing.T) {
	db := &database.MockEventHubRepository{}
	db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
	db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
	defer db.AssertExpectations(t)

	notifRepo := &store.MockNotificationRepository{}
	notifRepo.On("Save", mock.Anything, mock.MatchedBy(func(n *store.Notification) bool {
		return n.UserId == 1 && n.Type == types.NotificationUnregistration &&
			n.Data.Unregistration != nil && n.Data.Unregistration.Username == "bob"
	})).Return(nil).Once()
	defer notifRepo.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	su.On("Incr", "NumNotificationsSaved").Once()
	defer su.AssertExpectations(t)

	n, _ := newTestNotifier(t, db, notifRepo, su)
	n.RegistrationCancelled(context.Background(), 10, 2)
}

func TestNotifier_ReportFiled(t *testing.T) {
	t.Run("notifies every admin", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
		db.On("GetAdminIds").Return([]int64{100, 101}, nil).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		notifRepo.On("Save", mock.Anything, mock.MatchedBy(func(n *store.Notification) bool {
			return n.Type == types.NotificationReport && n.Data.Report != nil &&
				n.Data.Report.ReportId == 55 && n.Data.Report.Reason == "spam" &&
				n.Message == "GopherCon was reported by bob: spam"
		})).Return(nil).Twice()
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		su.On("Incr", "NumNotificationsSaved").Twice()
		defer su.AssertExpectations(t)

		n, _ := newTestNotifier(t, db, notifRepo, su)
		n.ReportFiled(context.Background(), 55, 10, 2, "spam")
	})

	t.Run("admin lookup failure is swallowed", func(t *testing.T) {
		db := &database.MockEventHubRepository{}
		db.On("GetEventById", int64(10)).Return(database.Event{Id: 10, Title: "GopherCon", OwnerId: 1}, nil).Once()
		db.On("GetAccountById", int64(2)).Return(database.User{Id: 2, Username: "bob"}, nil).Once()
		db.On("GetAdminIds").Return([]int64{}, assert.AnError).Once()
		defer db.AssertExpectations(t)

		notifRepo := &store.MockNotificationRepository{}
		defer notifRepo.AssertExpectations(t)

		su := &stats.MockStatsUpdater{}
		defer su.AssertExpectations(t)

		n, _ := newTestNotifier(t, db, notifRepo, su)
		n.ReportFiled(context.Background(), 55, 10, 2, "spam")
	})
}
