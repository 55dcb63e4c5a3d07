package server

import (
	"context"
	"fmt"
	"log"

	"github.com/RobertSSmau/EventHub/internal/database"
	"github.com/RobertSSmau/EventHub/internal/stats"
	"github.com/RobertSSmau/EventHub/internal/store"
	"github.com/RobertSSmau/EventHub/internal/types"
)

// Notifier fans event lifecycle notifications out to their recipients.
// Persistence always happens first so an offline recipient finds the
// notification on next login; the realtime push is best effort on top.
// None of the methods return an error: a failed notification must never
// fail the operation that triggered it, so failures are logged and
// swallowed.
type Notifier struct {
	log           *log.Logger
	db            database.EventHubRepository
	notifications store.NotificationRepository
	cs            *ChatServer
	stats         stats.StatsProvider
}

func NewNotifier(l *log.Logger, db database.EventHubRepository,
	notifications store.NotificationRepository, cs *ChatServer, su stats.StatsProvider) *Notifier {

	su.RegisterMetric("NumNotificationsSaved")
	su.RegisterMetric("NumNotificationsPushed")

	return &Notifier{
		log:           l,
		db:            db,
		notifications: notifications,
		cs:            cs,
		stats:         su,
	}
}

// RegistrationCreated notifies the event's owner that a user registered.
// Owners registering for their own event produce no notification.
func (n *Notifier) RegistrationCreated(ctx context.Context, eventId, userId int64) {
	event, err := n.db.GetEventById(eventId)
	if err != nil {
		n.log.Printf("notify registration: get event %d: %s", eventId, err)
		return
	}

	if event.OwnerId == userId {
		return
	}

	user, err := n.db.GetAccountById(userId)
	if err != nil {
		n.log.Printf("notify registration: get account %d: %s", userId, err)
		return
	}

	n.deliver(ctx, &store.Notification{
		UserId:  event.OwnerId,
		Type:    types.NotificationRegistration,
		Title:   "New registration",
		Message: fmt.Sprintf("%s registered for %s", user.Username, event.Title),
		Icon:    "user-plus",
		Color:   "success",
		Data: store.NotificationData{
			Registration: &store.RegistrationData{
				EventId:    event.Id,
				EventTitle: event.Title,
				UserId:     user.Id,
				Username:   user.Username,
			},
		},
	})
}

// RegistrationCancelled notifies the event's owner that a user cancelled
// their registration.
func (n *Notifier) RegistrationCancelled(ctx context.Context, eventId, userId int64) {
	event, err := n.db.GetEventById(eventId)
	if err != nil {
		n.log.Printf("notify unregistration: get event %d: %s", eventId, err)
		return
	}

	if event.OwnerId == userId {
		return
	}

	user, err := n.db.GetAccountById(userId)
	if err != nil {
		n.log.Printf("notify unregistration: get account %d: %s", userId, err)
		return
	}

	n.deliver(ctx, &store.Notification{
		UserId:  event.OwnerId,
		Type:    types.NotificationUnregistration,
		Title:   "Registration cancelled",
		Message: fmt.Sprintf("%s cancelled their registration for %s", user.Username, event.Title),
		Icon:    "user-minus",
		Color:   "warning",
		Data: store.NotificationData{
			Unregistration: &store.UnregistrationData{
				EventId:    event.Id,
				EventTitle: event.Title,
				UserId:     user.Id,
				Username:   user.Username,
			},
		},
	})
}

// ReportFiled notifies every admin that an event was reported.
func (n *Notifier) ReportFiled(ctx context.Context, reportId, eventId, reporterId int64, reason string) {
	event, err := n.db.GetEventById(eventId)
	if err != nil {
		n.log.Printf("notify report: get event %d: %s", eventId, err)
		return
	}

	reporter, err := n.db.GetAccountById(reporterId)
	if err != nil {
		n.log.Printf("notify report: get account %d: %s", reporterId, err)
		return
	}

	adminIds, err := n.db.GetAdminIds()
	if err != nil {
		n.log.Printf("notify report: get admins: %s", err)
		return
	}

	for _, adminId := range adminIds {
		n.deliver(ctx, &store.Notification{
			UserId:  adminId,
			Type:    types.NotificationReport,
			Title:   "Event reported",
			Message: fmt.Sprintf("%s was reported by %s: %s", event.Title, reporter.Username, reason),
			Icon:    "flag",
			Color:   "danger",
			Data: store.NotificationData{
				Report: &store.ReportData{
					ReportId:   reportId,
					EventId:    event.Id,
					EventTitle: event.Title,
					ReporterId: reporterId,
					Reason:     reason,
				},
			},
		})
	}
}

// deliver persists the notification, then pushes it to the recipient's
// socket if one is connected. A failed save skips the push so the client
// never sees a notification it cannot fetch again.
func (n *Notifier) deliver(ctx context.Context, notif *store.Notification) {
	if err := n.notifications.Save(ctx, notif); err != nil {
		n.log.Printf("save notification for user %d: %s", notif.UserId, err)
		return
	}

	n.stats.Incr("NumNotificationsSaved")

	wire := notif.Wire()
	pushed := n.cs.PushToUser(notif.UserId, &ServerMessage{
		BaseMessage:  BaseMessage{Timestamp: Now()},
		Notification: &Notification{Alert: &wire},
		UserId:       notif.UserId,
	})
	if pushed {
		n.stats.Incr("NumNotificationsPushed")
	}
}
