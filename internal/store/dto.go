package store

import (
	"github.com/RobertSSmau/EventHub/internal/types"
)

// Wire converts a stored message to its API shape. Sender enrichment is the
// caller's job, the store only knows ids.
func (m *Message) Wire() types.Message {
	readBy := m.ReadBy
	if readBy == nil {
		readBy = []int64{}
	}

	return types.Message{
		Id:             m.Id.Hex(),
		ConversationId: m.ConversationId.Hex(),
		SenderId:       m.SenderId,
		Content:        m.Content,
		Type:           m.Type,
		FileUrl:        m.FileUrl,
		ReadBy:         readBy,
		IsEdited:       m.IsEdited,
		EditedAt:       m.EditedAt,
		IsDeleted:      m.IsDeleted,
		Timestamp:      m.CreatedAt,
	}
}

// WireFor converts a stored conversation to its API shape as seen by one
// participant: the display name is the other party's username for direct
// conversations and the event title for groups, and the unread counter is
// the viewer's own.
func (c *Conversation) WireFor(userId int64, usersById map[int64]types.User) types.Conversation {
	participants := make([]types.User, 0, len(c.Participants))
	for _, id := range c.Participants {
		if u, ok := usersById[id]; ok {
			participants = append(participants, u)
		} else {
			participants = append(participants, types.User{Id: id})
		}
	}

	var displayName string
	switch c.Kind {
	case KindDirect:
		for _, p := range participants {
			if p.Id != userId {
				displayName = p.Username
				break
			}
		}
	case KindEventGroup:
		displayName = c.Name
	}

	var lastMessage *types.LastMessage
	if c.LastMessage != nil {
		lastMessage = &types.LastMessage{
			Content:   c.LastMessage.Content,
			SenderId:  c.LastMessage.SenderId,
			Timestamp: c.LastMessage.Timestamp,
		}
	}

	return types.Conversation{
		Id:           c.Id.Hex(),
		Kind:         c.Kind,
		Participants: participants,
		EventId:      c.EventId,
		DisplayName:  displayName,
		LastMessage:  lastMessage,
		UnreadCount:  c.UnreadFor(userId),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func (n *Notification) Wire() types.Notification {
	return types.Notification{
		Id:        n.Id.Hex(),
		Type:      n.Type,
		Title:     n.Title,
		Message:   n.Message,
		Icon:      n.Icon,
		Color:     n.Color,
		Data:      n.Data.wire(),
		Read:      n.Read,
		Timestamp: n.Timestamp,
	}
}

func (d NotificationData) wire() types.NotificationData {
	var out types.NotificationData
	if d.Registration != nil {
		out.Registration = &types.RegistrationData{
			EventId:    d.Registration.EventId,
			EventTitle: d.Registration.EventTitle,
			UserId:     d.Registration.UserId,
			Username:   d.Registration.Username,
		}
	}
	if d.Unregistration != nil {
		out.Unregistration = &types.UnregistrationData{
			EventId:    d.Unregistration.EventId,
			EventTitle: d.Unregistration.EventTitle,
			UserId:     d.Unregistration.UserId,
			Username:   d.Unregistration.Username,
		}
	}
	if d.Report != nil {
		out.Report = &types.ReportData{
			ReportId:   d.Report.ReportId,
			EventId:    d.Report.EventId,
			EventTitle: d.Report.EventTitle,
			ReporterId: d.Report.ReporterId,
			Reason:     d.Report.Reason,
		}
	}
	return out
}
