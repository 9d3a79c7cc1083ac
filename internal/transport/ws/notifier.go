package ws

import (
	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
)

// HubNotifier implements service.Notifier on top of the hub. Recipient sets
// come from the chat snapshot the service passes in, so each notification is
// delivered to the membership as of the operation that produced it.
type HubNotifier struct {
	hub *Hub
}

func NewHubNotifier(hub *Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) NotifyNewMessage(chat *domain.Chat, message *domain.Message) {
	event, err := NewEvent(EventMessage, message)
	if err != nil {
		return
	}
	event.ChatID = &chat.ID
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

// NotifyMessageRead goes to the whole room, reader included: the reader's
// other connections sync their read state from it.
func (n *HubNotifier) NotifyMessageRead(chat *domain.Chat, messageID, readerID uuid.UUID) {
	event, err := NewEvent(EventMessageRead, MessageReadPayload{
		ChatID:    chat.ID,
		MessageID: messageID,
		UserID:    readerID,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyMessageUpdated(chat *domain.Chat, message *domain.Message) {
	event, err := NewEvent(EventMessageUpdated, message)
	if err != nil {
		return
	}
	event.ChatID = &chat.ID
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyMessageDeleted(chat *domain.Chat, messageID, deletedBy uuid.UUID) {
	event, err := NewEvent(EventMessageDeleted, MessageDeletedPayload{
		ChatID:    chat.ID,
		MessageID: messageID,
		DeletedBy: deletedBy,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyReactionUpdated(chat *domain.Chat, messageID uuid.UUID, reactions map[string][]uuid.UUID) {
	event, err := NewEvent(EventReactionUpdated, ReactionUpdatedPayload{
		ChatID:    chat.ID,
		MessageID: messageID,
		Reactions: reactions,
	})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

// NotifyNewChat reaches participants directly since nobody can have joined a
// room for a chat that did not exist yet.
func (n *HubNotifier) NotifyNewChat(chat *domain.Chat) {
	event, err := NewEvent(EventNewChat, chat)
	if err != nil {
		return
	}
	n.hub.BroadcastToRecipients(chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyChatUpdated(chat *domain.Chat) {
	event, err := NewEvent(EventChatUpdated, chat)
	if err != nil {
		return
	}
	n.hub.BroadcastToRecipients(chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyUserJoined(chat *domain.Chat, user *domain.User) {
	event, err := NewEvent(EventUserJoined, UserJoinedPayload{ChatID: chat.ID, User: user})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
}

func (n *HubNotifier) NotifyUserLeft(chat *domain.Chat, userID uuid.UUID) {
	event, err := NewEvent(EventUserLeft, UserLeftPayload{ChatID: chat.ID, UserID: userID})
	if err != nil {
		return
	}
	n.hub.BroadcastToRoom(chat.ID, chat.ParticipantIDs, event, nil)
	// The leaver is no longer a participant; tell their connections directly.
	n.hub.SendToUser(userID, event)
}
