package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
)

// Client to server events.
const (
	EventJoinRoom      = "joinRoom"
	EventLeaveRoom     = "leaveRoom"
	EventSendMessage   = "sendMessage"
	EventTyping        = "typing"
	EventMarkAsRead    = "markAsRead"
	EventReactMessage  = "reactMessage"
	EventEditMessage   = "editMessage"
	EventDeleteMessage = "deleteMessage"
	EventCreateGroup   = "createGroup"
	EventJoinGroup     = "joinGroup"
	EventLeaveGroup    = "leaveGroup"
	EventPing          = "ping"
)

// Server to client events.
const (
	EventMessage         = "message"
	EventUserOnline      = "userOnline"
	EventUserOffline     = "userOffline"
	EventMessageRead     = "messageRead"
	EventNewChat         = "newChat"
	EventChatUpdated     = "chatUpdated"
	EventUserJoined      = "userJoined"
	EventUserLeft        = "userLeft"
	EventMessageUpdated  = "messageUpdated"
	EventMessageDeleted  = "messageDeleted"
	EventReactionUpdated = "reactionUpdated"
	EventPong            = "pong"
	EventError           = "error"
)

// Event is the wire envelope for everything crossing the websocket.
type Event struct {
	Type      string          `json:"type"`
	ChatID    *uuid.UUID      `json:"chat_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

func (e *Event) Encode() ([]byte, error) {
	return json.Marshal(e)
}

func NewEvent(eventType string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return &Event{
		Type:      eventType,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

type RoomPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
}

type SendMessagePayload struct {
	ChatID        uuid.UUID           `json:"chat_id"`
	Content       string              `json:"content"`
	Type          string              `json:"type,omitempty"`
	ParentID      *uuid.UUID          `json:"parent_id,omitempty"`
	ForwardedFrom *domain.ForwardInfo `json:"forwarded_from,omitempty"`
}

type TypingPayload struct {
	ChatID   uuid.UUID `json:"chat_id"`
	UserID   uuid.UUID `json:"user_id,omitempty"`
	Username string    `json:"username,omitempty"`
	IsTyping bool      `json:"is_typing"`
}

type MarkAsReadPayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type ReactMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	Emoji     string    `json:"emoji"`
}

type EditMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
	Content   string    `json:"content"`
}

type DeleteMessagePayload struct {
	MessageID uuid.UUID `json:"message_id"`
}

type CreateGroupPayload struct {
	Name           string      `json:"name"`
	Description    *string     `json:"description,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type PresencePayload struct {
	UserID   uuid.UUID  `json:"user_id"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

type MessageReadPayload struct {
	ChatID    uuid.UUID `json:"chat_id"`
	MessageID uuid.UUID `json:"message_id"`
	UserID    uuid.UUID `json:"user_id"`
}

type UserJoinedPayload struct {
	ChatID uuid.UUID    `json:"chat_id"`
	User   *domain.User `json:"user"`
}

type UserLeftPayload struct {
	ChatID uuid.UUID `json:"chat_id"`
	UserID uuid.UUID `json:"user_id"`
}

type MessageDeletedPayload struct {
	ChatID    uuid.UUID `json:"chat_id"`
	MessageID uuid.UUID `json:"message_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
}

type ReactionUpdatedPayload struct {
	ChatID    uuid.UUID              `json:"chat_id"`
	MessageID uuid.UUID              `json:"message_id"`
	Reactions map[string][]uuid.UUID `json:"reactions"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
