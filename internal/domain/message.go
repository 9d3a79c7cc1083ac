package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeText  = "text"
	MessageTypeImage = "image"
	MessageTypeFile  = "file"
)

const MaxContentLength = 1000

// ForwardInfo records where a forwarded message originally came from.
type ForwardInfo struct {
	UserID      uuid.UUID `json:"user_id"`
	ChatID      uuid.UUID `json:"chat_id"`
	MessageID   uuid.UUID `json:"message_id"`
	ForwardedAt time.Time `json:"forwarded_at"`
}

type Message struct {
	ID            uuid.UUID              `json:"id"`
	ChatID        uuid.UUID              `json:"chat_id"`
	SenderID      uuid.UUID              `json:"sender_id"`
	Content       string                 `json:"content"`
	Type          string                 `json:"type"`
	ParentID      *uuid.UUID             `json:"parent_id,omitempty"`
	ThreadRootID  *uuid.UUID             `json:"thread_root_id,omitempty"`
	ForwardedFrom *ForwardInfo           `json:"forwarded_from,omitempty"`
	Reactions     map[string][]uuid.UUID `json:"reactions,omitempty"`
	ReadBy        []uuid.UUID            `json:"read_by"`
	EditedAt      *time.Time             `json:"edited_at,omitempty"`
	DeletedAt     *time.Time             `json:"deleted_at,omitempty"`
	DeletedBy     *uuid.UUID             `json:"deleted_by,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	// Joined fields
	SenderUsername    string `json:"sender_username,omitempty"`
	SenderDisplayName string `json:"sender_display_name,omitempty"`
}

func (m *Message) ReadByUser(userID uuid.UUID) bool {
	for _, id := range m.ReadBy {
		if id == userID {
			return true
		}
	}
	return false
}

func (m *Message) IsDeleted() bool {
	return m.DeletedAt != nil
}

func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile:
		return true
	}
	return false
}
