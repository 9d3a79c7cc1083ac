package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ChatTypeDirect = "direct"
	ChatTypeGroup  = "group"
)

type Chat struct {
	ID             uuid.UUID   `json:"id"`
	Type           string      `json:"type"`
	Name           *string     `json:"name,omitempty"`
	Description    *string     `json:"description,omitempty"`
	AvatarURL      *string     `json:"avatar_url,omitempty"`
	AdminID        *uuid.UUID  `json:"admin_id,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
	LastMessageID  *uuid.UUID  `json:"-"`
	LastMessage    *Message    `json:"last_message,omitempty"`
	// Unread count for the requesting user; filled per viewer, not stored on
	// the chat itself.
	UnreadCount int       `json:"unread_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *Chat) HasParticipant(userID uuid.UUID) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (c *Chat) IsGroup() bool {
	return c.Type == ChatTypeGroup
}

// DirectChatKey builds the canonical key for a direct conversation between two
// users. The pair is sorted so both orderings map to the same key.
func DirectChatKey(a, b uuid.UUID) string {
	lo, hi := a.String(), b.String()
	if lo > hi {
		lo, hi = hi, lo
	}
	return lo + ":" + hi
}

// ParseDirectChatKey is the inverse of DirectChatKey.
func ParseDirectChatKey(key string) (uuid.UUID, uuid.UUID, bool) {
	lo, hi, ok := strings.Cut(key, ":")
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	a, err1 := uuid.Parse(lo)
	b, err2 := uuid.Parse(hi)
	if err1 != nil || err2 != nil {
		return uuid.Nil, uuid.Nil, false
	}
	return a, b, true
}
