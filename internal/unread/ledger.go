// Package unread tracks per-conversation, per-user counters of messages not
// yet acknowledged read.
package unread

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrNotFound is returned when the conversation (or the user's membership row)
// does not exist. Callers are expected to authorize before mutating counters.
var ErrNotFound = errors.New("unread: conversation not found")

// Ledger mutates counters atomically per (chat, user) key. A concurrent Reset
// and Increment on the same key must never be lost or double-applied.
type Ledger interface {
	// Increment adds 1 to the counter of every current participant except
	// excludeUserID.
	Increment(ctx context.Context, chatID, excludeUserID uuid.UUID) error
	// Reset sets the user's counter to zero.
	Reset(ctx context.Context, chatID, userID uuid.UUID) error
	Get(ctx context.Context, chatID, userID uuid.UUID) (int, error)
}
