package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
)

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Search matches username or email substrings, excluding the searcher.
	Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]domain.User, error)
	List(ctx context.Context, excludeID uuid.UUID) ([]domain.User, error)
	SetOnline(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
}

type ChatRepository interface {
	Create(ctx context.Context, chat *domain.Chat) error
	// CreateDirect inserts a direct chat guarded by the unique sorted-pair key.
	// If another call won the race it returns the existing chat instead.
	CreateDirect(ctx context.Context, chat *domain.Chat, directKey string) (*domain.Chat, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error)
	GetDirectByKey(ctx context.Context, directKey string) (*domain.Chat, error)
	// ListByUser returns chats with the viewer's unread count and last message
	// populated, most recently updated first.
	ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Chat, int, error)
	IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error)
	AddParticipant(ctx context.Context, chatID, userID uuid.UUID) error
	RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) error
	SetLastMessage(ctx context.Context, chatID, messageID uuid.UUID) error
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	// ListByChat returns one page in chronological order plus the total count.
	ListByChat(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, int, error)
	// MarkRead appends userID to read_by if absent. Reports whether the set
	// actually grew.
	MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, chatID, userID uuid.UUID) error
	// ToggleReaction adds or removes userID under the emoji key and returns the
	// full reaction mapping after the change.
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (map[string][]uuid.UUID, error)
	Edit(ctx context.Context, messageID uuid.UUID, content string) error
	SoftDelete(ctx context.Context, messageID, deletedBy uuid.UUID) error
}
