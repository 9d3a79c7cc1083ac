package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/repository"
	"github.com/banterhq/banter/internal/unread"
)

var (
	ErrChatNotFound       = errors.New("chat not found")
	ErrNotParticipant     = errors.New("you are not a participant of this chat")
	ErrNotGroup           = errors.New("chat is not a group")
	ErrCannotChatSelf     = errors.New("cannot start a chat with yourself")
	ErrUserNotFound       = errors.New("user not found")
	ErrUnknownParticipant = errors.New("one or more participants not found")
)

type ChatService struct {
	chatRepo repository.ChatRepository
	userRepo repository.UserRepository
	ledger   unread.Ledger
	notifier Notifier

	// Serializes direct-chat creation per sorted pair within this process;
	// the direct_key unique constraint covers the rest.
	directGroup singleflight.Group
}

func NewChatService(chatRepo repository.ChatRepository, userRepo repository.UserRepository, ledger unread.Ledger) *ChatService {
	return &ChatService{
		chatRepo: chatRepo,
		userRepo: userRepo,
		ledger:   ledger,
	}
}

// SetNotifier sets the real-time notifier (optional dependency).
func (s *ChatService) SetNotifier(n Notifier) {
	s.notifier = n
}

type CreateGroupInput struct {
	Name           string      `json:"name"`
	Description    *string     `json:"description,omitempty"`
	ParticipantIDs []uuid.UUID `json:"participant_ids"`
}

type ChatListResponse struct {
	Chats      []domain.Chat `json:"chats"`
	Pagination Pagination    `json:"pagination"`
}

type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// Authorize loads the chat and verifies the actor belongs to it. Every
// handler that touches chat or message state goes through this first.
func (s *ChatService) Authorize(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

// FindOrCreateDirect returns the direct chat between the two users, creating
// it if none exists. Concurrent calls from both sides converge on one chat.
func (s *ChatService) FindOrCreateDirect(ctx context.Context, userID, otherUserID uuid.UUID) (*domain.Chat, error) {
	if userID == otherUserID {
		return nil, ErrCannotChatSelf
	}

	other, err := s.userRepo.GetByID(ctx, otherUserID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		return nil, ErrUserNotFound
	}

	key := domain.DirectChatKey(userID, otherUserID)

	v, err, _ := s.directGroup.Do(key, func() (any, error) {
		existing, err := s.chatRepo.GetDirectByKey(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}

		now := time.Now()
		chat := &domain.Chat{
			ID:             uuid.New(),
			Type:           domain.ChatTypeDirect,
			ParticipantIDs: []uuid.UUID{userID, otherUserID},
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		created, err := s.chatRepo.CreateDirect(ctx, chat, key)
		if err != nil {
			return nil, fmt.Errorf("creating direct chat: %w", err)
		}
		if created.ID == chat.ID && s.notifier != nil {
			s.notifier.NotifyNewChat(created)
		}
		return created, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.Chat), nil
}

// CreateGroup creates a group chat. The creator becomes admin and is always a
// participant; every given participant id must resolve to an account.
func (s *ChatService) CreateGroup(ctx context.Context, creatorID uuid.UUID, input CreateGroupInput) (*domain.Chat, error) {
	participantIDs := []uuid.UUID{creatorID}
	for _, id := range input.ParticipantIDs {
		if id != creatorID {
			participantIDs = append(participantIDs, id)
		}
	}

	users, err := s.userRepo.GetByIDs(ctx, participantIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(participantIDs) {
		return nil, ErrUnknownParticipant
	}

	now := time.Now()
	name := input.Name
	admin := creatorID
	chat := &domain.Chat{
		ID:             uuid.New(),
		Type:           domain.ChatTypeGroup,
		Name:           &name,
		Description:    input.Description,
		AdminID:        &admin,
		ParticipantIDs: participantIDs,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.chatRepo.Create(ctx, chat); err != nil {
		return nil, fmt.Errorf("creating group chat: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyNewChat(chat)
	}

	return chat, nil
}

// JoinGroup adds the actor to a group chat. Joining a chat you are already in
// is a no-op.
func (s *ChatService) JoinGroup(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, *domain.User, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, nil, err
	}
	if chat == nil {
		return nil, nil, ErrChatNotFound
	}
	if !chat.IsGroup() {
		return nil, nil, ErrNotGroup
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, ErrUserNotFound
	}

	if !chat.HasParticipant(userID) {
		if err := s.chatRepo.AddParticipant(ctx, chatID, userID); err != nil {
			return nil, nil, fmt.Errorf("adding participant: %w", err)
		}
		chat.ParticipantIDs = append(chat.ParticipantIDs, userID)

		if s.notifier != nil {
			s.notifier.NotifyUserJoined(chat, user)
		}
	}

	return chat, user, nil
}

// LeaveGroup removes the actor from a group chat and prunes their unread
// entry with the membership row.
func (s *ChatService) LeaveGroup(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !chat.IsGroup() {
		return nil, ErrNotGroup
	}
	if !chat.HasParticipant(userID) {
		return nil, ErrNotParticipant
	}

	if err := s.chatRepo.RemoveParticipant(ctx, chatID, userID); err != nil {
		return nil, fmt.Errorf("removing participant: %w", err)
	}
	remaining := chat.ParticipantIDs[:0]
	for _, id := range chat.ParticipantIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	chat.ParticipantIDs = remaining

	if s.notifier != nil {
		s.notifier.NotifyUserLeft(chat, userID)
	}

	return chat, nil
}

// List returns the actor's chats with per-viewer unread counts, most recently
// active first.
func (s *ChatService) List(ctx context.Context, userID uuid.UUID, page, limit int) (*ChatListResponse, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	chats, total, err := s.chatRepo.ListByUser(ctx, userID, page, limit)
	if err != nil {
		return nil, err
	}
	if chats == nil {
		chats = []domain.Chat{}
	}

	return &ChatListResponse{
		Chats: chats,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// Get returns one chat with the actor's unread count filled in.
func (s *ChatService) Get(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
	chat, err := s.Authorize(ctx, userID, chatID)
	if err != nil {
		return nil, err
	}
	count, err := s.ledger.Get(ctx, chatID, userID)
	if err != nil && !errors.Is(err, unread.ErrNotFound) {
		return nil, err
	}
	chat.UnreadCount = count
	return chat, nil
}
