package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/repository"
	"github.com/banterhq/banter/internal/unread"
	"github.com/banterhq/banter/pkg/metrics"
)

var (
	ErrMessageNotFound  = errors.New("message not found")
	ErrNotMessageSender = errors.New("you are not the sender of this message")
	ErrNotAllowed       = errors.New("you are not allowed to perform this action")
	ErrEmptyContent     = errors.New("message content is empty")
	ErrContentTooLong   = errors.New("message content exceeds the maximum length")
	ErrInvalidKind      = errors.New("invalid message type")
)

// Notifier pushes real-time events to connected clients. The websocket hub
// implements it; services stay unaware of the transport.
type Notifier interface {
	NotifyNewMessage(chat *domain.Chat, message *domain.Message)
	NotifyMessageRead(chat *domain.Chat, messageID, readerID uuid.UUID)
	NotifyMessageUpdated(chat *domain.Chat, message *domain.Message)
	NotifyMessageDeleted(chat *domain.Chat, messageID, deletedBy uuid.UUID)
	NotifyReactionUpdated(chat *domain.Chat, messageID uuid.UUID, reactions map[string][]uuid.UUID)
	NotifyNewChat(chat *domain.Chat)
	NotifyChatUpdated(chat *domain.Chat)
	NotifyUserJoined(chat *domain.Chat, user *domain.User)
	NotifyUserLeft(chat *domain.Chat, userID uuid.UUID)
}

type MessageService struct {
	msgRepo  repository.MessageRepository
	chatRepo repository.ChatRepository
	ledger   unread.Ledger
	notifier Notifier
}

func NewMessageService(msgRepo repository.MessageRepository, chatRepo repository.ChatRepository, ledger unread.Ledger) *MessageService {
	return &MessageService{
		msgRepo:  msgRepo,
		chatRepo: chatRepo,
		ledger:   ledger,
	}
}

func (s *MessageService) SetNotifier(n Notifier) {
	s.notifier = n
}

type SendMessageInput struct {
	Content       string              `json:"content"`
	Type          string              `json:"type,omitempty"`
	ParentID      *uuid.UUID          `json:"parent_id,omitempty"`
	ForwardedFrom *domain.ForwardInfo `json:"forwarded_from,omitempty"`
}

type MessageListResponse struct {
	Messages   []domain.Message `json:"messages"`
	Pagination Pagination       `json:"pagination"`
}

// Send persists a message in the actor's chat, bumps every other
// participant's unread counter, and fans the message out.
func (s *MessageService) Send(ctx context.Context, senderID, chatID uuid.UUID, input SendMessageInput) (*domain.Message, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > domain.MaxContentLength {
		return nil, ErrContentTooLong
	}
	kind := input.Type
	if kind == "" {
		kind = domain.MessageTypeText
	}
	if !domain.ValidMessageType(kind) {
		return nil, ErrInvalidKind
	}

	chat, err := s.authorize(ctx, senderID, chatID)
	if err != nil {
		return nil, err
	}

	var threadRootID *uuid.UUID
	if input.ParentID != nil {
		parent, err := s.msgRepo.GetByID(ctx, *input.ParentID)
		if err != nil {
			return nil, err
		}
		if parent == nil || parent.ChatID != chatID || parent.IsDeleted() {
			return nil, ErrMessageNotFound
		}
		root := parent.ID
		if parent.ThreadRootID != nil {
			root = *parent.ThreadRootID
		}
		threadRootID = &root
	}

	now := time.Now()
	msg := &domain.Message{
		ID:            uuid.New(),
		ChatID:        chatID,
		SenderID:      senderID,
		Content:       content,
		Type:          kind,
		ParentID:      input.ParentID,
		ThreadRootID:  threadRootID,
		ForwardedFrom: input.ForwardedFrom,
		ReadBy:        []uuid.UUID{senderID},
		CreatedAt:     now,
	}

	if err := s.msgRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("creating message: %w", err)
	}
	if err := s.chatRepo.SetLastMessage(ctx, chatID, msg.ID); err != nil {
		return nil, fmt.Errorf("updating last message: %w", err)
	}

	// Unread counters move only after the message is durable.
	if err := s.ledger.Increment(ctx, chatID, senderID); err != nil && !errors.Is(err, unread.ErrNotFound) {
		return nil, fmt.Errorf("incrementing unread counters: %w", err)
	}

	full, err := s.msgRepo.GetByID(ctx, msg.ID)
	if err != nil {
		return nil, err
	}
	if full == nil {
		full = msg
	}

	metrics.MessagesSent.Inc()
	if s.notifier != nil {
		s.notifier.NotifyNewMessage(chat, full)
	}

	return full, nil
}

// List returns a page of the chat's messages in chronological order.
func (s *MessageService) List(ctx context.Context, userID, chatID uuid.UUID, page, limit int) (*MessageListResponse, error) {
	if _, err := s.authorize(ctx, userID, chatID); err != nil {
		return nil, err
	}
	if page <= 0 {
		page = 1
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	messages, total, err := s.msgRepo.ListByChat(ctx, chatID, page, limit)
	if err != nil {
		return nil, err
	}
	if messages == nil {
		messages = []domain.Message{}
	}

	return &MessageListResponse{
		Messages: messages,
		Pagination: Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: (total + limit - 1) / limit,
		},
	}, nil
}

// MarkRead records that the actor has read a message and resets their unread
// counter for the chat. Re-reading an already-read message changes nothing
// and emits nothing.
func (s *MessageService) MarkRead(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil {
		return ErrMessageNotFound
	}

	chat, err := s.authorize(ctx, userID, msg.ChatID)
	if err != nil {
		return err
	}

	added, err := s.msgRepo.MarkRead(ctx, messageID, userID)
	if err != nil {
		return fmt.Errorf("marking message read: %w", err)
	}
	if !added {
		return nil
	}

	if err := s.ledger.Reset(ctx, msg.ChatID, userID); err != nil && !errors.Is(err, unread.ErrNotFound) {
		return fmt.Errorf("resetting unread counter: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessageRead(chat, messageID, userID)
	}
	return nil
}

// MarkAllRead marks every message in the chat as read by the actor and zeroes
// their unread counter.
func (s *MessageService) MarkAllRead(ctx context.Context, userID, chatID uuid.UUID) error {
	chat, err := s.authorize(ctx, userID, chatID)
	if err != nil {
		return err
	}

	if err := s.msgRepo.MarkAllRead(ctx, chatID, userID); err != nil {
		return fmt.Errorf("marking chat read: %w", err)
	}
	if err := s.ledger.Reset(ctx, chatID, userID); err != nil && !errors.Is(err, unread.ErrNotFound) {
		return fmt.Errorf("resetting unread counter: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyChatUpdated(chat)
	}
	return nil
}

// ToggleReaction adds the actor's reaction with the given emoji, or removes
// it if already present. The full reaction map is broadcast after each toggle.
func (s *MessageService) ToggleReaction(ctx context.Context, userID, messageID uuid.UUID, emoji string) (map[string][]uuid.UUID, error) {
	if strings.TrimSpace(emoji) == "" {
		return nil, ErrEmptyContent
	}

	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.IsDeleted() {
		return nil, ErrMessageNotFound
	}

	chat, err := s.authorize(ctx, userID, msg.ChatID)
	if err != nil {
		return nil, err
	}

	reactions, err := s.msgRepo.ToggleReaction(ctx, messageID, userID, emoji)
	if err != nil {
		return nil, fmt.Errorf("toggling reaction: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyReactionUpdated(chat, messageID, reactions)
	}
	return reactions, nil
}

// Edit replaces a message's content. Only the sender may edit, and deleted
// messages cannot be edited.
func (s *MessageService) Edit(ctx context.Context, userID, messageID uuid.UUID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	if len(content) > domain.MaxContentLength {
		return nil, ErrContentTooLong
	}

	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.IsDeleted() {
		return nil, ErrMessageNotFound
	}

	// Membership first: outsiders get the same answer as a missing message.
	chat, err := s.authorize(ctx, userID, msg.ChatID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != userID {
		return nil, ErrNotMessageSender
	}

	if err := s.msgRepo.Edit(ctx, messageID, content); err != nil {
		return nil, fmt.Errorf("editing message: %w", err)
	}

	updated, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrMessageNotFound
	}

	if s.notifier != nil {
		s.notifier.NotifyMessageUpdated(chat, updated)
	}
	return updated, nil
}

// Delete tombstones a message. The sender may always delete their own
// message; a group admin may delete any message in their group.
func (s *MessageService) Delete(ctx context.Context, userID, messageID uuid.UUID) error {
	msg, err := s.msgRepo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg == nil || msg.IsDeleted() {
		return ErrMessageNotFound
	}

	chat, err := s.authorize(ctx, userID, msg.ChatID)
	if err != nil {
		return err
	}

	isAdmin := chat.AdminID != nil && *chat.AdminID == userID
	if msg.SenderID != userID && !isAdmin {
		return ErrNotAllowed
	}

	if err := s.msgRepo.SoftDelete(ctx, messageID, userID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}

	if s.notifier != nil {
		s.notifier.NotifyMessageDeleted(chat, messageID, userID)
	}
	return nil
}

func (s *MessageService) authorize(ctx context.Context, userID, chatID uuid.UUID) (*domain.Chat, error) {
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
