package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/unread"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u := *user
	r.users[user.ID] = &u
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

func (r *fakeUserRepo) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) Search(ctx context.Context, query string, excludeID uuid.UUID, limit int) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.ID == excludeID {
			continue
		}
		if strings.Contains(u.Username, query) || strings.Contains(u.Email, query) {
			out = append(out, *u)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeUserRepo) List(ctx context.Context, excludeID uuid.UUID) ([]domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.User
	for _, u := range r.users {
		if u.ID != excludeID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) SetOnline(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		u.IsOnline = online
		u.LastSeen = lastSeen
	}
	return nil
}

type fakeChatRepo struct {
	mu         sync.Mutex
	chats      map[uuid.UUID]*domain.Chat
	directKeys map[string]uuid.UUID
	ledger     *unread.Memory
}

func newFakeChatRepo(ledger *unread.Memory) *fakeChatRepo {
	return &fakeChatRepo{
		chats:      make(map[uuid.UUID]*domain.Chat),
		directKeys: make(map[string]uuid.UUID),
		ledger:     ledger,
	}
}

func (r *fakeChatRepo) copyChat(chat *domain.Chat) *domain.Chat {
	copied := *chat
	copied.ParticipantIDs = append([]uuid.UUID(nil), chat.ParticipantIDs...)
	return &copied
}

func (r *fakeChatRepo) Create(ctx context.Context, chat *domain.Chat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chats[chat.ID] = r.copyChat(chat)
	for _, id := range chat.ParticipantIDs {
		r.ledger.AddMember(chat.ID, id)
	}
	return nil
}

func (r *fakeChatRepo) CreateDirect(ctx context.Context, chat *domain.Chat, directKey string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existingID, ok := r.directKeys[directKey]; ok {
		return r.copyChat(r.chats[existingID]), nil
	}
	r.directKeys[directKey] = chat.ID
	r.chats[chat.ID] = r.copyChat(chat)
	for _, id := range chat.ParticipantIDs {
		r.ledger.AddMember(chat.ID, id)
	}
	return r.copyChat(chat), nil
}

func (r *fakeChatRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[id]
	if !ok {
		return nil, nil
	}
	return r.copyChat(chat), nil
}

func (r *fakeChatRepo) GetDirectByKey(ctx context.Context, directKey string) (*domain.Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.directKeys[directKey]
	if !ok {
		return nil, nil
	}
	return r.copyChat(r.chats[id]), nil
}

func (r *fakeChatRepo) ListByUser(ctx context.Context, userID uuid.UUID, page, limit int) ([]domain.Chat, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Chat
	for _, chat := range r.chats {
		if chat.HasParticipant(userID) {
			out = append(out, *r.copyChat(chat))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	total := len(out)
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return out[start:end], total, nil
}

func (r *fakeChatRepo) IsParticipant(ctx context.Context, chatID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return false, nil
	}
	return chat.HasParticipant(userID), nil
}

func (r *fakeChatRepo) AddParticipant(ctx context.Context, chatID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return nil
	}
	if !chat.HasParticipant(userID) {
		chat.ParticipantIDs = append(chat.ParticipantIDs, userID)
	}
	r.ledger.AddMember(chatID, userID)
	return nil
}

func (r *fakeChatRepo) RemoveParticipant(ctx context.Context, chatID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	chat, ok := r.chats[chatID]
	if !ok {
		return nil
	}
	remaining := chat.ParticipantIDs[:0]
	for _, id := range chat.ParticipantIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	chat.ParticipantIDs = remaining
	r.ledger.RemoveMember(chatID, userID)
	return nil
}

func (r *fakeChatRepo) SetLastMessage(ctx context.Context, chatID, messageID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if chat, ok := r.chats[chatID]; ok {
		id := messageID
		chat.LastMessageID = &id
		chat.UpdatedAt = time.Now()
	}
	return nil
}

type fakeMessageRepo struct {
	mu       sync.Mutex
	messages map[uuid.UUID]*domain.Message
	order    []uuid.UUID
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{messages: make(map[uuid.UUID]*domain.Message)}
}

func (r *fakeMessageRepo) copyMessage(msg *domain.Message) *domain.Message {
	copied := *msg
	copied.ReadBy = append([]uuid.UUID(nil), msg.ReadBy...)
	if msg.Reactions != nil {
		copied.Reactions = make(map[string][]uuid.UUID, len(msg.Reactions))
		for emoji, ids := range msg.Reactions {
			copied.Reactions[emoji] = append([]uuid.UUID(nil), ids...)
		}
	}
	return &copied
}

func (r *fakeMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages[msg.ID] = r.copyMessage(msg)
	r.order = append(r.order, msg.ID)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[id]
	if !ok {
		return nil, nil
	}
	return r.copyMessage(msg), nil
}

func (r *fakeMessageRepo) ListByChat(ctx context.Context, chatID uuid.UUID, page, limit int) ([]domain.Message, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []domain.Message
	for _, id := range r.order {
		if msg := r.messages[id]; msg.ChatID == chatID {
			all = append(all, *r.copyMessage(msg))
		}
	}
	total := len(all)
	start := total - page*limit
	end := start + limit
	if start < 0 {
		start = 0
	}
	if end > total {
		end = total
	}
	if start > end {
		start = end
	}
	return all[start:end], total, nil
}

func (r *fakeMessageRepo) MarkRead(ctx context.Context, messageID, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg, ok := r.messages[messageID]
	if !ok {
		return false, nil
	}
	for _, id := range msg.ReadBy {
		if id == userID {
			return false, nil
		}
	}
	msg.ReadBy = append(msg.ReadBy, userID)
	return true, nil
}

func (r *fakeMessageRepo) MarkAllRead(ctx context.Context, chatID, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, msg := range r.messages {
		if msg.ChatID != chatID || msg.SenderID == userID || msg.ReadByUser(userID) {
			continue
		}
		msg.ReadBy = append(msg.ReadBy, userID)
	}
	return nil
}

func (r *fakeMessageRepo) ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (map[string][]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	msg := r.messages[messageID]
	if msg.Reactions == nil {
		msg.Reactions = make(map[string][]uuid.UUID)
	}
	ids := msg.Reactions[emoji]
	removed := false
	for i, id := range ids {
		if id == userID {
			ids = append(ids[:i], ids[i+1:]...)
			removed = true
			break
		}
	}
	if !removed {
		ids = append(ids, userID)
	}
	if len(ids) == 0 {
		delete(msg.Reactions, emoji)
	} else {
		msg.Reactions[emoji] = ids
	}
	return r.copyMessage(msg).Reactions, nil
}

func (r *fakeMessageRepo) Edit(ctx context.Context, messageID uuid.UUID, content string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[messageID]; ok {
		now := time.Now()
		msg.Content = content
		msg.EditedAt = &now
	}
	return nil
}

func (r *fakeMessageRepo) SoftDelete(ctx context.Context, messageID, deletedBy uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg, ok := r.messages[messageID]; ok {
		now := time.Now()
		by := deletedBy
		msg.Content = ""
		msg.DeletedAt = &now
		msg.DeletedBy = &by
	}
	return nil
}

type notification struct {
	kind      string
	chatID    uuid.UUID
	messageID uuid.UUID
	userID    uuid.UUID
}

// recordingNotifier captures notifications in order for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	events []notification
}

func (n *recordingNotifier) record(ev notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
}

func (n *recordingNotifier) all() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.events...)
}

func (n *recordingNotifier) ofKind(kind string) []notification {
	var out []notification
	for _, ev := range n.all() {
		if ev.kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func (n *recordingNotifier) NotifyNewMessage(chat *domain.Chat, message *domain.Message) {
	n.record(notification{kind: "message", chatID: chat.ID, messageID: message.ID, userID: message.SenderID})
}

func (n *recordingNotifier) NotifyMessageRead(chat *domain.Chat, messageID, readerID uuid.UUID) {
	n.record(notification{kind: "messageRead", chatID: chat.ID, messageID: messageID, userID: readerID})
}

func (n *recordingNotifier) NotifyMessageUpdated(chat *domain.Chat, message *domain.Message) {
	n.record(notification{kind: "messageUpdated", chatID: chat.ID, messageID: message.ID})
}

func (n *recordingNotifier) NotifyMessageDeleted(chat *domain.Chat, messageID, deletedBy uuid.UUID) {
	n.record(notification{kind: "messageDeleted", chatID: chat.ID, messageID: messageID, userID: deletedBy})
}

func (n *recordingNotifier) NotifyReactionUpdated(chat *domain.Chat, messageID uuid.UUID, reactions map[string][]uuid.UUID) {
	n.record(notification{kind: "reactionUpdated", chatID: chat.ID, messageID: messageID})
}

func (n *recordingNotifier) NotifyNewChat(chat *domain.Chat) {
	n.record(notification{kind: "newChat", chatID: chat.ID})
}

func (n *recordingNotifier) NotifyChatUpdated(chat *domain.Chat) {
	n.record(notification{kind: "chatUpdated", chatID: chat.ID})
}

func (n *recordingNotifier) NotifyUserJoined(chat *domain.Chat, user *domain.User) {
	n.record(notification{kind: "userJoined", chatID: chat.ID, userID: user.ID})
}

func (n *recordingNotifier) NotifyUserLeft(chat *domain.Chat, userID uuid.UUID) {
	n.record(notification{kind: "userLeft", chatID: chat.ID, userID: userID})
}

func seedUser(t interface{ Helper() }, repo *fakeUserRepo, username string) *domain.User {
	t.Helper()
	now := time.Now()
	user := &domain.User{
		ID:          uuid.New(),
		Email:       username + "@example.com",
		Username:    username,
		DisplayName: strings.ToUpper(username[:1]) + username[1:],
		LastSeen:    now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_ = repo.Create(context.Background(), user)
	return user
}
