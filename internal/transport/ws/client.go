package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/service"
	"github.com/banterhq/banter/pkg/validator"
)

const (
	sendBufferSize = 64
	pingInterval   = 50 * time.Second
	writeTimeout   = 10 * time.Second
)

// Client is one websocket connection of one authenticated user.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	log    *zap.SugaredLogger
	userID uuid.UUID
	connID string
	user   *domain.User

	chatService    *service.ChatService
	messageService *service.MessageService

	send chan []byte

	closeOnce sync.Once
	done      chan struct{}

	roomsMu sync.RWMutex
	rooms   map[uuid.UUID]struct{}
}

func NewClient(hub *Hub, conn *websocket.Conn, user *domain.User, chatService *service.ChatService, messageService *service.MessageService, log *zap.SugaredLogger) *Client {
	return &Client{
		hub:            hub,
		conn:           conn,
		log:            log,
		userID:         user.ID,
		connID:         uuid.NewString(),
		user:           user,
		chatService:    chatService,
		messageService: messageService,
		send:           make(chan []byte, sendBufferSize),
		done:           make(chan struct{}),
		rooms:          make(map[uuid.UUID]struct{}),
	}
}

// Send buffers an event for delivery. It never blocks; a full buffer means
// the client is too slow and the event is dropped.
func (c *Client) Send(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) InRoom(chatID uuid.UUID) bool {
	c.roomsMu.RLock()
	defer c.roomsMu.RUnlock()
	_, ok := c.rooms[chatID]
	return ok
}

func (c *Client) joinRoom(chatID uuid.UUID) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	c.rooms[chatID] = struct{}{}
}

func (c *Client) leaveRoom(chatID uuid.UUID) {
	c.roomsMu.Lock()
	defer c.roomsMu.Unlock()
	delete(c.rooms, chatID)
}

func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// ReadPump reads client events until the connection drops, then hands the
// client to the hub for teardown.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		var event Event
		if err := wsjson.Read(ctx, c.conn, &event); err != nil {
			return
		}
		c.handleEvent(ctx, &event)
	}
}

// WritePump drains the send buffer onto the socket and keeps the connection
// alive with periodic pings.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

func (c *Client) handleEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case EventJoinRoom:
		c.handleJoinRoom(ctx, event)
	case EventLeaveRoom:
		c.handleLeaveRoom(event)
	case EventSendMessage:
		c.handleSendMessage(ctx, event)
	case EventTyping:
		c.handleTyping(ctx, event)
	case EventMarkAsRead:
		c.handleMarkAsRead(ctx, event)
	case EventReactMessage:
		c.handleReactMessage(ctx, event)
	case EventEditMessage:
		c.handleEditMessage(ctx, event)
	case EventDeleteMessage:
		c.handleDeleteMessage(ctx, event)
	case EventCreateGroup:
		c.handleCreateGroup(ctx, event)
	case EventJoinGroup:
		c.handleJoinGroup(ctx, event)
	case EventLeaveGroup:
		c.handleLeaveGroup(ctx, event)
	case EventPing:
		c.sendEvent(EventPong, nil)
	default:
		c.sendError("UNKNOWN_EVENT", "unknown event type: "+event.Type)
	}
}

func (c *Client) handleJoinRoom(ctx context.Context, event *Event) {
	var p RoomPayload
	if !c.decode(event, &p) {
		return
	}
	if _, err := c.chatService.Authorize(ctx, c.userID, p.ChatID); err != nil {
		c.sendServiceError(err)
		return
	}
	c.joinRoom(p.ChatID)
}

func (c *Client) handleLeaveRoom(event *Event) {
	var p RoomPayload
	if !c.decode(event, &p) {
		return
	}
	c.leaveRoom(p.ChatID)
}

func (c *Client) handleSendMessage(ctx context.Context, event *Event) {
	var p SendMessagePayload
	if !c.decode(event, &p) {
		return
	}
	input := service.SendMessageInput{
		Content:       p.Content,
		Type:          p.Type,
		ParentID:      p.ParentID,
		ForwardedFrom: p.ForwardedFrom,
	}
	if _, err := c.messageService.Send(ctx, c.userID, p.ChatID, input); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleTyping(ctx context.Context, event *Event) {
	var p TypingPayload
	if !c.decode(event, &p) {
		return
	}
	chat, err := c.chatService.Authorize(ctx, c.userID, p.ChatID)
	if err != nil {
		c.sendServiceError(err)
		return
	}

	out, err := NewEvent(EventTyping, TypingPayload{
		ChatID:   p.ChatID,
		UserID:   c.userID,
		Username: c.user.Username,
		IsTyping: p.IsTyping,
	})
	if err != nil {
		return
	}
	exclude := c.userID
	c.hub.BroadcastToRoom(p.ChatID, chat.ParticipantIDs, out, &exclude)
}

func (c *Client) handleMarkAsRead(ctx context.Context, event *Event) {
	var p MarkAsReadPayload
	if !c.decode(event, &p) {
		return
	}
	if err := c.messageService.MarkRead(ctx, c.userID, p.MessageID); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleReactMessage(ctx context.Context, event *Event) {
	var p ReactMessagePayload
	if !c.decode(event, &p) {
		return
	}
	if _, err := c.messageService.ToggleReaction(ctx, c.userID, p.MessageID, p.Emoji); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleEditMessage(ctx context.Context, event *Event) {
	var p EditMessagePayload
	if !c.decode(event, &p) {
		return
	}
	if _, err := c.messageService.Edit(ctx, c.userID, p.MessageID, p.Content); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleDeleteMessage(ctx context.Context, event *Event) {
	var p DeleteMessagePayload
	if !c.decode(event, &p) {
		return
	}
	if err := c.messageService.Delete(ctx, c.userID, p.MessageID); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleCreateGroup(ctx context.Context, event *Event) {
	var p CreateGroupPayload
	if !c.decode(event, &p) {
		return
	}
	if errs := validator.ValidateGroup(p.Name, len(p.ParticipantIDs)); errs.Any() {
		c.sendError("VALIDATION_FAILED", "invalid group input")
		return
	}
	input := service.CreateGroupInput{
		Name:           p.Name,
		Description:    p.Description,
		ParticipantIDs: p.ParticipantIDs,
	}
	if _, err := c.chatService.CreateGroup(ctx, c.userID, input); err != nil {
		c.sendServiceError(err)
	}
}

func (c *Client) handleJoinGroup(ctx context.Context, event *Event) {
	var p RoomPayload
	if !c.decode(event, &p) {
		return
	}
	if _, _, err := c.chatService.JoinGroup(ctx, c.userID, p.ChatID); err != nil {
		c.sendServiceError(err)
		return
	}
	c.joinRoom(p.ChatID)
}

func (c *Client) handleLeaveGroup(ctx context.Context, event *Event) {
	var p RoomPayload
	if !c.decode(event, &p) {
		return
	}
	if _, err := c.chatService.LeaveGroup(ctx, c.userID, p.ChatID); err != nil {
		c.sendServiceError(err)
		return
	}
	c.leaveRoom(p.ChatID)
}

func (c *Client) decode(event *Event, v any) bool {
	if err := json.Unmarshal(event.Payload, v); err != nil {
		c.sendError("INVALID_PAYLOAD", "invalid payload for "+event.Type)
		return false
	}
	return true
}

func (c *Client) sendEvent(eventType string, payload any) {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return
	}
	data, err := event.Encode()
	if err != nil {
		return
	}
	c.Send(data)
}

func (c *Client) sendError(code, message string) {
	c.sendEvent(EventError, ErrorPayload{Code: code, Message: message})
}

func (c *Client) sendServiceError(err error) {
	switch {
	case errors.Is(err, service.ErrChatNotFound), errors.Is(err, service.ErrNotParticipant):
		c.sendError("NOT_FOUND", "chat not found")
	case errors.Is(err, service.ErrMessageNotFound):
		c.sendError("NOT_FOUND", "message not found")
	case errors.Is(err, service.ErrUserNotFound):
		c.sendError("NOT_FOUND", "user not found")
	case errors.Is(err, service.ErrNotGroup):
		c.sendError("NOT_GROUP", err.Error())
	case errors.Is(err, service.ErrCannotChatSelf), errors.Is(err, service.ErrUnknownParticipant):
		c.sendError("INVALID_TARGET", err.Error())
	case errors.Is(err, service.ErrEmptyContent), errors.Is(err, service.ErrContentTooLong), errors.Is(err, service.ErrInvalidKind):
		c.sendError("INVALID_MESSAGE", err.Error())
	case errors.Is(err, service.ErrNotMessageSender), errors.Is(err, service.ErrNotAllowed):
		c.sendError("FORBIDDEN", err.Error())
	default:
		c.log.Errorw("websocket event failed", "user_id", c.userID, "error", err)
		c.sendError("INTERNAL", "something went wrong")
	}
}
