package ws

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/banterhq/banter/internal/presence"
	"github.com/banterhq/banter/pkg/metrics"
)

// StatusStore persists online flips so offline peers see fresh presence on
// their next fetch.
type StatusStore interface {
	SetOnline(ctx context.Context, id uuid.UUID, online bool, lastSeen time.Time) error
}

// roomMessage is one fan-out unit: the recipient set is resolved by the
// caller at enqueue time, so membership changes after that point do not
// affect this delivery.
type roomMessage struct {
	chatID     uuid.UUID
	recipients []uuid.UUID
	data       []byte
	exclude    *uuid.UUID
	roomOnly   bool
}

// Hub owns the presence registry and serializes registration, teardown and
// fan-out through one goroutine.
type Hub struct {
	registry *presence.Registry
	status   StatusStore
	log      *zap.SugaredLogger

	register   chan *Client
	unregister chan *Client
	broadcast  chan *roomMessage
}

func NewHub(status StatusStore, log *zap.SugaredLogger) *Hub {
	return &Hub{
		registry:   presence.NewRegistry(),
		status:     status,
		log:        log,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *roomMessage, 256),
	}
}

func (h *Hub) Registry() *presence.Registry {
	return h.registry
}

// Run processes hub commands until the context ends.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.handleRegister(ctx, client)
		case client := <-h.unregister:
			h.handleUnregister(ctx, client)
		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

func (h *Hub) handleRegister(ctx context.Context, client *Client) {
	becameOnline := h.registry.Register(client.userID, client.connID, client)
	metrics.WSConnections.Inc()

	if !becameOnline {
		return
	}

	if err := h.status.SetOnline(ctx, client.userID, true, time.Now()); err != nil {
		h.log.Errorw("persisting online status failed", "user_id", client.userID, "error", err)
	}

	h.broadcastPresence(EventUserOnline, client.userID, nil)
	h.log.Infow("user online", "user_id", client.userID)
}

func (h *Hub) handleUnregister(ctx context.Context, client *Client) {
	becameOffline, lastSeen := h.registry.Unregister(client.userID, client.connID)
	client.close()
	metrics.WSConnections.Dec()

	if !becameOffline {
		return
	}

	if err := h.status.SetOnline(ctx, client.userID, false, lastSeen); err != nil {
		h.log.Errorw("persisting offline status failed", "user_id", client.userID, "error", err)
	}

	h.broadcastPresence(EventUserOffline, client.userID, &lastSeen)
	h.log.Infow("user offline", "user_id", client.userID)
}

func (h *Hub) broadcastPresence(eventType string, userID uuid.UUID, lastSeen *time.Time) {
	event, err := NewEvent(eventType, PresencePayload{UserID: userID, LastSeen: lastSeen})
	if err != nil {
		return
	}
	data, err := event.Encode()
	if err != nil {
		return
	}
	h.registry.Each(func(recipientID uuid.UUID, c presence.Conn) {
		if recipientID == userID {
			return
		}
		if c.Send(data) {
			metrics.EventsDelivered.Inc()
		} else {
			metrics.EventsDropped.Inc()
		}
	})
}

// BroadcastToRecipients delivers an event to every connection of the given
// users, room membership regardless. Used for events that must reach
// participants who have not joined the room, like a brand new chat.
func (h *Hub) BroadcastToRecipients(recipients []uuid.UUID, event *Event, exclude *uuid.UUID) {
	h.enqueue(&roomMessage{recipients: recipients, exclude: exclude}, event)
}

// BroadcastToRoom delivers an event to the given users' connections that have
// joined the chat's room.
func (h *Hub) BroadcastToRoom(chatID uuid.UUID, recipients []uuid.UUID, event *Event, exclude *uuid.UUID) {
	h.enqueue(&roomMessage{chatID: chatID, recipients: recipients, exclude: exclude, roomOnly: true}, event)
}

// SendToUser delivers an event to every connection of one user.
func (h *Hub) SendToUser(userID uuid.UUID, event *Event) {
	h.enqueue(&roomMessage{recipients: []uuid.UUID{userID}}, event)
}

func (h *Hub) enqueue(msg *roomMessage, event *Event) {
	data, err := event.Encode()
	if err != nil {
		h.log.Errorw("encoding event failed", "type", event.Type, "error", err)
		return
	}
	msg.data = data

	// Blocking send: the run loop is the sole consumer and per-connection
	// Send never blocks, so the queue always drains. A full buffer delays
	// the producer instead of losing the event for every recipient.
	h.broadcast <- msg
}

func (h *Hub) deliver(msg *roomMessage) {
	for _, userID := range msg.recipients {
		if msg.exclude != nil && userID == *msg.exclude {
			continue
		}
		for _, c := range h.registry.ConnectionsFor(userID) {
			if msg.roomOnly && !c.InRoom(msg.chatID) {
				continue
			}
			if c.Send(msg.data) {
				metrics.EventsDelivered.Inc()
			} else {
				metrics.EventsDropped.Inc()
			}
		}
	}
}
