// Package presence is the authoritative in-process record of which users
// currently hold live connections. State here is process-local and lost on
// restart.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conn is one live connection as the registry sees it. Send must not block;
// it reports false when the event could not be buffered.
type Conn interface {
	Send(data []byte) bool
	InRoom(chatID uuid.UUID) bool
}

type Registry struct {
	mu    sync.RWMutex
	conns map[uuid.UUID]map[string]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[uuid.UUID]map[string]Conn)}
}

// Register adds a connection and reports whether this made the user online
// (first connection). The check and the insert happen under one lock, so a
// reconnect racing a disconnect cannot produce a ghost transition.
func (r *Registry) Register(userID uuid.UUID, connID string, c Conn) (becameOnline bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userConns, ok := r.conns[userID]
	if !ok {
		userConns = make(map[string]Conn)
		r.conns[userID] = userConns
	}
	becameOnline = len(userConns) == 0
	userConns[connID] = c
	return becameOnline
}

// Unregister removes a connection and reports whether the user went offline
// (no connections remain), with the moment of the transition.
func (r *Registry) Unregister(userID uuid.UUID, connID string) (becameOffline bool, lastSeen time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	userConns, ok := r.conns[userID]
	if !ok {
		return false, time.Time{}
	}
	if _, ok := userConns[connID]; !ok {
		return false, time.Time{}
	}
	delete(userConns, connID)
	if len(userConns) == 0 {
		delete(r.conns, userID)
		return true, time.Now()
	}
	return false, time.Time{}
}

func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

// ConnectionsFor returns the user's live connections, for targeting delivery
// at a user who may not have joined a room yet.
func (r *Registry) ConnectionsFor(userID uuid.UUID) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	userConns := r.conns[userID]
	out := make([]Conn, 0, len(userConns))
	for _, c := range userConns {
		out = append(out, c)
	}
	return out
}

// Each visits every registered connection.
func (r *Registry) Each(fn func(userID uuid.UUID, c Conn)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for userID, userConns := range r.conns {
		for _, c := range userConns {
			fn(userID, c)
		}
	}
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, userConns := range r.conns {
		n += len(userConns)
	}
	return n
}
