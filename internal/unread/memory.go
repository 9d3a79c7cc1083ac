package unread

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// Memory is a process-local Ledger. Membership is maintained through
// AddMember/RemoveMember; counters for removed members are pruned with them.
type Memory struct {
	mu     sync.Mutex
	counts map[uuid.UUID]map[uuid.UUID]int
}

func NewMemory() *Memory {
	return &Memory{counts: make(map[uuid.UUID]map[uuid.UUID]int)}
}

func (m *Memory) AddMember(chatID, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.counts[chatID]
	if !ok {
		members = make(map[uuid.UUID]int)
		m.counts[chatID] = members
	}
	if _, ok := members[userID]; !ok {
		members[userID] = 0
	}
}

func (m *Memory) RemoveMember(chatID, userID uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if members, ok := m.counts[chatID]; ok {
		delete(members, userID)
	}
}

func (m *Memory) Increment(ctx context.Context, chatID, excludeUserID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.counts[chatID]
	if !ok {
		return ErrNotFound
	}
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		members[userID]++
	}
	return nil
}

func (m *Memory) Reset(ctx context.Context, chatID, userID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.counts[chatID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := members[userID]; !ok {
		return ErrNotFound
	}
	members[userID] = 0
	return nil
}

func (m *Memory) Get(ctx context.Context, chatID, userID uuid.UUID) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	members, ok := m.counts[chatID]
	if !ok {
		return 0, ErrNotFound
	}
	count, ok := members[userID]
	if !ok {
		return 0, ErrNotFound
	}
	return count, nil
}
