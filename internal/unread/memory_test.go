package unread

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIncrementSkipsSender(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemory()
	chatID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()
	carol := uuid.New()

	ledger.AddMember(chatID, alice)
	ledger.AddMember(chatID, bob)
	ledger.AddMember(chatID, carol)

	require.NoError(t, ledger.Increment(ctx, chatID, alice))

	count, err := ledger.Get(ctx, chatID, alice)
	require.NoError(t, err)
	assert.Equal(t, 0, count)

	count, err = ledger.Get(ctx, chatID, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = ledger.Get(ctx, chatID, carol)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestConcurrentIncrementsAreExact(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemory()
	chatID := uuid.New()
	sender := uuid.New()
	receiver := uuid.New()

	ledger.AddMember(chatID, sender)
	ledger.AddMember(chatID, receiver)

	const n = 200
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = ledger.Increment(ctx, chatID, sender)
		}()
	}
	wg.Wait()

	count, err := ledger.Get(ctx, chatID, receiver)
	require.NoError(t, err)
	assert.Equal(t, n, count)
}

func TestResetIsIdempotent(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemory()
	chatID := uuid.New()
	sender := uuid.New()
	receiver := uuid.New()

	ledger.AddMember(chatID, sender)
	ledger.AddMember(chatID, receiver)

	require.NoError(t, ledger.Increment(ctx, chatID, sender))
	require.NoError(t, ledger.Increment(ctx, chatID, sender))

	require.NoError(t, ledger.Reset(ctx, chatID, receiver))
	require.NoError(t, ledger.Reset(ctx, chatID, receiver))

	count, err := ledger.Get(ctx, chatID, receiver)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestUnknownConversation(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemory()

	err := ledger.Increment(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	err = ledger.Reset(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ledger.Get(ctx, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemovedMemberIsPruned(t *testing.T) {
	ctx := context.Background()
	ledger := NewMemory()
	chatID := uuid.New()
	sender := uuid.New()
	leaver := uuid.New()

	ledger.AddMember(chatID, sender)
	ledger.AddMember(chatID, leaver)
	require.NoError(t, ledger.Increment(ctx, chatID, sender))

	ledger.RemoveMember(chatID, leaver)

	_, err := ledger.Get(ctx, chatID, leaver)
	assert.ErrorIs(t, err, ErrNotFound)

	// Rejoining starts from zero.
	ledger.AddMember(chatID, leaver)
	count, err := ledger.Get(ctx, chatID, leaver)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
