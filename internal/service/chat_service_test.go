package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banterhq/banter/internal/domain"
	"github.com/banterhq/banter/internal/unread"
)

type fixture struct {
	users    *fakeUserRepo
	chats    *fakeChatRepo
	messages *fakeMessageRepo
	ledger   *unread.Memory
	notifier *recordingNotifier

	chatService    *ChatService
	messageService *MessageService
}

func newFixture() *fixture {
	f := &fixture{
		users:    newFakeUserRepo(),
		messages: newFakeMessageRepo(),
		ledger:   unread.NewMemory(),
		notifier: &recordingNotifier{},
	}
	f.chats = newFakeChatRepo(f.ledger)
	f.chatService = NewChatService(f.chats, f.users, f.ledger)
	f.chatService.SetNotifier(f.notifier)
	f.messageService = NewMessageService(f.messages, f.chats, f.ledger)
	f.messageService.SetNotifier(f.notifier)
	return f
}

func TestFindOrCreateDirect(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	chat, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ChatTypeDirect, chat.Type)
	assert.True(t, chat.HasParticipant(alice.ID))
	assert.True(t, chat.HasParticipant(bob.ID))
	assert.Len(t, f.notifier.ofKind("newChat"), 1)

	// The reverse direction finds the same chat and stays silent.
	again, err := f.chatService.FindOrCreateDirect(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.ID, again.ID)
	assert.Len(t, f.notifier.ofKind("newChat"), 1)
}

func TestFindOrCreateDirectConcurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	const n = 20
	results := make(chan uuid.UUID, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		initiator, other := alice.ID, bob.ID
		if i%2 == 0 {
			initiator, other = bob.ID, alice.ID
		}
		go func() {
			defer wg.Done()
			chat, err := f.chatService.FindOrCreateDirect(ctx, initiator, other)
			if assert.NoError(t, err) {
				results <- chat.ID
			}
		}()
	}
	wg.Wait()
	close(results)

	ids := map[uuid.UUID]bool{}
	for id := range results {
		ids[id] = true
	}
	assert.Len(t, ids, 1, "both sides racing must converge on one chat")
}

func TestFindOrCreateDirectRejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")

	_, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrCannotChatSelf)

	_, err = f.chatService.FindOrCreateDirect(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	carol := seedUser(t, f.users, "carol")

	chat, err := f.chatService.CreateGroup(ctx, alice.ID, CreateGroupInput{
		Name: "weekend plans",
		// The creator in the participant list must not be duplicated.
		ParticipantIDs: []uuid.UUID{bob.ID, carol.ID, alice.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, domain.ChatTypeGroup, chat.Type)
	require.NotNil(t, chat.AdminID)
	assert.Equal(t, alice.ID, *chat.AdminID)
	assert.Len(t, chat.ParticipantIDs, 3)
	assert.Len(t, f.notifier.ofKind("newChat"), 1)
}

func TestCreateGroupUnknownParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	_, err := f.chatService.CreateGroup(ctx, alice.ID, CreateGroupInput{
		Name:           "ghosts",
		ParticipantIDs: []uuid.UUID{bob.ID, uuid.New()},
	})
	assert.ErrorIs(t, err, ErrUnknownParticipant)
}

func TestJoinGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	dave := seedUser(t, f.users, "dave")

	chat, err := f.chatService.CreateGroup(ctx, alice.ID, CreateGroupInput{
		Name:           "open group",
		ParticipantIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)

	joined, _, err := f.chatService.JoinGroup(ctx, dave.ID, chat.ID)
	require.NoError(t, err)
	assert.True(t, joined.HasParticipant(dave.ID))
	assert.Len(t, f.notifier.ofKind("userJoined"), 1)

	// Joining again is a no-op.
	_, _, err = f.chatService.JoinGroup(ctx, dave.ID, chat.ID)
	require.NoError(t, err)
	assert.Len(t, f.notifier.ofKind("userJoined"), 1)

	count, err := f.ledger.Get(ctx, chat.ID, dave.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestJoinDirectChatRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	dave := seedUser(t, f.users, "dave")

	chat, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, _, err = f.chatService.JoinGroup(ctx, dave.ID, chat.ID)
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = f.chatService.LeaveGroup(ctx, alice.ID, chat.ID)
	assert.ErrorIs(t, err, ErrNotGroup)
}

func TestLeaveGroupPrunesLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	carol := seedUser(t, f.users, "carol")

	chat, err := f.chatService.CreateGroup(ctx, alice.ID, CreateGroupInput{
		Name:           "shrinking",
		ParticipantIDs: []uuid.UUID{bob.ID, carol.ID},
	})
	require.NoError(t, err)

	left, err := f.chatService.LeaveGroup(ctx, carol.ID, chat.ID)
	require.NoError(t, err)
	assert.False(t, left.HasParticipant(carol.ID))
	assert.Len(t, f.notifier.ofKind("userLeft"), 1)

	_, err = f.ledger.Get(ctx, chat.ID, carol.ID)
	assert.ErrorIs(t, err, unread.ErrNotFound)

	// A member who left no longer counts as a recipient.
	_, err = f.messageService.Send(ctx, alice.ID, chat.ID, SendMessageInput{Content: "carol is gone"})
	require.NoError(t, err)
	_, err = f.ledger.Get(ctx, chat.ID, carol.ID)
	assert.ErrorIs(t, err, unread.ErrNotFound)
}

func TestLeaveGroupNotParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	dave := seedUser(t, f.users, "dave")

	chat, err := f.chatService.CreateGroup(ctx, alice.ID, CreateGroupInput{
		Name:           "members only",
		ParticipantIDs: []uuid.UUID{bob.ID},
	})
	require.NoError(t, err)

	_, err = f.chatService.LeaveGroup(ctx, dave.ID, chat.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")
	eve := seedUser(t, f.users, "eve")

	chat, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = f.chatService.Authorize(ctx, alice.ID, chat.ID)
	assert.NoError(t, err)

	_, err = f.chatService.Authorize(ctx, eve.ID, chat.ID)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = f.chatService.Authorize(ctx, alice.ID, uuid.New())
	assert.ErrorIs(t, err, ErrChatNotFound)
}

func TestGetFillsUnreadCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")
	bob := seedUser(t, f.users, "bob")

	chat, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, bob.ID)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err = f.messageService.Send(ctx, alice.ID, chat.ID, SendMessageInput{Content: "hey"})
		require.NoError(t, err)
	}

	got, err := f.chatService.Get(ctx, bob.ID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.UnreadCount)

	got, err = f.chatService.Get(ctx, alice.ID, chat.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.UnreadCount)
}

func TestListPagination(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	alice := seedUser(t, f.users, "alice")

	for i := 0; i < 5; i++ {
		other := seedUser(t, f.users, "user"+uuid.NewString()[:8])
		_, err := f.chatService.FindOrCreateDirect(ctx, alice.ID, other.ID)
		require.NoError(t, err)
	}

	resp, err := f.chatService.List(ctx, alice.ID, 1, 2)
	require.NoError(t, err)
	assert.Len(t, resp.Chats, 2)
	assert.Equal(t, 5, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
}
