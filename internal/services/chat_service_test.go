package services

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/loopline-app/loopline/backend/internal/models"
	"github.com/loopline-app/loopline/backend/internal/repositories"
)

func newTestChatService(t *testing.T, pusher *fakePusher) (*ChatService, *gorm.DB) {
	t.Helper()
	db := setupTestDB(t)
	svc := NewChatService(
		repositories.NewPostgresChatRepository(db),
		repositories.NewPostgresMessageRepository(db),
		pusher,
	)
	return svc, db
}

func TestStartChatIsIdempotent(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	first, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	// Same pair in either order resolves to the same chat.
	again, err := svc.StartChat(bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	var count int64
	require.NoError(t, db.Model(&models.Chat{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestStartChatWithSelfFails(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")

	_, err := svc.StartChat(alice.ID, alice.ID)
	assert.ErrorIs(t, err, ErrSelfChat)
}

func TestStartChatConcurrentYieldsOneChat(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	const callers = 8
	ids := make([]uint, callers)
	var wg sync.WaitGroup
	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func(i int) {
			defer wg.Done()
			chat, err := svc.StartChat(alice.ID, bob.ID)
			if err == nil {
				ids[i] = chat.ID
			}
		}(i)
	}
	wg.Wait()

	var count int64
	require.NoError(t, db.Model(&models.Chat{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
	for _, id := range ids {
		if id != 0 {
			assert.Equal(t, ids[0], id)
		}
	}
}

func TestSendMessageValidation(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	eve := createTestUser(t, db, "eve")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(chat.ID, alice.ID, "", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)

	_, err = svc.SendMessage(chat.ID, eve.ID, "hi", "")
	assert.ErrorIs(t, err, ErrNotParticipant)

	// Image-only messages are fine.
	msg, err := svc.SendMessage(chat.ID, alice.ID, "", "https://cdn.example.com/pic.png")
	require.NoError(t, err)
	assert.Nil(t, msg.Content)
	require.NotNil(t, msg.Img)
}

func TestSendMessagePushesToOtherParticipantOnly(t *testing.T) {
	pusher := &fakePusher{}
	svc, db := newTestChatService(t, pusher)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(chat.ID, alice.ID, "hello", "")
	require.NoError(t, err)

	pushes := pusher.eventsFor(bob.ID, EventNewMessage)
	require.Len(t, pushes, 1)
	event, ok := pushes[0].Payload.(models.NewMessageEvent)
	require.True(t, ok)
	assert.Equal(t, chat.ID, event.ChatID)
	assert.Equal(t, msg.ID, event.Message.ID)

	assert.Empty(t, pusher.eventsFor(alice.ID, EventNewMessage))
}

func TestListMessagesPaginationReconstructsHistory(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	const total = 25
	for i := 1; i <= total; i++ {
		_, err := svc.SendMessage(chat.ID, alice.ID, fmt.Sprintf("msg-%d", i), "")
		require.NoError(t, err)
	}

	const limit = 10
	page0, err := svc.ListMessages(chat.ID, bob.ID, 0, limit)
	require.NoError(t, err)
	require.Len(t, page0.Messages, limit)
	assert.True(t, page0.HasMore)
	assert.EqualValues(t, total, page0.TotalCount)
	// Within a page, messages run oldest to newest.
	assert.Equal(t, "msg-16", *page0.Messages[0].Content)
	assert.Equal(t, "msg-25", *page0.Messages[limit-1].Content)

	page1, err := svc.ListMessages(chat.ID, bob.ID, 1, limit)
	require.NoError(t, err)
	require.Len(t, page1.Messages, limit)
	assert.True(t, page1.HasMore)

	page2, err := svc.ListMessages(chat.ID, bob.ID, 2, limit)
	require.NoError(t, err)
	require.Len(t, page2.Messages, 5)
	assert.False(t, page2.HasMore)

	// Prepending each older page rebuilds the full history with no gaps.
	var history []models.Message
	history = append(history, page2.Messages...)
	history = append(history, page1.Messages...)
	history = append(history, page0.Messages...)
	require.Len(t, history, total)
	for i, m := range history {
		assert.Equal(t, fmt.Sprintf("msg-%d", i+1), *m.Content)
	}
}

func TestListMessagesRequiresParticipant(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	eve := createTestUser(t, db, "eve")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.ListMessages(chat.ID, eve.ID, 0, 10)
	assert.ErrorIs(t, err, ErrNotParticipant)

	_, err = svc.ListMessagesBefore(chat.ID, eve.ID, 100, 10)
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestListMessagesBeforeCursor(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	var ids []uint
	for i := 1; i <= 12; i++ {
		msg, err := svc.SendMessage(chat.ID, alice.ID, fmt.Sprintf("msg-%d", i), "")
		require.NoError(t, err)
		ids = append(ids, msg.ID)
	}

	// Everything strictly older than msg-6, newest window first.
	older, err := svc.ListMessagesBefore(chat.ID, bob.ID, ids[5], 3)
	require.NoError(t, err)
	require.Len(t, older, 3)
	assert.Equal(t, "msg-3", *older[0].Content)
	assert.Equal(t, "msg-5", *older[2].Content)

	// The cursor does not drift when new messages arrive.
	_, err = svc.SendMessage(chat.ID, bob.ID, "late arrival", "")
	require.NoError(t, err)
	again, err := svc.ListMessagesBefore(chat.ID, bob.ID, ids[5], 3)
	require.NoError(t, err)
	require.Len(t, again, 3)
	assert.Equal(t, "msg-3", *again[0].Content)
}

func TestUnreadFlow(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	_, err = svc.SendMessage(chat.ID, alice.ID, "hi", "")
	require.NoError(t, err)

	// The sender stays read; the receiver flips to unread.
	aliceUnread, err := svc.UnreadChatCount(alice.ID)
	require.NoError(t, err)
	assert.Zero(t, aliceUnread)

	bobUnread, err := svc.UnreadChatCount(bob.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, bobUnread)

	require.NoError(t, svc.MarkRead(chat.ID, bob.ID))
	bobUnread, err = svc.UnreadChatCount(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, bobUnread)
}

func TestDeleteMessagePermissions(t *testing.T) {
	pusher := &fakePusher{}
	svc, db := newTestChatService(t, pusher)
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	chat, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)

	msg, err := svc.SendMessage(chat.ID, alice.ID, "oops", "")
	require.NoError(t, err)

	// Only the sender may delete.
	assert.ErrorIs(t, svc.DeleteMessage(msg.ID, bob.ID), ErrNotSender)
	require.NoError(t, svc.DeleteMessage(msg.ID, alice.ID))

	var count int64
	require.NoError(t, db.Model(&models.Message{}).Where("id = ?", msg.ID).Count(&count).Error)
	assert.Zero(t, count)

	// Both participants hear about the deletion, the sender included.
	for _, userID := range []uint{alice.ID, bob.ID} {
		pushes := pusher.eventsFor(userID, EventMessageDeleted)
		require.Len(t, pushes, 1, "user %d", userID)
		event, ok := pushes[0].Payload.(models.MessageDeletedEvent)
		require.True(t, ok)
		assert.Equal(t, msg.ID, event.MessageID)
		assert.Equal(t, chat.ID, event.ChatID)
	}

	assert.Error(t, svc.DeleteMessage(msg.ID, alice.ID))
}

func TestGetChatsOrderedByActivity(t *testing.T) {
	svc, db := newTestChatService(t, &fakePusher{})
	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	carol := createTestUser(t, db, "carol")

	withBob, err := svc.StartChat(alice.ID, bob.ID)
	require.NoError(t, err)
	withCarol, err := svc.StartChat(alice.ID, carol.ID)
	require.NoError(t, err)

	chats, err := svc.GetChats(alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)

	// Activity in the older chat moves it to the front.
	_, err = svc.SendMessage(withBob.ID, bob.ID, "ping", "")
	require.NoError(t, err)

	chats, err = svc.GetChats(alice.ID)
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, withBob.ID, chats[0].ID)
	assert.Equal(t, withCarol.ID, chats[1].ID)

	// Carol only sees her own chat.
	chats, err = svc.GetChats(carol.ID)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, withCarol.ID, chats[0].ID)
}
