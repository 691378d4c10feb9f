package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/loopline-app/loopline/backend/internal/models"
	"github.com/loopline-app/loopline/backend/internal/repositories"
)

func newTestNotifier(t *testing.T, pusher *fakePusher) (*Notifier, *testNotifierDeps) {
	t.Helper()
	db := setupTestDB(t)
	deps := &testNotifierDeps{
		db:               db,
		notificationRepo: repositories.NewPostgresNotificationRepository(db),
		userRepo:         repositories.NewPostgresUserRepository(db),
		followRepo:       repositories.NewPostgresFollowRepository(db),
	}
	n := NewNotifier(deps.notificationRepo, deps.userRepo, deps.followRepo, pusher)
	return n, deps
}

type testNotifierDeps struct {
	db               *gorm.DB
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	followRepo       repositories.FollowRepository
}

func TestNotifyLikePersistsAndPushes(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	alice := createTestUser(t, deps.db, "alice")
	bob := createTestUser(t, deps.db, "bob")

	require.NoError(t, n.NotifyLike(alice.ID, bob.ID, "post-123"))

	rows, total, err := deps.notificationRepo.GetByReceiverID(bob.ID, 1, 10)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationTypeLike, rows[0].Type)
	assert.Equal(t, alice.ID, rows[0].SenderID)
	assert.Equal(t, "alice", rows[0].SenderName)
	assert.Equal(t, "/posts/post-123", rows[0].Link)
	assert.False(t, rows[0].IsRead)

	pushes := pusher.eventsFor(bob.ID, EventNotification)
	require.Len(t, pushes, 1)
	payload, ok := pushes[0].Payload.(models.NotificationPayload)
	require.True(t, ok)
	assert.Equal(t, rows[0].ID, payload.ID)
	assert.Equal(t, "alice liked your post", payload.Message)
}

func TestSelfNotificationIsNoop(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	alice := createTestUser(t, deps.db, "alice")

	require.NoError(t, n.NotifyLike(alice.ID, alice.ID, "post-1"))
	require.NoError(t, n.NotifyFollow(alice.ID, alice.ID))
	require.NoError(t, n.NotifyBirthdayWish(alice.ID, alice.ID))

	_, total, err := deps.notificationRepo.GetByReceiverID(alice.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, pusher.all())
}

func TestNotifyCommentCarriesCommentID(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	alice := createTestUser(t, deps.db, "alice")
	bob := createTestUser(t, deps.db, "bob")

	require.NoError(t, n.NotifyComment(alice.ID, bob.ID, "post-9", 42))

	rows, _, err := deps.notificationRepo.GetByReceiverID(bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].CommentID)
	assert.EqualValues(t, 42, *rows[0].CommentID)
	require.NotNil(t, rows[0].PostID)
	assert.Equal(t, "post-9", *rows[0].PostID)
}

func TestNotifyFollowLinksToSenderProfile(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	alice := createTestUser(t, deps.db, "alice")
	bob := createTestUser(t, deps.db, "bob")

	require.NoError(t, n.NotifyFollow(alice.ID, bob.ID))

	rows, _, err := deps.notificationRepo.GetByReceiverID(bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.NotificationTypeFollow, rows[0].Type)
	assert.Equal(t, fmt.Sprintf("/users/%d", alice.ID), rows[0].Link)
	assert.Nil(t, rows[0].PostID)
}

func TestNotifyLikeUnknownSenderFails(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	bob := createTestUser(t, deps.db, "bob")

	err := n.NotifyLike(9999, bob.ID, "post-1")
	require.Error(t, err)
	assert.Empty(t, pusher.all())
}

func TestNotifyNewPostFansOutToEveryFollower(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	author := createTestUser(t, deps.db, "author")
	followers := make([]*models.User, 0, 3)
	for _, name := range []string{"f1", "f2", "f3"} {
		f := createTestUser(t, deps.db, name)
		require.NoError(t, deps.followRepo.CreateFollow(&models.Follow{
			FollowerID:  f.ID,
			FollowingID: author.ID,
		}))
		followers = append(followers, f)
	}

	require.NoError(t, n.NotifyNewPost(author.ID, "post-77"))

	for _, f := range followers {
		rows, total, err := deps.notificationRepo.GetByReceiverID(f.ID, 1, 10)
		require.NoError(t, err)
		require.EqualValues(t, 1, total, "follower %d", f.ID)
		assert.Equal(t, models.NotificationTypePost, rows[0].Type)
		assert.Equal(t, "author shared a new post", rows[0].Message)
		assert.Len(t, pusher.eventsFor(f.ID, EventNotification), 1)
	}

	// The author receives nothing for their own post.
	_, total, err := deps.notificationRepo.GetByReceiverID(author.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestNotifyNewPostNoFollowersIsNoop(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	author := createTestUser(t, deps.db, "author")

	require.NoError(t, n.NotifyNewPost(author.ID, "post-1"))
	assert.Empty(t, pusher.all())
}

// failingNotificationRepo fails persistence for one receiver and delegates
// everything else.
type failingNotificationRepo struct {
	repositories.NotificationRepository
	failFor uint
}

func (r *failingNotificationRepo) CreateNotification(notification *models.Notification) error {
	if notification.ReceiverID == r.failFor {
		return fmt.Errorf("store unavailable")
	}
	return r.NotificationRepository.CreateNotification(notification)
}

func TestNotifyNewPostPartialFailureDoesNotReduceOthers(t *testing.T) {
	pusher := &fakePusher{}
	db := setupTestDB(t)
	notifRepo := repositories.NewPostgresNotificationRepository(db)
	userRepo := repositories.NewPostgresUserRepository(db)
	followRepo := repositories.NewPostgresFollowRepository(db)

	author := createTestUser(t, db, "author")
	healthy := createTestUser(t, db, "healthy")
	broken := createTestUser(t, db, "broken")
	for _, f := range []*models.User{healthy, broken} {
		require.NoError(t, followRepo.CreateFollow(&models.Follow{
			FollowerID:  f.ID,
			FollowingID: author.ID,
		}))
	}

	n := NewNotifier(&failingNotificationRepo{
		NotificationRepository: notifRepo,
		failFor:                broken.ID,
	}, userRepo, followRepo, pusher)

	require.NoError(t, n.NotifyNewPost(author.ID, "post-5"))

	_, healthyTotal, err := notifRepo.GetByReceiverID(healthy.ID, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, healthyTotal)

	_, brokenTotal, err := notifRepo.GetByReceiverID(broken.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, brokenTotal)
	assert.Empty(t, pusher.eventsFor(broken.ID, EventNotification))
}

func TestNotificationReceiverScoping(t *testing.T) {
	pusher := &fakePusher{}
	n, deps := newTestNotifier(t, pusher)

	alice := createTestUser(t, deps.db, "alice")
	bob := createTestUser(t, deps.db, "bob")
	eve := createTestUser(t, deps.db, "eve")

	require.NoError(t, n.NotifyLike(alice.ID, bob.ID, "post-1"))
	rows, _, err := deps.notificationRepo.GetByReceiverID(bob.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Eve cannot mark or delete Bob's notification.
	assert.Error(t, deps.notificationRepo.MarkAsRead(eve.ID, rows[0].ID))
	assert.Error(t, deps.notificationRepo.DeleteNotification(eve.ID, rows[0].ID))

	// Bob can.
	require.NoError(t, deps.notificationRepo.MarkAsRead(bob.ID, rows[0].ID))
	count, err := deps.notificationRepo.GetUnreadCount(bob.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
