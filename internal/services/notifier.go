package services

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/loopline-app/loopline/backend/internal/hub"
	"github.com/loopline-app/loopline/backend/internal/models"
	"github.com/loopline-app/loopline/backend/internal/repositories"
	"github.com/loopline-app/loopline/backend/pkg/logger"
)

// Wire event names pushed through the hub.
const (
	EventNotification   = "notification"
	EventNewMessage     = "new_message"
	EventMessageDeleted = "message_deleted"
)

// defaultFanoutWorkers bounds concurrent persist+push work during
// one-to-many fan-out. Sized to stay inside the store's connection pool.
const defaultFanoutWorkers = 8

// Notifier turns domain events into persisted notification rows plus hub
// pushes. Persistence failures surface to the caller; push failures are
// logged and swallowed, since clients reconcile by re-fetching.
type Notifier struct {
	notificationRepo repositories.NotificationRepository
	userRepo         repositories.UserRepository
	followRepo       repositories.FollowRepository
	pusher           hub.Pusher
	fanoutWorkers    int
	log              *logrus.Logger
}

// NewNotifier creates a new Notifier. Pass hub.Nop() when no live transport
// exists; receivers then rely on fetch-on-mount alone.
func NewNotifier(
	notificationRepo repositories.NotificationRepository,
	userRepo repositories.UserRepository,
	followRepo repositories.FollowRepository,
	pusher hub.Pusher,
) *Notifier {
	if pusher == nil {
		pusher = hub.Nop()
	}
	return &Notifier{
		notificationRepo: notificationRepo,
		userRepo:         userRepo,
		followRepo:       followRepo,
		pusher:           pusher,
		fanoutWorkers:    defaultFanoutWorkers,
		log:              logger.Log,
	}
}

// NotifyLike records that sender liked receiver's post. Self-likes are a
// no-op.
func (n *Notifier) NotifyLike(senderID, receiverID uint, postID string) error {
	if senderID == receiverID {
		return nil
	}
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	return n.dispatch(sender, &models.Notification{
		Type:       models.NotificationTypeLike,
		Message:    sender.DisplayName + " liked your post",
		Link:       "/posts/" + postID,
		SenderID:   senderID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
		PostID:     &postID,
	})
}

// NotifyComment records that sender commented on receiver's post.
func (n *Notifier) NotifyComment(senderID, receiverID uint, postID string, commentID uint) error {
	if senderID == receiverID {
		return nil
	}
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	return n.dispatch(sender, &models.Notification{
		Type:       models.NotificationTypeComment,
		Message:    sender.DisplayName + " commented on your post",
		Link:       "/posts/" + postID,
		SenderID:   senderID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
		PostID:     &postID,
		CommentID:  &commentID,
	})
}

// NotifyCommentLike records that sender liked receiver's comment.
func (n *Notifier) NotifyCommentLike(senderID, receiverID uint, postID string, commentID uint) error {
	if senderID == receiverID {
		return nil
	}
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	return n.dispatch(sender, &models.Notification{
		Type:       models.NotificationTypeCommentLike,
		Message:    sender.DisplayName + " liked your comment",
		Link:       "/posts/" + postID,
		SenderID:   senderID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
		PostID:     &postID,
		CommentID:  &commentID,
	})
}

// NotifyFollow records that sender started following receiver.
func (n *Notifier) NotifyFollow(senderID, receiverID uint) error {
	if senderID == receiverID {
		return nil
	}
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	return n.dispatch(sender, &models.Notification{
		Type:       models.NotificationTypeFollow,
		Message:    sender.DisplayName + " started following you",
		Link:       fmt.Sprintf("/users/%d", senderID),
		SenderID:   senderID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
	})
}

// NotifyBirthdayWish records that sender wished receiver a happy birthday.
func (n *Notifier) NotifyBirthdayWish(senderID, receiverID uint) error {
	if senderID == receiverID {
		return nil
	}
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	return n.dispatch(sender, &models.Notification{
		Type:       models.NotificationTypeBirthday,
		Message:    sender.DisplayName + " wished you a happy birthday",
		Link:       fmt.Sprintf("/users/%d", senderID),
		SenderID:   senderID,
		SenderName: sender.DisplayName,
		ReceiverID: receiverID,
	})
}

// NotifyNewPost fans a new post out to every follower of the author, one
// persisted row and one push per follower. Worker count is bounded; a
// failure for one follower is logged and the rest continue, so a partial
// push outage never reduces the persisted rows of other receivers.
func (n *Notifier) NotifyNewPost(senderID uint, postID string) error {
	sender, err := n.userRepo.GetUserByID(senderID)
	if err != nil {
		return err
	}
	followerIDs, err := n.followRepo.GetFollowerIDs(senderID)
	if err != nil {
		return err
	}
	if len(followerIDs) == 0 {
		return nil
	}

	workers := n.fanoutWorkers
	if workers > len(followerIDs) {
		workers = len(followerIDs)
	}

	jobs := make(chan uint)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for receiverID := range jobs {
				if receiverID == senderID {
					continue
				}
				err := n.dispatch(sender, &models.Notification{
					Type:       models.NotificationTypePost,
					Message:    sender.DisplayName + " shared a new post",
					Link:       "/posts/" + postID,
					SenderID:   senderID,
					SenderName: sender.DisplayName,
					ReceiverID: receiverID,
					PostID:     &postID,
				})
				if err != nil {
					n.log.WithFields(logrus.Fields{
						"sender":   senderID,
						"receiver": receiverID,
						"post":     postID,
					}).WithError(err).Warn("post fan-out: skipping receiver")
				}
			}
		}()
	}
	for _, id := range followerIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()
	return nil
}

// dispatch persists the row, then pushes the wire payload to the receiver's
// room. The push runs regardless of connectivity; an empty room is a no-op.
func (n *Notifier) dispatch(sender *models.User, notif *models.Notification) error {
	if err := n.notificationRepo.CreateNotification(notif); err != nil {
		return err
	}
	n.pusher.EmitToUser(notif.ReceiverID, EventNotification, models.NotificationPayload{
		ID:           notif.ID,
		Type:         notif.Type,
		Message:      notif.Message,
		IsRead:       notif.IsRead,
		SenderID:     notif.SenderID,
		SenderName:   notif.SenderName,
		SenderAvatar: sender.AvatarURL,
		ReceiverID:   notif.ReceiverID,
		PostID:       notif.PostID,
		CommentID:    notif.CommentID,
		Link:         notif.Link,
		CreatedAt:    notif.CreatedAt,
	})
	return nil
}
