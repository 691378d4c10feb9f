package client

import (
	"context"
	"sync"
	"time"
)

// Notification mirrors the server's notification wire shape.
type Notification struct {
	ID           uint      `json:"id"`
	Type         string    `json:"type"`
	Message      string    `json:"message"`
	IsRead       bool      `json:"isRead"`
	SenderID     uint      `json:"senderId"`
	SenderName   string    `json:"senderName"`
	SenderAvatar string    `json:"senderAvatar,omitempty"`
	ReceiverID   uint      `json:"receiverId"`
	PostID       *string   `json:"postId,omitempty"`
	CommentID    *uint     `json:"commentId,omitempty"`
	Link         string    `json:"link,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NotificationAPI is the server surface the feed talks to.
type NotificationAPI interface {
	ListNotifications(ctx context.Context) ([]Notification, error)
	MarkNotificationRead(ctx context.Context, id uint) error
	MarkAllNotificationsRead(ctx context.Context) error
	DeleteNotification(ctx context.Context, id uint) error
	DeleteAllNotifications(ctx context.Context) error
}

// defaultRefreshInterval is the reconciliation period covering pushes
// missed across reconnect gaps.
const defaultRefreshInterval = 60 * time.Second

// NotificationFeed is the session's single source of truth for the
// notification list and unread badge. Pushes update it without a round
// trip; a periodic full re-fetch reconciles anything missed.
type NotificationFeed struct {
	api             NotificationAPI
	refreshInterval time.Duration

	mu            sync.Mutex
	notifications []Notification
	unread        int
	stop          chan struct{}
	stopOnce      sync.Once
}

// NewNotificationFeed constructs a feed over the given API.
func NewNotificationFeed(a NotificationAPI) *NotificationFeed {
	return &NotificationFeed{
		api:             a,
		refreshInterval: defaultRefreshInterval,
		stop:            make(chan struct{}),
	}
}

// Load fetches the full list and recomputes the unread count. Called once
// when the identity becomes available, and again by the refresh loop.
func (f *NotificationFeed) Load(ctx context.Context) error {
	list, err := f.api.ListNotifications(ctx)
	if err != nil {
		return err
	}

	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}

	f.mu.Lock()
	f.notifications = list
	f.unread = unread
	f.mu.Unlock()
	return nil
}

// Start runs the periodic reconciliation loop until Stop is called.
// Refresh failures are ignored; the next tick tries again.
func (f *NotificationFeed) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.refreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-f.stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = f.Load(ctx)
			}
		}
	}()
}

// Stop ends the reconciliation loop. Safe to call more than once.
func (f *NotificationFeed) Stop() {
	f.stopOnce.Do(func() { close(f.stop) })
}

// HandlePush prepends a pushed notification and bumps the badge without a
// server round-trip.
func (f *NotificationFeed) HandlePush(n Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append([]Notification{n}, f.notifications...)
	if !n.IsRead {
		f.unread++
	}
}

// Notifications returns a copy of the current list, newest first.
func (f *NotificationFeed) Notifications() []Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Notification, len(f.notifications))
	copy(out, f.notifications)
	return out
}

// UnreadCount returns the current badge value.
func (f *NotificationFeed) UnreadCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unread
}

// MarkAsRead applies the read flag locally first, then tells the server.
// A failed call leaves the local state as-is; the next reconciliation
// re-fetch restores the truth.
func (f *NotificationFeed) MarkAsRead(ctx context.Context, id uint) error {
	f.mu.Lock()
	for i := range f.notifications {
		if f.notifications[i].ID == id && !f.notifications[i].IsRead {
			f.notifications[i].IsRead = true
			f.unread--
			break
		}
	}
	f.mu.Unlock()

	return f.api.MarkNotificationRead(ctx, id)
}

// MarkAllAsRead clears the badge locally first, then tells the server.
func (f *NotificationFeed) MarkAllAsRead(ctx context.Context) error {
	f.mu.Lock()
	for i := range f.notifications {
		f.notifications[i].IsRead = true
	}
	f.unread = 0
	f.mu.Unlock()

	return f.api.MarkAllNotificationsRead(ctx)
}

// Delete removes a notification server-side first; the local entry only
// disappears once the server confirmed.
func (f *NotificationFeed) Delete(ctx context.Context, id uint) error {
	if err := f.api.DeleteNotification(ctx, id); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.notifications {
		if f.notifications[i].ID == id {
			if !f.notifications[i].IsRead {
				f.unread--
			}
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			break
		}
	}
	return nil
}

// DeleteAll clears everything server-side first, then locally.
func (f *NotificationFeed) DeleteAll(ctx context.Context) error {
	if err := f.api.DeleteAllNotifications(ctx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = nil
	f.unread = 0
	return nil
}
