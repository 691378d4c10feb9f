package client

import (
	"sync"

	"github.com/google/uuid"
)

// BusEvent is the closed set of cross-surface mutation announcements.
// Surfaces holding local copies of the same counters apply these deltas so
// siblings stay consistent without a shared store.
type BusEvent interface {
	busEvent()
}

// LikeUpdate announces a like/unlike toggle on a post or comment.
type LikeUpdate struct {
	TargetID  string
	UserID    uint
	IsLiked   bool
	LikeCount int
}

// CommentUpdate announces an added or deleted comment on a post.
type CommentUpdate struct {
	PostID  string
	Action  string // "add" or "delete"
	Comment *Comment
}

// DeletePost announces that a post is gone everywhere.
type DeletePost struct {
	PostID string
}

// PostUpdate announces edited post content.
type PostUpdate struct {
	PostID      string
	UpdatedPost interface{}
}

func (LikeUpdate) busEvent()    {}
func (CommentUpdate) busEvent() {}
func (DeletePost) busEvent()    {}
func (PostUpdate) busEvent()    {}

// Comment is the bus-level comment shape carried by CommentUpdate.
type Comment struct {
	ID      uint
	PostID  string
	UserID  uint
	Content string
}

// Subscription identifies one surface on the bus. Its id doubles as the
// origin key: events a surface publishes itself are never echoed back to
// it, so an already-applied optimistic mutation cannot double-count.
type Subscription struct {
	id string
	fn func(BusEvent)
}

// Bus is an in-process publish/subscribe channel between independent UI
// surfaces. Publishing is synchronous; handlers must be fast.
type Bus struct {
	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewBus constructs an empty Bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[string]*Subscription)}
}

// Subscribe registers a handler and returns its subscription, used both to
// publish (as origin) and to unsubscribe.
func (b *Bus) Subscribe(fn func(BusEvent)) *Subscription {
	s := &Subscription{id: uuid.New().String(), fn: fn}
	b.mu.Lock()
	b.subs[s.id] = s
	b.mu.Unlock()
	return s
}

// Unsubscribe removes a subscription. Safe to call more than once.
func (b *Bus) Unsubscribe(s *Subscription) {
	if s == nil {
		return
	}
	b.mu.Lock()
	delete(b.subs, s.id)
	b.mu.Unlock()
}

// Publish delivers the event to every subscriber except the originating
// one. Pass nil as origin for events that did not come from a surface on
// this bus (e.g. a server push).
func (b *Bus) Publish(origin *Subscription, ev BusEvent) {
	b.mu.RLock()
	targets := make([]*Subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if origin != nil && s.id == origin.id {
			continue
		}
		targets = append(targets, s)
	}
	b.mu.RUnlock()

	for _, s := range targets {
		s.fn(ev)
	}
}
