package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSkipsOrigin(t *testing.T) {
	bus := NewBus()

	var feedGot, detailGot []BusEvent
	feed := bus.Subscribe(func(ev BusEvent) { feedGot = append(feedGot, ev) })
	bus.Subscribe(func(ev BusEvent) { detailGot = append(detailGot, ev) })

	// The feed already applied its own toggle; only the detail view hears it.
	bus.Publish(feed, LikeUpdate{TargetID: "post-1", UserID: 7, IsLiked: true, LikeCount: 4})

	assert.Empty(t, feedGot)
	require.Len(t, detailGot, 1)
	update, ok := detailGot[0].(LikeUpdate)
	require.True(t, ok)
	assert.Equal(t, "post-1", update.TargetID)
	assert.True(t, update.IsLiked)
	assert.Equal(t, 4, update.LikeCount)
}

func TestPublishWithNilOriginReachesEveryone(t *testing.T) {
	bus := NewBus()

	heard := 0
	bus.Subscribe(func(BusEvent) { heard++ })
	bus.Subscribe(func(BusEvent) { heard++ })

	// Server pushes carry no origin.
	bus.Publish(nil, DeletePost{PostID: "post-9"})
	assert.Equal(t, 2, heard)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()

	heard := 0
	sub := bus.Subscribe(func(BusEvent) { heard++ })

	bus.Publish(nil, DeletePost{PostID: "a"})
	require.Equal(t, 1, heard)

	bus.Unsubscribe(sub)
	bus.Publish(nil, DeletePost{PostID: "b"})
	assert.Equal(t, 1, heard)

	// Repeated and nil unsubscribes are harmless.
	bus.Unsubscribe(sub)
	bus.Unsubscribe(nil)
}

// A failed optimistic like is rolled back by publishing the opposite
// delta; subscribers that applied the first event converge back.
func TestCompensatingEventRevertsSiblings(t *testing.T) {
	bus := NewBus()

	likeCount := 10
	liked := false
	bus.Subscribe(func(ev BusEvent) {
		if u, ok := ev.(LikeUpdate); ok && u.TargetID == "post-1" {
			liked = u.IsLiked
			likeCount = u.LikeCount
		}
	})

	feed := bus.Subscribe(func(BusEvent) {})

	bus.Publish(feed, LikeUpdate{TargetID: "post-1", UserID: 7, IsLiked: true, LikeCount: 11})
	require.True(t, liked)
	require.Equal(t, 11, likeCount)

	// Server rejected the like; the origin publishes the revert.
	bus.Publish(feed, LikeUpdate{TargetID: "post-1", UserID: 7, IsLiked: false, LikeCount: 10})
	assert.False(t, liked)
	assert.Equal(t, 10, likeCount)
}

func TestCommentUpdateCarriesComment(t *testing.T) {
	bus := NewBus()

	var got *CommentUpdate
	bus.Subscribe(func(ev BusEvent) {
		if u, ok := ev.(CommentUpdate); ok {
			got = &u
		}
	})

	bus.Publish(nil, CommentUpdate{
		PostID: "post-3",
		Action: "add",
		Comment: &Comment{
			ID:      12,
			PostID:  "post-3",
			UserID:  5,
			Content: "nice",
		},
	})

	require.NotNil(t, got)
	assert.Equal(t, "add", got.Action)
	require.NotNil(t, got.Comment)
	assert.Equal(t, "nice", got.Comment.Content)
}
