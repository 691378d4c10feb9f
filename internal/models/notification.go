package models

import "time"

// Notification types emitted by the fan-out service
const (
	NotificationTypeLike        = "like"
	NotificationTypeComment     = "comment"
	NotificationTypeCommentLike = "comment_like"
	NotificationTypeFollow      = "follow"
	NotificationTypePost        = "post"
	NotificationTypeBirthday    = "birthday"
)

// Notification represents a persisted user notification (PostgreSQL).
// SenderName is denormalized at creation time so historical rows stay
// stable if the sender later renames themselves.
type Notification struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	Type       string    `json:"type" gorm:"size:30;index"`
	Message    string    `json:"message"`
	Link       string    `json:"link,omitempty"`
	IsRead     bool      `json:"is_read" gorm:"default:false;index"`
	SenderID   uint      `json:"sender_id" gorm:"index"`
	SenderName string    `json:"sender_name"`
	ReceiverID uint      `json:"receiver_id" gorm:"index"`
	PostID     *string   `json:"post_id,omitempty"`
	CommentID  *uint     `json:"comment_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

// NotificationPayload is the wire shape pushed over the hub as a
// "notification" event.
type NotificationPayload struct {
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
