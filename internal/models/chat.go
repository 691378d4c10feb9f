package models

import (
	"fmt"
	"time"
)

// Chat represents a direct-message thread between two users.
// PairKey is the canonical "low:high" encoding of the two participant ids;
// its unique index is what keeps concurrent StartChat calls from creating
// two threads for the same pair.
type Chat struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	PairKey   string    `json:"-" gorm:"size:50;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at" gorm:"index"` // bumped on every new message
}

// ChatPairKey returns the canonical pair key for two user ids.
func ChatPairKey(a, b uint) string {
	if a > b {
		a, b = b, a
	}
	return fmt.Sprintf("%d:%d", a, b)
}

// ChatParticipant is the per-user membership row of a chat. IsRead is a
// binary read cursor: false means unseen messages exist in the chat.
type ChatParticipant struct {
	ID     uint `json:"id" gorm:"primaryKey"`
	ChatID uint `json:"chat_id" gorm:"index;uniqueIndex:idx_chat_user"`
	UserID uint `json:"user_id" gorm:"index;uniqueIndex:idx_chat_user"`
	IsRead bool `json:"is_read" gorm:"default:true"`
}

// StartChatRequest defines the request body for opening a chat
type StartChatRequest struct {
	OtherUserID uint `json:"other_user_id" validate:"required"`
}
