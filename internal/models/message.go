package models

import "time"

// Message represents a direct message inside a chat. Immutable except for
// hard deletion; Content may be empty for image-only messages, but never
// both Content and Img at once.
type Message struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	ChatID    uint      `json:"chat_id" gorm:"index:idx_chat_created"`
	SenderID  uint      `json:"sender_id" gorm:"index"`
	Content   *string   `json:"content,omitempty"`
	Img       *string   `json:"img,omitempty"`
	CreatedAt time.Time `json:"created_at" gorm:"index:idx_chat_created"`
}

// SendMessageRequest defines the request body for sending a message.
// Content and Img are both optional at the type level; the service rejects
// requests carrying neither.
type SendMessageRequest struct {
	Content string `json:"content,omitempty" validate:"omitempty,max=2000"`
	Img     string `json:"img,omitempty" validate:"omitempty,url"`
}

// MessagePage is one page of chat history, chronological within the page.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	TotalCount int64     `json:"total_count"`
}

// MessagePayload is the wire shape of a message inside a "new_message" push.
type MessagePayload struct {
	ID        uint      `json:"id"`
	Content   *string   `json:"content,omitempty"`
	Img       *string   `json:"img,omitempty"`
	SenderID  uint      `json:"senderId"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewMessageEvent is pushed to every other chat participant on send.
type NewMessageEvent struct {
	ChatID  uint           `json:"chatId"`
	Message MessagePayload `json:"message"`
}

// MessageDeletedEvent is pushed to all chat participants on hard delete.
type MessageDeletedEvent struct {
	ChatID    uint `json:"chatId"`
	MessageID uint `json:"messageId"`
}
