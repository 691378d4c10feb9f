package client

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message mirrors the server's message shape, extended with client-only
// fields for optimistic entries awaiting confirmation.
type Message struct {
	ID        uint      `json:"id"`
	ChatID    uint      `json:"chat_id"`
	SenderID  uint      `json:"sender_id"`
	Content   string    `json:"content,omitempty"`
	Img       string    `json:"img,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	// TempID is set while the message is an unconfirmed optimistic entry.
	TempID  string `json:"-"`
	Pending bool   `json:"-"`
}

// MessagePage is one server page of chat history.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	HasMore    bool      `json:"has_more"`
	TotalCount int64     `json:"total_count"`
}

// NewMessagePush is the payload of a "new_message" hub event.
type NewMessagePush struct {
	ChatID  uint    `json:"chatId"`
	Message Message `json:"message"`
}

// MessageDeletedPush is the payload of a "message_deleted" hub event.
type MessageDeletedPush struct {
	ChatID    uint `json:"chatId"`
	MessageID uint `json:"messageId"`
}

// ChatAPI is the server surface a chat session talks to.
type ChatAPI interface {
	ListMessages(ctx context.Context, chatID uint, page, limit int) (MessagePage, error)
	SendMessage(ctx context.Context, chatID uint, content, img string) (Message, error)
	DeleteMessage(ctx context.Context, messageID uint) error
	MarkChatRead(ctx context.Context, chatID uint) error
}

// SessionState is the lifecycle of an open chat surface.
type SessionState int

const (
	StateLoading SessionState = iota
	StateReady
	StateLoadingMore
)

// ChatSession holds one open chat's message list and drives pagination,
// optimistic sends and deletes, and push reconciliation. All methods are
// safe for concurrent use; the UI reads snapshots via Messages.
type ChatSession struct {
	api      ChatAPI
	chatID   uint
	selfID   uint
	pageSize int

	mu        sync.Mutex
	state     SessionState
	messages  []Message // chronological, oldest first
	page      int       // last loaded page index (0 = newest)
	hasMore   bool
	sending   int
	lastError string
}

// OpenChat fetches the newest page and marks the chat read.
func OpenChat(ctx context.Context, api ChatAPI, chatID, selfID uint, pageSize int) (*ChatSession, error) {
	if pageSize < 1 {
		pageSize = 30
	}
	s := &ChatSession{
		api:      api,
		chatID:   chatID,
		selfID:   selfID,
		pageSize: pageSize,
		state:    StateLoading,
	}

	page, err := api.ListMessages(ctx, chatID, 0, pageSize)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.messages = page.Messages
	s.hasMore = page.HasMore
	s.state = StateReady
	s.mu.Unlock()

	// Opening the chat consumes the unread marker.
	_ = api.MarkChatRead(ctx, chatID)
	return s, nil
}

// LoadOlder fetches the next older page and prepends it. Driven by the
// top-of-list sentinel; a no-op while another load runs or when the full
// history is present.
func (s *ChatSession) LoadOlder(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady || !s.hasMore {
		s.mu.Unlock()
		return nil
	}
	s.state = StateLoadingMore
	next := s.page + 1
	s.mu.Unlock()

	page, err := s.api.ListMessages(ctx, s.chatID, next, s.pageSize)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateReady
	if err != nil {
		return err
	}
	s.messages = append(page.Messages, s.messages...)
	s.page = next
	s.hasMore = page.HasMore
	return nil
}

// Send appends an optimistic placeholder immediately (including image-only
// sends, so a preview can show before upload completes), then replaces it
// in place with the confirmed record. On failure the placeholder is
// removed and the error is surfaced inline.
func (s *ChatSession) Send(ctx context.Context, content, img string) error {
	temp := Message{
		ChatID:    s.chatID,
		SenderID:  s.selfID,
		Content:   content,
		Img:       img,
		CreatedAt: time.Now(),
		TempID:    uuid.New().String(),
		Pending:   true,
	}

	s.mu.Lock()
	s.messages = append(s.messages, temp)
	s.sending++
	s.lastError = ""
	s.mu.Unlock()

	confirmed, err := s.api.SendMessage(ctx, s.chatID, content, img)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sending--
	for i := range s.messages {
		if s.messages[i].TempID != temp.TempID {
			continue
		}
		if err != nil {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			s.lastError = "message could not be sent"
			break
		}
		s.messages[i] = confirmed
		break
	}
	return err
}

// Delete removes the message locally first. If the server rejects the
// delete, the loaded pages are re-fetched wholesale to restore state.
func (s *ChatSession) Delete(ctx context.Context, messageID uint) error {
	s.mu.Lock()
	for i := range s.messages {
		if s.messages[i].ID == messageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			break
		}
	}
	s.mu.Unlock()

	err := s.api.DeleteMessage(ctx, messageID)
	if err != nil {
		s.refetch(ctx)
	}
	return err
}

// refetch rebuilds the loaded window from the server, page by page.
func (s *ChatSession) refetch(ctx context.Context) {
	s.mu.Lock()
	loaded := s.page
	s.mu.Unlock()

	var rebuilt []Message
	hasMore := false
	for p := loaded; p >= 0; p-- {
		page, err := s.api.ListMessages(ctx, s.chatID, p, s.pageSize)
		if err != nil {
			return
		}
		rebuilt = append(rebuilt, page.Messages...)
		if p == loaded {
			hasMore = page.HasMore
		}
	}

	s.mu.Lock()
	s.messages = rebuilt
	s.hasMore = hasMore
	s.mu.Unlock()
}

// HandleNewMessage appends a pushed message. Pushes carrying our own sends
// from another device can transiently reorder against pending optimistic
// entries; the confirmed replacement corrects that once the send returns.
func (s *ChatSession) HandleNewMessage(push NewMessagePush) {
	if push.ChatID != s.chatID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ID != 0 && m.ID == push.Message.ID {
			return // already present
		}
	}
	s.messages = append(s.messages, push.Message)
}

// HandleMessageDeleted removes a remotely deleted message.
func (s *ChatSession) HandleMessageDeleted(push MessageDeletedPush) {
	if push.ChatID != s.chatID {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.messages {
		if s.messages[i].ID == push.MessageID {
			s.messages = append(s.messages[:i], s.messages[i+1:]...)
			return
		}
	}
}

// Messages returns a snapshot of the list, oldest first.
func (s *ChatSession) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// State returns the current pagination state.
func (s *ChatSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// HasMore reports whether older pages remain.
func (s *ChatSession) HasMore() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasMore
}

// Sending reports how many sends are in flight.
func (s *ChatSession) Sending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sending
}

// LastError returns the inline error from the most recent failed send, or
// an empty string.
func (s *ChatSession) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}
