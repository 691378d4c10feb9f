package services

import (
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/loopline-app/loopline/backend/internal/hub"
	"github.com/loopline-app/loopline/backend/internal/models"
	"github.com/loopline-app/loopline/backend/internal/repositories"
	"github.com/loopline-app/loopline/backend/pkg/logger"
)

var (
	// ErrSelfChat is returned when a user tries to open a chat with themselves.
	ErrSelfChat = errors.New("cannot start a chat with yourself")
	// ErrNotParticipant is returned when the requester does not belong to the chat.
	ErrNotParticipant = errors.New("not a participant of this chat")
	// ErrNotSender is returned when someone other than the sender tries to delete a message.
	ErrNotSender = errors.New("only the sender can delete this message")
	// ErrEmptyMessage is returned when a message carries neither text nor an image.
	ErrEmptyMessage = errors.New("message requires content or an image")
)

// ChatService is the messaging store: chat creation, paginated history,
// read-state tracking, and the new_message / message_deleted pushes.
type ChatService struct {
	chatRepo    repositories.ChatRepository
	messageRepo repositories.MessageRepository
	pusher      hub.Pusher
	log         *logrus.Logger
}

// NewChatService creates a new ChatService
func NewChatService(chatRepo repositories.ChatRepository, messageRepo repositories.MessageRepository, pusher hub.Pusher) *ChatService {
	if pusher == nil {
		pusher = hub.Nop()
	}
	return &ChatService{
		chatRepo:    chatRepo,
		messageRepo: messageRepo,
		pusher:      pusher,
		log:         logger.Log,
	}
}

// StartChat returns the chat between the two users, creating it on first
// contact. Idempotent, including under concurrent calls for the same pair.
func (s *ChatService) StartChat(selfID, otherID uint) (*models.Chat, error) {
	if selfID == otherID {
		return nil, ErrSelfChat
	}
	chat, _, err := s.chatRepo.GetOrCreateDirectChat(selfID, otherID)
	return chat, err
}

// GetChats lists the requester's chats, most recently active first.
func (s *ChatService) GetChats(userID uint) ([]models.Chat, error) {
	return s.chatRepo.GetChatsForUser(userID)
}

// ListMessages returns one page of chat history for a participant. Page 0
// is the newest page; older pages are meant to be prepended client-side.
func (s *ChatService) ListMessages(chatID, userID uint, page, limit int) (*models.MessagePage, error) {
	if err := s.requireParticipant(chatID, userID); err != nil {
		return nil, err
	}

	messages, total, err := s.messageRepo.GetPage(chatID, page, limit)
	if err != nil {
		return nil, err
	}
	return &models.MessagePage{
		Messages:   messages,
		HasMore:    int64((page+1)*limit) < total,
		TotalCount: total,
	}, nil
}

// ListMessagesBefore returns up to limit messages older than the given
// message id. The id boundary does not drift when new messages arrive
// mid-session, unlike a page offset.
func (s *ChatService) ListMessagesBefore(chatID, userID, beforeID uint, limit int) ([]models.Message, error) {
	if err := s.requireParticipant(chatID, userID); err != nil {
		return nil, err
	}
	return s.messageRepo.GetBefore(chatID, beforeID, limit)
}

// SendMessage persists a message, bumps the chat's activity timestamp,
// flips the other participants' read cursors, and pushes new_message to
// each of them. The push is best-effort; the persisted row is the source
// of truth.
func (s *ChatService) SendMessage(chatID, senderID uint, content, img string) (*models.Message, error) {
	if content == "" && img == "" {
		return nil, ErrEmptyMessage
	}
	if err := s.requireParticipant(chatID, senderID); err != nil {
		return nil, err
	}

	message := &models.Message{ChatID: chatID, SenderID: senderID}
	if content != "" {
		message.Content = &content
	}
	if img != "" {
		message.Img = &img
	}

	if err := s.messageRepo.CreateMessage(message); err != nil {
		return nil, err
	}
	if err := s.chatRepo.TouchChat(chatID); err != nil {
		s.log.WithField("chat", chatID).WithError(err).Warn("failed to bump chat activity")
	}
	if err := s.chatRepo.MarkUnreadForOthers(chatID, senderID); err != nil {
		s.log.WithField("chat", chatID).WithError(err).Warn("failed to flip read cursors")
	}

	event := models.NewMessageEvent{
		ChatID: chatID,
		Message: models.MessagePayload{
			ID:        message.ID,
			Content:   message.Content,
			Img:       message.Img,
			SenderID:  message.SenderID,
			CreatedAt: message.CreatedAt,
		},
	}
	s.forEachOtherParticipant(chatID, senderID, func(userID uint) {
		s.pusher.EmitToUser(userID, EventNewMessage, event)
	})
	return message, nil
}

// DeleteMessage hard-deletes a message on behalf of its sender and pushes
// message_deleted to every current participant.
func (s *ChatService) DeleteMessage(messageID, requesterID uint) error {
	message, err := s.messageRepo.GetMessageByID(messageID)
	if err != nil {
		return err
	}
	if message.SenderID != requesterID {
		return ErrNotSender
	}
	if err := s.messageRepo.DeleteMessage(messageID); err != nil {
		return err
	}

	// Every participant gets the push, the requester included, so their
	// other devices converge too.
	event := models.MessageDeletedEvent{ChatID: message.ChatID, MessageID: messageID}
	s.forEachParticipant(message.ChatID, func(userID uint) {
		s.pusher.EmitToUser(userID, EventMessageDeleted, event)
	})
	return nil
}

// MarkRead records that the participant has opened the chat.
func (s *ChatService) MarkRead(chatID, userID uint) error {
	return s.chatRepo.MarkRead(chatID, userID)
}

// UnreadChatCount counts the requester's chats holding unseen messages.
func (s *ChatService) UnreadChatCount(userID uint) (int64, error) {
	return s.chatRepo.UnreadChatCount(userID)
}

func (s *ChatService) requireParticipant(chatID, userID uint) error {
	ok, err := s.chatRepo.IsParticipant(chatID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotParticipant
	}
	return nil
}

func (s *ChatService) forEachParticipant(chatID uint, fn func(userID uint)) {
	participants, err := s.chatRepo.GetParticipants(chatID)
	if err != nil {
		s.log.WithField("chat", chatID).WithError(err).Warn("failed to load participants for push")
		return
	}
	for _, p := range participants {
		fn(p.UserID)
	}
}

func (s *ChatService) forEachOtherParticipant(chatID, selfID uint, fn func(userID uint)) {
	s.forEachParticipant(chatID, func(userID uint) {
		if userID != selfID {
			fn(userID)
		}
	})
}
