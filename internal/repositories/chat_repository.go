package repositories

import (
	"errors"
	"time"

	"github.com/loopline-app/loopline/backend/internal/models"
	"gorm.io/gorm"
)

// ChatRepository defines the interface for chat and read-state operations
type ChatRepository interface {
	GetOrCreateDirectChat(a, b uint) (*models.Chat, bool, error)
	GetChatByID(chatID uint) (*models.Chat, error)
	GetChatsForUser(userID uint) ([]models.Chat, error)
	GetParticipants(chatID uint) ([]models.ChatParticipant, error)
	IsParticipant(chatID, userID uint) (bool, error)
	TouchChat(chatID uint) error
	MarkUnreadForOthers(chatID, senderID uint) error
	MarkRead(chatID, userID uint) error
	UnreadChatCount(userID uint) (int64, error)
}

// PostgresChatRepository implements ChatRepository for PostgreSQL
type PostgresChatRepository struct {
	db *gorm.DB
}

// NewPostgresChatRepository creates a new PostgresChatRepository
func NewPostgresChatRepository(db *gorm.DB) *PostgresChatRepository {
	return &PostgresChatRepository{db: db}
}

// GetOrCreateDirectChat returns the chat holding exactly {a, b}, creating it
// together with its two participant rows when absent. The unique index on
// PairKey arbitrates concurrent calls for the same pair: the loser of the
// race gets a constraint violation and re-reads the winner's row, so two
// simultaneous calls always converge on one chat. The bool reports whether
// a new chat was created.
func (r *PostgresChatRepository) GetOrCreateDirectChat(a, b uint) (*models.Chat, bool, error) {
	key := models.ChatPairKey(a, b)

	var chat models.Chat
	err := r.db.Where("pair_key = ?", key).First(&chat).Error
	if err == nil {
		return &chat, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	chat = models.Chat{PairKey: key}
	err = r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&chat).Error; err != nil {
			return err
		}
		participants := []models.ChatParticipant{
			{ChatID: chat.ID, UserID: a, IsRead: true},
			{ChatID: chat.ID, UserID: b, IsRead: true},
		}
		return tx.Create(&participants).Error
	})
	if err != nil {
		// Lost the race on the pair key; the other caller's chat exists now.
		var existing models.Chat
		if lookupErr := r.db.Where("pair_key = ?", key).First(&existing).Error; lookupErr == nil {
			return &existing, false, nil
		}
		return nil, false, err
	}
	return &chat, true, nil
}

// GetChatByID retrieves a chat by its ID
func (r *PostgresChatRepository) GetChatByID(chatID uint) (*models.Chat, error) {
	var chat models.Chat
	if err := r.db.First(&chat, chatID).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetChatsForUser lists the chats a user participates in, most recently
// active first
func (r *PostgresChatRepository) GetChatsForUser(userID uint) ([]models.Chat, error) {
	var chats []models.Chat
	err := r.db.Where("id IN (?)",
		r.db.Model(&models.ChatParticipant{}).Select("chat_id").Where("user_id = ?", userID),
	).Order("updated_at DESC").Find(&chats).Error
	return chats, err
}

// GetParticipants lists the participant rows of a chat
func (r *PostgresChatRepository) GetParticipants(chatID uint) ([]models.ChatParticipant, error) {
	var participants []models.ChatParticipant
	err := r.db.Where("chat_id = ?", chatID).Find(&participants).Error
	return participants, err
}

// IsParticipant checks whether a user belongs to a chat
func (r *PostgresChatRepository) IsParticipant(chatID, userID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).Count(&count).Error
	return count > 0, err
}

// TouchChat bumps the chat's updated_at to now
func (r *PostgresChatRepository) TouchChat(chatID uint) error {
	return r.db.Model(&models.Chat{}).Where("id = ?", chatID).
		Update("updated_at", time.Now()).Error
}

// MarkUnreadForOthers flips IsRead to false for every participant except
// the sender
func (r *PostgresChatRepository) MarkUnreadForOthers(chatID, senderID uint) error {
	return r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id <> ?", chatID, senderID).
		Update("is_read", false).Error
}

// MarkRead flips IsRead to true for the given participant
func (r *PostgresChatRepository) MarkRead(chatID, userID uint) error {
	res := r.db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// UnreadChatCount counts the chats holding unseen messages for a user
func (r *PostgresChatRepository) UnreadChatCount(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.ChatParticipant{}).
		Where("user_id = ? AND is_read = false", userID).Count(&count).Error
	return count, err
}
