package repositories

import (
	"github.com/loopline-app/loopline/backend/internal/models"
	"gorm.io/gorm"
)

// MessageRepository defines the interface for message data operations
type MessageRepository interface {
	CreateMessage(message *models.Message) error
	GetMessageByID(id uint) (*models.Message, error)
	DeleteMessage(id uint) error
	GetPage(chatID uint, page, limit int) ([]models.Message, int64, error)
	GetBefore(chatID, beforeID uint, limit int) ([]models.Message, error)
}

// PostgresMessageRepository implements MessageRepository for PostgreSQL
type PostgresMessageRepository struct {
	db *gorm.DB
}

// NewPostgresMessageRepository creates a new PostgresMessageRepository
func NewPostgresMessageRepository(db *gorm.DB) *PostgresMessageRepository {
	return &PostgresMessageRepository{db: db}
}

// CreateMessage persists a new message
func (r *PostgresMessageRepository) CreateMessage(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetMessageByID retrieves a message by its ID
func (r *PostgresMessageRepository) GetMessageByID(id uint) (*models.Message, error) {
	var message models.Message
	if err := r.db.First(&message, id).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// DeleteMessage hard-deletes a message
func (r *PostgresMessageRepository) DeleteMessage(id uint) error {
	return r.db.Delete(&models.Message{}, id).Error
}

// GetPage returns one page of a chat's history plus the chat's total
// message count. Page 0 is the newest page; messages within the page come
// back in chronological order so clients can prepend older pages directly.
func (r *PostgresMessageRepository) GetPage(chatID uint, page, limit int) ([]models.Message, int64, error) {
	var total int64
	if err := r.db.Model(&models.Message{}).Where("chat_id = ?", chatID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var messages []models.Message
	err := r.db.Where("chat_id = ?", chatID).
		Order("created_at DESC, id DESC").
		Offset(page * limit).Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, 0, err
	}

	// Reverse the newest-first window into chronological order.
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, total, nil
}

// GetBefore returns up to limit messages strictly older than the given
// message id, in chronological order. The id boundary is stable under
// concurrent inserts, unlike a numeric offset.
func (r *PostgresMessageRepository) GetBefore(chatID, beforeID uint, limit int) ([]models.Message, error) {
	var messages []models.Message
	err := r.db.Where("chat_id = ? AND id < ?", chatID, beforeID).
		Order("id DESC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}
