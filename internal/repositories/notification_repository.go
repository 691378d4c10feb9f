package repositories

import (
	"github.com/loopline-app/loopline/backend/internal/models"
	"gorm.io/gorm"
)

// NotificationRepository defines the interface for notification operations.
// Every mutating method is scoped to the receiver so one user can never
// touch another user's rows.
type NotificationRepository interface {
	CreateNotification(notification *models.Notification) error
	GetByReceiverID(receiverID uint, page, limit int) ([]models.Notification, int64, error)
	GetUnreadCount(receiverID uint) (int64, error)
	MarkAsRead(receiverID, notificationID uint) error
	MarkAllAsRead(receiverID uint) error
	DeleteNotification(receiverID, notificationID uint) error
	DeleteAllNotifications(receiverID uint) error
}

type postgresNotificationRepository struct {
	db *gorm.DB
}

func NewPostgresNotificationRepository(db *gorm.DB) NotificationRepository {
	return &postgresNotificationRepository{db: db}
}

func (r *postgresNotificationRepository) CreateNotification(notification *models.Notification) error {
	return r.db.Create(notification).Error
}

func (r *postgresNotificationRepository) GetByReceiverID(receiverID uint, page, limit int) ([]models.Notification, int64, error) {
	var notifications []models.Notification
	var total int64

	r.db.Model(&models.Notification{}).Where("receiver_id = ?", receiverID).Count(&total)

	offset := (page - 1) * limit
	err := r.db.Where("receiver_id = ?", receiverID).
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&notifications).Error

	return notifications, total, err
}

func (r *postgresNotificationRepository) GetUnreadCount(receiverID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Notification{}).Where("receiver_id = ? AND is_read = false", receiverID).Count(&count).Error
	return count, err
}

func (r *postgresNotificationRepository) MarkAsRead(receiverID, notificationID uint) error {
	res := r.db.Model(&models.Notification{}).
		Where("id = ? AND receiver_id = ?", notificationID, receiverID).
		Update("is_read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) MarkAllAsRead(receiverID uint) error {
	return r.db.Model(&models.Notification{}).
		Where("receiver_id = ? AND is_read = false", receiverID).
		Update("is_read", true).Error
}

func (r *postgresNotificationRepository) DeleteNotification(receiverID, notificationID uint) error {
	res := r.db.Where("id = ? AND receiver_id = ?", notificationID, receiverID).
		Delete(&models.Notification{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *postgresNotificationRepository) DeleteAllNotifications(receiverID uint) error {
	return r.db.Where("receiver_id = ?", receiverID).Delete(&models.Notification{}).Error
}
