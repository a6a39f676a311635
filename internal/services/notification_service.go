package services

import (
	"context"

	"supermock/internal/apperrors"
	"supermock/internal/logger"
	"supermock/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type NotificationService struct {
	db *gorm.DB
}

func NewNotificationService(db *gorm.DB) *NotificationService {
	return &NotificationService{db: db}
}

// Notify 写入一条站内通知。在业务事务提交后调用，失败只记日志
func (s *NotificationService) Notify(ctx context.Context, n models.Notification) {
	if err := s.db.WithContext(ctx).Create(&n).Error; err != nil {
		logger.Error("Failed to create notification", "user_id", n.UserID, "type", n.Type, "error", err)
	}
}

// List 最近 50 条通知，最新在前
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.db.WithContext(ctx).Preload("Actor").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(50).
		Find(&notifications).Error
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	for i := range notifications {
		if notifications[i].Actor != nil {
			pub := notifications[i].Actor.Public()
			notifications[i].Actor = &pub
		}
	}
	return notifications, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Internal(err)
	}
	return count, nil
}

// MarkRead 标记单条为已读，只能操作自己的通知
func (s *NotificationService) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) error {
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true).Error
	if err != nil {
		return apperrors.Internal(err)
	}
	return nil
}

func (s *NotificationService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if res.Error != nil {
		return apperrors.Internal(res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("Notification not found")
	}
	return nil
}
