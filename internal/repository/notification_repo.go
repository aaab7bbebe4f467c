package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/pailhq/courier/internal/entity"
)

// NotificationRepo is the append-only sink for notification records
type NotificationRepo struct {
	db *gorm.DB
}

// NewNotificationRepo creates a new NotificationRepo
func NewNotificationRepo(db *gorm.DB) *NotificationRepo {
	return &NotificationRepo{db: db}
}

// Append appends a notification record. Fire-and-forget from the caller's
// point of view: the messaging operation that triggered it must not roll
// back when this fails.
func (r *NotificationRepo) Append(ctx context.Context, userId, actorId, verb, conversationId string) error {
	n := &entity.Notification{
		UserId:         userId,
		ActorId:        actorId,
		Verb:           verb,
		ConversationId: conversationId,
	}
	return r.db.WithContext(ctx).Create(n).Error
}

// ListByUser lists notifications for a user, newest first
func (r *NotificationRepo) ListByUser(ctx context.Context, userId string, limit int) ([]*entity.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	var notifications []*entity.Notification
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}
