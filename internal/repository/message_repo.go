package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pailhq/courier/internal/entity"
)

// MessageRepo is the repository for message operations
type MessageRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewMessageRepo creates a new MessageRepo
func NewMessageRepo(db *gorm.DB, rdb *redis.Client) *MessageRepo {
	return &MessageRepo{db: db, rdb: rdb}
}

// Create creates a new message
func (r *MessageRepo) Create(ctx context.Context, tx *gorm.DB, msg *entity.Message) error {
	now := entity.NowUnixMilli()
	if msg.CreatedAt == 0 {
		msg.CreatedAt = now
	}
	msg.UpdatedAt = now
	return tx.WithContext(ctx).Create(msg).Error
}

// GetById gets a message by Id
func (r *MessageRepo) GetById(ctx context.Context, id string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// GetByClientMsgId gets message by sender and client msg id (idempotency check)
func (r *MessageRepo) GetByClientMsgId(ctx context.Context, senderId, clientMsgId string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).
		Where("sender_id = ? AND client_msg_id = ?", senderId, clientMsgId).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// ListByConversation lists messages in a conversation, oldest first
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationId string, limit int) ([]*entity.Message, error) {
	if limit <= 0 || limit > 500 {
		limit = 500
	}

	var messages []*entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}
	return messages, nil
}

// LatestInConversation returns the newest message, or nil if none
func (r *MessageRepo) LatestInConversation(ctx context.Context, conversationId string) (*entity.Message, error) {
	var msg entity.Message
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("created_at DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &msg, nil
}

// CountUnreadDirect counts unread direct messages addressed to userId.
// Sender exclusion makes a user's own messages never count as unread.
func (r *MessageRepo) CountUnreadDirect(ctx context.Context, conversationId, userId string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND legacy_is_read = ?", conversationId, userId, false).
		Count(&count).Error
	return count, err
}

// CountUnreadGroup counts group messages newer than the read cursor, from
// senders other than userId.
func (r *MessageRepo) CountUnreadGroup(ctx context.Context, conversationId, userId string, cursor int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND created_at > ?", conversationId, userId, cursor).
		Count(&count).Error
	return count, err
}

// MarkDirectRead flips the legacy read flag on all messages in the
// conversation not sent by userId. Idempotent; the flag never flips back.
func (r *MessageRepo) MarkDirectRead(ctx context.Context, conversationId, userId string) error {
	return r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id = ? AND sender_id <> ? AND legacy_is_read = ?", conversationId, userId, false).
		Update("legacy_is_read", true).Error
}

// ReparentLegacy attaches every unmigrated message between the unordered
// pair to the conversation. Already-parented messages are untouched, which
// is what makes reconciliation idempotent.
func (r *MessageRepo) ReparentLegacy(ctx context.Context, tx *gorm.DB, conversationId, userA, userB string) (int64, error) {
	result := tx.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id IS NULL").
		Where("(sender_id = ? AND legacy_recipient_id = ?) OR (sender_id = ? AND legacy_recipient_id = ?)",
			userA, userB, userB, userA).
		Updates(map[string]interface{}{
			"conversation_id": conversationId,
			"updated_at":      entity.NowUnixMilli(),
		})
	return result.RowsAffected, result.Error
}

// LegacyPartnerIds returns the distinct user ids the user has unmigrated
// legacy messages with, in either direction.
func (r *MessageRepo) LegacyPartnerIds(ctx context.Context, userId string) ([]string, error) {
	var sent []string
	err := r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id IS NULL AND sender_id = ? AND legacy_recipient_id <> ''", userId).
		Distinct().
		Pluck("legacy_recipient_id", &sent).Error
	if err != nil {
		return nil, err
	}

	var received []string
	err = r.db.WithContext(ctx).
		Model(&entity.Message{}).
		Where("conversation_id IS NULL AND legacy_recipient_id = ?", userId).
		Distinct().
		Pluck("sender_id", &received).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool, len(sent)+len(received))
	partners := make([]string, 0, len(sent)+len(received))
	for _, id := range append(sent, received...) {
		if id == "" || id == userId || seen[id] {
			continue
		}
		seen[id] = true
		partners = append(partners, id)
	}
	return partners, nil
}

// Delete removes a message
func (r *MessageRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Message{}).Error
}
