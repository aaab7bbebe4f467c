package repository

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/pkg/constant"
)

// ConversationRepo is the repository for conversation operations
type ConversationRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewConversationRepo creates a new ConversationRepo
func NewConversationRepo(db *gorm.DB, rdb *redis.Client) *ConversationRepo {
	return &ConversationRepo{db: db, rdb: rdb}
}

// Create creates a new conversation
func (r *ConversationRepo) Create(ctx context.Context, tx *gorm.DB, conv *entity.Conversation) error {
	now := entity.NowUnixMilli()
	conv.CreatedAt = now
	conv.UpdatedAt = now
	return tx.WithContext(ctx).Create(conv).Error
}

// GetById gets conversation by Id
func (r *ConversationRepo) GetById(ctx context.Context, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetByIdWithTx gets conversation by Id within a transaction
func (r *ConversationRepo) GetByIdWithTx(ctx context.Context, tx *gorm.DB, id string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := tx.WithContext(ctx).Where("id = ?", id).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// GetByPairKey finds the direct conversation for an unordered user pair
func (r *ConversationRepo) GetByPairKey(ctx context.Context, tx *gorm.DB, pairKey string) (*entity.Conversation, error) {
	var conv entity.Conversation
	err := tx.WithContext(ctx).Where("pair_key = ?", pairKey).First(&conv).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &conv, nil
}

// Update updates conversation fields
func (r *ConversationRepo) Update(ctx context.Context, id string, updates map[string]interface{}) error {
	updates["updated_at"] = entity.NowUnixMilli()
	return r.db.WithContext(ctx).Model(&entity.Conversation{}).Where("id = ?", id).Updates(updates).Error
}

// PromoteToGroup flips a direct conversation to a group. One-way: the pair
// key is cleared so the original pair can start a fresh direct thread.
func (r *ConversationRepo) PromoteToGroup(ctx context.Context, tx *gorm.DB, id, name, creatorId string) error {
	return tx.WithContext(ctx).Model(&entity.Conversation{}).Where("id = ?", id).Updates(map[string]interface{}{
		"kind":       constant.KindGroup,
		"name":       name,
		"creator_id": creatorId,
		"pair_key":   nil,
		"updated_at": entity.NowUnixMilli(),
	}).Error
}

// Delete removes the conversation and its dependent rows
func (r *ConversationRepo) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	if err := tx.WithContext(ctx).Where("conversation_id = ?", id).Delete(&entity.Member{}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("conversation_id = ?", id).Delete(&entity.HiddenConversation{}).Error; err != nil {
		return err
	}
	if err := tx.WithContext(ctx).Where("conversation_id = ?", id).Delete(&entity.Message{}).Error; err != nil {
		return err
	}
	return tx.WithContext(ctx).Where("id = ?", id).Delete(&entity.Conversation{}).Error
}

// Hide marks the conversation hidden for one user (idempotent)
func (r *ConversationRepo) Hide(ctx context.Context, conversationId, userId string) error {
	hidden := &entity.HiddenConversation{
		ConversationId: conversationId,
		UserId:         userId,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(hidden).Error
}

// Unhide removes the hidden marker for one user (idempotent)
func (r *ConversationRepo) Unhide(ctx context.Context, conversationId, userId string) error {
	return r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Delete(&entity.HiddenConversation{}).Error
}

// IsHidden checks whether the conversation is hidden for the user
func (r *ConversationRepo) IsHidden(ctx context.Context, conversationId, userId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.HiddenConversation{}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// HiddenSetFor returns the ids of all conversations the user has hidden
func (r *ConversationRepo) HiddenSetFor(ctx context.Context, userId string) (map[string]bool, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&entity.HiddenConversation{}).
		Where("user_id = ?", userId).
		Pluck("conversation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// IsDuplicatePairErr reports whether err came from the pair_key unique index.
// MySQL raises 1062, SQLite a "UNIQUE constraint failed" message; gorm also
// normalizes both to ErrDuplicatedKey on recent driver versions.
func IsDuplicatePairErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "Duplicate entry") || strings.Contains(msg, "UNIQUE constraint failed")
}
