package repository

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/pkg/constant"
)

// MemberRepo is the repository for membership operations
type MemberRepo struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewMemberRepo creates a new MemberRepo
func NewMemberRepo(db *gorm.DB, rdb *redis.Client) *MemberRepo {
	return &MemberRepo{db: db, rdb: rdb}
}

// Add inserts a membership, ignoring an existing (conversation, user) row
func (r *MemberRepo) Add(ctx context.Context, tx *gorm.DB, member *entity.Member) error {
	now := entity.NowUnixMilli()
	if member.JoinedAt == 0 {
		member.JoinedAt = now
	}
	member.CreatedAt = now
	member.UpdatedAt = now

	return tx.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "conversation_id"}, {Name: "user_id"}},
		DoNothing: true,
	}).Create(member).Error
}

// Get gets one membership
func (r *MemberRepo) Get(ctx context.Context, conversationId, userId string) (*entity.Member, error) {
	var member entity.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// GetWithTx gets one membership within a transaction
func (r *MemberRepo) GetWithTx(ctx context.Context, tx *gorm.DB, conversationId, userId string) (*entity.Member, error) {
	var member entity.Member
	err := tx.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// ListByConversation lists all members of a conversation
func (r *MemberRepo) ListByConversation(ctx context.Context, conversationId string) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationId).
		Order("joined_at ASC").
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// ListByUser lists all memberships of a user
func (r *MemberRepo) ListByUser(ctx context.Context, userId string) ([]*entity.Member, error) {
	var members []*entity.Member
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

// Count counts members in a conversation
func (r *MemberRepo) Count(ctx context.Context, tx *gorm.DB, conversationId string) (int64, error) {
	var count int64
	err := tx.WithContext(ctx).
		Model(&entity.Member{}).
		Where("conversation_id = ?", conversationId).
		Count(&count).Error
	return count, err
}

// IsMember checks if user belongs to the conversation
func (r *MemberRepo) IsMember(ctx context.Context, conversationId, userId string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Remove deletes a membership
func (r *MemberRepo) Remove(ctx context.Context, tx *gorm.DB, conversationId, userId string) error {
	return tx.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Delete(&entity.Member{}).Error
}

// SetAdmin updates the admin flag on a membership
func (r *MemberRepo) SetAdmin(ctx context.Context, tx *gorm.DB, conversationId, userId string, isAdmin bool) error {
	return tx.WithContext(ctx).
		Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Updates(map[string]interface{}{
			"is_admin":   isAdmin,
			"updated_at": entity.NowUnixMilli(),
		}).Error
}

// AdvanceReadCursor moves last_read_at forward to readAt, never backward.
// The guard keeps marking read monotonic under concurrent callers.
func (r *MemberRepo) AdvanceReadCursor(ctx context.Context, conversationId, userId string, readAt int64) error {
	return r.db.WithContext(ctx).
		Model(&entity.Member{}).
		Where("conversation_id = ? AND user_id = ?", conversationId, userId).
		Where("last_read_at IS NULL OR last_read_at < ?", readAt).
		Updates(map[string]interface{}{
			"last_read_at": readAt,
			"updated_at":   entity.NowUnixMilli(),
		}).Error
}

// EarliestJoined returns the longest-tenured member, excluding one user.
// Used for ownership transfer when the creator leaves.
func (r *MemberRepo) EarliestJoined(ctx context.Context, tx *gorm.DB, conversationId, excludeUserId string) (*entity.Member, error) {
	var member entity.Member
	err := tx.WithContext(ctx).
		Where("conversation_id = ? AND user_id <> ?", conversationId, excludeUserId).
		Order("joined_at ASC").
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &member, nil
}

// SharedDirectConversationIds returns ids of direct conversations that both
// users belong to. The member-count filter is applied by the caller.
func (r *MemberRepo) SharedDirectConversationIds(ctx context.Context, tx *gorm.DB, userA, userB string) ([]string, error) {
	var ids []string
	err := tx.WithContext(ctx).
		Model(&entity.Member{}).
		Joins("JOIN conversations ON conversations.id = members.conversation_id AND conversations.kind = ?", constant.KindDirect).
		Where("members.user_id IN ?", []string{userA, userB}).
		Group("members.conversation_id").
		Having("COUNT(DISTINCT members.user_id) = 2").
		Pluck("members.conversation_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
