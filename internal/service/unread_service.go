package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/mbeoliero/kit/log"
	"github.com/redis/go-redis/v9"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
)

// UnreadService computes unread counts. Direct conversations use the legacy
// per-message read flag, groups use the per-member read cursor; the two
// models stay separate on purpose, unifying them changes observable counts.
type UnreadService struct {
	convRepo   *repository.ConversationRepo
	memberRepo *repository.MemberRepo
	msgRepo    *repository.MessageRepo
	rdb        *redis.Client
	// totalTTL bounds staleness of the cached aggregate. Zero disables
	// caching entirely.
	totalTTL time.Duration
}

// NewUnreadService creates a new UnreadService
func NewUnreadService(repos *repository.Repositories, totalTTL time.Duration) *UnreadService {
	return &UnreadService{
		convRepo:   repos.Conversation,
		memberRepo: repos.Member,
		msgRepo:    repos.Message,
		rdb:        repos.Redis,
		totalTTL:   totalTTL,
	}
}

// Count returns the unread count for one conversation
func (s *UnreadService) Count(ctx context.Context, userId, conversationId string) (int64, error) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		return 0, toStoreErr(err)
	}
	if conv == nil {
		return 0, errcode.ErrConvNotFound
	}

	member, err := s.memberRepo.Get(ctx, conversationId, userId)
	if err != nil {
		return 0, toStoreErr(err)
	}
	if member == nil {
		return 0, errcode.ErrNotMember
	}

	return s.countFor(ctx, userId, conv, member)
}

// countFor computes the count against already-loaded rows
func (s *UnreadService) countFor(ctx context.Context, userId string, conv *entity.Conversation, member *entity.Member) (int64, error) {
	var count int64
	var err error

	if conv.IsGroup() {
		count, err = s.msgRepo.CountUnreadGroup(ctx, conv.Id, userId, member.ReadCursor(conv.CreatedAt))
	} else {
		count, err = s.msgRepo.CountUnreadDirect(ctx, conv.Id, userId)
	}
	if err != nil {
		log.CtxError(ctx, "count unread failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, userId, err)
		return 0, toStoreErr(err)
	}
	return count, nil
}

// Total returns the aggregate unread count across the user's visible
// conversations. Hidden conversations contribute nothing. When caching is
// enabled the result may lag the store by up to the configured TTL.
func (s *UnreadService) Total(ctx context.Context, userId string) (int64, error) {
	if s.totalTTL > 0 {
		key := fmt.Sprintf(constant.RedisKeyUnreadTotal(), userId)
		if cached, err := s.rdb.Get(ctx, key).Result(); err == nil {
			if total, perr := strconv.ParseInt(cached, 10, 64); perr == nil {
				return total, nil
			}
		}
	}

	total, err := s.computeTotal(ctx, userId)
	if err != nil {
		return 0, err
	}

	if s.totalTTL > 0 {
		key := fmt.Sprintf(constant.RedisKeyUnreadTotal(), userId)
		if err := s.rdb.Set(ctx, key, total, s.totalTTL).Err(); err != nil {
			log.CtxDebug(ctx, "cache unread total failed: user_id=%s, error=%v", userId, err)
		}
	}
	return total, nil
}

func (s *UnreadService) computeTotal(ctx context.Context, userId string) (int64, error) {
	memberships, err := s.memberRepo.ListByUser(ctx, userId)
	if err != nil {
		return 0, toStoreErr(err)
	}

	hidden, err := s.convRepo.HiddenSetFor(ctx, userId)
	if err != nil {
		return 0, toStoreErr(err)
	}

	var total int64
	for _, member := range memberships {
		if hidden[member.ConversationId] {
			continue
		}
		conv, err := s.convRepo.GetById(ctx, member.ConversationId)
		if err != nil {
			return 0, toStoreErr(err)
		}
		if conv == nil {
			continue
		}
		count, err := s.countFor(ctx, userId, conv, member)
		if err != nil {
			return 0, err
		}
		total += count
	}
	return total, nil
}

// MarkRead marks the whole conversation read for the user. Idempotent and
// monotonic for both kinds: flags only flip unread -> read, the cursor only
// moves forward.
func (s *UnreadService) MarkRead(ctx context.Context, userId, conversationId string) error {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		return toStoreErr(err)
	}
	if conv == nil {
		return errcode.ErrConvNotFound
	}

	member, err := s.memberRepo.Get(ctx, conversationId, userId)
	if err != nil {
		return toStoreErr(err)
	}
	if member == nil {
		return errcode.ErrNotMember
	}

	if conv.IsGroup() {
		err = s.memberRepo.AdvanceReadCursor(ctx, conversationId, userId, entity.NowUnixMilli())
	} else {
		err = s.msgRepo.MarkDirectRead(ctx, conversationId, userId)
	}
	if err != nil {
		log.CtxError(ctx, "mark read failed: conversation_id=%s, user_id=%s, error=%v", conversationId, userId, err)
		return toStoreErr(err)
	}

	s.invalidateTotal(ctx, userId)
	return nil
}

// invalidateTotal drops the cached aggregate; harmless when caching is off
func (s *UnreadService) invalidateTotal(ctx context.Context, userId string) {
	if s.totalTTL <= 0 {
		return
	}
	key := fmt.Sprintf(constant.RedisKeyUnreadTotal(), userId)
	if err := s.rdb.Del(ctx, key).Err(); err != nil {
		log.CtxDebug(ctx, "invalidate unread total failed: user_id=%s, error=%v", userId, err)
	}
}
