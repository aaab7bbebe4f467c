package service

import (
	"context"
	"time"

	"github.com/mbeoliero/kit/log"

	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/errcode"
)

// TypingService tracks ephemeral typing signals. A signal decays on its own
// after the TTL, so a client that crashes mid-keystroke never leaves a
// stuck indicator behind.
type TypingService struct {
	typingRepo *repository.TypingRepo
	memberRepo *repository.MemberRepo
	ttl        time.Duration
}

// NewTypingService creates a new TypingService
func NewTypingService(repos *repository.Repositories, ttl time.Duration) *TypingService {
	return &TypingService{
		typingRepo: repos.Typing,
		memberRepo: repos.Member,
		ttl:        ttl,
	}
}

// Start asserts that the user is typing in the conversation. Idempotent:
// repeated calls refresh the expiry.
func (s *TypingService) Start(ctx context.Context, userId, conversationId string) error {
	if err := s.requireMember(ctx, userId, conversationId); err != nil {
		return err
	}
	if err := s.typingRepo.Set(ctx, conversationId, userId, s.ttl); err != nil {
		log.CtxError(ctx, "set typing signal failed: conversation_id=%s, user_id=%s, error=%v", conversationId, userId, err)
		return toStoreErr(err)
	}
	return nil
}

// Stop clears the typing signal early. Clearing an absent signal is a no-op.
func (s *TypingService) Stop(ctx context.Context, userId, conversationId string) error {
	if err := s.requireMember(ctx, userId, conversationId); err != nil {
		return err
	}
	if err := s.typingRepo.Clear(ctx, conversationId, userId); err != nil {
		log.CtxError(ctx, "clear typing signal failed: conversation_id=%s, user_id=%s, error=%v", conversationId, userId, err)
		return toStoreErr(err)
	}
	return nil
}

// WhoIsTyping returns the members currently typing, excluding the caller
func (s *TypingService) WhoIsTyping(ctx context.Context, userId, conversationId string) ([]string, error) {
	if err := s.requireMember(ctx, userId, conversationId); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByConversation(ctx, conversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}

	candidates := make([]string, 0, len(members))
	for _, m := range members {
		if m.UserId != userId {
			candidates = append(candidates, m.UserId)
		}
	}

	active, err := s.typingRepo.ActiveUsers(ctx, conversationId, candidates)
	if err != nil {
		log.CtxError(ctx, "list typing signals failed: conversation_id=%s, error=%v", conversationId, err)
		return nil, toStoreErr(err)
	}
	return active, nil
}

func (s *TypingService) requireMember(ctx context.Context, userId, conversationId string) error {
	isMember, err := s.memberRepo.IsMember(ctx, conversationId, userId)
	if err != nil {
		return toStoreErr(err)
	}
	if !isMember {
		return errcode.ErrNotMember
	}
	return nil
}
