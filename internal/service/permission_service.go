package service

import (
	"context"

	"github.com/mbeoliero/kit/log"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/errcode"
)

// PermissionService resolves admin and management rights for conversations.
// It is the single authority: the creator is implicitly an admin whether or
// not the membership flag says so, and no other admin list exists.
type PermissionService struct {
	convRepo   *repository.ConversationRepo
	memberRepo *repository.MemberRepo
}

// NewPermissionService creates a new PermissionService
func NewPermissionService(repos *repository.Repositories) *PermissionService {
	return &PermissionService{
		convRepo:   repos.Conversation,
		memberRepo: repos.Member,
	}
}

// IsAdmin checks whether the user is the creator or a flagged admin
func (s *PermissionService) IsAdmin(ctx context.Context, userId, conversationId string) (bool, error) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		log.CtxError(ctx, "get conversation failed: conversation_id=%s, error=%v", conversationId, err)
		return false, toStoreErr(err)
	}
	if conv == nil {
		return false, errcode.ErrConvNotFound
	}
	return s.isAdminOf(ctx, userId, conv)
}

// CanManage gates add-member, rename and avatar changes. Management rights
// coincide with admin rights.
func (s *PermissionService) CanManage(ctx context.Context, userId, conversationId string) (bool, error) {
	return s.IsAdmin(ctx, userId, conversationId)
}

// isAdminOf resolves admin rights against an already-loaded conversation
func (s *PermissionService) isAdminOf(ctx context.Context, userId string, conv *entity.Conversation) (bool, error) {
	if conv.CreatorId != "" && conv.CreatorId == userId {
		return true, nil
	}

	member, err := s.memberRepo.Get(ctx, conv.Id, userId)
	if err != nil {
		log.CtxError(ctx, "get member failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, userId, err)
		return false, toStoreErr(err)
	}
	if member == nil {
		return false, nil
	}
	return member.IsAdmin, nil
}
