package service

import (
	"context"
	"fmt"

	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/idgen"
)

// ConversationService owns the conversation registry and membership store:
// group lifecycle, membership mutation, visibility and ownership.
type ConversationService struct {
	convRepo   *repository.ConversationRepo
	memberRepo *repository.MemberRepo
	permSvc    *PermissionService
	sink       NotificationSink
	repos      *repository.Repositories
}

// NewConversationService creates a new ConversationService
func NewConversationService(repos *repository.Repositories, permSvc *PermissionService, sink NotificationSink) *ConversationService {
	return &ConversationService{
		convRepo:   repos.Conversation,
		memberRepo: repos.Member,
		permSvc:    permSvc,
		sink:       sink,
		repos:      repos,
	}
}

// CreateGroupRequest represents group creation request
type CreateGroupRequest struct {
	Name      string   `json:"name"`
	AvatarURL string   `json:"avatar_url,omitempty"`
	MemberIds []string `json:"member_ids,omitempty"`
}

// CreateGroup creates a group with the creator and initial members
func (s *ConversationService) CreateGroup(ctx context.Context, creatorId string, req *CreateGroupRequest) (*entity.Conversation, error) {
	id, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate conversation id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	name := req.Name
	if name == "" {
		name = defaultGroupName(id)
	}

	conv := &entity.Conversation{
		Id:        id,
		Kind:      constant.KindGroup,
		Name:      name,
		AvatarURL: req.AvatarURL,
		CreatorId: creatorId,
	}

	added := make([]string, 0, len(req.MemberIds))
	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.convRepo.Create(ctx, tx, conv); err != nil {
			return err
		}

		creator := &entity.Member{
			ConversationId: id,
			UserId:         creatorId,
			IsAdmin:        true,
		}
		if err := s.memberRepo.Add(ctx, tx, creator); err != nil {
			return err
		}

		for _, memberId := range req.MemberIds {
			if memberId == "" || memberId == creatorId {
				continue
			}
			member := &entity.Member{
				ConversationId: id,
				UserId:         memberId,
			}
			if err := s.memberRepo.Add(ctx, tx, member); err != nil {
				return err
			}
			added = append(added, memberId)
		}
		return nil
	})

	if err != nil {
		log.CtxError(ctx, "create group failed: creator_id=%s, error=%v", creatorId, err)
		return nil, toStoreErr(err)
	}

	for _, memberId := range added {
		s.notify(ctx, memberId, creatorId, constant.VerbAddedToGroup, id)
	}

	log.CtxInfo(ctx, "group created: conversation_id=%s, creator_id=%s, members=%d", id, creatorId, len(added)+1)
	return conv, nil
}

// AddMember adds a user to a conversation. Adding a third member to a
// direct conversation promotes it to a group; the promotion is explicit and
// one-way. In groups, only admins or the creator may add.
func (s *ConversationService) AddMember(ctx context.Context, actorId, conversationId, targetId string) error {
	if targetId == "" || targetId == actorId {
		return errcode.ErrInvalidParam
	}

	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return err
	}

	if conv.IsGroup() {
		canManage, err := s.permSvc.isAdminOf(ctx, actorId, conv)
		if err != nil {
			return err
		}
		if !canManage {
			return errcode.ErrNotAdmin
		}
	}

	existing, err := s.memberRepo.Get(ctx, conversationId, targetId)
	if err != nil {
		return toStoreErr(err)
	}
	if existing != nil {
		return errcode.ErrAlreadyMember
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		member := &entity.Member{
			ConversationId: conversationId,
			UserId:         targetId,
		}
		if err := s.memberRepo.Add(ctx, tx, member); err != nil {
			return err
		}

		if conv.IsDirect() {
			count, err := s.memberRepo.Count(ctx, tx, conversationId)
			if err != nil {
				return err
			}
			if count > constant.DirectMemberCount {
				name := conv.Name
				if name == "" {
					name = defaultGroupName(conversationId)
				}
				creatorId := conv.CreatorId
				if creatorId == "" {
					creatorId = actorId
				}
				if err := s.convRepo.PromoteToGroup(ctx, tx, conversationId, name, creatorId); err != nil {
					return err
				}
				log.CtxInfo(ctx, "conversation promoted to group: conversation_id=%s, creator_id=%s", conversationId, creatorId)
			}
		}
		return nil
	})

	if err != nil {
		log.CtxError(ctx, "add member failed: conversation_id=%s, target_id=%s, error=%v", conversationId, targetId, err)
		return toStoreErr(err)
	}

	s.notify(ctx, targetId, actorId, constant.VerbAddedToGroup, conversationId)
	return nil
}

// RemoveMember removes a user from a group. The creator can remove any
// non-creator; a non-creator admin can remove only non-admins; the creator
// can never be removed.
func (s *ConversationService) RemoveMember(ctx context.Context, actorId, conversationId, targetId string) error {
	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return errcode.ErrNotGroup
	}

	if targetId == conv.CreatorId {
		return errcode.ErrCannotRemoveCreator
	}

	target, err := s.memberRepo.Get(ctx, conversationId, targetId)
	if err != nil {
		return toStoreErr(err)
	}
	if target == nil {
		return errcode.ErrMemberNotFound
	}

	actorIsCreator := actorId == conv.CreatorId
	actorIsAdmin, err := s.permSvc.isAdminOf(ctx, actorId, conv)
	if err != nil {
		return err
	}
	if !actorIsAdmin {
		return errcode.ErrNotAdmin
	}
	if !actorIsCreator && target.IsAdmin {
		return errcode.ErrCannotRemoveAdmin
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.memberRepo.Remove(ctx, tx, conversationId, targetId)
	})
	if err != nil {
		log.CtxError(ctx, "remove member failed: conversation_id=%s, target_id=%s, error=%v", conversationId, targetId, err)
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "member removed: conversation_id=%s, target_id=%s, actor_id=%s", conversationId, targetId, actorId)
	return nil
}

// Leave removes the caller from a group. A leaving creator hands ownership
// to the longest-tenured remaining member; an emptied group is deleted
// rather than left ownerless.
func (s *ConversationService) Leave(ctx context.Context, userId, conversationId string) error {
	conv, err := s.requireMemberConv(ctx, userId, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		// Direct conversations have fixed membership; hiding is the
		// per-viewer way out.
		return errcode.ErrDirectImmutable
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.memberRepo.Remove(ctx, tx, conversationId, userId); err != nil {
			return err
		}

		if conv.CreatorId != userId {
			return nil
		}

		successor, err := s.memberRepo.EarliestJoined(ctx, tx, conversationId, userId)
		if err != nil {
			return err
		}
		if successor == nil {
			log.CtxInfo(ctx, "group emptied on creator leave, deleting: conversation_id=%s", conversationId)
			return s.convRepo.Delete(ctx, tx, conversationId)
		}

		return tx.WithContext(ctx).Model(&entity.Conversation{}).
			Where("id = ?", conversationId).
			Updates(map[string]interface{}{
				"creator_id": successor.UserId,
				"updated_at": entity.NowUnixMilli(),
			}).Error
	})

	if err != nil {
		log.CtxError(ctx, "leave failed: conversation_id=%s, user_id=%s, error=%v", conversationId, userId, err)
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "user left conversation: conversation_id=%s, user_id=%s", conversationId, userId)
	return nil
}

// Hide suppresses the conversation from the caller's inbox only
func (s *ConversationService) Hide(ctx context.Context, userId, conversationId string) error {
	if _, err := s.requireMemberConv(ctx, userId, conversationId); err != nil {
		return err
	}
	if err := s.convRepo.Hide(ctx, conversationId, userId); err != nil {
		return toStoreErr(err)
	}
	return nil
}

// Unhide restores the conversation to the caller's inbox
func (s *ConversationService) Unhide(ctx context.Context, userId, conversationId string) error {
	if _, err := s.requireMemberConv(ctx, userId, conversationId); err != nil {
		return err
	}
	if err := s.convRepo.Unhide(ctx, conversationId, userId); err != nil {
		return toStoreErr(err)
	}
	return nil
}

// Rename changes the group name. Creator only: admins may add members but
// not rename, a deliberate asymmetry carried over from the product.
func (s *ConversationService) Rename(ctx context.Context, actorId, conversationId, name string) error {
	if name == "" {
		return errcode.ErrInvalidParam
	}
	if len(name) > 128 {
		name = name[:128]
	}

	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return errcode.ErrNotGroup
	}
	if conv.CreatorId != actorId {
		return errcode.ErrNotCreator
	}

	if err := s.convRepo.Update(ctx, conversationId, map[string]interface{}{"name": name}); err != nil {
		return toStoreErr(err)
	}
	return nil
}

// UpdateAvatar changes the group avatar. Any member may do this.
func (s *ConversationService) UpdateAvatar(ctx context.Context, actorId, conversationId, avatarURL string) error {
	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return errcode.ErrNotGroup
	}

	if err := s.convRepo.Update(ctx, conversationId, map[string]interface{}{"avatar_url": avatarURL}); err != nil {
		return toStoreErr(err)
	}
	return nil
}

// PromoteAdmin grants the admin flag. Creator only; promoting the creator
// is a no-op since the creator is implicitly an admin.
func (s *ConversationService) PromoteAdmin(ctx context.Context, actorId, conversationId, targetId string) error {
	conv, target, err := s.requireCreatorAndTarget(ctx, actorId, conversationId, targetId)
	if err != nil {
		return err
	}
	if targetId == conv.CreatorId {
		return nil
	}
	if target.IsAdmin {
		return nil
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.memberRepo.SetAdmin(ctx, tx, conversationId, targetId, true)
	})
	if err != nil {
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "member promoted to admin: conversation_id=%s, target_id=%s", conversationId, targetId)
	return nil
}

// DemoteAdmin revokes the admin flag. Creator only; the creator cannot be
// demoted and demoting a non-admin is an invalid state.
func (s *ConversationService) DemoteAdmin(ctx context.Context, actorId, conversationId, targetId string) error {
	conv, target, err := s.requireCreatorAndTarget(ctx, actorId, conversationId, targetId)
	if err != nil {
		return err
	}
	if targetId == conv.CreatorId {
		return errcode.ErrCannotRemoveCreator
	}
	if !target.IsAdmin {
		return errcode.ErrNotDemotable
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.memberRepo.SetAdmin(ctx, tx, conversationId, targetId, false)
	})
	if err != nil {
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "admin demoted: conversation_id=%s, target_id=%s", conversationId, targetId)
	return nil
}

// TransferOwnership hands the creator role to another member. Creator only.
// The outgoing creator stays in the group as a regular admin.
func (s *ConversationService) TransferOwnership(ctx context.Context, actorId, conversationId, targetId string) error {
	if targetId == actorId {
		return errcode.ErrSelfTarget
	}

	conv, _, err := s.requireCreatorAndTarget(ctx, actorId, conversationId, targetId)
	if err != nil {
		return err
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Model(&entity.Conversation{}).
			Where("id = ?", conv.Id).
			Updates(map[string]interface{}{
				"creator_id": targetId,
				"updated_at": entity.NowUnixMilli(),
			}).Error; err != nil {
			return err
		}
		return s.memberRepo.SetAdmin(ctx, tx, conversationId, actorId, true)
	})
	if err != nil {
		log.CtxError(ctx, "transfer ownership failed: conversation_id=%s, target_id=%s, error=%v", conversationId, targetId, err)
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "ownership transferred: conversation_id=%s, from=%s, to=%s", conversationId, actorId, targetId)
	return nil
}

// DeleteGroup permanently deletes a group. Creator only. Direct
// conversations are never hard-deleted, only hidden.
func (s *ConversationService) DeleteGroup(ctx context.Context, actorId, conversationId string) error {
	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return err
	}
	if !conv.IsGroup() {
		return errcode.ErrNotGroup
	}
	if conv.CreatorId != actorId {
		return errcode.ErrNotCreator
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.convRepo.Delete(ctx, tx, conversationId)
	})
	if err != nil {
		log.CtxError(ctx, "delete group failed: conversation_id=%s, error=%v", conversationId, err)
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "group deleted: conversation_id=%s, creator_id=%s", conversationId, actorId)
	return nil
}

// GetInfo returns conversation info for a member
func (s *ConversationService) GetInfo(ctx context.Context, userId, conversationId string) (*entity.ConversationInfo, error) {
	conv, err := s.requireMemberConv(ctx, userId, conversationId)
	if err != nil {
		return nil, err
	}

	count, err := s.memberRepo.Count(ctx, s.repos.DB, conversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}

	return &entity.ConversationInfo{
		Id:          conv.Id,
		Kind:        conv.Kind,
		Name:        conv.Name,
		AvatarURL:   conv.AvatarURL,
		CreatorId:   conv.CreatorId,
		MemberCount: count,
		CreatedAt:   conv.CreatedAt,
	}, nil
}

// ListMembers lists the members of a conversation, for members only
func (s *ConversationService) ListMembers(ctx context.Context, userId, conversationId string) ([]*entity.MemberInfo, error) {
	if _, err := s.requireMemberConv(ctx, userId, conversationId); err != nil {
		return nil, err
	}

	members, err := s.memberRepo.ListByConversation(ctx, conversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}

	infos := make([]*entity.MemberInfo, 0, len(members))
	for _, m := range members {
		infos = append(infos, m.ToMemberInfo())
	}
	return infos, nil
}

// requireMemberConv loads the conversation and verifies the user belongs
func (s *ConversationService) requireMemberConv(ctx context.Context, userId, conversationId string) (*entity.Conversation, error) {
	conv, err := s.convRepo.GetById(ctx, conversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}

	isMember, err := s.memberRepo.IsMember(ctx, conversationId, userId)
	if err != nil {
		return nil, toStoreErr(err)
	}
	if !isMember {
		return nil, errcode.ErrNotMember
	}
	return conv, nil
}

// requireCreatorAndTarget loads the conversation, checks it is a group the
// actor created, and loads the target membership
func (s *ConversationService) requireCreatorAndTarget(ctx context.Context, actorId, conversationId, targetId string) (*entity.Conversation, *entity.Member, error) {
	conv, err := s.requireMemberConv(ctx, actorId, conversationId)
	if err != nil {
		return nil, nil, err
	}
	if !conv.IsGroup() {
		return nil, nil, errcode.ErrNotGroup
	}
	if conv.CreatorId != actorId {
		return nil, nil, errcode.ErrNotCreator
	}

	target, err := s.memberRepo.Get(ctx, conversationId, targetId)
	if err != nil {
		return nil, nil, toStoreErr(err)
	}
	if target == nil {
		return nil, nil, errcode.ErrMemberNotFound
	}
	return conv, target, nil
}

// notify appends to the sink, swallowing failures
func (s *ConversationService) notify(ctx context.Context, userId, actorId, verb, conversationId string) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Append(ctx, userId, actorId, verb, conversationId); err != nil {
		log.CtxError(ctx, "notification append failed: user_id=%s, verb=%s, error=%v", userId, verb, err)
	}
}

func defaultGroupName(conversationId string) string {
	return fmt.Sprintf("Group #%s", conversationId)
}
