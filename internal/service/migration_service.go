package service

import (
	"context"

	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/idgen"
)

// MigrationService folds legacy sender/recipient messages into the
// conversation model, once per user pair. Safe to call on every inbox view.
type MigrationService struct {
	convRepo   *repository.ConversationRepo
	memberRepo *repository.MemberRepo
	msgRepo    *repository.MessageRepo
	repos      *repository.Repositories
}

// NewMigrationService creates a new MigrationService
func NewMigrationService(repos *repository.Repositories) *MigrationService {
	return &MigrationService{
		convRepo:   repos.Conversation,
		memberRepo: repos.Member,
		msgRepo:    repos.Message,
		repos:      repos,
	}
}

// Reconcile finds or creates the direct conversation shared by exactly the
// two users and re-parents their unmigrated legacy messages to it, all in
// one transaction so a legacy batch is either fully migrated or not at all.
// Idempotent: the second call with the same pair changes nothing.
func (s *MigrationService) Reconcile(ctx context.Context, userA, userB string) (string, error) {
	if userA == "" || userB == "" || userA == userB {
		return "", errcode.ErrInvalidParam
	}

	var convId string
	err := s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		conv, err := s.findOrCreateDirect(ctx, tx, userA, userB)
		if err != nil {
			return err
		}
		convId = conv.Id

		moved, err := s.msgRepo.ReparentLegacy(ctx, tx, conv.Id, userA, userB)
		if err != nil {
			return err
		}
		if moved > 0 {
			log.CtxInfo(ctx, "legacy messages migrated: conversation_id=%s, count=%d", conv.Id, moved)
		}
		return nil
	})

	if err != nil {
		if e, ok := err.(*errcode.Error); ok {
			return "", e
		}
		log.CtxError(ctx, "reconcile failed: user_a=%s, user_b=%s, error=%v", userA, userB, err)
		return "", toStoreErr(err)
	}

	return convId, nil
}

// ReconcileAll reconciles every legacy partner of the user. Called before
// building the inbox so the listing only ever sees migrated messages.
func (s *MigrationService) ReconcileAll(ctx context.Context, userId string) error {
	partners, err := s.msgRepo.LegacyPartnerIds(ctx, userId)
	if err != nil {
		log.CtxError(ctx, "list legacy partners failed: user_id=%s, error=%v", userId, err)
		return toStoreErr(err)
	}

	for _, partner := range partners {
		if _, err := s.Reconcile(ctx, userId, partner); err != nil {
			return err
		}
	}
	return nil
}

// findOrCreateDirect resolves the single direct conversation for the pair.
// Lookup goes through the membership intersection first; creation relies on
// the pair_key unique index so two racing creators collapse onto one row,
// the loser re-reading the winner's conversation.
func (s *MigrationService) findOrCreateDirect(ctx context.Context, tx *gorm.DB, userA, userB string) (*entity.Conversation, error) {
	sharedIds, err := s.memberRepo.SharedDirectConversationIds(ctx, tx, userA, userB)
	if err != nil {
		return nil, err
	}

	for _, id := range sharedIds {
		count, err := s.memberRepo.Count(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		if count == constant.DirectMemberCount {
			return s.convRepo.GetByIdWithTx(ctx, tx, id)
		}
	}

	pairKey := entity.GenPairKey(userA, userB)
	id, err := idgen.NextID()
	if err != nil {
		return nil, err
	}

	conv := &entity.Conversation{
		Id:      id,
		Kind:    constant.KindDirect,
		PairKey: &pairKey,
	}
	if err := s.convRepo.Create(ctx, tx, conv); err != nil {
		if repository.IsDuplicatePairErr(err) {
			// Lost the creation race; merge onto the winner.
			log.CtxInfo(ctx, "direct conversation race detected: pair_key=%s", pairKey)
			winner, gerr := s.convRepo.GetByPairKey(ctx, tx, pairKey)
			if gerr != nil {
				return nil, gerr
			}
			if winner == nil {
				return nil, errcode.ErrConvConflict
			}
			return winner, nil
		}
		return nil, err
	}

	for _, userId := range []string{userA, userB} {
		member := &entity.Member{
			ConversationId: conv.Id,
			UserId:         userId,
		}
		if err := s.memberRepo.Add(ctx, tx, member); err != nil {
			return nil, err
		}
	}

	log.CtxInfo(ctx, "direct conversation created: conversation_id=%s, pair_key=%s", conv.Id, pairKey)
	return conv, nil
}
