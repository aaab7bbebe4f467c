package service

import (
	"context"
	"sort"

	"github.com/mbeoliero/kit/log"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
)

// InboxService composes the registry, membership, migration and unread
// pieces into the per-user inbox listing.
type InboxService struct {
	convRepo     *repository.ConversationRepo
	memberRepo   *repository.MemberRepo
	msgRepo      *repository.MessageRepo
	migrationSvc *MigrationService
	unreadSvc    *UnreadService
	repos        *repository.Repositories
}

// NewInboxService creates a new InboxService
func NewInboxService(repos *repository.Repositories, migrationSvc *MigrationService, unreadSvc *UnreadService) *InboxService {
	return &InboxService{
		convRepo:     repos.Conversation,
		memberRepo:   repos.Member,
		msgRepo:      repos.Message,
		migrationSvc: migrationSvc,
		unreadSvc:    unreadSvc,
		repos:        repos,
	}
}

// List returns the user's inbox, newest activity first. Legacy messages are
// reconciled on the way in, so a first visit after migration sees every old
// thread as a conversation. Hidden conversations are excluded.
func (s *InboxService) List(ctx context.Context, userId string) ([]*entity.InboxEntry, error) {
	if err := s.migrationSvc.ReconcileAll(ctx, userId); err != nil {
		// Reconciliation failure degrades the inbox rather than breaking it;
		// unmigrated threads stay invisible until the next visit.
		log.CtxError(ctx, "legacy reconcile failed, listing without it: user_id=%s, error=%v", userId, err)
	}

	memberships, err := s.memberRepo.ListByUser(ctx, userId)
	if err != nil {
		return nil, toStoreErr(err)
	}

	hidden, err := s.convRepo.HiddenSetFor(ctx, userId)
	if err != nil {
		return nil, toStoreErr(err)
	}

	entries := make([]*entity.InboxEntry, 0, len(memberships))
	for _, membership := range memberships {
		if hidden[membership.ConversationId] {
			continue
		}

		conv, err := s.convRepo.GetById(ctx, membership.ConversationId)
		if err != nil {
			return nil, toStoreErr(err)
		}
		if conv == nil {
			continue
		}

		entry, err := s.buildEntry(ctx, userId, conv, membership)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entryActivity(entries[i]) > entryActivity(entries[j])
	})
	return entries, nil
}

func (s *InboxService) buildEntry(ctx context.Context, userId string, conv *entity.Conversation, membership *entity.Member) (*entity.InboxEntry, error) {
	count, err := s.memberRepo.Count(ctx, s.repos.DB, conv.Id)
	if err != nil {
		return nil, toStoreErr(err)
	}

	latest, err := s.msgRepo.LatestInConversation(ctx, conv.Id)
	if err != nil {
		return nil, toStoreErr(err)
	}

	unread, err := s.unreadSvc.countFor(ctx, userId, conv, membership)
	if err != nil {
		return nil, toStoreErr(err)
	}

	entry := &entity.InboxEntry{
		Conversation: &entity.ConversationInfo{
			Id:          conv.Id,
			Kind:        conv.Kind,
			Name:        conv.Name,
			AvatarURL:   conv.AvatarURL,
			CreatorId:   conv.CreatorId,
			MemberCount: count,
			CreatedAt:   conv.CreatedAt,
		},
		Title:       conv.Name,
		IsGroup:     conv.IsGroup(),
		UnreadCount: unread,
	}
	if latest != nil {
		entry.LatestMessage = latest.ToMessageInfo()
	}

	if conv.IsDirect() {
		other, err := s.otherMemberId(ctx, conv.Id, userId)
		if err != nil {
			return nil, err
		}
		entry.OtherMemberId = other
		entry.Title = other
	}
	return entry, nil
}

func (s *InboxService) otherMemberId(ctx context.Context, conversationId, userId string) (string, error) {
	members, err := s.memberRepo.ListByConversation(ctx, conversationId)
	if err != nil {
		return "", toStoreErr(err)
	}
	for _, m := range members {
		if m.UserId != userId {
			return m.UserId, nil
		}
	}
	return "", nil
}

// entryActivity is the sort key: latest message time, falling back to the
// conversation's creation time for empty threads.
func entryActivity(e *entity.InboxEntry) int64 {
	if e.LatestMessage != nil {
		return e.LatestMessage.CreatedAt
	}
	return e.Conversation.CreatedAt
}
