package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/mbeoliero/kit/log"
	"gorm.io/gorm"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/idgen"
)

var mentionPattern = regexp.MustCompile(`@([A-Za-z0-9_\-]+)`)

var validMediaKinds = map[string]bool{
	constant.MediaKindImage:   true,
	constant.MediaKindVideo:   true,
	constant.MediaKindGIF:     true,
	constant.MediaKindSticker: true,
}

// MessageService handles sending, listing and deleting messages
type MessageService struct {
	convRepo   *repository.ConversationRepo
	memberRepo *repository.MemberRepo
	msgRepo    *repository.MessageRepo
	unreadSvc  *UnreadService
	blocks     BlockChecker
	sink       NotificationSink
	repos      *repository.Repositories
}

// NewMessageService creates a new MessageService
func NewMessageService(repos *repository.Repositories, unreadSvc *UnreadService, blocks BlockChecker, sink NotificationSink) *MessageService {
	if blocks == nil {
		blocks = AllowAllBlockChecker{}
	}
	return &MessageService{
		convRepo:   repos.Conversation,
		memberRepo: repos.Member,
		msgRepo:    repos.Message,
		unreadSvc:  unreadSvc,
		blocks:     blocks,
		sink:       sink,
		repos:      repos,
	}
}

// SendMessageRequest represents a send request
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id"`
	ClientMsgId    string `json:"client_msg_id"`
	Content        string `json:"content"`
	MediaURL       string `json:"media_url,omitempty"`
	MediaKind      string `json:"media_kind,omitempty"`
}

// Send appends a message to a conversation. Retrying with the same
// client_msg_id returns the original message instead of duplicating it.
// Sending into a hidden conversation resurfaces it for the sender and, in
// a direct conversation, for the recipient.
func (s *MessageService) Send(ctx context.Context, senderId string, req *SendMessageRequest) (*entity.MessageInfo, error) {
	if req.Content == "" && req.MediaURL == "" {
		return nil, errcode.ErrMessageEmpty
	}
	if req.MediaKind != "" && !validMediaKinds[req.MediaKind] {
		return nil, errcode.ErrMediaKindInvalid
	}
	if req.MediaKind != "" && req.MediaURL == "" {
		return nil, errcode.ErrInvalidParam
	}

	conv, err := s.convRepo.GetById(ctx, req.ConversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}
	if conv == nil {
		return nil, errcode.ErrConvNotFound
	}

	members, err := s.memberRepo.ListByConversation(ctx, req.ConversationId)
	if err != nil {
		return nil, toStoreErr(err)
	}
	var isMember bool
	for _, m := range members {
		if m.UserId == senderId {
			isMember = true
			break
		}
	}
	if !isMember {
		return nil, errcode.ErrNotMember
	}

	if req.ClientMsgId != "" {
		existing, err := s.msgRepo.GetByClientMsgId(ctx, senderId, req.ClientMsgId)
		if err != nil {
			return nil, toStoreErr(err)
		}
		if existing != nil {
			log.CtxDebug(ctx, "duplicate send suppressed: client_msg_id=%s, message_id=%s", req.ClientMsgId, existing.Id)
			return existing.ToMessageInfo(), nil
		}
	}

	recipientId := ""
	if conv.IsDirect() {
		for _, m := range members {
			if m.UserId != senderId {
				recipientId = m.UserId
				break
			}
		}
		// Blocks cut both ways in direct conversations.
		for _, pair := range [][2]string{{recipientId, senderId}, {senderId, recipientId}} {
			blocked, err := s.blocks.IsBlocked(ctx, pair[0], pair[1])
			if err != nil {
				log.CtxError(ctx, "block check failed: sender_id=%s, recipient_id=%s, error=%v", senderId, recipientId, err)
				return nil, errcode.ErrInternalServer
			}
			if blocked {
				return nil, errcode.ErrSendBlocked
			}
		}
	}

	id, err := idgen.NextID()
	if err != nil {
		log.CtxError(ctx, "generate message id failed: %v", err)
		return nil, errcode.ErrInternalServer
	}

	convId := req.ConversationId
	msg := &entity.Message{
		Id:                id,
		ConversationId:    &convId,
		ClientMsgId:       req.ClientMsgId,
		SenderId:          senderId,
		LegacyRecipientId: recipientId,
		Content:           req.Content,
		MediaURL:          req.MediaURL,
		MediaKind:         req.MediaKind,
	}

	err = s.repos.Transaction(ctx, func(tx *gorm.DB) error {
		return s.msgRepo.Create(ctx, tx, msg)
	})
	if err != nil {
		log.CtxError(ctx, "create message failed: conversation_id=%s, sender_id=%s, error=%v", req.ConversationId, senderId, err)
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errcode.ErrStoreTimeout
		}
		return nil, errcode.ErrSendFailed
	}

	s.resurface(ctx, conv, senderId, recipientId)
	s.fanOutMentions(ctx, conv, senderId, req.Content, members)

	for _, m := range members {
		if m.UserId != senderId {
			s.unreadSvc.invalidateTotal(ctx, m.UserId)
		}
	}

	log.CtxInfo(ctx, "message sent: message_id=%s, conversation_id=%s, sender_id=%s", id, req.ConversationId, senderId)
	return msg.ToMessageInfo(), nil
}

// List returns messages in a conversation, oldest first, for members only
func (s *MessageService) List(ctx context.Context, userId, conversationId string, limit int) ([]*entity.MessageInfo, error) {
	isMember, err := s.memberRepo.IsMember(ctx, conversationId, userId)
	if err != nil {
		return nil, toStoreErr(err)
	}
	if !isMember {
		return nil, errcode.ErrNotMember
	}

	messages, err := s.msgRepo.ListByConversation(ctx, conversationId, limit)
	if err != nil {
		return nil, toStoreErr(err)
	}

	infos := make([]*entity.MessageInfo, 0, len(messages))
	for _, m := range messages {
		infos = append(infos, m.ToMessageInfo())
	}
	return infos, nil
}

// Delete removes a message. Only the sender may delete their own message.
func (s *MessageService) Delete(ctx context.Context, userId, messageId string) error {
	msg, err := s.msgRepo.GetById(ctx, messageId)
	if err != nil {
		return toStoreErr(err)
	}
	if msg == nil {
		return errcode.ErrMessageNotFound
	}
	if msg.SenderId != userId {
		return errcode.ErrForbidden
	}

	if err := s.msgRepo.Delete(ctx, messageId); err != nil {
		log.CtxError(ctx, "delete message failed: message_id=%s, error=%v", messageId, err)
		return toStoreErr(err)
	}

	log.CtxInfo(ctx, "message deleted: message_id=%s, sender_id=%s", messageId, userId)
	return nil
}

// resurface lifts hide flags so the thread reappears in the affected
// inboxes. Best effort; a failed unhide never fails the send.
func (s *MessageService) resurface(ctx context.Context, conv *entity.Conversation, senderId, recipientId string) {
	if err := s.convRepo.Unhide(ctx, conv.Id, senderId); err != nil {
		log.CtxError(ctx, "unhide for sender failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, senderId, err)
	}
	if conv.IsDirect() && recipientId != "" {
		if err := s.convRepo.Unhide(ctx, conv.Id, recipientId); err != nil {
			log.CtxError(ctx, "unhide for recipient failed: conversation_id=%s, user_id=%s, error=%v", conv.Id, recipientId, err)
		}
	}
}

// fanOutMentions notifies members mentioned with @id in a group message.
// Failures are logged and swallowed; a send never fails on notification.
func (s *MessageService) fanOutMentions(ctx context.Context, conv *entity.Conversation, senderId, content string, members []*entity.Member) {
	if s.sink == nil || !conv.IsGroup() || content == "" {
		return
	}

	memberSet := make(map[string]bool, len(members))
	for _, m := range members {
		memberSet[m.UserId] = true
	}

	notified := make(map[string]bool)
	for _, match := range mentionPattern.FindAllStringSubmatch(content, -1) {
		mentioned := match[1]
		if mentioned == senderId || !memberSet[mentioned] || notified[mentioned] {
			continue
		}
		notified[mentioned] = true
		if err := s.sink.Append(ctx, mentioned, senderId, constant.VerbMentioned, conv.Id); err != nil {
			log.CtxError(ctx, "mention notification failed: user_id=%s, conversation_id=%s, error=%v", mentioned, conv.Id, err)
		}
	}
}
