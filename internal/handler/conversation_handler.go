package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/pailhq/courier/internal/middleware"
	"github.com/pailhq/courier/internal/service"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/response"
)

// ConversationHandler handles conversation-level requests: info, members,
// unread accounting and per-viewer visibility
type ConversationHandler struct {
	convService   *service.ConversationService
	unreadService *service.UnreadService
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(convService *service.ConversationService, unreadService *service.UnreadService) *ConversationHandler {
	return &ConversationHandler{
		convService:   convService,
		unreadService: unreadService,
	}
}

// ConversationRequest represents a request addressing one conversation
type ConversationRequest struct {
	ConversationId string `json:"conversation_id"`
}

// GetInfo handles get conversation info request
func (h *ConversationHandler) GetInfo(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	info, err := h.convService.GetInfo(ctx, userId, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, info)
}

// GetMembers handles list members request
func (h *ConversationHandler) GetMembers(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	members, err := h.convService.ListMembers(ctx, userId, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, members)
}

// GetUnread handles per-conversation unread count request
func (h *ConversationHandler) GetUnread(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	conversationId := c.Query("conversation_id")
	if conversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	count, err := h.unreadService.Count(ctx, userId, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]int64{"unread_count": count})
}

// GetUnreadTotal handles cross-conversation unread total request
func (h *ConversationHandler) GetUnreadTotal(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	total, err := h.unreadService.Total(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]int64{"unread_total": total})
}

// MarkRead handles mark read request
func (h *ConversationHandler) MarkRead(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req ConversationRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.unreadService.MarkRead(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Hide handles hide conversation request
func (h *ConversationHandler) Hide(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req ConversationRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.Hide(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Unhide handles unhide conversation request
func (h *ConversationHandler) Unhide(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req ConversationRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.Unhide(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
