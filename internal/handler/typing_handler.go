package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/pailhq/courier/internal/middleware"
	"github.com/pailhq/courier/internal/service"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/response"
)

// TypingHandler handles typing signal requests
type TypingHandler struct {
	typingService *service.TypingService
}

// NewTypingHandler creates a new TypingHandler
func NewTypingHandler(typingService *service.TypingService) *TypingHandler {
	return &TypingHandler{typingService: typingService}
}

// Start handles typing start request
func (h *TypingHandler) Start(ctx context.Context, c *app.RequestContext) {
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

	if err := h.typingService.Start(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Stop handles typing stop request
func (h *TypingHandler) Stop(ctx context.Context, c *app.RequestContext) {
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

	if err := h.typingService.Stop(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Who handles list typing users request
func (h *TypingHandler) Who(ctx context.Context, c *app.RequestContext) {
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

	users, err := h.typingService.WhoIsTyping(ctx, userId, conversationId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]interface{}{"typing_user_ids": users})
}
