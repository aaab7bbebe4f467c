package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/pailhq/courier/internal/middleware"
	"github.com/pailhq/courier/internal/service"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/response"
)

// GroupHandler handles group lifecycle and membership requests
type GroupHandler struct {
	convService *service.ConversationService
}

// NewGroupHandler creates a new GroupHandler
func NewGroupHandler(convService *service.ConversationService) *GroupHandler {
	return &GroupHandler{convService: convService}
}

// CreateGroup handles create group request
func (h *GroupHandler) CreateGroup(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req service.CreateGroupRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	conv, err := h.convService.CreateGroup(ctx, userId, &req)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, conv)
}

// MemberRequest represents a request targeting one member of a conversation
type MemberRequest struct {
	ConversationId string `json:"conversation_id"`
	TargetId       string `json:"target_id"`
}

// AddMember handles add member request
func (h *GroupHandler) AddMember(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.AddMember(ctx, userId, req.ConversationId, req.TargetId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// RemoveMember handles remove member request
func (h *GroupHandler) RemoveMember(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.RemoveMember(ctx, userId, req.ConversationId, req.TargetId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// Leave handles leave group request
func (h *GroupHandler) Leave(ctx context.Context, c *app.RequestContext) {
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

	if err := h.convService.Leave(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// RenameRequest represents rename group request
type RenameRequest struct {
	ConversationId string `json:"conversation_id"`
	Name           string `json:"name"`
}

// Rename handles rename group request
func (h *GroupHandler) Rename(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req RenameRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.Rename(ctx, userId, req.ConversationId, req.Name); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// AvatarRequest represents update avatar request
type AvatarRequest struct {
	ConversationId string `json:"conversation_id"`
	AvatarURL      string `json:"avatar_url"`
}

// UpdateAvatar handles update group avatar request
func (h *GroupHandler) UpdateAvatar(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req AvatarRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.UpdateAvatar(ctx, userId, req.ConversationId, req.AvatarURL); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// PromoteAdmin handles promote admin request
func (h *GroupHandler) PromoteAdmin(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.PromoteAdmin(ctx, userId, req.ConversationId, req.TargetId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// DemoteAdmin handles demote admin request
func (h *GroupHandler) DemoteAdmin(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.DemoteAdmin(ctx, userId, req.ConversationId, req.TargetId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// TransferOwner handles transfer ownership request
func (h *GroupHandler) TransferOwner(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req MemberRequest
	if err := c.BindAndValidate(&req); err != nil || req.ConversationId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	if err := h.convService.TransferOwnership(ctx, userId, req.ConversationId, req.TargetId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}

// DeleteGroup handles delete group request
func (h *GroupHandler) DeleteGroup(ctx context.Context, c *app.RequestContext) {
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

	if err := h.convService.DeleteGroup(ctx, userId, req.ConversationId); err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, nil)
}
