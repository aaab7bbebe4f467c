package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"

	"github.com/pailhq/courier/internal/middleware"
	"github.com/pailhq/courier/internal/service"
	"github.com/pailhq/courier/pkg/errcode"
	"github.com/pailhq/courier/pkg/response"
)

// InboxHandler handles inbox and legacy reconciliation requests
type InboxHandler struct {
	inboxService     *service.InboxService
	migrationService *service.MigrationService
}

// NewInboxHandler creates a new InboxHandler
func NewInboxHandler(inboxService *service.InboxService, migrationService *service.MigrationService) *InboxHandler {
	return &InboxHandler{
		inboxService:     inboxService,
		migrationService: migrationService,
	}
}

// GetInbox handles inbox listing request
func (h *InboxHandler) GetInbox(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	entries, err := h.inboxService.List(ctx, userId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, entries)
}

// ReconcileRequest represents a direct-conversation reconcile request
type ReconcileRequest struct {
	PeerId string `json:"peer_id"`
}

// Reconcile handles direct-conversation reconcile request: it finds or
// creates the direct conversation with the peer and folds in any legacy
// messages between the pair.
func (h *InboxHandler) Reconcile(ctx context.Context, c *app.RequestContext) {
	userId := middleware.GetUserId(c)
	if userId == "" {
		response.ErrorWithCode(ctx, c, errcode.ErrUnauthorized)
		return
	}

	var req ReconcileRequest
	if err := c.BindAndValidate(&req); err != nil {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}
	if req.PeerId == "" || req.PeerId == userId {
		response.ErrorWithCode(ctx, c, errcode.ErrInvalidParam)
		return
	}

	conversationId, err := h.migrationService.Reconcile(ctx, userId, req.PeerId)
	if err != nil {
		response.Error(ctx, c, err)
		return
	}

	response.Success(ctx, c, map[string]string{"conversation_id": conversationId})
}
