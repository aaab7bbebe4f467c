package router

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/protocol/consts"

	"github.com/pailhq/courier/internal/config"
	"github.com/pailhq/courier/internal/handler"
	"github.com/pailhq/courier/internal/middleware"
)

// SetupRouter sets up all routes
func SetupRouter(h *server.Hertz, handlers *Handlers) {
	// CORS and per-request store deadline
	h.Use(middleware.CORS())
	h.Use(middleware.Timeout(config.GlobalConfig.Messaging.StoreTimeout))

	// Health check
	h.GET("/health", func(ctx context.Context, c *app.RequestContext) {
		c.JSON(consts.StatusOK, map[string]string{"status": "ok"})
	})

	// Inbox route (auth required)
	h.GET("/inbox", middleware.JWTAuth(), handlers.Inbox.GetInbox)

	// Direct-conversation routes (auth required)
	dmGroup := h.Group("/dm", middleware.JWTAuth())
	{
		dmGroup.POST("/reconcile", handlers.Inbox.Reconcile)
	}

	// Conversation routes (auth required)
	convGroup := h.Group("/conversation", middleware.JWTAuth())
	{
		convGroup.GET("/info", handlers.Conversation.GetInfo)
		convGroup.GET("/members", handlers.Conversation.GetMembers)
		convGroup.GET("/unread", handlers.Conversation.GetUnread)
		convGroup.GET("/unread_total", handlers.Conversation.GetUnreadTotal)
		convGroup.POST("/mark_read", handlers.Conversation.MarkRead)
		convGroup.POST("/hide", handlers.Conversation.Hide)
		convGroup.POST("/unhide", handlers.Conversation.Unhide)
	}

	// Group routes (auth required)
	groupGroup := h.Group("/group", middleware.JWTAuth())
	{
		groupGroup.POST("/create", handlers.Group.CreateGroup)
		groupGroup.POST("/add_member", handlers.Group.AddMember)
		groupGroup.POST("/remove_member", handlers.Group.RemoveMember)
		groupGroup.POST("/leave", handlers.Group.Leave)
		groupGroup.POST("/rename", handlers.Group.Rename)
		groupGroup.POST("/avatar", handlers.Group.UpdateAvatar)
		groupGroup.POST("/promote_admin", handlers.Group.PromoteAdmin)
		groupGroup.POST("/demote_admin", handlers.Group.DemoteAdmin)
		groupGroup.POST("/transfer_owner", handlers.Group.TransferOwner)
		groupGroup.POST("/delete", handlers.Group.DeleteGroup)
	}

	// Message routes (auth required)
	msgGroup := h.Group("/msg", middleware.JWTAuth())
	{
		msgGroup.POST("/send", handlers.Message.SendMessage)
		msgGroup.GET("/list", handlers.Message.ListMessages)
		msgGroup.POST("/delete", handlers.Message.DeleteMessage)
	}

	// Typing routes (auth required)
	typingGroup := h.Group("/typing", middleware.JWTAuth())
	{
		typingGroup.POST("/start", handlers.Typing.Start)
		typingGroup.POST("/stop", handlers.Typing.Stop)
		typingGroup.GET("/who", handlers.Typing.Who)
	}
}

// Handlers holds all HTTP handlers
type Handlers struct {
	Inbox        *handler.InboxHandler
	Conversation *handler.ConversationHandler
	Group        *handler.GroupHandler
	Message      *handler.MessageHandler
	Typing       *handler.TypingHandler
}
