package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/mbeoliero/kit/log"

	"github.com/pailhq/courier/internal/config"
	"github.com/pailhq/courier/internal/handler"
	"github.com/pailhq/courier/internal/repository"
	"github.com/pailhq/courier/internal/router"
	"github.com/pailhq/courier/internal/service"
	"github.com/pailhq/courier/pkg/constant"
)

func main() {
	ctx := context.TODO()

	// Load configuration
	cfg, err := config.Load("config/config.yaml")
	if err != nil {
		log.CtxError(ctx, "failed to load config: %v", err)
		panic(err)
	}

	log.CtxInfo(ctx, "config loaded: mode=%s", cfg.Server.Mode)

	// Initialize Redis key prefix
	constant.InitRedisKeyPrefix(cfg.Redis.KeyPrefix)
	log.CtxInfo(ctx, "redis key prefix: %s", constant.GetRedisKeyPrefix())

	// Initialize repositories
	repos, err := repository.NewRepositories(cfg)
	if err != nil {
		log.CtxError(ctx, "failed to initialize repositories: %v", err)
		panic(err)
	}
	defer repos.Close()

	// Check database connection
	if err := repos.CheckConnection(ctx); err != nil {
		log.CtxError(ctx, "database connection check failed: %v", err)
		panic(err)
	}
	log.CtxInfo(ctx, "database connection established")

	// Initialize services. The notification sink feeds the activity feed;
	// the block checker runs allow-all until the social graph service is
	// wired in.
	sink := repos.Notification
	blocks := service.AllowAllBlockChecker{}

	permService := service.NewPermissionService(repos)
	migrationService := service.NewMigrationService(repos)
	unreadService := service.NewUnreadService(repos, cfg.Messaging.UnreadTotalTTL)
	convService := service.NewConversationService(repos, permService, sink)
	msgService := service.NewMessageService(repos, unreadService, blocks, sink)
	typingService := service.NewTypingService(repos, cfg.Messaging.TypingTTL)
	inboxService := service.NewInboxService(repos, migrationService, unreadService)

	// Initialize handlers
	handlers := &router.Handlers{
		Inbox:        handler.NewInboxHandler(inboxService, migrationService),
		Conversation: handler.NewConversationHandler(convService, unreadService),
		Group:        handler.NewGroupHandler(convService),
		Message:      handler.NewMessageHandler(msgService),
		Typing:       handler.NewTypingHandler(typingService),
	}

	// Create Hertz server
	h := server.Default(
		server.WithHostPorts(fmt.Sprintf(":%d", cfg.Server.HTTPPort)),
	)

	// Setup routes
	router.SetupRouter(h, handlers)

	log.CtxInfo(ctx, "server starting on port %d", cfg.Server.HTTPPort)

	// Start server in goroutine
	go func() {
		h.Spin()
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.CtxInfo(ctx, "shutting down server...")

	// Graceful shutdown
	if err := h.Shutdown(ctx); err != nil {
		log.CtxError(ctx, "server shutdown error: %v", err)
	}

	log.CtxInfo(ctx, "server stopped")
}
