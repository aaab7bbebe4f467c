package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/glebarez/sqlite"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/internal/repository"
)

// testEnv wires the full service stack against an in-memory database and
// redis so tests exercise real SQL and key expiry.
type testEnv struct {
	t     *testing.T
	mr    *miniredis.Miniredis
	repos *repository.Repositories

	perm      *PermissionService
	migration *MigrationService
	unread    *UnreadService
	conv      *ConversationService
	msg       *MessageService
	typing    *TypingService
	inbox     *InboxService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&entity.Conversation{},
		&entity.Member{},
		&entity.Message{},
		&entity.HiddenConversation{},
		&entity.Notification{},
	))

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	repos := repository.NewWithClients(db, rdb)

	env := &testEnv{t: t, mr: mr, repos: repos}
	env.perm = NewPermissionService(repos)
	env.migration = NewMigrationService(repos)
	env.unread = NewUnreadService(repos, 0)
	env.conv = NewConversationService(repos, env.perm, repos.Notification)
	env.msg = NewMessageService(repos, env.unread, nil, repos.Notification)
	env.typing = NewTypingService(repos, 3*time.Second)
	env.inbox = NewInboxService(repos, env.migration, env.unread)
	return env
}

var testMsgSeq int

// seedLegacyMessage inserts an unmigrated legacy direct message
func (e *testEnv) seedLegacyMessage(sender, recipient, content string, read bool, createdAt int64) *entity.Message {
	e.t.Helper()
	testMsgSeq++

	msg := &entity.Message{
		Id:                fmt.Sprintf("legacy-%d", testMsgSeq),
		SenderId:          sender,
		LegacyRecipientId: recipient,
		Content:           content,
		LegacyIsRead:      read,
		CreatedAt:         createdAt,
	}
	require.NoError(e.t, e.repos.Message.Create(context.Background(), e.repos.DB, msg))
	return msg
}

// seedMessageAt inserts a conversation message with an explicit timestamp
func (e *testEnv) seedMessageAt(conversationId, sender, content string, createdAt int64) *entity.Message {
	e.t.Helper()
	testMsgSeq++

	msg := &entity.Message{
		Id:             fmt.Sprintf("msg-%d", testMsgSeq),
		ConversationId: &conversationId,
		SenderId:       sender,
		Content:        content,
		CreatedAt:      createdAt,
	}
	require.NoError(e.t, e.repos.Message.Create(context.Background(), e.repos.DB, msg))
	return msg
}

// mustReconcile reconciles the pair and returns the conversation id
func (e *testEnv) mustReconcile(userA, userB string) string {
	e.t.Helper()
	id, err := e.migration.Reconcile(context.Background(), userA, userB)
	require.NoError(e.t, err)
	require.NotEmpty(e.t, id)
	return id
}

// mustCreateGroup creates a group and returns the conversation
func (e *testEnv) mustCreateGroup(creator, name string, memberIds ...string) *entity.Conversation {
	e.t.Helper()
	conv, err := e.conv.CreateGroup(context.Background(), creator, &CreateGroupRequest{
		Name:      name,
		MemberIds: memberIds,
	})
	require.NoError(e.t, err)
	return conv
}

// mustSend sends a message through the service path
func (e *testEnv) mustSend(sender, conversationId, content string) *entity.MessageInfo {
	e.t.Helper()
	info, err := e.msg.Send(context.Background(), sender, &SendMessageRequest{
		ConversationId: conversationId,
		Content:        content,
	})
	require.NoError(e.t, err)
	return info
}

// unreadCount returns the unread count, failing the test on error
func (e *testEnv) unreadCount(userId, conversationId string) int64 {
	e.t.Helper()
	count, err := e.unread.Count(context.Background(), userId, conversationId)
	require.NoError(e.t, err)
	return count
}
