package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pailhq/courier/internal/entity"
	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
)

func TestReconcile_CreatesDirectConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	conv, err := env.repos.Conversation.GetById(ctx, convId)
	require.NoError(t, err)
	require.NotNil(t, conv)
	assert.Equal(t, constant.KindDirect, conv.Kind)
	require.NotNil(t, conv.PairKey)
	assert.Equal(t, "dm_alice:bob", *conv.PairKey)

	members, err := env.repos.Member.ListByConversation(ctx, convId)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestReconcile_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedLegacyMessage("alice", "bob", "hey", false, 1000)

	first := env.mustReconcile("alice", "bob")
	// Order of the pair must not matter either.
	second := env.mustReconcile("bob", "alice")
	assert.Equal(t, first, second)

	members, err := env.repos.Member.ListByConversation(ctx, first)
	require.NoError(t, err)
	assert.Len(t, members, 2)

	partners, err := env.repos.Message.LegacyPartnerIds(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, partners, "no unmigrated messages should remain")
}

func TestReconcile_MigratesLegacyMessages(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Two from alice to bob, one back, all unread.
	env.seedLegacyMessage("alice", "bob", "one", false, 1000)
	env.seedLegacyMessage("alice", "bob", "two", false, 2000)
	env.seedLegacyMessage("bob", "alice", "three", false, 3000)

	convId := env.mustReconcile("alice", "bob")

	messages, err := env.repos.Message.ListByConversation(ctx, convId, 0)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	for _, m := range messages {
		assert.True(t, m.IsMigrated())
	}

	// Each side only counts what the other sent.
	assert.Equal(t, int64(2), env.unreadCount("bob", convId))
	assert.Equal(t, int64(1), env.unreadCount("alice", convId))
}

func TestReconcile_PreservesReadFlags(t *testing.T) {
	env := newTestEnv(t)

	env.seedLegacyMessage("alice", "bob", "seen", true, 1000)
	env.seedLegacyMessage("alice", "bob", "unseen", false, 2000)

	convId := env.mustReconcile("alice", "bob")

	assert.Equal(t, int64(1), env.unreadCount("bob", convId))
}

func TestReconcile_RejectsSelfAndEmpty(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.migration.Reconcile(ctx, "alice", "alice")
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)

	_, err = env.migration.Reconcile(ctx, "alice", "")
	assert.ErrorIs(t, err, errcode.ErrInvalidParam)
}

func TestReconcileAll_CoversEveryPartner(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedLegacyMessage("alice", "bob", "to bob", false, 1000)
	env.seedLegacyMessage("carol", "alice", "from carol", false, 2000)

	require.NoError(t, env.migration.ReconcileAll(ctx, "alice"))

	memberships, err := env.repos.Member.ListByUser(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, memberships, 2)

	partners, err := env.repos.Message.LegacyPartnerIds(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, partners)
}

func TestReconcile_MergesOntoExistingPairKey(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Simulate losing the creation race: the winner's conversation row
	// already holds the pair_key, but its member rows are not visible to
	// the losing side's membership lookup yet.
	pairKey := entity.GenPairKey("alice", "bob")
	winner := &entity.Conversation{
		Id:      "winner",
		Kind:    constant.KindDirect,
		PairKey: &pairKey,
	}
	require.NoError(t, env.repos.Conversation.Create(ctx, env.repos.DB, winner))

	convId := env.mustReconcile("alice", "bob")
	assert.Equal(t, winner.Id, convId)

	var directCount int64
	require.NoError(t, env.repos.DB.Model(&entity.Conversation{}).
		Where("kind = ?", constant.KindDirect).
		Count(&directCount).Error)
	assert.Equal(t, int64(1), directCount)
}

func TestReconcile_IgnoresGroupWithSamePair(t *testing.T) {
	env := newTestEnv(t)

	// A group containing exactly alice and bob must not be mistaken for
	// their direct conversation.
	group := env.mustCreateGroup("alice", "pair group", "bob")

	convId := env.mustReconcile("alice", "bob")
	assert.NotEqual(t, group.Id, convId)
}
