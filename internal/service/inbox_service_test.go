package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInbox_ReconcilesLegacyOnFirstView(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.seedLegacyMessage("bob", "alice", "old dm", false, 1000)

	entries, err := env.inbox.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.False(t, entry.IsGroup)
	assert.Equal(t, "bob", entry.OtherMemberId)
	assert.Equal(t, "bob", entry.Title)
	require.NotNil(t, entry.LatestMessage)
	assert.Equal(t, "old dm", entry.LatestMessage.Content)
	assert.Equal(t, int64(1), entry.UnreadCount)
}

func TestInbox_OrdersByLatestActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	quiet := env.mustReconcile("alice", "bob")
	busy := env.mustReconcile("alice", "carol")

	env.seedMessageAt(quiet, "bob", "earlier", 1000)
	env.seedMessageAt(busy, "carol", "later", 2000)

	entries, err := env.inbox.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, busy, entries[0].Conversation.Id)
	assert.Equal(t, quiet, entries[1].Conversation.Id)
}

func TestInbox_ExcludesHidden(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	kept := env.mustReconcile("alice", "bob")
	hidden := env.mustReconcile("alice", "carol")
	require.NoError(t, env.conv.Hide(ctx, "alice", hidden))

	entries, err := env.inbox.List(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, kept, entries[0].Conversation.Id)

	// Hiding is per viewer; carol still sees the thread.
	carolEntries, err := env.inbox.List(ctx, "carol")
	require.NoError(t, err)
	assert.Len(t, carolEntries, 1)
}

func TestInbox_GroupEntryShape(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "weekend plans", "bob")

	entries, err := env.inbox.List(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.True(t, entry.IsGroup)
	assert.Equal(t, "weekend plans", entry.Title)
	assert.Empty(t, entry.OtherMemberId)
	assert.Equal(t, group.Id, entry.Conversation.Id)
	assert.Equal(t, int64(2), entry.Conversation.MemberCount)
	assert.Nil(t, entry.LatestMessage)
}
