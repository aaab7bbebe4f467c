package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pailhq/courier/pkg/errcode"
)

func TestTyping_StartAndStop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	require.NoError(t, env.typing.Start(ctx, "alice", convId))

	who, err := env.typing.WhoIsTyping(ctx, "bob", convId)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, who)

	// The caller never sees themselves.
	who, err = env.typing.WhoIsTyping(ctx, "alice", convId)
	require.NoError(t, err)
	assert.Empty(t, who)

	require.NoError(t, env.typing.Stop(ctx, "alice", convId))
	who, err = env.typing.WhoIsTyping(ctx, "bob", convId)
	require.NoError(t, err)
	assert.Empty(t, who)

	// Stopping an absent signal is a no-op.
	require.NoError(t, env.typing.Stop(ctx, "alice", convId))
}

func TestTyping_SignalExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	require.NoError(t, env.typing.Start(ctx, "alice", convId))
	env.mr.FastForward(4 * time.Second)

	who, err := env.typing.WhoIsTyping(ctx, "bob", convId)
	require.NoError(t, err)
	assert.Empty(t, who, "signal must decay without an explicit stop")
}

func TestTyping_RefreshExtendsSignal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	require.NoError(t, env.typing.Start(ctx, "alice", convId))
	env.mr.FastForward(2 * time.Second)
	require.NoError(t, env.typing.Start(ctx, "alice", convId))
	env.mr.FastForward(2 * time.Second)

	who, err := env.typing.WhoIsTyping(ctx, "bob", convId)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, who)
}

func TestTyping_MembersOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	assert.ErrorIs(t, env.typing.Start(ctx, "mallory", convId), errcode.ErrNotMember)
	assert.ErrorIs(t, env.typing.Stop(ctx, "mallory", convId), errcode.ErrNotMember)
	_, err := env.typing.WhoIsTyping(ctx, "mallory", convId)
	assert.ErrorIs(t, err, errcode.ErrNotMember)
}
