package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pailhq/courier/pkg/constant"
	"github.com/pailhq/courier/pkg/errcode"
)

func TestCreateGroup_CreatorIsAdminMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "launch crew", "bob", "carol")
	assert.Equal(t, constant.KindGroup, group.Kind)
	assert.Equal(t, "alice", group.CreatorId)
	assert.Nil(t, group.PairKey)

	members, err := env.conv.ListMembers(ctx, "alice", group.Id)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	isAdmin, err := env.perm.IsAdmin(ctx, "alice", group.Id)
	require.NoError(t, err)
	assert.True(t, isAdmin)

	isAdmin, err = env.perm.IsAdmin(ctx, "bob", group.Id)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestCreateGroup_NotifiesInitialMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "notified", "bob")

	notifs, err := env.repos.Notification.ListByUser(ctx, "bob", 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	assert.Equal(t, "alice", notifs[0].ActorId)
	assert.Equal(t, constant.VerbAddedToGroup, notifs[0].Verb)
	assert.Equal(t, group.Id, notifs[0].ConversationId)
}

func TestAddMember_PromotesDirectToGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")

	require.NoError(t, env.conv.AddMember(ctx, "alice", convId, "carol"))

	conv, err := env.repos.Conversation.GetById(ctx, convId)
	require.NoError(t, err)
	assert.Equal(t, constant.KindGroup, conv.Kind)
	assert.Nil(t, conv.PairKey, "promoted conversation frees the pair slot")
	assert.Equal(t, "alice", conv.CreatorId)

	members, err := env.conv.ListMembers(ctx, "alice", convId)
	require.NoError(t, err)
	assert.Len(t, members, 3)

	// The pair can now form a fresh direct conversation.
	fresh := env.mustReconcile("alice", "bob")
	assert.NotEqual(t, convId, fresh)
}

func TestAddMember_GroupRequiresAdmin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "gated", "bob")

	err := env.conv.AddMember(ctx, "bob", group.Id, "carol")
	assert.ErrorIs(t, err, errcode.ErrNotAdmin)

	err = env.conv.AddMember(ctx, "alice", group.Id, "bob")
	assert.ErrorIs(t, err, errcode.ErrAlreadyMember)

	err = env.conv.AddMember(ctx, "mallory", group.Id, "carol")
	assert.ErrorIs(t, err, errcode.ErrNotMember)
}

func TestRemoveMember_PermissionMatrix(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "matrix", "bob", "carol", "dave")
	require.NoError(t, env.conv.PromoteAdmin(ctx, "alice", group.Id, "bob"))
	require.NoError(t, env.conv.PromoteAdmin(ctx, "alice", group.Id, "dave"))

	// Plain member cannot remove anyone.
	err := env.conv.RemoveMember(ctx, "carol", group.Id, "dave")
	assert.ErrorIs(t, err, errcode.ErrNotAdmin)

	// Admin cannot remove another admin.
	err = env.conv.RemoveMember(ctx, "bob", group.Id, "dave")
	assert.ErrorIs(t, err, errcode.ErrCannotRemoveAdmin)

	// Nobody removes the creator, creator included.
	err = env.conv.RemoveMember(ctx, "bob", group.Id, "alice")
	assert.ErrorIs(t, err, errcode.ErrCannotRemoveCreator)
	err = env.conv.RemoveMember(ctx, "alice", group.Id, "alice")
	assert.ErrorIs(t, err, errcode.ErrCannotRemoveCreator)

	// Admin removes a plain member.
	require.NoError(t, env.conv.RemoveMember(ctx, "bob", group.Id, "carol"))

	// Creator removes an admin.
	require.NoError(t, env.conv.RemoveMember(ctx, "alice", group.Id, "dave"))

	members, err := env.conv.ListMembers(ctx, "alice", group.Id)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestLeave_CreatorHandsOffToEarliestJoined(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "handoff")

	// Stagger joins so tenure is unambiguous.
	require.NoError(t, env.conv.AddMember(ctx, "alice", group.Id, "bob"))
	bobRow, err := env.repos.Member.Get(ctx, group.Id, "bob")
	require.NoError(t, err)
	require.NoError(t, env.repos.DB.Model(bobRow).Update("joined_at", bobRow.JoinedAt-1000).Error)
	require.NoError(t, env.conv.AddMember(ctx, "alice", group.Id, "carol"))

	require.NoError(t, env.conv.Leave(ctx, "alice", group.Id))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, "bob", conv.CreatorId)

	// Creator-always-admin holds for the successor.
	isAdmin, err := env.perm.IsAdmin(ctx, "bob", group.Id)
	require.NoError(t, err)
	assert.True(t, isAdmin)
}

func TestLeave_LastMemberDeletesGroup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "ghost town")
	require.NoError(t, env.conv.Leave(ctx, "alice", group.Id))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestLeave_DirectRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	convId := env.mustReconcile("alice", "bob")
	err := env.conv.Leave(ctx, "alice", convId)
	assert.ErrorIs(t, err, errcode.ErrDirectImmutable)
}

func TestRename_CreatorOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "old name", "bob")
	require.NoError(t, env.conv.PromoteAdmin(ctx, "alice", group.Id, "bob"))

	// Even an admin cannot rename.
	err := env.conv.Rename(ctx, "bob", group.Id, "new name")
	assert.ErrorIs(t, err, errcode.ErrNotCreator)

	require.NoError(t, env.conv.Rename(ctx, "alice", group.Id, "new name"))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, "new name", conv.Name)
}

func TestUpdateAvatar_AnyMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "avatars", "bob")

	require.NoError(t, env.conv.UpdateAvatar(ctx, "bob", group.Id, "https://cdn.example.com/g.png"))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/g.png", conv.AvatarURL)

	err = env.conv.UpdateAvatar(ctx, "mallory", group.Id, "https://cdn.example.com/x.png")
	assert.ErrorIs(t, err, errcode.ErrNotMember)
}

func TestAdminFlags_CreatorOnlyMutations(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "flags", "bob", "carol")
	require.NoError(t, env.conv.PromoteAdmin(ctx, "alice", group.Id, "bob"))

	// Admins cannot mint other admins.
	err := env.conv.PromoteAdmin(ctx, "bob", group.Id, "carol")
	assert.ErrorIs(t, err, errcode.ErrNotCreator)

	// Demoting a non-admin is an invalid state.
	err = env.conv.DemoteAdmin(ctx, "alice", group.Id, "carol")
	assert.ErrorIs(t, err, errcode.ErrNotDemotable)

	require.NoError(t, env.conv.DemoteAdmin(ctx, "alice", group.Id, "bob"))
	isAdmin, err := env.perm.IsAdmin(ctx, "bob", group.Id)
	require.NoError(t, err)
	assert.False(t, isAdmin)
}

func TestTransferOwnership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "transfer", "bob")

	err := env.conv.TransferOwnership(ctx, "alice", group.Id, "alice")
	assert.ErrorIs(t, err, errcode.ErrSelfTarget)

	err = env.conv.TransferOwnership(ctx, "alice", group.Id, "mallory")
	assert.ErrorIs(t, err, errcode.ErrMemberNotFound)

	require.NoError(t, env.conv.TransferOwnership(ctx, "alice", group.Id, "bob"))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Equal(t, "bob", conv.CreatorId)

	// The outgoing creator keeps admin rights but not creator powers.
	isAdmin, err := env.perm.IsAdmin(ctx, "alice", group.Id)
	require.NoError(t, err)
	assert.True(t, isAdmin)
	err = env.conv.Rename(ctx, "alice", group.Id, "mine again")
	assert.ErrorIs(t, err, errcode.ErrNotCreator)
}

func TestDeleteGroup_CascadesState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group := env.mustCreateGroup("alice", "doomed", "bob")
	env.mustSend("alice", group.Id, "last words")
	require.NoError(t, env.conv.Hide(ctx, "bob", group.Id))

	err := env.conv.DeleteGroup(ctx, "bob", group.Id)
	assert.ErrorIs(t, err, errcode.ErrNotCreator)

	require.NoError(t, env.conv.DeleteGroup(ctx, "alice", group.Id))

	conv, err := env.repos.Conversation.GetById(ctx, group.Id)
	require.NoError(t, err)
	assert.Nil(t, conv)

	members, err := env.repos.Member.ListByConversation(ctx, group.Id)
	require.NoError(t, err)
	assert.Empty(t, members)

	messages, err := env.repos.Message.ListByConversation(ctx, group.Id, 0)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
