package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kidquest/internal/models"
	"kidquest/internal/testutil"
)

func TestFilterCandidates(t *testing.T) {
	got := filterCandidates("Look at my Blue-Whale, blue whale!")
	assert.Equal(t, []string{"look", "look at", "at", "at my", "my", "my blue", "blue", "blue whale", "whale", "whale blue"}, got)
	assert.Empty(t, filterCandidates("  ...  "))
}

func TestCreatePost(t *testing.T) {
	f := newFixture(t)
	svc := f.communityService()
	ctx := context.Background()

	_, err := f.db.InsertBadWords(ctx, []string{"darn", "silly goose"})
	require.NoError(t, err)

	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)
	parent := testutil.CreateUser(t, f.db, "parent", models.RoleParent)

	_, err = svc.CreatePost(ctx, identity(parent), "art", "My drawing", "", "")
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.CreatePost(ctx, identity(kid), "art", "", "no title", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.CreatePost(ctx, identity(kid), "art", "DARN it", "", "")
	assert.ErrorIs(t, err, ErrInappropriateContent)

	_, err = svc.CreatePost(ctx, identity(kid), "story", "Farm", "a Silly Goose walked by", "")
	assert.ErrorIs(t, err, ErrInappropriateContent)

	post, err := svc.CreatePost(ctx, identity(kid), "art", "My rocket", "It goes to the moon", "https://img.example/rocket.png")
	require.NoError(t, err)
	assert.False(t, post.Approved)
	assert.Equal(t, kid.ID, post.UserID)

	approved, err := svc.ListApproved(ctx)
	require.NoError(t, err)
	assert.Empty(t, approved)
}

func TestPostModeration(t *testing.T) {
	f := newFixture(t)
	svc := f.communityService()
	ctx := context.Background()

	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)
	otherKid := testutil.CreateUser(t, f.db, "otherkid", models.RoleKid)
	parent := testutil.CreateUser(t, f.db, "parent", models.RoleParent)
	stranger := testutil.CreateUser(t, f.db, "stranger", models.RoleParent)
	teacher := testutil.CreateUser(t, f.db, "teacher", models.RoleTeacher)
	testutil.Link(t, f.db, kid, parent)

	mine, err := svc.CreatePost(ctx, identity(kid), "art", "Cat", "", "")
	require.NoError(t, err)
	theirs, err := svc.CreatePost(ctx, identity(otherKid), "art", "Dog", "", "")
	require.NoError(t, err)

	pending, err := svc.ListPending(ctx, identity(parent))
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, mine.ID, pending[0].ID)

	all, err := svc.ListPending(ctx, identity(teacher))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.ListPending(ctx, identity(kid))
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.ApprovePost(ctx, identity(stranger), mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ApprovePost(ctx, identity(kid), mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.ApprovePost(ctx, identity(teacher), 9999)
	assert.ErrorIs(t, err, ErrNotFound)

	approved, err := svc.ApprovePost(ctx, identity(parent), mine.ID)
	require.NoError(t, err)
	assert.True(t, approved.Approved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, parent.ID, *approved.ApprovedBy)

	_, err = svc.ApprovePost(ctx, identity(teacher), theirs.ID)
	require.NoError(t, err)

	feed, err := svc.ListApproved(ctx)
	require.NoError(t, err)
	assert.Len(t, feed, 2)
}

func TestDeletePost(t *testing.T) {
	f := newFixture(t)
	svc := f.communityService()
	ctx := context.Background()

	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)
	otherKid := testutil.CreateUser(t, f.db, "otherkid", models.RoleKid)
	teacher := testutil.CreateUser(t, f.db, "teacher", models.RoleTeacher)

	post, err := svc.CreatePost(ctx, identity(kid), "art", "Cat", "", "")
	require.NoError(t, err)
	_, err = svc.ToggleReaction(ctx, identity(otherKid), post.ID, "🎉")
	require.NoError(t, err)

	assert.ErrorIs(t, svc.DeletePost(ctx, identity(otherKid), post.ID), ErrForbidden)
	require.NoError(t, svc.DeletePost(ctx, identity(kid), post.ID))
	assert.ErrorIs(t, svc.DeletePost(ctx, identity(teacher), post.ID), ErrNotFound)

	counts, err := svc.ListReactions(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestToggleReaction(t *testing.T) {
	f := newFixture(t)
	svc := f.communityService()
	ctx := context.Background()

	kid := testutil.CreateUser(t, f.db, "kid", models.RoleKid)
	friend := testutil.CreateUser(t, f.db, "friend", models.RoleKid)

	post, err := svc.CreatePost(ctx, identity(kid), "art", "Cat", "", "")
	require.NoError(t, err)

	added, err := svc.ToggleReaction(ctx, identity(kid), post.ID, "⭐")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = svc.ToggleReaction(ctx, identity(friend), post.ID, "⭐")
	require.NoError(t, err)
	assert.True(t, added)
	added, err = svc.ToggleReaction(ctx, identity(friend), post.ID, "❤️")
	require.NoError(t, err)
	assert.True(t, added)

	counts, err := svc.ListReactions(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ReactionCount{{Emoji: "⭐", Count: 2}, {Emoji: "❤️", Count: 1}}, counts)

	added, err = svc.ToggleReaction(ctx, identity(friend), post.ID, "⭐")
	require.NoError(t, err)
	assert.False(t, added)

	counts, err = svc.ListReactions(ctx, post.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []models.ReactionCount{{Emoji: "⭐", Count: 1}, {Emoji: "❤️", Count: 1}}, counts)

	_, err = svc.ToggleReaction(ctx, identity(friend), 9999, "⭐")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.ToggleReaction(ctx, identity(friend), post.ID, "")
	assert.ErrorIs(t, err, ErrInvalidInput)
}
