package service

import (
	"context"
	"testing"

	"github.com/ropaswap/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSwipeService_Record_IdempotentUpsert(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "owner")
	env.createUser(t, "swiper")
	listing := env.createListing(t, "owner", floatPtr(30))
	ctx := context.Background()

	_, err := env.swiping.Record(ctx, "swiper", listing.ID, model.SwipeLeft)
	require.NoError(t, err)
	_, err = env.swiping.Record(ctx, "swiper", listing.ID, model.SwipeRight)
	require.NoError(t, err)
	_, err = env.swiping.Record(ctx, "swiper", listing.ID, model.SwipeSuper)
	require.NoError(t, err)

	var swipes []model.Swipe
	require.NoError(t, env.db.Where("swiper_uid = ?", "swiper").Find(&swipes).Error)
	require.Len(t, swipes, 1)
	// Last direction wins.
	assert.Equal(t, model.SwipeSuper, swipes[0].Direction)
}

func TestSwipeService_Record_ReciprocityCreatesMatch(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	aliceListing := env.createListing(t, "alice", floatPtr(25))
	bobListing := env.createListing(t, "bob", floatPtr(35))
	ctx := context.Background()

	// One-sided like produces no match.
	match, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	assert.Nil(t, match)

	match, err = env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeRight)
	require.NoError(t, err)
	require.NotNil(t, match)
	assert.Equal(t, model.MatchStatusPending, match.Status)
	assert.Equal(t, "alice", match.UserAUID)
	assert.Equal(t, "bob", match.UserBUID)
	assert.Equal(t, aliceListing.ID, match.ListingAID)
	assert.Equal(t, bobListing.ID, match.ListingBID)
	assert.NotZero(t, match.ConversationID)
}

func TestSwipeService_Record_NoDuplicateMatchForPair(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	aliceListing := env.createListing(t, "alice", floatPtr(25))
	bobListing := env.createListing(t, "bob", floatPtr(35))
	ctx := context.Background()

	_, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	first, err := env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeRight)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Re-swiping either side of an already matched pair stays quiet.
	again, err := env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeSuper)
	require.NoError(t, err)
	assert.Nil(t, again)
	reverse, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	assert.Nil(t, reverse)

	var cnt int64
	require.NoError(t, env.db.Model(&model.Match{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)
}

func TestSwipeService_Record_LeftSwipeNeverMatches(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	aliceListing := env.createListing(t, "alice", floatPtr(25))
	bobListing := env.createListing(t, "bob", floatPtr(35))
	ctx := context.Background()

	_, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	match, err := env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeLeft)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestSwipeService_Record_OwnListing(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	listing := env.createListing(t, "alice", floatPtr(25))

	match, err := env.swiping.Record(context.Background(), "alice", listing.ID, model.SwipeRight)
	require.NoError(t, err)
	assert.Nil(t, match)
}

func TestSwipeService_Record_UnknownListing(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")

	_, err := env.swiping.Record(context.Background(), "alice", 9999, model.SwipeRight)
	assert.ErrorIs(t, err, ErrNotFound)
}
