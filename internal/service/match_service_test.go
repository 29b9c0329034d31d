package service

import (
	"context"
	"testing"

	"github.com/ropaswap/backend/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// acceptedDeal drives the offer flow to an accepted match between seller
// and buyer at the given amount.
func (e *testEnv) acceptedDeal(t *testing.T, amount float64) (*model.Offer, *model.Match) {
	t.Helper()
	ctx := context.Background()
	listing := e.createListing(t, "seller", floatPtr(100))
	offer, _, err := e.offers.Create(ctx, "buyer", listing.ID, amount, "EUR")
	require.NoError(t, err)
	offer, match, err := e.offers.Accept(ctx, offer.ID, "seller")
	require.NoError(t, err)
	return offer, match
}

func TestMatchService_ConfirmDelivery_DualConfirm(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	env.createUser(t, "outsider")
	offer, match := env.acceptedDeal(t, 120)
	ctx := context.Background()

	_, _, err := env.matches.ConfirmDelivery(ctx, match.ID, "outsider")
	assert.ErrorIs(t, err, ErrForbidden)

	res, m, err := env.matches.ConfirmDelivery(ctx, match.ID, "seller")
	require.NoError(t, err)
	assert.True(t, res.Confirmed)
	assert.False(t, res.BothConfirmed)
	assert.Equal(t, model.MatchStatusAccepted, m.Status)
	assert.NotNil(t, m.SellerConfirmedAt)
	assert.Nil(t, m.BuyerConfirmedAt)

	// The same party cannot confirm twice.
	_, _, err = env.matches.ConfirmDelivery(ctx, match.ID, "seller")
	assert.ErrorIs(t, err, ErrAlreadyConfirmed)

	res, m, err = env.matches.ConfirmDelivery(ctx, match.ID, "buyer")
	require.NoError(t, err)
	assert.True(t, res.BothConfirmed)
	assert.Equal(t, model.MatchStatusCompleted, m.Status)
	assert.NotNil(t, m.EscrowReleasedAt)

	assert.Equal(t, model.EscrowReleased, env.reloadOffer(t, offer.ID).EscrowStatus)

	// Acceptance karma plus the completion bonus for both sides.
	seller := env.reloadUser(t, "seller")
	buyer := env.reloadUser(t, "buyer")
	assert.EqualValues(t, 25, seller.KarmaPoints)
	assert.EqualValues(t, 30, buyer.KarmaPoints)
	assert.Equal(t, 1, seller.CompletedTrades)
	assert.Equal(t, 1, seller.TotalTrades)
	assert.Equal(t, 1, buyer.CompletedTrades)

	var buddies []model.SwapBuddy
	require.NoError(t, env.db.Find(&buddies).Error)
	require.Len(t, buddies, 1)
	assert.Equal(t, 1, buddies[0].Trades)
}

func TestMatchService_ConfirmDelivery_OrderIndependent(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	_, match := env.acceptedDeal(t, 100)
	ctx := context.Background()

	res, _, err := env.matches.ConfirmDelivery(ctx, match.ID, "buyer")
	require.NoError(t, err)
	assert.False(t, res.BothConfirmed)

	res, m, err := env.matches.ConfirmDelivery(ctx, match.ID, "seller")
	require.NoError(t, err)
	assert.True(t, res.BothConfirmed)
	assert.Equal(t, model.MatchStatusCompleted, m.Status)
}

func TestMatchService_ConfirmDelivery_RequiresAccepted(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	aliceListing := env.createListing(t, "alice", floatPtr(25))
	bobListing := env.createListing(t, "bob", floatPtr(35))
	ctx := context.Background()

	_, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	match, err := env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeRight)
	require.NoError(t, err)
	require.NotNil(t, match)

	// Still pending, no deliveries to confirm yet.
	_, _, err = env.matches.ConfirmDelivery(ctx, match.ID, "alice")
	assert.ErrorIs(t, err, ErrNotAccepted)
}

func TestMatchService_AcceptMatch(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "alice")
	env.createUser(t, "bob")
	env.createUser(t, "outsider")
	aliceListing := env.createListing(t, "alice", floatPtr(25))
	bobListing := env.createListing(t, "bob", floatPtr(35))
	ctx := context.Background()

	_, err := env.swiping.Record(ctx, "bob", aliceListing.ID, model.SwipeRight)
	require.NoError(t, err)
	match, err := env.swiping.Record(ctx, "alice", bobListing.ID, model.SwipeRight)
	require.NoError(t, err)
	require.NotNil(t, match)

	_, err = env.matches.AcceptMatch(ctx, match.ID, "outsider")
	assert.ErrorIs(t, err, ErrForbidden)

	m, err := env.matches.AcceptMatch(ctx, match.ID, "bob")
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusAccepted, m.Status)

	_, err = env.matches.AcceptMatch(ctx, match.ID, "bob")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMatchService_OpenDispute(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	env.createUser(t, "outsider")
	offer, match := env.acceptedDeal(t, 130)
	ctx := context.Background()

	_, err := env.matches.OpenDispute(ctx, match.ID, "buyer", "bad")
	assert.Error(t, err)

	_, err = env.matches.OpenDispute(ctx, match.ID, "outsider", "item never arrived")
	assert.ErrorIs(t, err, ErrForbidden)

	m, err := env.matches.OpenDispute(ctx, match.ID, "buyer", "item never arrived")
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusDisputed, m.Status)
	require.NotNil(t, m.DisputeRef)
	assert.Len(t, *m.DisputeRef, 36)
	require.NotNil(t, m.DisputeReason)
	assert.Equal(t, "item never arrived", *m.DisputeReason)
	require.NotNil(t, m.DisputeOpenedBy)
	assert.Equal(t, "buyer", *m.DisputeOpenedBy)
	assert.Equal(t, model.EscrowDisputed, env.reloadOffer(t, offer.ID).EscrowStatus)

	// A disputed match is frozen: confirmations and re-disputes bounce.
	_, _, err = env.matches.ConfirmDelivery(ctx, match.ID, "seller")
	assert.ErrorIs(t, err, ErrNotAccepted)
	_, err = env.matches.OpenDispute(ctx, match.ID, "seller", "counter dispute")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestMatchService_ResolveDispute_Release(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	env.createUser(t, "admin", func(u *model.User) { u.Role = model.RoleAdmin })
	offer, match := env.acceptedDeal(t, 120)
	ctx := context.Background()

	_, err := env.matches.OpenDispute(ctx, match.ID, "seller", "buyer ghosted after pickup")
	require.NoError(t, err)

	// Only a stored admin role may resolve.
	_, err = env.matches.ResolveDispute(ctx, match.ID, "buyer", ResolutionRelease)
	assert.ErrorIs(t, err, ErrNotAdmin)

	m, err := env.matches.ResolveDispute(ctx, match.ID, "admin", ResolutionRelease)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusCompleted, m.Status)
	assert.NotNil(t, m.EscrowReleasedAt)
	assert.Equal(t, model.EscrowReleased, env.reloadOffer(t, offer.ID).EscrowStatus)

	// Release settles like an ordinary completion.
	assert.EqualValues(t, 25, env.reloadUser(t, "seller").KarmaPoints)
	assert.Equal(t, 1, env.reloadUser(t, "buyer").CompletedTrades)
}

func TestMatchService_ResolveDispute_Refund(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	env.createUser(t, "admin", func(u *model.User) { u.Role = model.RoleAdmin })
	offer, match := env.acceptedDeal(t, 120)
	ctx := context.Background()

	// Resolving before any dispute exists is rejected.
	_, err := env.matches.ResolveDispute(ctx, match.ID, "admin", ResolutionRefund)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.matches.OpenDispute(ctx, match.ID, "buyer", "wrong item delivered")
	require.NoError(t, err)

	m, err := env.matches.ResolveDispute(ctx, match.ID, "admin", ResolutionRefund)
	require.NoError(t, err)
	assert.Equal(t, model.MatchStatusExpired, m.Status)
	assert.Equal(t, model.EscrowRefunded, env.reloadOffer(t, offer.ID).EscrowStatus)

	// No completion reward on a refund.
	assert.Equal(t, 0, env.reloadUser(t, "seller").CompletedTrades)
	assert.EqualValues(t, 5, env.reloadUser(t, "seller").KarmaPoints)
}

func TestMatchService_RepeatTradeIncrementsBuddy(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, match := env.acceptedDeal(t, 100)
		_, _, err := env.matches.ConfirmDelivery(ctx, match.ID, "seller")
		require.NoError(t, err)
		_, _, err = env.matches.ConfirmDelivery(ctx, match.ID, "buyer")
		require.NoError(t, err)
	}

	var buddies []model.SwapBuddy
	require.NoError(t, env.db.Find(&buddies).Error)
	require.Len(t, buddies, 1)
	assert.Equal(t, 2, buddies[0].Trades)
	assert.Equal(t, 2, env.reloadUser(t, "seller").CompletedTrades)
}
