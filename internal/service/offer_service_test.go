package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOfferService_Create_Classification(t *testing.T) {
	tests := []struct {
		name       string
		amount     float64
		wantType   model.OfferType
		wantHeld   *float64
		wantEscrow model.EscrowStatus
	}{
		{name: "underbid", amount: 80, wantType: model.OfferTypeUnderbid},
		{name: "exact price is a match", amount: 100, wantType: model.OfferTypeMatch},
		{name: "overbid holds the premium", amount: 130, wantType: model.OfferTypeOverbid, wantHeld: floatPtr(30), wantEscrow: model.EscrowHeld},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.createUser(t, "seller")
			env.createUser(t, "buyer")
			listing := env.createListing(t, "seller", floatPtr(100))

			offer, autoDeclined, err := env.offers.Create(context.Background(), "buyer", listing.ID, tt.amount, "EUR")
			require.NoError(t, err)
			assert.False(t, autoDeclined)
			assert.Equal(t, tt.wantType, offer.OfferType)
			assert.Equal(t, model.OfferStatusPending, offer.Status)
			// Offers live for exactly 24 hours from creation.
			assert.True(t, offer.ExpiresAt.Equal(env.clock.Now().Add(24*time.Hour)))
			if tt.wantHeld == nil {
				assert.Nil(t, offer.RopaHeldAmount)
			} else {
				require.NotNil(t, offer.RopaHeldAmount)
				assert.InDelta(t, *tt.wantHeld, *offer.RopaHeldAmount, 1e-9)
				assert.Equal(t, tt.wantEscrow, offer.EscrowStatus)
			}
		})
	}
}

func TestOfferService_Create_UnpricedListingIsOverbid(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", nil)

	offer, _, err := env.offers.Create(context.Background(), "buyer", listing.ID, 10, "EUR")
	require.NoError(t, err)
	assert.Equal(t, model.OfferTypeOverbid, offer.OfferType)
	// No asking price means no escrow premium to hold.
	assert.Nil(t, offer.RopaHeldAmount)
}

func TestOfferService_Create_SelfOffer(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	listing := env.createListing(t, "seller", floatPtr(100))

	_, _, err := env.offers.Create(context.Background(), "seller", listing.ID, 100, "EUR")
	assert.ErrorIs(t, err, ErrSelfOffer)
}

func TestOfferService_Create_RateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := env.offers.Create(ctx, "buyer", listing.ID, 90, "EUR")
		require.NoError(t, err)
	}
	_, _, err := env.offers.Create(ctx, "buyer", listing.ID, 95, "EUR")
	assert.ErrorIs(t, err, ErrRateLimited)

	// The limit is per listing, not per buyer.
	other := env.createListing(t, "seller", floatPtr(50))
	_, _, err = env.offers.Create(ctx, "buyer", other.ID, 40, "EUR")
	assert.NoError(t, err)

	// Once the window has passed the buyer may try again.
	env.clock.Advance(25 * time.Hour)
	_, _, err = env.offers.Create(ctx, "buyer", listing.ID, 95, "EUR")
	assert.NoError(t, err)
}

func TestOfferService_Create_AutoDeclineBelowFloor(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller", func(u *model.User) { u.MinOfferPercent = 60 })
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))

	offer, autoDeclined, err := env.offers.Create(context.Background(), "buyer", listing.ID, 50, "EUR")
	require.NoError(t, err)
	assert.True(t, autoDeclined)
	assert.Equal(t, model.OfferStatusDeclined, offer.Status)
	assert.Equal(t, model.EscrowRefunded, offer.EscrowStatus)

	// At the floor exactly the offer stays open.
	offer, autoDeclined, err = env.offers.Create(context.Background(), "buyer", listing.ID, 60, "EUR")
	require.NoError(t, err)
	assert.False(t, autoDeclined)
	assert.Equal(t, model.OfferStatusPending, offer.Status)
}

func TestOfferService_Accept(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	env.createUser(t, "rival")
	listing := env.createListing(t, "seller", floatPtr(100))
	buyerListing := env.createListing(t, "buyer", floatPtr(40))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 120, "EUR")
	require.NoError(t, err)
	rivalOffer, _, err := env.offers.Create(ctx, "rival", listing.ID, 110, "EUR")
	require.NoError(t, err)

	_, _, err = env.offers.Accept(ctx, offer.ID, "buyer")
	assert.ErrorIs(t, err, ErrForbidden)

	accepted, match, err := env.offers.Accept(ctx, offer.ID, "seller")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)
	require.NotNil(t, accepted.MatchID)
	assert.Equal(t, match.ID, *accepted.MatchID)

	require.NotNil(t, match.AgreedPrice)
	assert.Equal(t, 120.0, *match.AgreedPrice)
	assert.Equal(t, model.MatchStatusAccepted, match.Status)
	assert.Equal(t, "seller", match.UserAUID)
	assert.Equal(t, "buyer", match.UserBUID)
	assert.Equal(t, listing.ID, match.ListingAID)
	assert.Equal(t, buyerListing.ID, match.ListingBID)
	assert.NotZero(t, match.ConversationID)

	// Every other open offer on the listing is foreclosed.
	rival := env.reloadOffer(t, rivalOffer.ID)
	assert.Equal(t, model.OfferStatusDeclined, rival.Status)
	assert.Equal(t, model.EscrowRefunded, rival.EscrowStatus)

	assert.EqualValues(t, 5, env.reloadUser(t, "seller").KarmaPoints)
	assert.EqualValues(t, 10, env.reloadUser(t, "buyer").KarmaPoints)

	// Accepting a second time hits the status guard.
	_, _, err = env.offers.Accept(ctx, offer.ID, "seller")
	assert.ErrorIs(t, err, ErrNotPending)
}

func TestOfferService_Accept_BuyerWithoutListingFallsBack(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 100, "EUR")
	require.NoError(t, err)
	_, match, err := env.offers.Accept(ctx, offer.ID, "seller")
	require.NoError(t, err)
	assert.Equal(t, listing.ID, match.ListingBID)
}

func TestOfferService_Accept_Expired(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 100, "EUR")
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	_, _, err = env.offers.Accept(ctx, offer.ID, "seller")
	assert.ErrorIs(t, err, ErrOfferExpired)
}

func TestOfferService_CounterFlow(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 80, "EUR")
	require.NoError(t, err)

	countered, err := env.offers.Counter(ctx, offer.ID, "seller", 90)
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusCountered, countered.Status)
	require.NotNil(t, countered.CounterAmount)
	assert.Equal(t, 90.0, *countered.CounterAmount)

	// Only the buyer may answer the counter.
	_, _, err = env.offers.AcceptCounter(ctx, offer.ID, "seller")
	assert.ErrorIs(t, err, ErrForbidden)

	closed, match, err := env.offers.AcceptCounter(ctx, offer.ID, "buyer")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusAccepted, closed.Status)
	require.NotNil(t, match.AgreedPrice)
	// The deal closes at the counter price.
	assert.Equal(t, 90.0, *match.AgreedPrice)
}

func TestOfferService_DeclineCounter(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 80, "EUR")
	require.NoError(t, err)

	// Declining before any counter exists is rejected.
	_, err = env.offers.DeclineCounter(ctx, offer.ID, "buyer")
	assert.ErrorIs(t, err, ErrNotCountered)

	_, err = env.offers.Counter(ctx, offer.ID, "seller", 95)
	require.NoError(t, err)
	declined, err := env.offers.DeclineCounter(ctx, offer.ID, "buyer")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusDeclined, declined.Status)
	assert.Equal(t, model.EscrowRefunded, declined.EscrowStatus)
}

func TestOfferService_Decline(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 130, "EUR")
	require.NoError(t, err)

	declined, err := env.offers.Decline(ctx, offer.ID, "seller")
	require.NoError(t, err)
	assert.Equal(t, model.OfferStatusDeclined, declined.Status)
	// The held overbid premium is returned on decline.
	assert.Equal(t, model.EscrowRefunded, declined.EscrowStatus)

	_, err = env.offers.Decline(ctx, offer.ID, "seller")
	assert.ErrorIs(t, err, ErrNotPending)
}

// unreliableOfferRepo serves the first read and fails every one after,
// simulating a store that drops out between a committed write and the
// follow-up read.
type unreliableOfferRepo struct {
	repository.OfferRepository
	reads int
}

func (r *unreliableOfferRepo) FindByID(ctx context.Context, id uint64) (*model.Offer, error) {
	r.reads++
	if r.reads > 1 {
		return nil, errors.New("driver: bad connection")
	}
	return r.OfferRepository.FindByID(ctx, id)
}

func TestOfferService_Decline_SurvivesReloadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 130, "EUR")
	require.NoError(t, err)

	flaky := &unreliableOfferRepo{OfferRepository: env.offerRep}
	svc := NewOfferService(env.db, flaky, env.listings, env.users, env.swipes, env.matchRep, env.convs, env.trust, env.notify)
	svc.(*offerService).now = env.clock.Now

	// The decline commits; losing the re-read afterwards must not lose the
	// response.
	declined, err := svc.Decline(ctx, offer.ID, "seller")
	require.NoError(t, err)
	require.NotNil(t, declined)
	assert.Equal(t, model.OfferStatusDeclined, declined.Status)
	assert.Equal(t, model.EscrowRefunded, declined.EscrowStatus)
	assert.Equal(t, model.OfferStatusDeclined, env.reloadOffer(t, offer.ID).Status)
}

func TestOfferService_Accept_SurvivesReloadFailure(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 120, "EUR")
	require.NoError(t, err)

	flaky := &unreliableOfferRepo{OfferRepository: env.offerRep}
	svc := NewOfferService(env.db, flaky, env.listings, env.users, env.swipes, env.matchRep, env.convs, env.trust, env.notify)
	svc.(*offerService).now = env.clock.Now

	accepted, match, err := svc.Accept(ctx, offer.ID, "seller")
	require.NoError(t, err)
	require.NotNil(t, accepted)
	require.NotNil(t, match)
	assert.Equal(t, model.OfferStatusAccepted, accepted.Status)
	assert.NotNil(t, accepted.AcceptedAt)
	require.NotNil(t, accepted.MatchID)
	assert.Equal(t, match.ID, *accepted.MatchID)
	assert.Equal(t, model.OfferStatusAccepted, env.reloadOffer(t, offer.ID).Status)
}

func TestOfferService_ListForSeller_ExpiresStale(t *testing.T) {
	env := newTestEnv(t)
	env.createUser(t, "seller")
	env.createUser(t, "buyer")
	listing := env.createListing(t, "seller", floatPtr(100))
	ctx := context.Background()

	offer, _, err := env.offers.Create(ctx, "buyer", listing.ID, 130, "EUR")
	require.NoError(t, err)

	env.clock.Advance(25 * time.Hour)
	list, err := env.offers.ListForSeller(ctx, "seller")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, offer.ID, list[0].ID)
	assert.Equal(t, model.OfferStatusExpired, list[0].Status)
	assert.Equal(t, model.EscrowRefunded, list[0].EscrowStatus)
}
