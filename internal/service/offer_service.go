package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/ropaswap/backend/internal/scoring"
	"gorm.io/gorm"
)

// Offer rate limit: a buyer may open at most this many offers on the same
// listing within the trailing 24 hours.
const (
	maxOffersPerListing = 3
	offerTTL            = 24 * time.Hour
	rateLimitWindow     = 24 * time.Hour
)

const (
	karmaSellerAccept = 5
	karmaBuyerAccept  = 10
)

type OfferService interface {
	// Create records a new offer. The returned flag reports that the offer
	// was auto-declined by the seller's floor price; the offer itself was
	// still recorded, so this is not an error.
	Create(ctx context.Context, buyerUID string, listingID uint64, amount float64, currency string) (*model.Offer, bool, error)
	Accept(ctx context.Context, offerID uint64, sellerUID string) (*model.Offer, *model.Match, error)
	Decline(ctx context.Context, offerID uint64, sellerUID string) (*model.Offer, error)
	Counter(ctx context.Context, offerID uint64, sellerUID string, counterAmount float64) (*model.Offer, error)
	AcceptCounter(ctx context.Context, offerID uint64, buyerUID string) (*model.Offer, *model.Match, error)
	DeclineCounter(ctx context.Context, offerID uint64, buyerUID string) (*model.Offer, error)
	// ListForSeller lazily expires the caller's overdue pending offers
	// before returning the list.
	ListForSeller(ctx context.Context, sellerUID string) ([]model.Offer, error)
	ListForBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error)
}

type offerService struct {
	db       *gorm.DB
	offers   repository.OfferRepository
	listings repository.ListingRepository
	users    repository.UserRepository
	swipes   repository.SwipeRepository
	matches  repository.MatchRepository
	convs    repository.ConversationRepository
	trust    TrustService
	notify   NotificationService
	now      func() time.Time
}

func NewOfferService(
	db *gorm.DB,
	offers repository.OfferRepository,
	listings repository.ListingRepository,
	users repository.UserRepository,
	swipes repository.SwipeRepository,
	matches repository.MatchRepository,
	convs repository.ConversationRepository,
	trust TrustService,
	notify NotificationService,
) OfferService {
	return &offerService{
		db:       db,
		offers:   offers,
		listings: listings,
		users:    users,
		swipes:   swipes,
		matches:  matches,
		convs:    convs,
		trust:    trust,
		notify:   notify,
		now:      time.Now,
	}
}

func (s *offerService) Create(ctx context.Context, buyerUID string, listingID uint64, amount float64, currency string) (*model.Offer, bool, error) {
	if buyerUID == "" {
		return nil, false, errors.New("buyer is required")
	}
	if amount <= 0 {
		return nil, false, errors.New("amount must be positive")
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}
	if listing.OwnerUID == buyerUID {
		return nil, false, ErrSelfOffer
	}

	now := s.now()
	cnt, err := s.offers.CountRecent(ctx, buyerUID, listingID, now.Add(-rateLimitWindow))
	if err != nil {
		return nil, false, err
	}
	if cnt >= maxOffersPerListing {
		return nil, false, ErrRateLimited
	}

	buyer, err := s.users.FindByUID(ctx, buyerUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}
	seller, err := s.users.FindByUID(ctx, listing.OwnerUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrNotFound
		}
		return nil, false, err
	}

	price := listing.AskingPrice()
	offerType := scoring.ClassifyOffer(amount, price)
	held := scoring.HeldAmount(offerType, amount, price)
	distance := scoring.DistanceKm(buyer.Lat, buyer.Lng, listing.Lat, listing.Lng)

	offer := &model.Offer{
		ListingID:      listingID,
		BuyerUID:       buyerUID,
		SellerUID:      listing.OwnerUID,
		Amount:         amount,
		Currency:       currency,
		OfferType:      offerType,
		Status:         model.OfferStatusPending,
		CompatScore:    scoring.Compatibility(distance, buyer, seller, offerType),
		DistanceKm:     distance,
		RopaHeldAmount: held,
		ExpiresAt:      now.Add(offerTTL),
	}
	if held != nil {
		offer.EscrowStatus = model.EscrowHeld
	}

	autoDeclined := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)
		if err := offers.Create(ctx, offer); err != nil {
			return err
		}
		// An offer implies a like; keep the swipe record in sync.
		if err := s.swipes.WithTx(tx).Upsert(ctx, &model.Swipe{
			SwiperUID: buyerUID,
			ListingID: listingID,
			Direction: model.SwipeRight,
			OfferID:   &offer.ID,
		}); err != nil {
			return err
		}
		if seller.MinOfferPercent > 0 && price > 0 {
			floor := price * seller.MinOfferPercent / 100
			if amount < floor {
				rows, err := offers.UpdateStatusIf(ctx, offer.ID, model.OfferStatusPending, map[string]interface{}{
					"status":        model.OfferStatusDeclined,
					"escrow_status": model.EscrowRefunded,
				})
				if err != nil {
					return err
				}
				if rows > 0 {
					offer.Status = model.OfferStatusDeclined
					offer.EscrowStatus = model.EscrowRefunded
					autoDeclined = true
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	if !autoDeclined {
		s.notifyOffer(ctx, listing.OwnerUID, "offer_received", "New offer",
			fmt.Sprintf("You received an offer of %.2f %s on %q", amount, currency, listing.Title), offer, listing)
	}
	return offer, autoDeclined, nil
}

// reload refreshes the offer after a committed transition. The caller has
// already applied the new state to the in-memory copy, so a transient read
// failure degrades to returning that copy instead of failing a request
// whose write already went through.
func (s *offerService) reload(ctx context.Context, offer *model.Offer) *model.Offer {
	fresh, err := s.offers.FindByID(ctx, offer.ID)
	if err != nil {
		return offer
	}
	return fresh
}

// notifyOffer is shorthand for the sink call with offer/listing refs.
func (s *offerService) notifyOffer(ctx context.Context, uid, typ, title, body string, offer *model.Offer, listing *model.Listing) {
	refs := NotificationRefs{OfferID: &offer.ID}
	if listing != nil {
		refs.ListingID = &listing.ID
	}
	s.notify.Notify(ctx, uid, typ, title, body, refs)
}

func (s *offerService) Accept(ctx context.Context, offerID uint64, sellerUID string) (*model.Offer, *model.Match, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if offer.SellerUID != sellerUID {
		return nil, nil, ErrForbidden
	}
	now := s.now()
	if offer.Expired(now) {
		return nil, nil, ErrOfferExpired
	}

	match, err := s.closeDeal(ctx, offer, model.OfferStatusPending, offer.Amount, now)
	if err != nil {
		return nil, nil, err
	}
	offer.Status = model.OfferStatusAccepted
	offer.AcceptedAt = &now
	offer.EscrowStatus = model.EscrowHeld
	offer.MatchID = &match.ID
	offer = s.reload(ctx, offer)
	s.notifyOffer(ctx, offer.BuyerUID, "offer_accepted", "Offer accepted",
		fmt.Sprintf("Your offer of %.2f %s was accepted", offer.Amount, offer.Currency), offer, nil)
	return offer, match, nil
}

func (s *offerService) AcceptCounter(ctx context.Context, offerID uint64, buyerUID string) (*model.Offer, *model.Match, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrNotFound
		}
		return nil, nil, err
	}
	if offer.BuyerUID != buyerUID {
		return nil, nil, ErrForbidden
	}
	if offer.Status != model.OfferStatusCountered || offer.CounterAmount == nil {
		return nil, nil, ErrNotCountered
	}

	// The deal closes at the counter price, not the original amount.
	now := s.now()
	match, err := s.closeDeal(ctx, offer, model.OfferStatusCountered, *offer.CounterAmount, now)
	if err != nil {
		if errors.Is(err, ErrNotPending) {
			return nil, nil, ErrNotCountered
		}
		return nil, nil, err
	}
	offer.Status = model.OfferStatusAccepted
	offer.AcceptedAt = &now
	offer.EscrowStatus = model.EscrowHeld
	offer.MatchID = &match.ID
	offer = s.reload(ctx, offer)
	s.notifyOffer(ctx, offer.SellerUID, "counter_accepted", "Counter-offer accepted",
		fmt.Sprintf("Your counter-offer of %.2f %s was accepted", *offer.CounterAmount, offer.Currency), offer, nil)
	return offer, match, nil
}

// closeDeal is the single transaction behind direct acceptance and counter
// acceptance: flip the offer, create the match, foreclose every other open
// offer on the listing, grant karma and recalculate trust for both sides.
func (s *offerService) closeDeal(ctx context.Context, offer *model.Offer, from model.OfferStatus, agreedPrice float64, now time.Time) (*model.Match, error) {
	var match *model.Match
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		offers := s.offers.WithTx(tx)

		// The guarded flip serializes concurrent accepts: the loser sees
		// zero rows and backs off without side effects.
		rows, err := offers.UpdateStatusIf(ctx, offer.ID, from, map[string]interface{}{
			"status":        model.OfferStatusAccepted,
			"accepted_at":   now,
			"escrow_status": model.EscrowHeld,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrNotPending
		}

		// Listing-B is whichever active listing the buyer owns. A buyer
		// with no active listing falls back to the same listing, producing
		// a self-referential match. Known quirk, kept until product
		// decides otherwise.
		listingBID := offer.ListingID
		if lb, err := s.listings.WithTx(tx).FirstActiveByOwner(ctx, offer.BuyerUID); err == nil {
			listingBID = lb.ID
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		conv, err := s.convs.WithTx(tx).FindOrCreate(ctx, offer.ListingID, offer.SellerUID, offer.BuyerUID)
		if err != nil {
			return err
		}

		m := &model.Match{
			UserAUID:       offer.SellerUID,
			UserBUID:       offer.BuyerUID,
			ListingAID:     offer.ListingID,
			ListingBID:     listingBID,
			Status:         model.MatchStatusAccepted,
			AgreedPrice:    &agreedPrice,
			Currency:       offer.Currency,
			OfferID:        &offer.ID,
			ConversationID: conv.ID,
		}
		if err := s.matches.WithTx(tx).Create(ctx, m); err != nil {
			return err
		}
		if _, err := offers.UpdateStatusIf(ctx, offer.ID, model.OfferStatusAccepted, map[string]interface{}{
			"match_id": m.ID,
		}); err != nil {
			return err
		}
		if _, err := offers.DeclineOtherOpen(ctx, offer.ListingID, offer.ID); err != nil {
			return err
		}

		if err := s.trust.Grant(ctx, tx, offer.SellerUID, model.KarmaActionOfferAccepted, karmaSellerAccept, "accepted an offer"); err != nil {
			return err
		}
		if err := s.trust.Grant(ctx, tx, offer.BuyerUID, model.KarmaActionOfferAccepted, karmaBuyerAccept, "had an offer accepted"); err != nil {
			return err
		}

		if err := s.convs.WithTx(tx).CreateMessage(ctx, &model.Message{
			ConversationID: conv.ID,
			SenderUID:      offer.SellerUID,
			Body:           fmt.Sprintf("Deal agreed at %.2f %s. Arrange the swap here.", agreedPrice, offer.Currency),
			System:         true,
		}); err != nil {
			return err
		}

		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return match, nil
}

func (s *offerService) Decline(ctx context.Context, offerID uint64, sellerUID string) (*model.Offer, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if offer.SellerUID != sellerUID {
		return nil, ErrForbidden
	}
	rows, err := s.offers.UpdateStatusIf(ctx, offerID, model.OfferStatusPending, map[string]interface{}{
		"status":        model.OfferStatusDeclined,
		"escrow_status": model.EscrowRefunded,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotPending
	}
	offer.Status = model.OfferStatusDeclined
	offer.EscrowStatus = model.EscrowRefunded
	offer = s.reload(ctx, offer)
	s.notifyOffer(ctx, offer.BuyerUID, "offer_declined", "Offer declined",
		"The seller declined your offer", offer, nil)
	return offer, nil
}

func (s *offerService) Counter(ctx context.Context, offerID uint64, sellerUID string, counterAmount float64) (*model.Offer, error) {
	if counterAmount <= 0 {
		return nil, errors.New("counter amount must be positive")
	}
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if offer.SellerUID != sellerUID {
		return nil, ErrForbidden
	}
	rows, err := s.offers.UpdateStatusIf(ctx, offerID, model.OfferStatusPending, map[string]interface{}{
		"status":         model.OfferStatusCountered,
		"counter_amount": counterAmount,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotPending
	}
	offer.Status = model.OfferStatusCountered
	offer.CounterAmount = &counterAmount
	offer = s.reload(ctx, offer)
	s.notifyOffer(ctx, offer.BuyerUID, "offer_countered", "Counter-offer received",
		fmt.Sprintf("The seller countered with %.2f %s", counterAmount, offer.Currency), offer, nil)
	return offer, nil
}

func (s *offerService) DeclineCounter(ctx context.Context, offerID uint64, buyerUID string) (*model.Offer, error) {
	offer, err := s.offers.FindByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if offer.BuyerUID != buyerUID {
		return nil, ErrForbidden
	}
	rows, err := s.offers.UpdateStatusIf(ctx, offerID, model.OfferStatusCountered, map[string]interface{}{
		"status":        model.OfferStatusDeclined,
		"escrow_status": model.EscrowRefunded,
	})
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrNotCountered
	}
	offer.Status = model.OfferStatusDeclined
	offer.EscrowStatus = model.EscrowRefunded
	offer = s.reload(ctx, offer)
	s.notifyOffer(ctx, offer.SellerUID, "counter_declined", "Counter-offer declined",
		"The buyer declined your counter-offer", offer, nil)
	return offer, nil
}

func (s *offerService) ListForSeller(ctx context.Context, sellerUID string) ([]model.Offer, error) {
	// Expiry is applied lazily on the seller's own read. expires_at stays
	// the authoritative signal for business decisions either way.
	if _, err := s.offers.ExpireStaleBySeller(ctx, sellerUID, s.now()); err != nil {
		return nil, err
	}
	return s.offers.ListBySeller(ctx, sellerUID)
}

func (s *offerService) ListForBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error) {
	return s.offers.ListByBuyer(ctx, buyerUID)
}
