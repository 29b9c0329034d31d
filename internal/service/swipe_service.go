package service

import (
	"context"
	"errors"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"gorm.io/gorm"
)

type SwipeService interface {
	// Record persists the swipe (idempotent per swiper/listing pair, last
	// direction wins) and, for a RIGHT/SUPER swipe, checks whether the
	// listing's owner already liked one of the swiper's active listings.
	// On reciprocity a pending match is created and returned; otherwise
	// the match is nil.
	Record(ctx context.Context, swiperUID string, listingID uint64, direction model.SwipeDirection) (*model.Match, error)
}

type swipeService struct {
	db       *gorm.DB
	swipes   repository.SwipeRepository
	listings repository.ListingRepository
	matches  repository.MatchRepository
	convs    repository.ConversationRepository
	notify   NotificationService
}

func NewSwipeService(
	db *gorm.DB,
	swipes repository.SwipeRepository,
	listings repository.ListingRepository,
	matches repository.MatchRepository,
	convs repository.ConversationRepository,
	notify NotificationService,
) SwipeService {
	return &swipeService{
		db:       db,
		swipes:   swipes,
		listings: listings,
		matches:  matches,
		convs:    convs,
		notify:   notify,
	}
}

func (s *swipeService) Record(ctx context.Context, swiperUID string, listingID uint64, direction model.SwipeDirection) (*model.Match, error) {
	if swiperUID == "" {
		return nil, errors.New("swiper is required")
	}
	listing, err := s.listings.FindByID(ctx, listingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var match *model.Match
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.swipes.WithTx(tx).Upsert(ctx, &model.Swipe{
			SwiperUID: swiperUID,
			ListingID: listingID,
			Direction: direction,
		}); err != nil {
			return err
		}
		if !direction.Likes() {
			return nil
		}
		owner := listing.OwnerUID
		if owner == "" || owner == swiperUID {
			return nil
		}

		mine, err := s.listings.WithTx(tx).ListByOwner(ctx, swiperUID, true)
		if err != nil {
			return err
		}
		ids := make([]uint64, 0, len(mine))
		for _, l := range mine {
			ids = append(ids, l.ID)
		}

		// Only the first reciprocal like is considered per check.
		reciprocal, err := s.swipes.WithTx(tx).FirstLikeOn(ctx, owner, ids)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		matches := s.matches.WithTx(tx)
		exists, err := matches.ExistsForPair(ctx, swiperUID, owner, reciprocal.ListingID, listingID)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}

		conv, err := s.convs.WithTx(tx).FindOrCreate(ctx, listingID, owner, swiperUID)
		if err != nil {
			return err
		}
		m := &model.Match{
			UserAUID:       swiperUID,
			UserBUID:       owner,
			ListingAID:     reciprocal.ListingID,
			ListingBID:     listingID,
			Status:         model.MatchStatusPending,
			Currency:       listing.Currency,
			ConversationID: conv.ID,
		}
		if err := matches.Create(ctx, m); err != nil {
			return err
		}
		match = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	if match != nil {
		s.notify.Notify(ctx, listing.OwnerUID, "match_created", "It's a match",
			"Someone you liked is interested in one of your items", NotificationRefs{
				MatchID:   &match.ID,
				ListingID: &listingID,
			})
	}
	return match, nil
}
