package repository

import (
	"context"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SwipeRepository interface {
	// Upsert writes the swipe, overwriting direction and offer link when
	// the (swiper, listing) pair already exists.
	Upsert(ctx context.Context, s *model.Swipe) error
	Find(ctx context.Context, swiperUID string, listingID uint64) (*model.Swipe, error)
	// FirstLikeOn returns the swiper's earliest RIGHT/SUPER swipe on any of
	// the given listings.
	FirstLikeOn(ctx context.Context, swiperUID string, listingIDs []uint64) (*model.Swipe, error)
	WithTx(tx *gorm.DB) SwipeRepository
	SetDB(db *gorm.DB)
}

type swipeRepository struct {
	db *gorm.DB
}

func NewSwipeRepository(db *gorm.DB) SwipeRepository {
	return &swipeRepository{db: db}
}

func (r *swipeRepository) Upsert(ctx context.Context, s *model.Swipe) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "swiper_uid"}, {Name: "listing_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "offer_id", "updated_at"}),
		}).
		Create(s).Error
}

func (r *swipeRepository) Find(ctx context.Context, swiperUID string, listingID uint64) (*model.Swipe, error) {
	var s model.Swipe
	if err := r.db.WithContext(ctx).
		Where("swiper_uid = ? AND listing_id = ?", swiperUID, listingID).
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *swipeRepository) FirstLikeOn(ctx context.Context, swiperUID string, listingIDs []uint64) (*model.Swipe, error) {
	if len(listingIDs) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	var s model.Swipe
	if err := r.db.WithContext(ctx).
		Where("swiper_uid = ? AND listing_id IN ? AND direction IN ?",
			swiperUID, listingIDs, []model.SwipeDirection{model.SwipeRight, model.SwipeSuper}).
		Order("id ASC").
		First(&s).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *swipeRepository) WithTx(tx *gorm.DB) SwipeRepository {
	return &swipeRepository{db: tx}
}

func (r *swipeRepository) SetDB(db *gorm.DB) {
	r.db = db
}
