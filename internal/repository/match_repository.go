package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

type MatchRepository interface {
	Create(ctx context.Context, m *model.Match) error
	FindByID(ctx context.Context, id uint64) (*model.Match, error)
	// ExistsForPair checks both orderings of the user/listing pair so a
	// repeated reciprocity check cannot create a duplicate match.
	ExistsForPair(ctx context.Context, userA, userB string, listingA, listingB uint64) (bool, error)
	// ConfirmDelivery sets the given confirmation column only while the
	// match is accepted and the column is still NULL. RowsAffected == 0
	// means the party already confirmed or the match left accepted.
	ConfirmDelivery(ctx context.Context, id uint64, column string, at time.Time) (int64, error)
	// CompleteIf flips an accepted match to completed with the escrow
	// release timestamp.
	CompleteIf(ctx context.Context, id uint64, from model.MatchStatus, at time.Time) (int64, error)
	Update(ctx context.Context, m *model.Match) error
	ListByUser(ctx context.Context, uid string) ([]model.Match, error)
	WithTx(tx *gorm.DB) MatchRepository
	SetDB(db *gorm.DB)
}

const (
	ConfirmColumnSeller = "seller_confirmed_at"
	ConfirmColumnBuyer  = "buyer_confirmed_at"
)

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, m *model.Match) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *matchRepository) FindByID(ctx context.Context, id uint64) (*model.Match, error) {
	var m model.Match
	if err := r.db.WithContext(ctx).First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepository) ExistsForPair(ctx context.Context, userA, userB string, listingA, listingB uint64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where(
			r.db.Where("user_a_uid = ? AND user_b_uid = ? AND listing_a_id = ? AND listing_b_id = ?", userA, userB, listingA, listingB).
				Or("user_a_uid = ? AND user_b_uid = ? AND listing_a_id = ? AND listing_b_id = ?", userB, userA, listingB, listingA),
		).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func (r *matchRepository) ConfirmDelivery(ctx context.Context, id uint64, column string, at time.Time) (int64, error) {
	if column != ConfirmColumnSeller && column != ConfirmColumnBuyer {
		return 0, errors.New("invalid confirmation column")
	}
	res := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND status = ? AND "+column+" IS NULL", id, model.MatchStatusAccepted).
		Update(column, at)
	return res.RowsAffected, res.Error
}

func (r *matchRepository) CompleteIf(ctx context.Context, id uint64, from model.MatchStatus, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{
			"status":             model.MatchStatusCompleted,
			"escrow_released_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *matchRepository) Update(ctx context.Context, m *model.Match) error {
	return r.db.WithContext(ctx).Save(m).Error
}

func (r *matchRepository) ListByUser(ctx context.Context, uid string) ([]model.Match, error) {
	var list []model.Match
	if err := r.db.WithContext(ctx).
		Where("user_a_uid = ? OR user_b_uid = ?", uid, uid).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *matchRepository) WithTx(tx *gorm.DB) MatchRepository {
	return &matchRepository{db: tx}
}

func (r *matchRepository) SetDB(db *gorm.DB) {
	r.db = db
}
