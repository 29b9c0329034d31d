package repository

import (
	"context"
	"errors"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

type SwapBuddyRepository interface {
	// Record notes one completed trade between the pair. The lookup tries
	// both orderings before inserting so the edge stays undirected.
	Record(ctx context.Context, uidA, uidB string) error
	FindPair(ctx context.Context, uidA, uidB string) (*model.SwapBuddy, error)
	ListByUser(ctx context.Context, uid string) ([]model.SwapBuddy, error)
	WithTx(tx *gorm.DB) SwapBuddyRepository
	SetDB(db *gorm.DB)
}

type swapBuddyRepository struct {
	db *gorm.DB
}

func NewSwapBuddyRepository(db *gorm.DB) SwapBuddyRepository {
	return &swapBuddyRepository{db: db}
}

func (r *swapBuddyRepository) Record(ctx context.Context, uidA, uidB string) error {
	existing, err := r.FindPair(ctx, uidA, uidB)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return r.db.WithContext(ctx).Create(&model.SwapBuddy{
			UserAUID: uidA,
			UserBUID: uidB,
			Trades:   1,
		}).Error
	}
	return r.db.WithContext(ctx).
		Model(existing).
		Update("trades", gorm.Expr("trades + ?", 1)).Error
}

func (r *swapBuddyRepository) FindPair(ctx context.Context, uidA, uidB string) (*model.SwapBuddy, error) {
	var b model.SwapBuddy
	if err := r.db.WithContext(ctx).
		Where(
			r.db.Where("user_a_uid = ? AND user_b_uid = ?", uidA, uidB).
				Or("user_a_uid = ? AND user_b_uid = ?", uidB, uidA),
		).
		First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *swapBuddyRepository) ListByUser(ctx context.Context, uid string) ([]model.SwapBuddy, error) {
	var list []model.SwapBuddy
	if err := r.db.WithContext(ctx).
		Where("user_a_uid = ? OR user_b_uid = ?", uid, uid).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *swapBuddyRepository) WithTx(tx *gorm.DB) SwapBuddyRepository {
	return &swapBuddyRepository{db: tx}
}

func (r *swapBuddyRepository) SetDB(db *gorm.DB) {
	r.db = db
}
