package repository

import (
	"context"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByUID(ctx context.Context, uid string) (*model.User, error)
	AddKarma(ctx context.Context, uid string, points int64) error
	IncrementTrades(ctx context.Context, uid string, completed, total int) error
	UpdateTrustTier(ctx context.Context, uid string, tier model.TrustTier) error
	WithTx(tx *gorm.DB) UserRepository
	SetDB(db *gorm.DB)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}

func (r *userRepository) FindByUID(ctx context.Context, uid string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("uid = ?", uid).First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) AddKarma(ctx context.Context, uid string, points int64) error {
	if points <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Update("karma_points", gorm.Expr("karma_points + ?", points)).Error
}

func (r *userRepository) IncrementTrades(ctx context.Context, uid string, completed, total int) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Updates(map[string]interface{}{
			"completed_trades": gorm.Expr("completed_trades + ?", completed),
			"total_trades":     gorm.Expr("total_trades + ?", total),
		}).Error
}

func (r *userRepository) UpdateTrustTier(ctx context.Context, uid string, tier model.TrustTier) error {
	return r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("uid = ?", uid).
		Update("trust_tier", tier).Error
}

func (r *userRepository) WithTx(tx *gorm.DB) UserRepository {
	return &userRepository{db: tx}
}

func (r *userRepository) SetDB(db *gorm.DB) {
	r.db = db
}
