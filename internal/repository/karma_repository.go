package repository

import (
	"context"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

// KarmaRepository is append-only; entries are never updated or deleted.
type KarmaRepository interface {
	Create(ctx context.Context, e *model.KarmaEntry) error
	ListByUser(ctx context.Context, uid string, limit int) ([]model.KarmaEntry, error)
	WithTx(tx *gorm.DB) KarmaRepository
	SetDB(db *gorm.DB)
}

type karmaRepository struct {
	db *gorm.DB
}

func NewKarmaRepository(db *gorm.DB) KarmaRepository {
	return &karmaRepository{db: db}
}

func (r *karmaRepository) Create(ctx context.Context, e *model.KarmaEntry) error {
	return r.db.WithContext(ctx).Create(e).Error
}

func (r *karmaRepository) ListByUser(ctx context.Context, uid string, limit int) ([]model.KarmaEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var list []model.KarmaEntry
	if err := r.db.WithContext(ctx).
		Where("user_uid = ?", uid).
		Order("id DESC").
		Limit(limit).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *karmaRepository) WithTx(tx *gorm.DB) KarmaRepository {
	return &karmaRepository{db: tx}
}

func (r *karmaRepository) SetDB(db *gorm.DB) {
	r.db = db
}
