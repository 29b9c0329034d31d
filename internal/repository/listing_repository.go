package repository

import (
	"context"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

type ListingRepository interface {
	Create(ctx context.Context, l *model.Listing) error
	FindByID(ctx context.Context, id uint64) (*model.Listing, error)
	List(ctx context.Context, limit, offset int) ([]model.Listing, int64, error)
	ListByOwner(ctx context.Context, ownerUID string, activeOnly bool) ([]model.Listing, error)
	FirstActiveByOwner(ctx context.Context, ownerUID string) (*model.Listing, error)
	SetActive(ctx context.Context, id uint64, ownerUID string, active bool) (int64, error)
	WithTx(tx *gorm.DB) ListingRepository
	SetDB(db *gorm.DB)
}

type listingRepository struct {
	db *gorm.DB
}

func NewListingRepository(db *gorm.DB) ListingRepository {
	return &listingRepository{db: db}
}

func (r *listingRepository) Create(ctx context.Context, l *model.Listing) error {
	return r.db.WithContext(ctx).Create(l).Error
}

func (r *listingRepository) FindByID(ctx context.Context, id uint64) (*model.Listing, error) {
	var l model.Listing
	if err := r.db.WithContext(ctx).First(&l, id).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) List(ctx context.Context, limit, offset int) ([]model.Listing, int64, error) {
	var list []model.Listing
	var total int64
	q := r.db.WithContext(ctx).Model(&model.Listing{}).Where("active = ?", true)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&list).Error; err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *listingRepository) ListByOwner(ctx context.Context, ownerUID string, activeOnly bool) ([]model.Listing, error) {
	var list []model.Listing
	q := r.db.WithContext(ctx).Where("owner_uid = ?", ownerUID)
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	if err := q.Order("id DESC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *listingRepository) FirstActiveByOwner(ctx context.Context, ownerUID string) (*model.Listing, error) {
	var l model.Listing
	if err := r.db.WithContext(ctx).
		Where("owner_uid = ? AND active = ?", ownerUID, true).
		Order("id ASC").
		First(&l).Error; err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *listingRepository) SetActive(ctx context.Context, id uint64, ownerUID string, active bool) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Listing{}).
		Where("id = ? AND owner_uid = ?", id, ownerUID).
		Update("active", active)
	return res.RowsAffected, res.Error
}

func (r *listingRepository) WithTx(tx *gorm.DB) ListingRepository {
	return &listingRepository{db: tx}
}

func (r *listingRepository) SetDB(db *gorm.DB) {
	r.db = db
}
