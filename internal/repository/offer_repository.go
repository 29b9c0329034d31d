package repository

import (
	"context"
	"time"

	"github.com/ropaswap/backend/internal/model"
	"gorm.io/gorm"
)

type OfferRepository interface {
	Create(ctx context.Context, o *model.Offer) error
	FindByID(ctx context.Context, id uint64) (*model.Offer, error)
	CountRecent(ctx context.Context, buyerUID string, listingID uint64, since time.Time) (int64, error)
	// UpdateStatusIf applies updates only while the offer is still in the
	// expected status. RowsAffected == 0 means a concurrent transition won.
	UpdateStatusIf(ctx context.Context, id uint64, from model.OfferStatus, updates map[string]interface{}) (int64, error)
	// DeclineOtherOpen declines every pending/countered offer on the
	// listing except the winning one, refunding their escrow.
	DeclineOtherOpen(ctx context.Context, listingID, exceptID uint64) (int64, error)
	// ExpireStaleBySeller lazily expires the seller's overdue pending
	// offers before a dashboard read.
	ExpireStaleBySeller(ctx context.Context, sellerUID string, now time.Time) (int64, error)
	// ExpireStaleBefore is the sweep-job variant over all sellers.
	ExpireStaleBefore(ctx context.Context, now time.Time) (int64, error)
	// SetEscrow moves the simulated escrow bookkeeping field.
	SetEscrow(ctx context.Context, id uint64, status model.EscrowStatus) error
	ListBySeller(ctx context.Context, sellerUID string) ([]model.Offer, error)
	ListByBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error)
	WithTx(tx *gorm.DB) OfferRepository
	SetDB(db *gorm.DB)
}

type offerRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) OfferRepository {
	return &offerRepository{db: db}
}

func (r *offerRepository) Create(ctx context.Context, o *model.Offer) error {
	return r.db.WithContext(ctx).Create(o).Error
}

func (r *offerRepository) FindByID(ctx context.Context, id uint64) (*model.Offer, error) {
	var o model.Offer
	if err := r.db.WithContext(ctx).First(&o, id).Error; err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *offerRepository) CountRecent(ctx context.Context, buyerUID string, listingID uint64, since time.Time) (int64, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("buyer_uid = ? AND listing_id = ? AND created_at > ?", buyerUID, listingID, since).
		Count(&cnt).Error; err != nil {
		return 0, err
	}
	return cnt, nil
}

func (r *offerRepository) UpdateStatusIf(ctx context.Context, id uint64, from model.OfferStatus, updates map[string]interface{}) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *offerRepository) DeclineOtherOpen(ctx context.Context, listingID, exceptID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("listing_id = ? AND id <> ? AND status IN ?",
			listingID, exceptID, []model.OfferStatus{model.OfferStatusPending, model.OfferStatusCountered}).
		Updates(map[string]interface{}{
			"status":        model.OfferStatusDeclined,
			"escrow_status": model.EscrowRefunded,
		})
	return res.RowsAffected, res.Error
}

func (r *offerRepository) ExpireStaleBySeller(ctx context.Context, sellerUID string, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("seller_uid = ? AND status = ? AND expires_at <= ?", sellerUID, model.OfferStatusPending, now).
		Updates(map[string]interface{}{
			"status":        model.OfferStatusExpired,
			"escrow_status": model.EscrowRefunded,
		})
	return res.RowsAffected, res.Error
}

func (r *offerRepository) ExpireStaleBefore(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("status = ? AND expires_at <= ?", model.OfferStatusPending, now).
		Updates(map[string]interface{}{
			"status":        model.OfferStatusExpired,
			"escrow_status": model.EscrowRefunded,
		})
	return res.RowsAffected, res.Error
}

func (r *offerRepository) SetEscrow(ctx context.Context, id uint64, status model.EscrowStatus) error {
	return r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ?", id).
		Update("escrow_status", status).Error
}

func (r *offerRepository) ListBySeller(ctx context.Context, sellerUID string) ([]model.Offer, error) {
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("seller_uid = ?", sellerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) ListByBuyer(ctx context.Context, buyerUID string) ([]model.Offer, error) {
	var list []model.Offer
	if err := r.db.WithContext(ctx).
		Where("buyer_uid = ?", buyerUID).
		Order("id DESC").
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *offerRepository) WithTx(tx *gorm.DB) OfferRepository {
	return &offerRepository{db: tx}
}

func (r *offerRepository) SetDB(db *gorm.DB) {
	r.db = db
}
