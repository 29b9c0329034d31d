package model

import "time"

type OfferType string

const (
	OfferTypeOverbid  OfferType = "OVERBID"
	OfferTypeMatch    OfferType = "MATCH"
	OfferTypeUnderbid OfferType = "UNDERBID"
)

type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusDeclined  OfferStatus = "declined"
	OfferStatusCountered OfferStatus = "countered"
	OfferStatusExpired   OfferStatus = "expired"
)

type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
	EscrowDisputed EscrowStatus = "disputed"
)

// Offer is a buyer's monetary bid on a listing. OfferType is fixed at
// creation by comparing the amount against the asking price and never
// changes afterwards. RopaHeldAmount is the simulated escrow premium,
// set only for overbids on priced listings.
type Offer struct {
	ID             uint64       `gorm:"primaryKey;autoIncrement"`
	ListingID      uint64       `gorm:"column:listing_id;index;not null"`
	BuyerUID       string       `gorm:"column:buyer_uid;size:128;index;not null"`
	SellerUID      string       `gorm:"column:seller_uid;size:128;index;not null"`
	Amount         float64      `gorm:"column:amount;not null"`
	Currency       string       `gorm:"size:8;not null;default:EUR"`
	OfferType      OfferType    `gorm:"column:offer_type;size:16;not null"`
	Status         OfferStatus  `gorm:"column:status;size:16;not null;index"`
	CompatScore    float64      `gorm:"column:compat_score"`
	DistanceKm     float64      `gorm:"column:distance_km"`
	CounterAmount  *float64     `gorm:"column:counter_amount"`
	RopaHeldAmount *float64     `gorm:"column:ropa_held_amount"`
	EscrowStatus   EscrowStatus `gorm:"column:escrow_status;size:16"`
	MatchID        *uint64      `gorm:"column:match_id;index"`
	AcceptedAt     *time.Time   `gorm:"column:accepted_at"`
	ExpiresAt      time.Time    `gorm:"column:expires_at;not null;index"`
	CreatedAt      time.Time    `gorm:"autoCreateTime"`
	UpdatedAt      time.Time    `gorm:"autoUpdateTime"`
}

func (Offer) TableName() string {
	return "offers"
}

// Open reports whether the offer still admits seller or buyer action.
func (s OfferStatus) Open() bool {
	return s == OfferStatusPending || s == OfferStatusCountered
}

// Expired checks the authoritative expiry time. Status alone can lag
// behind because expiry is applied lazily at read time.
func (o *Offer) Expired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}
