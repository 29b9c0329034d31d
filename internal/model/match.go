package model

import "time"

type MatchStatus string

const (
	MatchStatusPending   MatchStatus = "pending"
	MatchStatusAccepted  MatchStatus = "accepted"
	MatchStatusCompleted MatchStatus = "completed"
	MatchStatusExpired   MatchStatus = "expired"
	MatchStatusDisputed  MatchStatus = "disputed"
)

// Match is a bilateral trade agreement. UserA is the seller side (owner of
// ListingA) and UserB the buyer side; the roles are fixed at creation.
// A swipe-reciprocity match starts at pending, an offer-acceptance match
// starts directly at accepted.
type Match struct {
	ID                uint64      `gorm:"primaryKey;autoIncrement"`
	UserAUID          string      `gorm:"column:user_a_uid;size:128;index;not null"`
	UserBUID          string      `gorm:"column:user_b_uid;size:128;index;not null"`
	ListingAID        uint64      `gorm:"column:listing_a_id;index;not null"`
	ListingBID        uint64      `gorm:"column:listing_b_id;index;not null"`
	Status            MatchStatus `gorm:"column:status;size:16;not null;index"`
	AgreedPrice       *float64    `gorm:"column:agreed_price"`
	Currency          string      `gorm:"size:8;not null;default:EUR"`
	OfferID           *uint64     `gorm:"column:offer_id;index"`
	ConversationID    uint64      `gorm:"column:conversation_id;index"`
	SellerConfirmedAt *time.Time  `gorm:"column:seller_confirmed_at"`
	BuyerConfirmedAt  *time.Time  `gorm:"column:buyer_confirmed_at"`
	EscrowReleasedAt  *time.Time  `gorm:"column:escrow_released_at"`
	DisputeRef        *string     `gorm:"column:dispute_ref;size:36"`
	DisputeReason     *string     `gorm:"column:dispute_reason;type:text"`
	DisputeOpenedBy   *string     `gorm:"column:dispute_opened_by;size:128"`
	CreatedAt         time.Time   `gorm:"autoCreateTime"`
	UpdatedAt         time.Time   `gorm:"autoUpdateTime"`
}

func (Match) TableName() string {
	return "matches"
}

func (m *Match) Participant(uid string) bool {
	return uid == m.UserAUID || uid == m.UserBUID
}

// BothConfirmed is the completion condition for an accepted match.
func (m *Match) BothConfirmed() bool {
	return m.SellerConfirmedAt != nil && m.BuyerConfirmedAt != nil
}
