package model

import "time"

const (
	KarmaActionOfferAccepted  = "offer_accepted"
	KarmaActionOfferMade      = "offer_made"
	KarmaActionSwapCompleted  = "swap_completed"
	KarmaActionDisputeRelease = "dispute_release"
)

// KarmaEntry is an append-only audit row for every point grant. Entries
// are never updated or deleted; the user's counter is the running sum.
type KarmaEntry struct {
	ID          uint64    `gorm:"primaryKey;autoIncrement"`
	UserUID     string    `gorm:"column:user_uid;size:128;index;not null"`
	Action      string    `gorm:"column:action;size:64;not null"`
	Points      int64     `gorm:"column:points;not null"`
	Description string    `gorm:"column:description;size:255"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

func (KarmaEntry) TableName() string {
	return "karma_entries"
}
