package model

import "time"

type SwipeDirection string

const (
	SwipeLeft  SwipeDirection = "LEFT"
	SwipeRight SwipeDirection = "RIGHT"
	SwipeSuper SwipeDirection = "SUPER"
)

// Likes reports whether the swipe counts toward reciprocity.
func (d SwipeDirection) Likes() bool {
	return d == SwipeRight || d == SwipeSuper
}

// Swipe is one user's vote on one listing. The (swiper, listing) pair is
// unique; re-swiping overwrites the direction in place.
type Swipe struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement"`
	SwiperUID string         `gorm:"column:swiper_uid;size:128;not null;uniqueIndex:idx_swiper_listing"`
	ListingID uint64         `gorm:"column:listing_id;not null;uniqueIndex:idx_swiper_listing"`
	Direction SwipeDirection `gorm:"column:direction;size:8;not null"`
	OfferID   *uint64        `gorm:"column:offer_id;index"`
	CreatedAt time.Time      `gorm:"autoCreateTime"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime"`
}

func (Swipe) TableName() string {
	return "swipes"
}
