package model

import "time"

// SwapBuddy is an undirected "has successfully traded with" edge between
// two users, created on first completed trade. Lookups must try both
// orderings of the pair before inserting.
type SwapBuddy struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserAUID  string    `gorm:"column:user_a_uid;size:128;not null;uniqueIndex:idx_buddy_pair"`
	UserBUID  string    `gorm:"column:user_b_uid;size:128;not null;uniqueIndex:idx_buddy_pair"`
	Trades    int       `gorm:"column:trades;not null;default:1"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (SwapBuddy) TableName() string {
	return "swap_buddies"
}
