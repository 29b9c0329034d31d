package model

import "time"

// Conversation is the chat thread between a listing's owner and one buyer.
// One thread exists per (listing, buyer); lifecycle events post system
// messages into it.
type Conversation struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	ListingID uint64    `gorm:"column:listing_id;index:idx_listing_buyer,unique" json:"listingId"`
	SellerUID string    `gorm:"column:seller_uid;size:128;index" json:"sellerUid"`
	BuyerUID  string    `gorm:"column:buyer_uid;size:128;index:idx_listing_buyer,unique" json:"buyerUid"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Conversation) TableName() string {
	return "conversations"
}
