package model

import "time"

type Listing struct {
	ID          uint64   `gorm:"primaryKey;autoIncrement"`
	OwnerUID    string   `gorm:"column:owner_uid;size:128;index;not null"`
	Title       string   `gorm:"size:120;not null"`
	Description string   `gorm:"type:text"`
	Category    string   `gorm:"size:64"`
	Brand       string   `gorm:"size:64"`
	Size        string   `gorm:"size:16"`
	Condition   string   `gorm:"size:32"`
	// Price is the asking price; nil or zero means the item is offered free.
	Price     *float64  `gorm:"column:price"`
	Currency  string    `gorm:"size:8;not null;default:EUR"`
	Active    bool      `gorm:"not null;default:true"`
	Lat       float64   `gorm:"column:lat"`
	Lng       float64   `gorm:"column:lng"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

func (Listing) TableName() string {
	return "listings"
}

// AskingPrice treats a missing price as zero so offer classification has a
// single comparison path.
func (l *Listing) AskingPrice() float64 {
	if l.Price == nil {
		return 0
	}
	return *l.Price
}
