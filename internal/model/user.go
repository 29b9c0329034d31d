package model

import "time"

type TrustTier string

const (
	TrustTierBronze TrustTier = "bronze"
	TrustTierSilver TrustTier = "silver"
	TrustTierGold   TrustTier = "gold"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User carries identity plus the reputation counters the matching and
// trust logic read. TrustTier is derived; it is recomputed from the other
// counters after every karma grant and never updated on its own.
type User struct {
	UID              string    `gorm:"column:uid;primaryKey;size:128"`
	DisplayName      string    `gorm:"column:display_name;size:120"`
	Role             string    `gorm:"column:role;size:16;not null;default:user"`
	Lat              float64   `gorm:"column:lat"`
	Lng              float64   `gorm:"column:lng"`
	KarmaPoints      int64     `gorm:"column:karma_points;not null;default:0"`
	TrustTier        TrustTier `gorm:"column:trust_tier;size:16;not null;default:bronze"`
	CompletedTrades  int       `gorm:"column:completed_trades;not null;default:0"`
	TotalTrades      int       `gorm:"column:total_trades;not null;default:0"`
	Rating           float64   `gorm:"column:rating;not null;default:0"`
	Verified         bool      `gorm:"column:verified;not null;default:false"`
	StylePreferences []string  `gorm:"column:style_preferences;serializer:json"`
	// MinOfferPercent is the seller's floor as a percentage of asking price.
	// 0 disables auto-decline.
	MinOfferPercent float64   `gorm:"column:min_offer_percent;not null;default:0"`
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}
