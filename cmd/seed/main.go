// Seed loads a small set of development fixtures: a handful of users with
// varied reputation and a few listings each, so the swipe and offer flows
// can be exercised locally.
package main

import (
	"github.com/joho/godotenv"
	"github.com/ropaswap/backend/internal/config"
	"github.com/ropaswap/backend/internal/db"
	"github.com/ropaswap/backend/internal/model"
	"github.com/sirupsen/logrus"
)

func floatPtr(v float64) *float64 { return &v }

func main() {
	_ = godotenv.Load()
	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	conn, err := db.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	if err := conn.AutoMigrate(
		&model.User{}, &model.Listing{}, &model.Swipe{}, &model.Offer{},
		&model.Match{}, &model.SwapBuddy{}, &model.KarmaEntry{},
		&model.Conversation{}, &model.Message{}, &model.Notification{},
	); err != nil {
		log.WithError(err).Fatal("auto migrate failed")
	}

	users := []model.User{
		{UID: "seed-ana", DisplayName: "Ana", Lat: 40.4168, Lng: -3.7038,
			Verified: true, TrustTier: model.TrustTierSilver,
			StylePreferences: []string{"vintage", "y2k"}, MinOfferPercent: 60},
		{UID: "seed-marco", DisplayName: "Marco", Lat: 41.3874, Lng: 2.1686,
			KarmaPoints: 320, CompletedTrades: 12, TotalTrades: 15, Rating: 4.8,
			TrustTier: model.TrustTierGold, StylePreferences: []string{"streetwear"}},
		{UID: "seed-lena", DisplayName: "Lena", Lat: 48.8566, Lng: 2.3522,
			StylePreferences: []string{"formal", "vintage"}},
		{UID: "seed-admin", DisplayName: "Ops", Role: model.RoleAdmin,
			TrustTier: model.TrustTierBronze},
	}
	for i := range users {
		if err := conn.Where("uid = ?", users[i].UID).FirstOrCreate(&users[i]).Error; err != nil {
			log.WithError(err).WithField("uid", users[i].UID).Fatal("seed user failed")
		}
	}

	listings := []model.Listing{
		{OwnerUID: "seed-ana", Title: "Levi's 501 vintage", Category: "jeans",
			Brand: "Levi's", Size: "M", Condition: "good",
			Price: floatPtr(45), Currency: "EUR", Active: true, Lat: 40.4168, Lng: -3.7038},
		{OwnerUID: "seed-ana", Title: "Silk scarf", Category: "accessories",
			Condition: "like new", Currency: "EUR", Active: true, Lat: 40.4168, Lng: -3.7038},
		{OwnerUID: "seed-marco", Title: "Carhartt jacket", Category: "outerwear",
			Brand: "Carhartt", Size: "L", Condition: "worn",
			Price: floatPtr(80), Currency: "EUR", Active: true, Lat: 41.3874, Lng: 2.1686},
		{OwnerUID: "seed-lena", Title: "Wool blazer", Category: "jackets",
			Size: "S", Condition: "good",
			Price: floatPtr(60), Currency: "EUR", Active: true, Lat: 48.8566, Lng: 2.3522},
	}
	for i := range listings {
		if err := conn.Where("owner_uid = ? AND title = ?", listings[i].OwnerUID, listings[i].Title).
			FirstOrCreate(&listings[i]).Error; err != nil {
			log.WithError(err).WithField("title", listings[i].Title).Fatal("seed listing failed")
		}
	}

	log.WithFields(logrus.Fields{
		"users":    len(users),
		"listings": len(listings),
	}).Info("seed complete")
}
