package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// fakeClock lets tests move business time (expiry, rate-limit windows)
// without touching row timestamps.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

type testEnv struct {
	db       *gorm.DB
	clock    *fakeClock
	users    repository.UserRepository
	listings repository.ListingRepository
	swipes   repository.SwipeRepository
	offerRep repository.OfferRepository
	matchRep repository.MatchRepository
	buddies  repository.SwapBuddyRepository
	karma    repository.KarmaRepository
	convs    repository.ConversationRepository
	notifRep repository.NotificationRepository

	trust   TrustService
	notify  NotificationService
	offers  OfferService
	swiping SwipeService
	matches MatchService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.User{}, &model.Listing{}, &model.Swipe{}, &model.Offer{},
		&model.Match{}, &model.SwapBuddy{}, &model.KarmaEntry{},
		&model.Conversation{}, &model.Message{}, &model.Notification{},
	))

	env := &testEnv{
		db:       db,
		clock:    &fakeClock{now: time.Now()},
		users:    repository.NewUserRepository(db),
		listings: repository.NewListingRepository(db),
		swipes:   repository.NewSwipeRepository(db),
		offerRep: repository.NewOfferRepository(db),
		matchRep: repository.NewMatchRepository(db),
		buddies:  repository.NewSwapBuddyRepository(db),
		karma:    repository.NewKarmaRepository(db),
		convs:    repository.NewConversationRepository(db),
		notifRep: repository.NewNotificationRepository(db),
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	env.notify = NewNotificationService(env.notifRep, log)

	env.trust = NewTrustService(env.users, env.karma)
	env.offers = NewOfferService(db, env.offerRep, env.listings, env.users, env.swipes, env.matchRep, env.convs, env.trust, env.notify)
	env.offers.(*offerService).now = env.clock.Now
	env.swiping = NewSwipeService(db, env.swipes, env.listings, env.matchRep, env.convs, env.notify)
	env.matches = NewMatchService(db, env.matchRep, env.offerRep, env.users, env.buddies, env.convs, env.trust, env.notify)
	env.matches.(*matchService).now = env.clock.Now

	return env
}

func (e *testEnv) createUser(t *testing.T, uid string, mutate ...func(*model.User)) *model.User {
	t.Helper()
	u := &model.User{
		UID:       uid,
		Role:      model.RoleUser,
		TrustTier: model.TrustTierBronze,
	}
	for _, fn := range mutate {
		fn(u)
	}
	require.NoError(t, e.db.Create(u).Error)
	return u
}

func (e *testEnv) createListing(t *testing.T, ownerUID string, price *float64, mutate ...func(*model.Listing)) *model.Listing {
	t.Helper()
	l := &model.Listing{
		OwnerUID: ownerUID,
		Title:    "test item",
		Price:    price,
		Currency: "EUR",
		Active:   true,
	}
	for _, fn := range mutate {
		fn(l)
	}
	require.NoError(t, e.db.Create(l).Error)
	return l
}

func (e *testEnv) reloadUser(t *testing.T, uid string) *model.User {
	t.Helper()
	var u model.User
	require.NoError(t, e.db.Where("uid = ?", uid).First(&u).Error)
	return &u
}

func (e *testEnv) reloadOffer(t *testing.T, id uint64) *model.Offer {
	t.Helper()
	var o model.Offer
	require.NoError(t, e.db.First(&o, id).Error)
	return &o
}

func (e *testEnv) reloadMatch(t *testing.T, id uint64) *model.Match {
	t.Helper()
	var m model.Match
	require.NoError(t, e.db.First(&m, id).Error)
	return &m
}

func floatPtr(v float64) *float64 { return &v }
