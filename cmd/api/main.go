package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/ropaswap/backend/internal/config"
	"github.com/ropaswap/backend/internal/db"
	"github.com/ropaswap/backend/internal/jobs"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/ropaswap/backend/internal/server"
	"github.com/sirupsen/logrus"
)

var (
	gitSHA    = "dev"
	buildTime = "unknown"
)

func main() {
	_ = godotenv.Load()

	log := logrus.New()

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("config load failed")
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	conn, err := db.Connect(cfg)
	if err != nil {
		log.WithError(err).Fatal("db connect failed")
	}
	if err := conn.AutoMigrate(
		&model.User{},
		&model.Listing{},
		&model.Swipe{},
		&model.Offer{},
		&model.Match{},
		&model.SwapBuddy{},
		&model.KarmaEntry{},
		&model.Conversation{},
		&model.Message{},
		&model.Notification{},
	); err != nil {
		log.WithError(err).Fatal("auto migrate failed")
	}

	sched := jobs.NewScheduler(repository.NewOfferRepository(conn), log)
	if err := sched.Start(cfg.OfferSweepSchedule); err != nil {
		log.WithError(err).Fatal("scheduler start failed")
	}
	defer sched.Stop()

	projectID := cfg.FirebaseProjectID
	if projectID == "" {
		projectID = os.Getenv("FIREBASE_PROJECT_ID")
	}

	srv := server.New(conn, log, projectID, gitSHA, buildTime)
	addr := ":" + cfg.Port
	log.WithField("addr", addr).Info("starting server")
	if err := srv.Start(addr); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
