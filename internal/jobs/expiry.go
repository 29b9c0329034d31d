// Package jobs holds the cron-driven janitors. Offer expiry is applied
// lazily when a seller reads their dashboard; the sweep here only catches
// offers whose sellers never come back, so the two mechanisms converge on
// the same state. expires_at remains the authoritative signal either way.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

type Scheduler struct {
	cron   *cron.Cron
	offers repository.OfferRepository
	log    *logrus.Logger
}

func NewScheduler(offers repository.OfferRepository, log *logrus.Logger) *Scheduler {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Scheduler{
		cron:   cron.New(),
		offers: offers,
		log:    log,
	}
}

// Start registers the stale-offer sweep and launches the cron loop.
func (s *Scheduler) Start(schedule string) error {
	_, err := s.cron.AddFunc(schedule, s.sweepStaleOffers)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) sweepStaleOffers() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.offers.ExpireStaleBefore(ctx, time.Now())
	if err != nil {
		s.log.WithError(err).Error("stale offer sweep failed")
		return
	}
	if n > 0 {
		s.log.WithField("expired", n).Info("stale offers expired")
	}
}
