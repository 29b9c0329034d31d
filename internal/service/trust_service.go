package service

import (
	"context"
	"errors"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/ropaswap/backend/internal/scoring"
	"gorm.io/gorm"
)

// TrustService owns karma grants and the derived trust tier. Grants append
// an audit entry, bump the user's counter and recompute the tier from
// scratch, all inside the caller's transaction when one is passed.
type TrustService interface {
	Grant(ctx context.Context, tx *gorm.DB, uid, action string, points int64, description string) error
	Recalculate(ctx context.Context, tx *gorm.DB, uid string) error
	KarmaLog(ctx context.Context, uid string, limit int) ([]model.KarmaEntry, error)
}

type trustService struct {
	users repository.UserRepository
	karma repository.KarmaRepository
}

func NewTrustService(users repository.UserRepository, karma repository.KarmaRepository) TrustService {
	return &trustService{users: users, karma: karma}
}

func (s *trustService) repos(tx *gorm.DB) (repository.UserRepository, repository.KarmaRepository) {
	if tx == nil {
		return s.users, s.karma
	}
	return s.users.WithTx(tx), s.karma.WithTx(tx)
}

func (s *trustService) Grant(ctx context.Context, tx *gorm.DB, uid, action string, points int64, description string) error {
	if uid == "" || points <= 0 {
		return nil
	}
	users, karma := s.repos(tx)
	if err := users.AddKarma(ctx, uid, points); err != nil {
		return err
	}
	if err := karma.Create(ctx, &model.KarmaEntry{
		UserUID:     uid,
		Action:      action,
		Points:      points,
		Description: description,
	}); err != nil {
		return err
	}
	return s.recalculate(ctx, users, uid)
}

func (s *trustService) Recalculate(ctx context.Context, tx *gorm.DB, uid string) error {
	users, _ := s.repos(tx)
	return s.recalculate(ctx, users, uid)
}

// recalculate derives the tier from the freshly-read counters. The tier is
// never adjusted incrementally; drift between the stored tier and the
// counters is repaired on the next grant.
func (s *trustService) recalculate(ctx context.Context, users repository.UserRepository, uid string) error {
	u, err := users.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	tier := scoring.TierFor(u.Verified, u.CompletedTrades, u.Rating)
	if tier == u.TrustTier {
		return nil
	}
	return users.UpdateTrustTier(ctx, uid, tier)
}

func (s *trustService) KarmaLog(ctx context.Context, uid string, limit int) ([]model.KarmaEntry, error) {
	return s.karma.ListByUser(ctx, uid, limit)
}
