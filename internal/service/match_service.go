package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"gorm.io/gorm"
)

const karmaSwapCompleted = 20

const (
	ResolutionRelease = "release"
	ResolutionRefund  = "refund"
)

// ConfirmResult reports what a delivery confirmation did.
type ConfirmResult struct {
	Confirmed     bool
	BothConfirmed bool
	Status        model.MatchStatus
}

type MatchService interface {
	// AcceptMatch moves a swipe-created pending match to accepted.
	AcceptMatch(ctx context.Context, matchID uint64, callerUID string) (*model.Match, error)
	// ConfirmDelivery records the caller's independent confirmation. The
	// caller's role is fixed by match creation: userA confirms as seller,
	// userB as buyer. When the second confirmation lands the match
	// completes, escrow releases and both users are rewarded.
	ConfirmDelivery(ctx context.Context, matchID uint64, callerUID string) (*ConfirmResult, *model.Match, error)
	OpenDispute(ctx context.Context, matchID uint64, callerUID, reason string) (*model.Match, error)
	// ResolveDispute is admin-only. The caller's role is re-read from the
	// store; a role claimed by the session is never trusted here.
	ResolveDispute(ctx context.Context, matchID uint64, adminUID, resolution string) (*model.Match, error)
	Get(ctx context.Context, matchID uint64, callerUID string) (*model.Match, error)
	ListForUser(ctx context.Context, uid string) ([]model.Match, error)
}

type matchService struct {
	db      *gorm.DB
	matches repository.MatchRepository
	offers  repository.OfferRepository
	users   repository.UserRepository
	buddies repository.SwapBuddyRepository
	convs   repository.ConversationRepository
	trust   TrustService
	notify  NotificationService
	now     func() time.Time
}

func NewMatchService(
	db *gorm.DB,
	matches repository.MatchRepository,
	offers repository.OfferRepository,
	users repository.UserRepository,
	buddies repository.SwapBuddyRepository,
	convs repository.ConversationRepository,
	trust TrustService,
	notify NotificationService,
) MatchService {
	return &matchService{
		db:      db,
		matches: matches,
		offers:  offers,
		users:   users,
		buddies: buddies,
		convs:   convs,
		trust:   trust,
		notify:  notify,
		now:     time.Now,
	}
}

func (s *matchService) find(ctx context.Context, matchID uint64) (*model.Match, error) {
	m, err := s.matches.FindByID(ctx, matchID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return m, nil
}

func (s *matchService) AcceptMatch(ctx context.Context, matchID uint64, callerUID string) (*model.Match, error) {
	m, err := s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(callerUID) {
		return nil, ErrForbidden
	}
	res := s.db.WithContext(ctx).
		Model(&model.Match{}).
		Where("id = ? AND status = ?", matchID, model.MatchStatusPending).
		Update("status", model.MatchStatusAccepted)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidState
	}
	m, err = s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, s.counterpart(m, callerUID), "match_accepted", "Match accepted",
		"Your match was accepted, agree on the swap details", NotificationRefs{MatchID: &m.ID})
	return m, nil
}

func (s *matchService) ConfirmDelivery(ctx context.Context, matchID uint64, callerUID string) (*ConfirmResult, *model.Match, error) {
	m, err := s.find(ctx, matchID)
	if err != nil {
		return nil, nil, err
	}
	if !m.Participant(callerUID) {
		return nil, nil, ErrForbidden
	}
	if m.Status != model.MatchStatusAccepted {
		return nil, nil, ErrNotAccepted
	}

	column := repository.ConfirmColumnBuyer
	if callerUID == m.UserAUID {
		column = repository.ConfirmColumnSeller
	}

	now := s.now()
	completed := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		matches := s.matches.WithTx(tx)

		rows, err := matches.ConfirmDelivery(ctx, matchID, column, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Guard failed: either this party already confirmed or a
			// concurrent transition (e.g. a dispute) left accepted.
			cur, err := matches.FindByID(ctx, matchID)
			if err != nil {
				return err
			}
			if cur.Status != model.MatchStatusAccepted {
				return ErrNotAccepted
			}
			return ErrAlreadyConfirmed
		}

		cur, err := matches.FindByID(ctx, matchID)
		if err != nil {
			return err
		}
		m = cur
		if !cur.BothConfirmed() {
			return nil
		}

		rows, err = matches.CompleteIf(ctx, matchID, model.MatchStatusAccepted, now)
		if err != nil {
			return err
		}
		if rows == 0 {
			return nil
		}
		if err := s.settleCompletion(ctx, tx, cur); err != nil {
			return err
		}
		completed = true
		m, err = matches.FindByID(ctx, matchID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	if completed {
		for _, uid := range []string{m.UserAUID, m.UserBUID} {
			s.notify.Notify(ctx, uid, "swap_completed", "Swap completed",
				"Both sides confirmed delivery, escrow was released", NotificationRefs{MatchID: &m.ID})
		}
	} else {
		s.notify.Notify(ctx, s.counterpart(m, callerUID), "delivery_confirmed", "Delivery confirmed",
			"Your swap partner confirmed delivery", NotificationRefs{MatchID: &m.ID})
	}
	return &ConfirmResult{Confirmed: true, BothConfirmed: completed, Status: m.Status}, m, nil
}

// settleCompletion runs the shared completed-match side effects: escrow
// release, karma, trade counters and the swap-buddy edge.
func (s *matchService) settleCompletion(ctx context.Context, tx *gorm.DB, m *model.Match) error {
	if m.OfferID != nil {
		if err := s.offers.WithTx(tx).SetEscrow(ctx, *m.OfferID, model.EscrowReleased); err != nil {
			return err
		}
	}
	users := s.users.WithTx(tx)
	for _, uid := range []string{m.UserAUID, m.UserBUID} {
		// Counters first so the tier recalculation inside Grant sees the
		// completed trade.
		if err := users.IncrementTrades(ctx, uid, 1, 1); err != nil {
			return err
		}
		if err := s.trust.Grant(ctx, tx, uid, model.KarmaActionSwapCompleted, karmaSwapCompleted, "completed a swap"); err != nil {
			return err
		}
	}
	if err := s.buddies.WithTx(tx).Record(ctx, m.UserAUID, m.UserBUID); err != nil {
		return err
	}
	if m.ConversationID != 0 {
		if err := s.convs.WithTx(tx).CreateMessage(ctx, &model.Message{
			ConversationID: m.ConversationID,
			SenderUID:      m.UserAUID,
			Body:           "Swap completed. Escrow released.",
			System:         true,
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *matchService) OpenDispute(ctx context.Context, matchID uint64, callerUID, reason string) (*model.Match, error) {
	reason = strings.TrimSpace(reason)
	if len(reason) < 5 {
		return nil, errors.New("dispute reason must be at least 5 characters")
	}
	m, err := s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !m.Participant(callerUID) {
		return nil, ErrForbidden
	}
	if m.Status == model.MatchStatusCompleted || m.Status == model.MatchStatusDisputed {
		return nil, ErrInvalidState
	}

	ref := uuid.NewString()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Match{}).
			Where("id = ? AND status NOT IN ?", matchID,
				[]model.MatchStatus{model.MatchStatusCompleted, model.MatchStatusDisputed}).
			Updates(map[string]interface{}{
				"status":            model.MatchStatusDisputed,
				"dispute_ref":       ref,
				"dispute_reason":    reason,
				"dispute_opened_by": callerUID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		if m.OfferID != nil {
			if err := s.offers.WithTx(tx).SetEscrow(ctx, *m.OfferID, model.EscrowDisputed); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m, err = s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	s.notify.Notify(ctx, s.counterpart(m, callerUID), "dispute_opened", "Dispute opened",
		"Your swap partner opened a dispute; an admin will review it", NotificationRefs{MatchID: &m.ID})
	return m, nil
}

func (s *matchService) ResolveDispute(ctx context.Context, matchID uint64, adminUID, resolution string) (*model.Match, error) {
	if resolution != ResolutionRelease && resolution != ResolutionRefund {
		return nil, errors.New("resolution must be release or refund")
	}
	// Privilege is checked against the stored role, never a session claim.
	admin, err := s.users.FindByUID(ctx, adminUID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAdmin
		}
		return nil, err
	}
	if !admin.IsAdmin() {
		return nil, ErrNotAdmin
	}

	m, err := s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if m.Status != model.MatchStatusDisputed {
		return nil, ErrInvalidState
	}

	now := s.now()
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if resolution == ResolutionRelease {
			res := tx.Model(&model.Match{}).
				Where("id = ? AND status = ?", matchID, model.MatchStatusDisputed).
				Updates(map[string]interface{}{
					"status":             model.MatchStatusCompleted,
					"escrow_released_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInvalidState
			}
			return s.settleCompletion(ctx, tx, m)
		}

		res := tx.Model(&model.Match{}).
			Where("id = ? AND status = ?", matchID, model.MatchStatusDisputed).
			Update("status", model.MatchStatusExpired)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}
		if m.OfferID != nil {
			return s.offers.WithTx(tx).SetEscrow(ctx, *m.OfferID, model.EscrowRefunded)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	m, err = s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	for _, uid := range []string{m.UserAUID, m.UserBUID} {
		s.notify.Notify(ctx, uid, "dispute_resolved", "Dispute resolved",
			"An admin resolved the dispute: "+resolution, NotificationRefs{MatchID: &m.ID})
	}
	return m, nil
}

func (s *matchService) Get(ctx context.Context, matchID uint64, callerUID string) (*model.Match, error) {
	m, err := s.find(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if callerUID != "" && !m.Participant(callerUID) {
		return nil, ErrForbidden
	}
	return m, nil
}

func (s *matchService) ListForUser(ctx context.Context, uid string) ([]model.Match, error) {
	return s.matches.ListByUser(ctx, uid)
}

func (s *matchService) counterpart(m *model.Match, uid string) string {
	if uid == m.UserAUID {
		return m.UserBUID
	}
	return m.UserAUID
}
