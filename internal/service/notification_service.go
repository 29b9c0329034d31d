package service

import (
	"context"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"github.com/sirupsen/logrus"
)

// NotificationRefs carries the optional entity links a notification can
// deep-link to.
type NotificationRefs struct {
	ListingID      *uint64
	OfferID        *uint64
	MatchID        *uint64
	ConversationID *uint64
}

type NotificationService interface {
	// Notify is best-effort: failures are logged and swallowed so the
	// calling flow is never blocked or rolled back by the sink.
	Notify(ctx context.Context, userUID, typ, title, body string, refs NotificationRefs)
	List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error)
	MarkAllRead(ctx context.Context, userUID string) error
}

type notificationService struct {
	repo repository.NotificationRepository
	log  *logrus.Logger
}

func NewNotificationService(repo repository.NotificationRepository, log *logrus.Logger) NotificationService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &notificationService{repo: repo, log: log}
}

func (s *notificationService) Notify(ctx context.Context, userUID, typ, title, body string, refs NotificationRefs) {
	if userUID == "" || typ == "" {
		return
	}
	n := &model.Notification{
		UserUID:        userUID,
		Type:           typ,
		Title:          title,
		Body:           body,
		ListingID:      refs.ListingID,
		OfferID:        refs.OfferID,
		MatchID:        refs.MatchID,
		ConversationID: refs.ConversationID,
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.log.WithFields(logrus.Fields{
			"user": userUID,
			"type": typ,
		}).WithError(err).Warn("notification write failed")
	}
}

func (s *notificationService) List(ctx context.Context, userUID string, unreadOnly bool, limit int) ([]model.Notification, int64, error) {
	if userUID == "" {
		return nil, 0, nil
	}
	list, err := s.repo.ListByUser(ctx, userUID, unreadOnly, limit)
	if err != nil {
		return nil, 0, err
	}
	cnt, err := s.repo.CountUnread(ctx, userUID)
	if err != nil {
		return list, 0, err
	}
	return list, cnt, nil
}

func (s *notificationService) MarkAllRead(ctx context.Context, userUID string) error {
	if userUID == "" {
		return nil
	}
	return s.repo.MarkAllRead(ctx, userUID)
}
