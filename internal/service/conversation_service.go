package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"gorm.io/gorm"
)

type ConversationService interface {
	ListForUser(ctx context.Context, uid string) ([]model.Conversation, error)
	Get(ctx context.Context, id uint64, uid string) (*model.Conversation, error)
	ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error)
	PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error)
}

type conversationService struct {
	repo   repository.ConversationRepository
	notify NotificationService
}

func NewConversationService(repo repository.ConversationRepository, notify NotificationService) ConversationService {
	return &conversationService{repo: repo, notify: notify}
}

func (s *conversationService) ListForUser(ctx context.Context, uid string) ([]model.Conversation, error) {
	if uid == "" {
		return nil, errors.New("user is required")
	}
	return s.repo.FindByUser(ctx, uid)
}

func (s *conversationService) Get(ctx context.Context, id uint64, uid string) (*model.Conversation, error) {
	cv, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if uid != cv.SellerUID && uid != cv.BuyerUID {
		return nil, ErrForbidden
	}
	return cv, nil
}

func (s *conversationService) ListMessages(ctx context.Context, convID uint64, uid string) ([]model.Message, error) {
	if _, err := s.Get(ctx, convID, uid); err != nil {
		return nil, err
	}
	return s.repo.ListMessages(ctx, convID)
}

func (s *conversationService) PostMessage(ctx context.Context, convID uint64, uid, body string) (*model.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errors.New("message body is required")
	}
	cv, err := s.Get(ctx, convID, uid)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ConversationID: convID,
		SenderUID:      uid,
		Body:           body,
	}
	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}

	recipient := cv.SellerUID
	if uid == cv.SellerUID {
		recipient = cv.BuyerUID
	}
	s.notify.Notify(ctx, recipient, "message_received", "New message",
		body, NotificationRefs{ConversationID: &convID, ListingID: &cv.ListingID})
	return msg, nil
}
