package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"gorm.io/gorm"
)

type UserService interface {
	// EnsureUser provisions the user row on first authenticated request.
	EnsureUser(ctx context.Context, uid string) (*model.User, error)
	Get(ctx context.Context, uid string) (*model.User, error)
	UpdateProfile(ctx context.Context, uid string, in UpdateProfileInput) (*model.User, error)
}

type UpdateProfileInput struct {
	DisplayName      *string
	Lat              *float64
	Lng              *float64
	StylePreferences []string
	MinOfferPercent  *float64
}

type userService struct {
	repo repository.UserRepository
	db   *gorm.DB
}

func NewUserService(db *gorm.DB, repo repository.UserRepository) UserService {
	return &userService{db: db, repo: repo}
}

func (s *userService) EnsureUser(ctx context.Context, uid string) (*model.User, error) {
	if uid == "" {
		return nil, errors.New("uid is required")
	}
	u, err := s.repo.FindByUID(ctx, uid)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	u = &model.User{
		UID:       uid,
		Role:      model.RoleUser,
		TrustTier: model.TrustTierBronze,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *userService) Get(ctx context.Context, uid string) (*model.User, error) {
	u, err := s.repo.FindByUID(ctx, uid)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return u, nil
}

func (s *userService) UpdateProfile(ctx context.Context, uid string, in UpdateProfileInput) (*model.User, error) {
	u, err := s.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	if in.DisplayName != nil {
		name := strings.TrimSpace(*in.DisplayName)
		if name == "" || len(name) > 120 {
			return nil, errors.New("invalid display name")
		}
		u.DisplayName = name
	}
	if in.Lat != nil {
		u.Lat = *in.Lat
	}
	if in.Lng != nil {
		u.Lng = *in.Lng
	}
	if in.StylePreferences != nil {
		u.StylePreferences = in.StylePreferences
	}
	if in.MinOfferPercent != nil {
		if *in.MinOfferPercent < 0 || *in.MinOfferPercent > 100 {
			return nil, errors.New("minOfferPercent must be between 0 and 100")
		}
		u.MinOfferPercent = *in.MinOfferPercent
	}
	if err := s.db.WithContext(ctx).Save(u).Error; err != nil {
		return nil, err
	}
	return u, nil
}
