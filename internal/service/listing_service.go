package service

import (
	"context"
	"errors"
	"strings"

	"github.com/ropaswap/backend/internal/model"
	"github.com/ropaswap/backend/internal/repository"
	"gorm.io/gorm"
)

type ListingService interface {
	Create(ctx context.Context, ownerUID string, in CreateListingInput) (*model.Listing, error)
	Get(ctx context.Context, id uint64) (*model.Listing, error)
	List(ctx context.Context, limit, offset int) ([]model.Listing, int64, error)
	ListMine(ctx context.Context, ownerUID string) ([]model.Listing, error)
	Deactivate(ctx context.Context, id uint64, ownerUID string) error
}

type CreateListingInput struct {
	Title       string
	Description string
	Category    string
	Brand       string
	Size        string
	Condition   string
	Price       *float64
	Currency    string
	Lat         float64
	Lng         float64
}

type listingService struct {
	repo repository.ListingRepository
}

func NewListingService(repo repository.ListingRepository) ListingService {
	return &listingService{repo: repo}
}

func (s *listingService) Create(ctx context.Context, ownerUID string, in CreateListingInput) (*model.Listing, error) {
	if ownerUID == "" {
		return nil, errors.New("owner is required")
	}
	title := strings.TrimSpace(in.Title)
	if title == "" || len(title) > 120 {
		return nil, errors.New("invalid title")
	}
	if in.Price != nil && *in.Price < 0 {
		return nil, errors.New("price must not be negative")
	}
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "EUR"
	}

	l := &model.Listing{
		OwnerUID:    ownerUID,
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Brand:       strings.TrimSpace(in.Brand),
		Size:        strings.TrimSpace(in.Size),
		Condition:   strings.TrimSpace(in.Condition),
		Price:       in.Price,
		Currency:    currency,
		Active:      true,
		Lat:         in.Lat,
		Lng:         in.Lng,
	}
	if err := s.repo.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *listingService) Get(ctx context.Context, id uint64) (*model.Listing, error) {
	l, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return l, nil
}

func (s *listingService) List(ctx context.Context, limit, offset int) ([]model.Listing, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, limit, offset)
}

func (s *listingService) ListMine(ctx context.Context, ownerUID string) ([]model.Listing, error) {
	if ownerUID == "" {
		return nil, errors.New("owner is required")
	}
	return s.repo.ListByOwner(ctx, ownerUID, false)
}

func (s *listingService) Deactivate(ctx context.Context, id uint64, ownerUID string) error {
	rows, err := s.repo.SetActive(ctx, id, ownerUID, false)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
