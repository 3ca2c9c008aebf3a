package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/platform/cache"
	"github.com/brightdoor/listing-studio/internal/platform/id"
)

type CreateListingInput struct {
	OrgID       string
	Title       string
	Address     string
	City        string
	Price       int64
	Bedrooms    int
	Bathrooms   int
	AreaSqm     int
	Description string
}

// ListingService is thin CRUD over the listing repository with a read-through
// cache on single-listing lookups.
type ListingService struct {
	repo  listing.Repository
	store *cache.Store
	ids   id.Generator
	now   func() time.Time
}

func NewListingService(repo listing.Repository, store *cache.Store, ids id.Generator) *ListingService {
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &ListingService{
		repo:  repo,
		store: store,
		ids:   ids,
		now:   time.Now,
	}
}

func (s *ListingService) Create(ctx context.Context, in CreateListingInput) (listing.Listing, error) {
	if strings.TrimSpace(in.OrgID) == "" {
		return listing.Listing{}, fmt.Errorf("%w: org id is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Title) == "" {
		return listing.Listing{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if in.Price < 0 {
		return listing.Listing{}, fmt.Errorf("%w: price cannot be negative", ErrInvalidInput)
	}

	listingID, err := s.ids.NewID()
	if err != nil {
		return listing.Listing{}, fmt.Errorf("generate listing id: %w", err)
	}

	now := s.now()
	item := listing.Listing{
		ID:          listingID,
		OrgID:       in.OrgID,
		Title:       strings.TrimSpace(in.Title),
		Address:     strings.TrimSpace(in.Address),
		City:        strings.TrimSpace(in.City),
		Price:       in.Price,
		Bedrooms:    in.Bedrooms,
		Bathrooms:   in.Bathrooms,
		AreaSqm:     in.AreaSqm,
		Description: in.Description,
		Status:      listing.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return listing.Listing{}, fmt.Errorf("create listing: %w", err)
	}

	return item, nil
}

func (s *ListingService) GetByID(ctx context.Context, orgID, listingID string) (listing.Listing, error) {
	if strings.TrimSpace(listingID) == "" {
		return listing.Listing{}, fmt.Errorf("%w: listing id is required", ErrInvalidInput)
	}

	load := func(ctx context.Context) (any, error) {
		item, found, err := s.repo.GetByID(ctx, listingID)
		if err != nil {
			return nil, fmt.Errorf("get listing %s: %w", listingID, err)
		}
		if !found {
			return nil, fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
		}
		return item, nil
	}

	var value any
	var err error
	if s.store != nil {
		value, err = s.store.GetOrLoad(ctx, "listing:"+listingID, load)
	} else {
		value, err = load(ctx)
	}
	if err != nil {
		return listing.Listing{}, err
	}

	item, ok := value.(listing.Listing)
	if !ok {
		return listing.Listing{}, fmt.Errorf("unexpected cached type %T for listing %s", value, listingID)
	}
	if item.OrgID != orgID {
		return listing.Listing{}, fmt.Errorf("%w: listing %s", ErrUnauthorized, listingID)
	}
	return item, nil
}

func (s *ListingService) ListByOrg(ctx context.Context, orgID string) ([]listing.Listing, error) {
	if strings.TrimSpace(orgID) == "" {
		return nil, fmt.Errorf("%w: org id is required", ErrInvalidInput)
	}
	items, err := s.repo.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, fmt.Errorf("list listings org_id=%s: %w", orgID, err)
	}
	return items, nil
}
