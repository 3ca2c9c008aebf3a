package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/brightdoor/listing-studio/internal/domain/listing"
)

type ListingRepository struct {
	mu    sync.RWMutex
	items map[string]listing.Listing
}

func NewListingRepository() *ListingRepository {
	return &ListingRepository{
		items: make(map[string]listing.Listing),
	}
}

func (r *ListingRepository) GetByID(ctx context.Context, listingID string) (listing.Listing, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[listingID]
	return item, ok, nil
}

func (r *ListingRepository) ListByOrg(ctx context.Context, orgID string) ([]listing.Listing, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]listing.Listing, 0, len(r.items))
	for _, item := range r.items {
		if item.OrgID == orgID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *ListingRepository) Create(ctx context.Context, item listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, item listing.Listing) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[item.ID] = item
	return nil
}
