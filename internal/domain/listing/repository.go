package listing

import "context"

type Repository interface {
	GetByID(ctx context.Context, listingID string) (Listing, bool, error)
	ListByOrg(ctx context.Context, orgID string) ([]Listing, error)
	Create(ctx context.Context, item Listing) error
	Update(ctx context.Context, item Listing) error
}
