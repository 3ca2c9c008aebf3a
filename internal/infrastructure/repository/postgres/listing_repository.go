package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/brightdoor/listing-studio/internal/domain/listing"
)

type ListingRepository struct {
	db *sqlx.DB
}

func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

func (r *ListingRepository) GetByID(ctx context.Context, listingID string) (listing.Listing, bool, error) {
	var row listingTableModel
	err := r.db.GetContext(ctx, &row,
		`SELECT * FROM listings WHERE id = $1`, listingID)
	if err != nil {
		if isNotFound(err) {
			return listing.Listing{}, false, nil
		}
		return listing.Listing{}, false, fmt.Errorf("get listing by id: %w", err)
	}
	return row.toDomain(), true, nil
}

func (r *ListingRepository) ListByOrg(ctx context.Context, orgID string) ([]listing.Listing, error) {
	var rows []listingTableModel
	err := r.db.SelectContext(ctx, &rows,
		`SELECT * FROM listings WHERE org_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("select listings: %w", err)
	}

	out := make([]listing.Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

func (r *ListingRepository) Create(ctx context.Context, item listing.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO listings (
			id, org_id, title, address, city, price,
			bedrooms, bathrooms, area_sqm, description, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		item.ID, item.OrgID, item.Title, item.Address, item.City, item.Price,
		item.Bedrooms, item.Bathrooms, item.AreaSqm, item.Description, string(item.Status),
		item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert listing: %w", err)
	}
	return nil
}

func (r *ListingRepository) Update(ctx context.Context, item listing.Listing) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE listings SET
			title = $1, address = $2, city = $3, price = $4,
			bedrooms = $5, bathrooms = $6, area_sqm = $7,
			description = $8, status = $9, updated_at = $10
		WHERE id = $11`,
		item.Title, item.Address, item.City, item.Price,
		item.Bedrooms, item.Bathrooms, item.AreaSqm,
		item.Description, string(item.Status), item.UpdatedAt,
		item.ID,
	)
	if err != nil {
		return fmt.Errorf("update listing: %w", err)
	}
	return nil
}
