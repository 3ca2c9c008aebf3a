package postgres

import (
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/listing"
)

type listingTableModel struct {
	ID          string    `db:"id"`
	OrgID       string    `db:"org_id"`
	Title       string    `db:"title"`
	Address     string    `db:"address"`
	City        string    `db:"city"`
	Price       int64     `db:"price"`
	Bedrooms    int       `db:"bedrooms"`
	Bathrooms   int       `db:"bathrooms"`
	AreaSqm     int       `db:"area_sqm"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (m listingTableModel) toDomain() listing.Listing {
	return listing.Listing{
		ID:          m.ID,
		OrgID:       m.OrgID,
		Title:       m.Title,
		Address:     m.Address,
		City:        m.City,
		Price:       m.Price,
		Bedrooms:    m.Bedrooms,
		Bathrooms:   m.Bathrooms,
		AreaSqm:     m.AreaSqm,
		Description: m.Description,
		Status:      listing.Status(m.Status),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
