package listing

import "time"

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusArchived  Status = "archived"
)

// Listing is a property listing owned by an organization.
type Listing struct {
	ID          string
	OrgID       string
	Title       string
	Address     string
	City        string
	Price       int64
	Bedrooms    int
	Bathrooms   int
	AreaSqm     int
	Description string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
