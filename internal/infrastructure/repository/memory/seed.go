package memory

import (
	"context"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
)

// SeedDev populates the in-memory stores with a demo organization so the
// service is usable without a database.
func SeedDev(billingRepo *BillingRepository, listingRepo *ListingRepository) {
	ctx := context.Background()
	now := time.Now()

	_ = billingRepo.UpsertSubscription(ctx, billing.Subscription{
		OrgID:       "demo-org",
		Plan:        billing.PlanStarter,
		Status:      billing.StatusActive,
		PeriodStart: now.AddDate(0, 0, -7),
		PeriodEnd:   now.AddDate(0, 0, 23),
	})

	_ = listingRepo.Create(ctx, listing.Listing{
		ID:          "demo-listing",
		OrgID:       "demo-org",
		Title:       "Sunlit two-bedroom with harbor view",
		Address:     "14 Beacon Row",
		City:        "Portside",
		Price:       425000,
		Bedrooms:    2,
		Bathrooms:   1,
		AreaSqm:     84,
		Description: "Corner unit with wraparound windows and a renovated kitchen.",
		Status:      listing.StatusPublished,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
}
