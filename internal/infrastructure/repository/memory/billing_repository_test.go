package memory

import (
	"context"
	"testing"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
)

func TestBillingRepository_UpsertKeepsUsedCounters(t *testing.T) {
	repo := NewBillingRepository()
	now := time.Now()

	if err := repo.UpsertSubscription(context.Background(), billing.Subscription{
		OrgID:             "org-1",
		Plan:              billing.PlanFree,
		Status:            billing.StatusActive,
		PeriodStart:       now,
		PeriodEnd:         now.AddDate(0, 1, 0),
		AIGenerationsUsed: 4,
		VideoRendersUsed:  2,
	}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	// A plan change mid-period must not reset what was already consumed.
	if err := repo.UpsertSubscription(context.Background(), billing.Subscription{
		OrgID:       "org-1",
		Plan:        billing.PlanStarter,
		Status:      billing.StatusActive,
		PeriodStart: now,
		PeriodEnd:   now.AddDate(0, 1, 0),
	}); err != nil {
		t.Fatalf("re-upsert: %v", err)
	}

	sub, found, err := repo.GetSubscription(context.Background(), "org-1")
	if err != nil || !found {
		t.Fatalf("get subscription: found=%v err=%v", found, err)
	}
	if sub.Plan != billing.PlanStarter {
		t.Fatalf("plan = %q, want starter", sub.Plan)
	}
	if sub.AIGenerationsUsed != 4 || sub.VideoRendersUsed != 2 {
		t.Fatalf("used counters reset on upsert: ai=%d render=%d", sub.AIGenerationsUsed, sub.VideoRendersUsed)
	}
}
