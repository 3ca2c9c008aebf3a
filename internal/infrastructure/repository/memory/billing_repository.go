package memory

import (
	"context"
	"sync"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
)

// BillingRepository is an in-memory billing store for tests and dev mode.
// ReserveAtomic holds the store mutex across check and increment, which is
// atomic within one process (matching what the SQL function guarantees
// across processes).
type BillingRepository struct {
	mu      sync.Mutex
	subs    map[string]billing.Subscription
	records []billing.UsageRecord
}

func NewBillingRepository() *BillingRepository {
	return &BillingRepository{
		subs: make(map[string]billing.Subscription),
	}
}

func (r *BillingRepository) ReserveAtomic(ctx context.Context, orgID string, kind billing.UsageKind, amount int64) (billing.ReserveOutcome, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[orgID]
	if !ok {
		return billing.ReserveOutcome{Reason: billing.ReasonNoSuchConsumer}, nil
	}
	if !sub.Status.CanConsume() {
		usage := r.usageLocked(sub, kind)
		return billing.ReserveOutcome{
			Reason:    billing.ReasonInactiveStatus,
			Used:      usage.Used,
			Limit:     usage.Limit,
			Remaining: usage.Remaining(),
		}, nil
	}

	usage := r.usageLocked(sub, kind)
	if usage.Limit != nil && usage.Used+amount > *usage.Limit {
		return billing.ReserveOutcome{
			Reason:    billing.ReasonLimitReached,
			Used:      usage.Used,
			Limit:     usage.Limit,
			Remaining: usage.Remaining(),
		}, nil
	}

	switch kind {
	case billing.UsageAIGeneration:
		sub.AIGenerationsUsed += amount
	case billing.UsageVideoRender:
		sub.VideoRendersUsed += amount
	}
	r.subs[orgID] = sub

	after := billing.Usage{Kind: kind, Used: usage.Used + amount, Limit: usage.Limit}
	return billing.ReserveOutcome{
		Granted:   true,
		Used:      after.Used,
		Limit:     after.Limit,
		Remaining: after.Remaining(),
	}, nil
}

func (r *BillingRepository) GetSubscription(ctx context.Context, orgID string) (billing.Subscription, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[orgID]
	return sub, ok, nil
}

// UpsertSubscription keeps the used counters of an existing row, matching
// the postgres ON CONFLICT clause which never overwrites them.
func (r *BillingRepository) UpsertSubscription(ctx context.Context, sub billing.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subs[sub.OrgID]; ok {
		sub.AIGenerationsUsed = existing.AIGenerationsUsed
		sub.VideoRendersUsed = existing.VideoRendersUsed
	}
	r.subs[sub.OrgID] = sub
	return nil
}

func (r *BillingRepository) GetUsage(ctx context.Context, orgID string, kind billing.UsageKind) (billing.Usage, billing.SubscriptionStatus, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[orgID]
	if !ok {
		return billing.Usage{}, "", false, nil
	}
	return r.usageLocked(sub, kind), sub.Status, true, nil
}

func (r *BillingRepository) SetUsed(ctx context.Context, orgID string, kind billing.UsageKind, used int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[orgID]
	if !ok {
		return nil
	}
	switch kind {
	case billing.UsageAIGeneration:
		sub.AIGenerationsUsed = used
	case billing.UsageVideoRender:
		sub.VideoRendersUsed = used
	}
	r.subs[orgID] = sub
	return nil
}

func (r *BillingRepository) RecordUsage(ctx context.Context, rec billing.UsageRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = append(r.records, rec)
	return nil
}

func (r *BillingRepository) ResetPeriodUsage(ctx context.Context, orgID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	sub, ok := r.subs[orgID]
	if !ok {
		return nil
	}
	sub.AIGenerationsUsed = 0
	sub.VideoRendersUsed = 0
	r.subs[orgID] = sub
	return nil
}

// Records returns a copy of the recorded usage rows. Test helper.
func (r *BillingRepository) Records() []billing.UsageRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]billing.UsageRecord, len(r.records))
	copy(out, r.records)
	return out
}

func (r *BillingRepository) usageLocked(sub billing.Subscription, kind billing.UsageKind) billing.Usage {
	plan := billing.Catalog()[sub.Plan]
	return billing.Usage{
		Kind:  kind,
		Used:  sub.UsedFor(kind),
		Limit: plan.LimitFor(kind),
	}
}
