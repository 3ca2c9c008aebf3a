package billing

import (
	"context"
	"errors"
)

// ErrAtomicReserveUnsupported signals that the store cannot perform the
// reservation as one indivisible operation (the reserve_usage function is
// absent). It is a capability signal, not a transient failure, and triggers
// the caller's degraded fallback path.
var ErrAtomicReserveUnsupported = errors.New("atomic usage reservation unsupported by store")

// Repository is the persistence contract for subscriptions and usage
// counters.
type Repository interface {
	// ReserveAtomic checks the counter against its limit and increments it
	// as one indivisible server-side operation, so concurrent reservations
	// against a near-exhausted quota cannot jointly overshoot.
	ReserveAtomic(ctx context.Context, orgID string, kind UsageKind, amount int64) (ReserveOutcome, error)

	GetSubscription(ctx context.Context, orgID string) (Subscription, bool, error)
	UpsertSubscription(ctx context.Context, sub Subscription) error

	// GetUsage and SetUsed form the non-atomic fallback surface.
	GetUsage(ctx context.Context, orgID string, kind UsageKind) (Usage, SubscriptionStatus, bool, error)
	SetUsed(ctx context.Context, orgID string, kind UsageKind, used int64) error

	RecordUsage(ctx context.Context, rec UsageRecord) error

	// ResetPeriodUsage zeroes the period counters; invoked on billing-cycle
	// rollover by webhook glue outside this service.
	ResetPeriodUsage(ctx context.Context, orgID string) error
}
