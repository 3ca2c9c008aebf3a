package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/platform/id"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

// BillingService owns quota reservation and usage reporting. Reserve must be
// called before the metered work starts; a granted reservation is never
// rolled back here when the work later fails (billing policy lives outside
// this service).
type BillingService struct {
	repo   billing.Repository
	ids    id.Generator
	logger *logging.Logger
	now    func() time.Time
}

func NewBillingService(repo billing.Repository, ids id.Generator, logger *logging.Logger) *BillingService {
	if logger == nil {
		logger = logging.Default()
	}
	if ids == nil {
		ids = id.NewRandomGenerator()
	}
	return &BillingService{
		repo:   repo,
		ids:    ids,
		logger: logger,
		now:    time.Now,
	}
}

// Reserve grants amount units of kind to orgID if the quota allows it.
// The atomic store primitive is tried first; when the store reports the
// primitive is absent, the non-atomic read-modify-write fallback runs and
// the outcome is marked Degraded. Concurrent fallback reservations can
// overshoot the limit by up to concurrency × amount.
//
// A rejection is returned both in the outcome and as a typed error, so
// callers cannot accidentally start the metered work on a refusal.
func (s *BillingService) Reserve(ctx context.Context, orgID string, kind billing.UsageKind, amount int64) (billing.ReserveOutcome, error) {
	if orgID == "" {
		return billing.ReserveOutcome{}, fmt.Errorf("%w: org id is required", ErrInvalidInput)
	}
	if amount < 1 {
		return billing.ReserveOutcome{}, fmt.Errorf("%w: reserve amount must be at least 1", ErrInvalidInput)
	}

	outcome, err := s.repo.ReserveAtomic(ctx, orgID, kind, amount)
	switch {
	case err == nil:
		// Authoritative path.
	case errors.Is(err, billing.ErrAtomicReserveUnsupported):
		s.logger.WarnContext(ctx, "atomic reservation unavailable, using degraded fallback",
			"org_id", orgID,
			"kind", string(kind),
		)
		outcome, err = s.reserveFallback(ctx, orgID, kind, amount)
		if err != nil {
			return billing.ReserveOutcome{}, err
		}
	default:
		return billing.ReserveOutcome{}, fmt.Errorf("reserve usage org_id=%s kind=%s: %w", orgID, kind, err)
	}

	if !outcome.Granted {
		return outcome, rejectionError(outcome.Reason)
	}

	s.recordUsage(ctx, orgID, kind, amount)
	return outcome, nil
}

// reserveFallback is the documented degraded mode: read, check, write, with
// no cross-process mutual exclusion.
func (s *BillingService) reserveFallback(ctx context.Context, orgID string, kind billing.UsageKind, amount int64) (billing.ReserveOutcome, error) {
	usage, status, found, err := s.repo.GetUsage(ctx, orgID, kind)
	if err != nil {
		return billing.ReserveOutcome{}, fmt.Errorf("fallback read usage org_id=%s: %w", orgID, err)
	}

	outcome := billing.ReserveOutcome{Degraded: true, Used: usage.Used, Limit: usage.Limit}
	if !found {
		outcome.Reason = billing.ReasonNoSuchConsumer
		return outcome, nil
	}
	if !status.CanConsume() {
		outcome.Reason = billing.ReasonInactiveStatus
		outcome.Remaining = usage.Remaining()
		return outcome, nil
	}
	if usage.Limit != nil && usage.Used+amount > *usage.Limit {
		outcome.Reason = billing.ReasonLimitReached
		outcome.Remaining = usage.Remaining()
		return outcome, nil
	}

	if err := s.repo.SetUsed(ctx, orgID, kind, usage.Used+amount); err != nil {
		return billing.ReserveOutcome{}, fmt.Errorf("fallback write usage org_id=%s: %w", orgID, err)
	}

	after := billing.Usage{Kind: kind, Used: usage.Used + amount, Limit: usage.Limit}
	outcome.Granted = true
	outcome.Used = after.Used
	outcome.Remaining = after.Remaining()
	return outcome, nil
}

func (s *BillingService) recordUsage(ctx context.Context, orgID string, kind billing.UsageKind, amount int64) {
	recordID, err := s.ids.NewID()
	if err != nil {
		s.logger.ErrorContext(ctx, "generate usage record id", "error", err)
		return
	}
	rec := billing.UsageRecord{
		ID:        recordID,
		OrgID:     orgID,
		Kind:      kind,
		Quantity:  amount,
		CreatedAt: s.now(),
	}
	// The counter increment already happened; an audit miss is logged, not
	// surfaced, so a granted reservation stays granted.
	if err := s.repo.RecordUsage(ctx, rec); err != nil {
		s.logger.ErrorContext(ctx, "record usage audit row",
			"org_id", orgID,
			"kind", string(kind),
			"error", err,
		)
	}
}

func rejectionError(reason billing.RejectReason) error {
	switch reason {
	case billing.ReasonNoSuchConsumer:
		return fmt.Errorf("%w: no subscription for organization", ErrSubscriptionNotFound)
	case billing.ReasonInactiveStatus:
		return ErrSubscriptionInactive
	case billing.ReasonLimitReached:
		return ErrQuotaExceeded
	default:
		return fmt.Errorf("reservation rejected with unknown reason %q", reason)
	}
}

// UsageSnapshot is the read model behind GET /v1/billing/usage.
type UsageSnapshot struct {
	OrgID       string
	Plan        billing.PlanID
	Status      billing.SubscriptionStatus
	PeriodStart time.Time
	PeriodEnd   time.Time
	Usage       []billing.Usage
}

func (s *BillingService) Usage(ctx context.Context, orgID string) (UsageSnapshot, error) {
	if orgID == "" {
		return UsageSnapshot{}, fmt.Errorf("%w: org id is required", ErrInvalidInput)
	}

	sub, found, err := s.repo.GetSubscription(ctx, orgID)
	if err != nil {
		return UsageSnapshot{}, fmt.Errorf("get subscription org_id=%s: %w", orgID, err)
	}
	if !found {
		return UsageSnapshot{}, fmt.Errorf("%w: no subscription for organization", ErrSubscriptionNotFound)
	}

	plan, ok := billing.Catalog()[sub.Plan]
	if !ok {
		return UsageSnapshot{}, fmt.Errorf("subscription org_id=%s references unknown plan %q", orgID, sub.Plan)
	}

	kinds := []billing.UsageKind{billing.UsageAIGeneration, billing.UsageVideoRender}
	usage := make([]billing.Usage, 0, len(kinds))
	for _, kind := range kinds {
		usage = append(usage, billing.Usage{
			Kind:  kind,
			Used:  sub.UsedFor(kind),
			Limit: plan.LimitFor(kind),
		})
	}

	return UsageSnapshot{
		OrgID:       sub.OrgID,
		Plan:        sub.Plan,
		Status:      sub.Status,
		PeriodStart: sub.PeriodStart,
		PeriodEnd:   sub.PeriodEnd,
		Usage:       usage,
	}, nil
}

// ResetPeriodUsage zeroes the period counters on billing-cycle rollover.
func (s *BillingService) ResetPeriodUsage(ctx context.Context, orgID string) error {
	if orgID == "" {
		return fmt.Errorf("%w: org id is required", ErrInvalidInput)
	}
	if err := s.repo.ResetPeriodUsage(ctx, orgID); err != nil {
		return fmt.Errorf("reset period usage org_id=%s: %w", orgID, err)
	}
	s.logger.InfoContext(ctx, "period usage reset", "org_id", orgID)
	return nil
}
