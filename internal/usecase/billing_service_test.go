package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/infrastructure/repository/memory"
	"github.com/brightdoor/listing-studio/internal/platform/id"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

// atomicUnavailableRepo simulates a store without the reserve_usage
// function, forcing the degraded fallback path.
type atomicUnavailableRepo struct {
	*memory.BillingRepository
}

func (r *atomicUnavailableRepo) ReserveAtomic(context.Context, string, billing.UsageKind, int64) (billing.ReserveOutcome, error) {
	return billing.ReserveOutcome{}, billing.ErrAtomicReserveUnsupported
}

func seedSubscription(t *testing.T, repo *memory.BillingRepository, plan billing.PlanID, status billing.SubscriptionStatus, aiUsed int64) {
	t.Helper()
	now := time.Now()
	require.NoError(t, repo.UpsertSubscription(context.Background(), billing.Subscription{
		OrgID:             "org-1",
		Plan:              plan,
		Status:            status,
		PeriodStart:       now.AddDate(0, 0, -1),
		PeriodEnd:         now.AddDate(0, 1, -1),
		AIGenerationsUsed: aiUsed,
	}))
}

func newBillingService(repo billing.Repository) *BillingService {
	return NewBillingService(repo, id.Fixed("rec-1"), logging.NewNop())
}

func TestReserve_GrantsWithinLimit(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanFree, billing.StatusActive, 8)
	svc := newBillingService(repo)

	// Free plan allows 10 AI generations; 8 used, reserving 2 lands exactly
	// on the limit.
	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 2)
	require.NoError(t, err)
	require.True(t, out.Granted)
	require.False(t, out.Degraded)
	require.NotNil(t, out.Remaining)
	require.EqualValues(t, 0, *out.Remaining)
	require.EqualValues(t, 10, out.Used)

	records := repo.Records()
	require.Len(t, records, 1)
	require.Equal(t, "rec-1", records[0].ID)
	require.EqualValues(t, 2, records[0].Quantity)
}

func TestReserve_RejectsAtLimit(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanFree, billing.StatusActive, 10)
	svc := newBillingService(repo)

	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 1)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.False(t, out.Granted)
	require.Equal(t, billing.ReasonLimitReached, out.Reason)
	require.NotNil(t, out.Remaining)
	require.EqualValues(t, 0, *out.Remaining)
	require.Empty(t, repo.Records(), "a rejection must not record usage")
}

func TestReserve_UnlimitedPlanAlwaysGrants(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanTeam, billing.StatusActive, 1_000_000)
	svc := newBillingService(repo)

	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 500)
	require.NoError(t, err)
	require.True(t, out.Granted)
	require.Nil(t, out.Remaining, "unlimited quota has no remaining count")
}

func TestReserve_InactiveSubscription(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanStarter, billing.StatusPastDue, 0)
	svc := newBillingService(repo)

	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 1)
	require.ErrorIs(t, err, ErrSubscriptionInactive)
	require.Equal(t, billing.ReasonInactiveStatus, out.Reason)
}

func TestReserve_UnknownConsumer(t *testing.T) {
	svc := newBillingService(memory.NewBillingRepository())

	out, err := svc.Reserve(context.Background(), "ghost-org", billing.UsageAIGeneration, 1)
	require.ErrorIs(t, err, ErrSubscriptionNotFound)
	require.Equal(t, billing.ReasonNoSuchConsumer, out.Reason)
}

func TestReserve_InvalidAmount(t *testing.T) {
	svc := newBillingService(memory.NewBillingRepository())

	_, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 0)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestReserve_FallbackGrantsAndMarksDegraded(t *testing.T) {
	inner := memory.NewBillingRepository()
	seedSubscription(t, inner, billing.PlanFree, billing.StatusActive, 8)
	svc := newBillingService(&atomicUnavailableRepo{inner})

	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 2)
	require.NoError(t, err)
	require.True(t, out.Granted)
	require.True(t, out.Degraded, "fallback results must be marked degraded")
	require.NotNil(t, out.Remaining)
	require.EqualValues(t, 0, *out.Remaining)

	// The write went through the fallback surface.
	usage, _, found, err := inner.GetUsage(context.Background(), "org-1", billing.UsageAIGeneration)
	require.NoError(t, err)
	require.True(t, found)
	require.EqualValues(t, 10, usage.Used)
}

func TestReserve_FallbackRejectsOverLimit(t *testing.T) {
	inner := memory.NewBillingRepository()
	seedSubscription(t, inner, billing.PlanFree, billing.StatusActive, 10)
	svc := newBillingService(&atomicUnavailableRepo{inner})

	out, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 1)
	require.ErrorIs(t, err, ErrQuotaExceeded)
	require.True(t, out.Degraded)
}

func TestReserve_FallbackUnknownConsumer(t *testing.T) {
	svc := newBillingService(&atomicUnavailableRepo{memory.NewBillingRepository()})

	_, err := svc.Reserve(context.Background(), "ghost-org", billing.UsageAIGeneration, 1)
	require.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestReserve_StoreErrorSurfaces(t *testing.T) {
	svc := newBillingService(&failingBillingRepo{err: errors.New("connection reset")})

	_, err := svc.Reserve(context.Background(), "org-1", billing.UsageAIGeneration, 1)
	require.Error(t, err)
	require.NotErrorIs(t, err, billing.ErrAtomicReserveUnsupported)
}

type failingBillingRepo struct {
	billing.Repository
	err error
}

func (r *failingBillingRepo) ReserveAtomic(context.Context, string, billing.UsageKind, int64) (billing.ReserveOutcome, error) {
	return billing.ReserveOutcome{}, r.err
}

func TestUsage_Snapshot(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanStarter, billing.StatusActive, 7)
	svc := newBillingService(repo)

	snap, err := svc.Usage(context.Background(), "org-1")
	require.NoError(t, err)
	require.Equal(t, billing.PlanStarter, snap.Plan)
	require.Len(t, snap.Usage, 2)

	byKind := map[billing.UsageKind]billing.Usage{}
	for _, u := range snap.Usage {
		byKind[u.Kind] = u
	}
	require.EqualValues(t, 7, byKind[billing.UsageAIGeneration].Used)
	require.NotNil(t, byKind[billing.UsageAIGeneration].Limit)
	require.EqualValues(t, 100, *byKind[billing.UsageAIGeneration].Limit)
}

func TestUsage_UnknownOrg(t *testing.T) {
	svc := newBillingService(memory.NewBillingRepository())

	_, err := svc.Usage(context.Background(), "ghost-org")
	require.ErrorIs(t, err, ErrSubscriptionNotFound)
}

func TestResetPeriodUsage(t *testing.T) {
	repo := memory.NewBillingRepository()
	seedSubscription(t, repo, billing.PlanStarter, billing.StatusActive, 42)
	svc := newBillingService(repo)

	require.NoError(t, svc.ResetPeriodUsage(context.Background(), "org-1"))

	usage, _, _, err := repo.GetUsage(context.Background(), "org-1", billing.UsageAIGeneration)
	require.NoError(t, err)
	require.EqualValues(t, 0, usage.Used)
}
