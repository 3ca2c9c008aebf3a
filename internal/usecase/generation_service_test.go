package usecase

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/infrastructure/repository/memory"
	"github.com/brightdoor/listing-studio/internal/platform/id"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

type fakeProvider struct {
	calls  atomic.Int64
	script Script
	err    error
}

func (p *fakeProvider) GenerateScript(ctx context.Context, req ScriptRequest) (Script, error) {
	p.calls.Add(1)
	if p.err != nil {
		return Script{}, p.err
	}
	return p.script, nil
}

func generationFixture(t *testing.T, aiUsed int64) (*GenerationService, *fakeProvider, *memory.BillingRepository) {
	t.Helper()
	billingRepo := memory.NewBillingRepository()
	seedSubscription(t, billingRepo, billing.PlanFree, billing.StatusActive, aiUsed)

	listingRepo := memory.NewListingRepository()
	if err := listingRepo.Create(context.Background(), listing.Listing{
		ID:        "lst-1",
		OrgID:     "org-1",
		Title:     "Sunny two-bedroom",
		City:      "Austin",
		Status:    listing.StatusPublished,
		CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	provider := &fakeProvider{script: Script{Text: "welcome home", WordCount: 2, Model: "scriptgen-1"}}
	svc := NewGenerationService(
		NewBillingService(billingRepo, id.Fixed("rec-1"), logging.NewNop()),
		listingRepo,
		provider,
		logging.NewNop(),
	)
	return svc, provider, billingRepo
}

func TestGenerateScript_ReturnsScriptAndRemaining(t *testing.T) {
	svc, provider, _ := generationFixture(t, 0)

	res, err := svc.GenerateScript(context.Background(), GenerateScriptInput{
		OrgID:     "org-1",
		ListingID: "lst-1",
		Tone:      "warm",
	})
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if res.Script.Text != "welcome home" {
		t.Fatalf("script text = %q", res.Script.Text)
	}
	if res.Remaining == nil || *res.Remaining != 9 {
		t.Fatalf("remaining = %v, want 9", res.Remaining)
	}
	if got := provider.calls.Load(); got != 1 {
		t.Fatalf("provider calls = %d, want 1", got)
	}
}

func TestGenerateScript_QuotaRefusalSkipsProvider(t *testing.T) {
	svc, provider, _ := generationFixture(t, 10) // free plan AI limit is 10

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{OrgID: "org-1", ListingID: "lst-1"})
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("err = %v, want ErrQuotaExceeded", err)
	}
	if got := provider.calls.Load(); got != 0 {
		t.Fatalf("provider called %d times on a refused reservation", got)
	}
}

func TestGenerateScript_UnknownListing(t *testing.T) {
	svc, provider, _ := generationFixture(t, 0)

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{OrgID: "org-1", ListingID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if provider.calls.Load() != 0 {
		t.Fatal("provider called for missing listing")
	}
}

func TestGenerateScript_ForeignListing(t *testing.T) {
	svc, _, _ := generationFixture(t, 0)

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{OrgID: "other-org", ListingID: "lst-1"})
	if !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized", err)
	}
}

func TestGenerateScript_ProviderFailureKeepsQuotaConsumed(t *testing.T) {
	svc, provider, billingRepo := generationFixture(t, 0)
	provider.err = errors.New("upstream 503")

	_, err := svc.GenerateScript(context.Background(), GenerateScriptInput{OrgID: "org-1", ListingID: "lst-1"})
	if err == nil {
		t.Fatal("expected provider error")
	}

	usage, _, _, err := billingRepo.GetUsage(context.Background(), "org-1", billing.UsageAIGeneration)
	if err != nil {
		t.Fatalf("GetUsage: %v", err)
	}
	if usage.Used != 1 {
		t.Fatalf("used = %d, want 1 (no refund on provider failure)", usage.Used)
	}
}
