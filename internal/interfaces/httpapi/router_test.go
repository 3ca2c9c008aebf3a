package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/infrastructure/repository/memory"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
	"github.com/brightdoor/listing-studio/internal/platform/resilience"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

const (
	testAPIKey        = "test-api-key"
	testInternalToken = "test-internal-token"
)

type stubProvider struct{}

func (stubProvider) GenerateScript(_ context.Context, req usecase.ScriptRequest) (usecase.Script, error) {
	text := "Welcome to " + req.ListingTitle
	return usecase.Script{Text: text, WordCount: len(strings.Fields(text)), Model: "stub-1"}, nil
}

type stubDispatcher struct{}

func (stubDispatcher) Dispatch(_ context.Context, job usecase.RenderJob) (usecase.RenderReceipt, error) {
	return usecase.RenderReceipt{JobRef: "job-" + job.ListingID, QueuedAt: time.Now()}, nil
}

type testEnv struct {
	server      *httptest.Server
	billingRepo *memory.BillingRepository
	listingRepo *memory.ListingRepository
	registry    *resilience.Registry
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()

	billingRepo := memory.NewBillingRepository()
	listingRepo := memory.NewListingRepository()
	logger := logging.NewNop()

	now := time.Now()
	if err := billingRepo.UpsertSubscription(context.Background(), billing.Subscription{
		OrgID:       "org-1",
		Plan:        billing.PlanFree,
		Status:      billing.StatusActive,
		PeriodStart: now.AddDate(0, 0, -1),
		PeriodEnd:   now.AddDate(0, 1, -1),
	}); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
	if err := listingRepo.Create(context.Background(), listing.Listing{
		ID:        "lst-1",
		OrgID:     "org-1",
		Title:     "Bright loft downtown",
		Address:   "1 Main St",
		City:      "Springfield",
		Price:     350000,
		Bedrooms:  1,
		Bathrooms: 1,
		AreaSqm:   55,
		Status:    listing.StatusPublished,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatalf("seed listing: %v", err)
	}

	registry := resilience.NewRegistry(resilience.Config{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
	})

	billingService := usecase.NewBillingService(billingRepo, nil, logger)
	generationService := usecase.NewGenerationService(billingService, listingRepo, stubProvider{}, logger)
	renderService := usecase.NewRenderService(billingService, listingRepo, stubDispatcher{}, 2, logger)
	listingService := usecase.NewListingService(listingRepo, nil, nil)

	handler := NewHandler(billingService, generationService, renderService, listingService, registry, logger)
	router := NewRouter(handler, logger, nil, testAPIKey, testInternalToken)

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return testEnv{
		server:      server,
		billingRepo: billingRepo,
		listingRepo: listingRepo,
		registry:    registry,
	}
}

func (e testEnv) do(t *testing.T, method, path, body string, authed bool) (*http.Response, responseEnvelope) {
	t.Helper()

	req, err := http.NewRequest(method, e.server.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if authed {
		req.Header.Set("X-API-Key", testAPIKey)
		req.Header.Set(orgIDHeader, "org-1")
	}

	resp, err := e.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var envelope responseEnvelope
	if err := sonic.ConfigDefault.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp, envelope
}

func TestRouter_Healthz(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, http.MethodGet, "/healthz", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if envelope.Error != nil {
		t.Fatalf("unexpected error body: %+v", envelope.Error)
	}
}

func TestRouter_RejectsMissingAPIKey(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, http.MethodGet, "/v1/billing/usage", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Errors[0].Reason != "unauthorized" {
		t.Fatalf("expected unauthorized reason, got %+v", envelope.Error)
	}
}

func TestRouter_RejectsMissingOrgHeader(t *testing.T) {
	env := newTestEnv(t)

	req, err := http.NewRequest(http.MethodGet, env.server.URL+"/v1/billing/usage", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-API-Key", testAPIKey)

	resp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRouter_UsageSnapshot(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, http.MethodGet, "/v1/billing/usage", "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	raw, err := sonic.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var snap usageSnapshotDTO
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.OrgID != "org-1" || snap.Plan != "free" {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if len(snap.Usage) != 2 {
		t.Fatalf("expected 2 usage entries, got %d", len(snap.Usage))
	}
}

func TestRouter_GenerateScript(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, http.MethodPost, "/v1/ai/script", `{"listingId":"lst-1","tone":"warm"}`, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200: %+v", resp.StatusCode, envelope.Error)
	}

	raw, err := sonic.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var out generateScriptResponse
	if err := sonic.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode script response: %v", err)
	}
	if out.Script == "" || out.Model != "stub-1" {
		t.Fatalf("unexpected script response: %+v", out)
	}
	if out.Remaining == nil || *out.Remaining != 9 {
		t.Fatalf("remaining = %v, want 9", out.Remaining)
	}
}

func TestRouter_GenerateScript_RejectsUnknownField(t *testing.T) {
	env := newTestEnv(t)

	resp, _ := env.do(t, http.MethodPost, "/v1/ai/script", `{"listingId":"lst-1","bogus":true}`, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestRouter_QuotaExhaustionReturns429(t *testing.T) {
	env := newTestEnv(t)

	// The free plan allows 3 video renders per period.
	body := `{"listingId":"lst-1","script":"take one"}`
	for i := 0; i < 3; i++ {
		resp, envelope := env.do(t, http.MethodPost, "/v1/render-jobs", body, true)
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("render %d: status = %d, want 202: %+v", i, resp.StatusCode, envelope.Error)
		}
	}

	resp, envelope := env.do(t, http.MethodPost, "/v1/render-jobs", body, true)
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", resp.StatusCode)
	}
	if envelope.Error == nil || envelope.Error.Errors[0].Reason != "quotaExceeded" {
		t.Fatalf("expected quotaExceeded reason, got %+v", envelope.Error)
	}
}

func TestRouter_ListingLifecycle(t *testing.T) {
	env := newTestEnv(t)

	body := `{"title":"Garden cottage","address":"5 Rose Ln","city":"Springfield","price":210000,"bedrooms":2,"bathrooms":1,"areaSqm":70}`
	resp, envelope := env.do(t, http.MethodPost, "/v1/listings", body, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201: %+v", resp.StatusCode, envelope.Error)
	}

	raw, err := sonic.Marshal(envelope.Data)
	if err != nil {
		t.Fatalf("remarshal data: %v", err)
	}
	var created listingDTO
	if err := sonic.Unmarshal(raw, &created); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if created.ID == "" || created.Status != "draft" {
		t.Fatalf("unexpected created listing: %+v", created)
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/listings/"+created.ID, "", true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get: status = %d, want 200", resp.StatusCode)
	}

	resp, _ = env.do(t, http.MethodGet, "/v1/listings/nope", "", true)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get missing: status = %d, want 404", resp.StatusCode)
	}
}

func TestRouter_BreakerEndpoints(t *testing.T) {
	env := newTestEnv(t)
	env.registry.Get("ai-provider")

	resp, envelope := env.do(t, http.MethodGet, "/v1/system/breakers", "", false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: status = %d, want 200", resp.StatusCode)
	}
	if envelope.Data == nil {
		t.Fatal("expected breaker stats payload")
	}

	resp, _ = env.do(t, http.MethodPost, "/v1/system/breakers/reset", "", false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("reset without token: status = %d, want 401", resp.StatusCode)
	}

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/v1/system/breakers/reset", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Internal-Token", testInternalToken)
	tokenResp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("reset request: %v", err)
	}
	defer tokenResp.Body.Close()
	if tokenResp.StatusCode != http.StatusOK {
		t.Fatalf("reset with token: status = %d, want 200", tokenResp.StatusCode)
	}
}

func TestRouter_ResetPeriodUsage(t *testing.T) {
	env := newTestEnv(t)

	resp, envelope := env.do(t, http.MethodPost, "/v1/ai/script", `{"listingId":"lst-1"}`, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("generate: status = %d, want 200: %+v", resp.StatusCode, envelope.Error)
	}

	req, err := http.NewRequest(http.MethodPost, env.server.URL+"/v1/internal/billing/org-1/reset-period", nil)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Internal-Token", testInternalToken)
	resetResp, err := env.server.Client().Do(req)
	if err != nil {
		t.Fatalf("reset request: %v", err)
	}
	defer resetResp.Body.Close()
	if resetResp.StatusCode != http.StatusOK {
		t.Fatalf("reset: status = %d, want 200", resetResp.StatusCode)
	}

	sub, found, err := env.billingRepo.GetSubscription(context.Background(), "org-1")
	if err != nil || !found {
		t.Fatalf("get subscription: found=%v err=%v", found, err)
	}
	if sub.AIGenerationsUsed != 0 {
		t.Fatalf("ai generations used = %d, want 0 after reset", sub.AIGenerationsUsed)
	}
}
