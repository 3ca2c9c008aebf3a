package scriptgen

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/brightdoor/listing-studio/internal/platform/logging"
	"github.com/brightdoor/listing-studio/internal/platform/resilience"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

func testBreaker(name string) *resilience.Breaker {
	return resilience.New(name, resilience.Config{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 1,
		CallTimeout:      5 * time.Second,
	})
}

func testRequest() usecase.ScriptRequest {
	return usecase.ScriptRequest{
		ListingTitle: "Sunny two-bedroom",
		City:         "Austin",
		Price:        420_000,
		Bedrooms:     2,
		Tone:         "warm",
		MaxWords:     120,
	}
}

func TestGenerateScript_Success(t *testing.T) {
	var gotAuth atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/scripts" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotAuth.Store(r.Header.Get("authorization"))
		w.Header().Set("content-type", "application/json")
		_, _ = w.Write([]byte(`{"script":"welcome home","word_count":2,"model":"scriptgen-2"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL: server.URL,
		APIKey:  "secret-key",
		Logger:  logging.NewNop(),
		Breaker: testBreaker("ai-success"),
	})

	script, err := client.GenerateScript(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if script.Text != "welcome home" {
		t.Fatalf("text = %q", script.Text)
	}
	if script.Model != "scriptgen-2" {
		t.Fatalf("model = %q", script.Model)
	}
	if gotAuth.Load() != "Bearer secret-key" {
		t.Fatalf("authorization header = %v", gotAuth.Load())
	}
}

func TestGenerateScript_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"script":"second try","word_count":2,"model":"scriptgen-2"}`))
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 2,
		Logger:     logging.NewNop(),
		Breaker:    testBreaker("ai-retry"),
	})

	script, err := client.GenerateScript(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("GenerateScript: %v", err)
	}
	if script.Text != "second try" {
		t.Fatalf("text = %q", script.Text)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("calls = %d, want 2", got)
	}
}

func TestGenerateScript_NoRetryOnClientError(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad prompt", http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 3,
		Logger:     logging.NewNop(),
		Breaker:    testBreaker("ai-client-error"),
	})

	if _, err := client.GenerateScript(context.Background(), testRequest()); err == nil {
		t.Fatal("expected error on 400")
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("calls = %d, want 1 (4xx must not retry)", got)
	}
}

func TestGenerateScript_CircuitOpenShortCircuits(t *testing.T) {
	var calls atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(ClientConfig{
		BaseURL:    server.URL,
		MaxRetries: 10,
		Logger:     logging.NewNop(),
		Breaker:    testBreaker("ai-open"),
	})

	_, err := client.GenerateScript(context.Background(), testRequest())
	if !errors.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("err = %v, want ErrDependencyUnavailable", err)
	}
	// The breaker tripped after its failure threshold; later retries were
	// rejected without reaching the server.
	if got := calls.Load(); got != 3 {
		t.Fatalf("calls = %d, want 3", got)
	}
}

func TestSanitize_RedactsAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "sk-very-secret", Logger: logging.NewNop(), Breaker: testBreaker("ai-redact")})

	got := client.sanitize(errors.New(`dial failed: authorization: Bearer sk-very-secret`))
	if strings.Contains(got, "sk-very-secret") {
		t.Fatalf("api key leaked: %q", got)
	}
}
