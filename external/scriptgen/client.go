package scriptgen

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"

	"github.com/brightdoor/listing-studio/internal/platform/logging"
	"github.com/brightdoor/listing-studio/internal/platform/resilience"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.scriptgen.dev/v1"
	defaultModel    = "scriptgen-2-mini"
	defaultMaxWords = 150
)

var apiKeyHeaderRegex = regexp.MustCompile(`(?i)(authorization|api[-_]key)[=:]\s*\S+`)
var errScriptGenTransient = crerr.New("scriptgen transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *logging.Logger
	Breaker    *resilience.Breaker
}

// Client calls the AI script provider. Every attempt runs through the shared
// circuit breaker; retries sit above the breaker so each retry is a fresh
// admission decision.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	maxRetries int
	logger     *logging.Logger
	breaker    *resilience.Breaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 30 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.New("ai-provider", resilience.DefaultConfig())
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger,
		breaker:    breaker,
	}
}

type scriptRequestBody struct {
	Model    string          `json:"model"`
	Listing  listingFacts    `json:"listing"`
	Tone     string          `json:"tone,omitempty"`
	MaxWords int             `json:"max_words"`
	Extras   map[string]bool `json:"extras,omitempty"`
}

type listingFacts struct {
	Title      string   `json:"title"`
	Address    string   `json:"address,omitempty"`
	City       string   `json:"city,omitempty"`
	Price      int64    `json:"price,omitempty"`
	Bedrooms   int      `json:"bedrooms,omitempty"`
	Bathrooms  int      `json:"bathrooms,omitempty"`
	AreaSqm    int      `json:"area_sqm,omitempty"`
	Highlights []string `json:"highlights,omitempty"`
}

type scriptResponseBody struct {
	Script    string `json:"script"`
	WordCount int    `json:"word_count"`
	Model     string `json:"model"`
}

func (c *Client) GenerateScript(ctx context.Context, req usecase.ScriptRequest) (usecase.Script, error) {
	if strings.TrimSpace(req.ListingTitle) == "" {
		return usecase.Script{}, fmt.Errorf("listing title is required")
	}
	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = defaultMaxWords
	}

	body := scriptRequestBody{
		Model: c.model,
		Listing: listingFacts{
			Title:      req.ListingTitle,
			Address:    req.Address,
			City:       req.City,
			Price:      req.Price,
			Bedrooms:   req.Bedrooms,
			Bathrooms:  req.Bathrooms,
			AreaSqm:    req.AreaSqm,
			Highlights: req.Highlights,
		},
		Tone:     req.Tone,
		MaxWords: maxWords,
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return usecase.Script{}, fmt.Errorf("encode script request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (scriptResponseBody, error) {
			return c.postScript(ctx, payload)
		})
		if err == nil {
			model := strings.TrimSpace(resp.Model)
			if model == "" {
				model = c.model
			}
			return usecase.Script{
				Text:      strings.TrimSpace(resp.Script),
				WordCount: resp.WordCount,
				Model:     model,
			}, nil
		}

		if crerr.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "script provider circuit open, rejecting request", "state", c.breaker.State())
			return usecase.Script{}, fmt.Errorf("%w: script provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		if ctx.Err() != nil {
			return usecase.Script{}, ctx.Err()
		}

		lastErr = err
		if !crerr.Is(err, errScriptGenTransient) && !crerr.Is(err, resilience.ErrOperationTimeout) {
			break
		}
		if attempt == c.maxRetries {
			break
		}

		backoff := time.Duration(attempt+1) * 500 * time.Millisecond
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return usecase.Script{}, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "script generation failed", "model", c.model, "error", c.sanitize(lastErr))
	return usecase.Script{}, fmt.Errorf("script provider: %w", lastErr)
}

func (c *Client) postScript(ctx context.Context, payload []byte) (scriptResponseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/scripts", bytes.NewReader(payload))
	if err != nil {
		return scriptResponseBody{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return scriptResponseBody{}, crerr.Wrapf(errScriptGenTransient, "send request: %s", c.sanitize(err))
	}
	defer func() { _ = resp.Body.Close() }()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, 1<<20)); err != nil {
		return scriptResponseBody{}, crerr.Wrapf(errScriptGenTransient, "read response body: %v", err)
	}
	raw := buf.Bytes()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case isRetryableStatus(resp.StatusCode):
		return scriptResponseBody{}, crerr.Wrapf(errScriptGenTransient, "provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	default:
		return scriptResponseBody{}, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}

	var out scriptResponseBody
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return scriptResponseBody{}, fmt.Errorf("decode provider payload: %w", err)
	}
	if strings.TrimSpace(out.Script) == "" {
		return scriptResponseBody{}, fmt.Errorf("provider returned an empty script")
	}
	return out, nil
}

func (c *Client) sanitize(err error) string {
	if err == nil {
		return ""
	}
	value := err.Error()
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	return apiKeyHeaderRegex.ReplaceAllString(value, "$1=REDACTED")
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		return body[:256] + "..."
	}
	return body
}
