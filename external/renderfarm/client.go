package renderfarm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
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
	defaultBaseURL = "http://renderfarm.internal:8090"
	defaultPreset  = "vertical-30s"
)

var errRenderFarmTransient = crerr.New("renderfarm transient failure")

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries int
	Logger     *logging.Logger
	Breaker    *resilience.Breaker
}

// Client submits video render jobs to the in-house rendering cluster. The
// shared circuit breaker sits around every attempt so a struggling cluster
// is shed quickly instead of queueing work it cannot take.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
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
		httpClient.Timeout = 15 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	breaker := cfg.Breaker
	if breaker == nil {
		breaker = resilience.New("renderer", resilience.DefaultConfig())
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		token:      strings.TrimSpace(cfg.Token),
		maxRetries: max(cfg.MaxRetries, 0),
		logger:     logger,
		breaker:    breaker,
	}
}

type jobRequestBody struct {
	OrgID     string `json:"org_id"`
	ListingID string `json:"listing_id"`
	Script    string `json:"script"`
	Preset    string `json:"preset"`
}

type jobResponseBody struct {
	JobRef   string `json:"job_ref"`
	QueuedAt string `json:"queued_at"`
}

func (c *Client) Dispatch(ctx context.Context, job usecase.RenderJob) (usecase.RenderReceipt, error) {
	if strings.TrimSpace(job.Script) == "" {
		return usecase.RenderReceipt{}, fmt.Errorf("render script is required")
	}
	preset := strings.TrimSpace(job.Preset)
	if preset == "" {
		preset = defaultPreset
	}

	payload, err := sonic.Marshal(jobRequestBody{
		OrgID:     job.OrgID,
		ListingID: job.ListingID,
		Script:    job.Script,
		Preset:    preset,
	})
	if err != nil {
		return usecase.RenderReceipt{}, fmt.Errorf("encode render job: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		resp, err := resilience.Execute(ctx, c.breaker, func(ctx context.Context) (jobResponseBody, error) {
			return c.postJob(ctx, payload)
		})
		if err == nil {
			queuedAt := time.Now().UTC()
			if parsed, parseErr := time.Parse(time.RFC3339, resp.QueuedAt); parseErr == nil {
				queuedAt = parsed.UTC()
			}
			return usecase.RenderReceipt{JobRef: resp.JobRef, QueuedAt: queuedAt}, nil
		}

		if crerr.Is(err, resilience.ErrCircuitOpen) {
			c.logger.WarnContext(ctx, "renderer circuit open, rejecting job",
				"listing_id", job.ListingID,
				"state", c.breaker.State(),
			)
			return usecase.RenderReceipt{}, fmt.Errorf("%w: rendering backend is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
		if ctx.Err() != nil {
			return usecase.RenderReceipt{}, ctx.Err()
		}

		lastErr = err
		if !crerr.Is(err, errRenderFarmTransient) && !crerr.Is(err, resilience.ErrOperationTimeout) {
			break
		}
		if attempt == c.maxRetries {
			break
		}

		timer := time.NewTimer(time.Duration(attempt+1) * 250 * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return usecase.RenderReceipt{}, ctx.Err()
		case <-timer.C:
		}
	}

	c.logger.WarnContext(ctx, "render dispatch failed", "listing_id", job.ListingID, "error", lastErr)
	return usecase.RenderReceipt{}, fmt.Errorf("renderer: %w", lastErr)
}

func (c *Client) postJob(ctx context.Context, payload []byte) (jobResponseBody, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(payload))
	if err != nil {
		return jobResponseBody{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("content-type", "application/json")
	req.Header.Set("accept", "application/json")
	if c.token != "" {
		req.Header.Set("authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return jobResponseBody{}, crerr.Wrapf(errRenderFarmTransient, "send request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)
	if _, err := buf.ReadFrom(io.LimitReader(resp.Body, 1<<20)); err != nil {
		return jobResponseBody{}, crerr.Wrapf(errRenderFarmTransient, "read response body: %v", err)
	}
	raw := buf.Bytes()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return jobResponseBody{}, crerr.Wrapf(errRenderFarmTransient, "renderer status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	default:
		return jobResponseBody{}, fmt.Errorf("renderer status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
	}

	var out jobResponseBody
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return jobResponseBody{}, fmt.Errorf("decode renderer payload: %w", err)
	}
	if strings.TrimSpace(out.JobRef) == "" {
		return jobResponseBody{}, fmt.Errorf("renderer returned an empty job reference")
	}
	return out, nil
}

func abbreviateBody(raw []byte) string {
	body := strings.TrimSpace(string(raw))
	if len(body) > 256 {
		return body[:256] + "..."
	}
	return body
}
