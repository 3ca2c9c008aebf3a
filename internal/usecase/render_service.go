package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

// RenderDispatcher hands a render job to the internal rendering backend.
type RenderDispatcher interface {
	Dispatch(ctx context.Context, job RenderJob) (RenderReceipt, error)
}

type RenderJob struct {
	OrgID     string
	ListingID string
	Script    string
	Preset    string
}

type RenderReceipt struct {
	JobRef   string
	QueuedAt time.Time
}

type RenderRequestInput struct {
	OrgID     string
	ListingID string
	Script    string
	Preset    string
}

type RenderBatchItem struct {
	ListingID string
	Receipt   RenderReceipt
	Err       error
}

// RenderService reserves render quota and dispatches jobs to the rendering
// backend. Batch dispatch reserves the whole batch up front as one
// reservation, then fans out over a bounded worker pool.
type RenderService struct {
	billing     *BillingService
	listingRepo listing.Repository
	renderer    RenderDispatcher
	workerCount int
	logger      *logging.Logger
}

func NewRenderService(
	billingService *BillingService,
	listingRepo listing.Repository,
	renderer RenderDispatcher,
	workerCount int,
	logger *logging.Logger,
) *RenderService {
	if workerCount < 1 {
		workerCount = 4
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &RenderService{
		billing:     billingService,
		listingRepo: listingRepo,
		renderer:    renderer,
		workerCount: workerCount,
		logger:      logger,
	}
}

func (s *RenderService) RequestRender(ctx context.Context, in RenderRequestInput) (RenderReceipt, error) {
	if err := s.checkOwnership(ctx, in.OrgID, in.ListingID); err != nil {
		return RenderReceipt{}, err
	}
	if strings.TrimSpace(in.Script) == "" {
		return RenderReceipt{}, fmt.Errorf("%w: render script is required", ErrInvalidInput)
	}

	if _, err := s.billing.Reserve(ctx, in.OrgID, billing.UsageVideoRender, 1); err != nil {
		return RenderReceipt{}, err
	}

	receipt, err := s.renderer.Dispatch(ctx, RenderJob{
		OrgID:     in.OrgID,
		ListingID: in.ListingID,
		Script:    in.Script,
		Preset:    in.Preset,
	})
	if err != nil {
		return RenderReceipt{}, fmt.Errorf("dispatch render listing=%s: %w", in.ListingID, err)
	}

	s.logger.InfoContext(ctx, "render job dispatched",
		"org_id", in.OrgID,
		"listing_id", in.ListingID,
		"job_ref", receipt.JobRef,
	)
	return receipt, nil
}

// RenderBatch dispatches one render per listing. Quota for the whole batch
// is reserved before any job is dispatched; a granted batch that partially
// fails downstream is not refunded.
func (s *RenderService) RenderBatch(ctx context.Context, orgID, preset string, jobs []RenderJob) ([]RenderBatchItem, error) {
	if len(jobs) == 0 {
		return nil, fmt.Errorf("%w: batch must contain at least one job", ErrInvalidInput)
	}

	// Every listing must exist and belong to the caller before any quota is
	// reserved; one bad listing rejects the whole batch.
	for _, job := range jobs {
		if err := s.checkOwnership(ctx, orgID, job.ListingID); err != nil {
			return nil, err
		}
		if strings.TrimSpace(job.Script) == "" {
			return nil, fmt.Errorf("%w: render script is required for listing %s", ErrInvalidInput, job.ListingID)
		}
	}

	if _, err := s.billing.Reserve(ctx, orgID, billing.UsageVideoRender, int64(len(jobs))); err != nil {
		return nil, err
	}

	pool, err := ants.NewPool(s.workerCount)
	if err != nil {
		return nil, fmt.Errorf("create render worker pool: %w", err)
	}
	defer pool.Release()

	results := make([]RenderBatchItem, len(jobs))
	var wg sync.WaitGroup
	for i, job := range jobs {
		i, job := i, job
		job.OrgID = orgID
		if job.Preset == "" {
			job.Preset = preset
		}
		wg.Add(1)
		if err := pool.Submit(func() {
			defer wg.Done()
			receipt, dispatchErr := s.renderer.Dispatch(ctx, job)
			results[i] = RenderBatchItem{ListingID: job.ListingID, Receipt: receipt, Err: dispatchErr}
		}); err != nil {
			wg.Done()
			results[i] = RenderBatchItem{ListingID: job.ListingID, Err: fmt.Errorf("submit render job: %w", err)}
		}
	}
	wg.Wait()

	failed := 0
	for _, item := range results {
		if item.Err != nil {
			failed++
		}
	}
	if failed > 0 {
		s.logger.WarnContext(ctx, "render batch partially failed",
			"org_id", orgID,
			"total", len(jobs),
			"failed", failed,
		)
	}

	return results, nil
}

func (s *RenderService) checkOwnership(ctx context.Context, orgID, listingID string) error {
	if strings.TrimSpace(listingID) == "" {
		return fmt.Errorf("%w: listing id is required", ErrInvalidInput)
	}
	item, found, err := s.listingRepo.GetByID(ctx, listingID)
	if err != nil {
		return fmt.Errorf("load listing %s: %w", listingID, err)
	}
	if !found {
		return fmt.Errorf("%w: listing %s", ErrNotFound, listingID)
	}
	if item.OrgID != orgID {
		return fmt.Errorf("%w: listing %s", ErrUnauthorized, listingID)
	}
	return nil
}
