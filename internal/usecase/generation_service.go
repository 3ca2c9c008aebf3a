package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/billing"
	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/platform/logging"
)

// ScriptProvider is the AI backend that turns listing facts into a video
// script. Implementations guard their transport with a circuit breaker.
type ScriptProvider interface {
	GenerateScript(ctx context.Context, req ScriptRequest) (Script, error)
}

type ScriptRequest struct {
	ListingTitle string
	Address      string
	City         string
	Price        int64
	Bedrooms     int
	Bathrooms    int
	AreaSqm      int
	Highlights   []string
	Tone         string
	MaxWords     int
}

type Script struct {
	Text      string
	WordCount int
	Model     string
}

type GenerateScriptInput struct {
	OrgID      string
	ListingID  string
	Tone       string
	MaxWords   int
	Highlights []string
}

type GenerateScriptResult struct {
	Script    Script
	Remaining *int64
	Degraded  bool
}

// GenerationService reserves AI quota and then produces a script for a
// listing. The reservation happens before the provider call, so the call is
// never made without a granted unit of quota; a provider failure afterwards
// does not refund the unit.
type GenerationService struct {
	billing     *BillingService
	listingRepo listing.Repository
	provider    ScriptProvider
	logger      *logging.Logger
}

func NewGenerationService(
	billingService *BillingService,
	listingRepo listing.Repository,
	provider ScriptProvider,
	logger *logging.Logger,
) *GenerationService {
	if logger == nil {
		logger = logging.Default()
	}
	return &GenerationService{
		billing:     billingService,
		listingRepo: listingRepo,
		provider:    provider,
		logger:      logger,
	}
}

func (s *GenerationService) GenerateScript(ctx context.Context, in GenerateScriptInput) (GenerateScriptResult, error) {
	if strings.TrimSpace(in.ListingID) == "" {
		return GenerateScriptResult{}, fmt.Errorf("%w: listing id is required", ErrInvalidInput)
	}
	if in.MaxWords <= 0 {
		in.MaxWords = 150
	}

	item, found, err := s.listingRepo.GetByID(ctx, in.ListingID)
	if err != nil {
		return GenerateScriptResult{}, fmt.Errorf("load listing %s: %w", in.ListingID, err)
	}
	if !found {
		return GenerateScriptResult{}, fmt.Errorf("%w: listing %s", ErrNotFound, in.ListingID)
	}
	if item.OrgID != in.OrgID {
		return GenerateScriptResult{}, fmt.Errorf("%w: listing %s", ErrUnauthorized, in.ListingID)
	}

	outcome, err := s.billing.Reserve(ctx, in.OrgID, billing.UsageAIGeneration, 1)
	if err != nil {
		return GenerateScriptResult{}, err
	}

	started := time.Now()
	script, err := s.provider.GenerateScript(ctx, ScriptRequest{
		ListingTitle: item.Title,
		Address:      item.Address,
		City:         item.City,
		Price:        item.Price,
		Bedrooms:     item.Bedrooms,
		Bathrooms:    item.Bathrooms,
		AreaSqm:      item.AreaSqm,
		Highlights:   in.Highlights,
		Tone:         in.Tone,
		MaxWords:     in.MaxWords,
	})
	if err != nil {
		return GenerateScriptResult{}, fmt.Errorf("generate script listing=%s: %w", in.ListingID, err)
	}

	s.logger.InfoContext(ctx, "script generated",
		"org_id", in.OrgID,
		"listing_id", in.ListingID,
		"model", script.Model,
		"duration", time.Since(started).String(),
		"degraded_reservation", outcome.Degraded,
	)

	return GenerateScriptResult{
		Script:    script,
		Remaining: outcome.Remaining,
		Degraded:  outcome.Degraded,
	}, nil
}
