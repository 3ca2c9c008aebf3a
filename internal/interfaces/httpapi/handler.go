package httpapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/brightdoor/listing-studio/internal/platform/logging"
	"github.com/brightdoor/listing-studio/internal/platform/resilience"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

type Handler struct {
	billingService    *usecase.BillingService
	generationService *usecase.GenerationService
	renderService     *usecase.RenderService
	listingService    *usecase.ListingService
	breakers          *resilience.Registry
	logger            *logging.Logger
	validator         *validator.Validate
}

func NewHandler(
	billingService *usecase.BillingService,
	generationService *usecase.GenerationService,
	renderService *usecase.RenderService,
	listingService *usecase.ListingService,
	breakers *resilience.Registry,
	logger *logging.Logger,
) *Handler {
	if logger == nil {
		logger = logging.Default()
	}

	return &Handler{
		billingService:    billingService,
		generationService: generationService,
		renderService:     renderService,
		listingService:    listingService,
		breakers:          breakers,
		logger:            logger,
		validator:         validator.New(),
	}
}

func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeSuccess(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

func decodeJSON(r *http.Request, payload any) error {
	dec := sonic.ConfigDefault.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(payload); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}

func (h *Handler) validateRequest(ctx context.Context, payload any) error {
	if err := h.validator.StructCtx(ctx, payload); err != nil {
		return fmt.Errorf("%w: validation failed: %v", usecase.ErrInvalidInput, err)
	}

	return nil
}
