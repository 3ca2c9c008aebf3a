package httpapi

import (
	"net/http"
	"time"

	"github.com/brightdoor/listing-studio/internal/domain/listing"
	"github.com/brightdoor/listing-studio/internal/usecase"
)

type createListingRequest struct {
	Title       string `json:"title" validate:"required,max=200"`
	Address     string `json:"address" validate:"required,max=300"`
	City        string `json:"city" validate:"required,max=120"`
	Price       int64  `json:"price" validate:"required,min=1"`
	Bedrooms    int    `json:"bedrooms" validate:"min=0,max=50"`
	Bathrooms   int    `json:"bathrooms" validate:"min=0,max=50"`
	AreaSqm     int    `json:"areaSqm" validate:"min=0"`
	Description string `json:"description" validate:"omitempty,max=5000"`
}

type listingDTO struct {
	ID          string `json:"id"`
	OrgID       string `json:"orgId"`
	Title       string `json:"title"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Price       int64  `json:"price"`
	Bedrooms    int    `json:"bedrooms"`
	Bathrooms   int    `json:"bathrooms"`
	AreaSqm     int    `json:"areaSqm"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedAt   string `json:"createdAt"`
	UpdatedAt   string `json:"updatedAt"`
}

func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateListing")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	created, err := h.listingService.Create(ctx, usecase.CreateListingInput{
		OrgID:       orgID,
		Title:       req.Title,
		Address:     req.Address,
		City:        req.City,
		Price:       req.Price,
		Bedrooms:    req.Bedrooms,
		Bathrooms:   req.Bathrooms,
		AreaSqm:     req.AreaSqm,
		Description: req.Description,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusCreated, toListingDTO(created))
}

func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetListing")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	item, err := h.listingService.GetByID(ctx, orgID, r.PathValue("listingID"))
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toListingDTO(item))
}

func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListListings")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	items, err := h.listingService.ListByOrg(ctx, orgID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]listingDTO, 0, len(items))
	for _, item := range items {
		out = append(out, toListingDTO(item))
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"items": out})
}

func toListingDTO(item listing.Listing) listingDTO {
	return listingDTO{
		ID:          item.ID,
		OrgID:       item.OrgID,
		Title:       item.Title,
		Address:     item.Address,
		City:        item.City,
		Price:       item.Price,
		Bedrooms:    item.Bedrooms,
		Bathrooms:   item.Bathrooms,
		AreaSqm:     item.AreaSqm,
		Description: item.Description,
		Status:      string(item.Status),
		CreatedAt:   item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:   item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
