package httpapi

import (
	"net/http"
	"time"

	"github.com/brightdoor/listing-studio/internal/usecase"
)

type createRenderJobRequest struct {
	ListingID string `json:"listingId" validate:"required"`
	Script    string `json:"script" validate:"required"`
	Preset    string `json:"preset" validate:"omitempty,max=64"`
}

type renderReceiptDTO struct {
	JobRef   string `json:"jobRef"`
	QueuedAt string `json:"queuedAt"`
}

func (h *Handler) CreateRenderJob(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateRenderJob")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	var req createRenderJobRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	receipt, err := h.renderService.RequestRender(ctx, usecase.RenderRequestInput{
		OrgID:     orgID,
		ListingID: req.ListingID,
		Script:    req.Script,
		Preset:    req.Preset,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusAccepted, toRenderReceiptDTO(receipt))
}

type renderBatchRequest struct {
	Preset string                  `json:"preset" validate:"omitempty,max=64"`
	Jobs   []renderBatchJobRequest `json:"jobs" validate:"required,min=1,max=50,dive"`
}

type renderBatchJobRequest struct {
	ListingID string `json:"listingId" validate:"required"`
	Script    string `json:"script" validate:"required"`
	Preset    string `json:"preset" validate:"omitempty,max=64"`
}

type renderBatchItemDTO struct {
	ListingID string            `json:"listingId"`
	Receipt   *renderReceiptDTO `json:"receipt,omitempty"`
	Error     string            `json:"error,omitempty"`
}

func (h *Handler) CreateRenderBatch(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.CreateRenderBatch")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	var req renderBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	jobs := make([]usecase.RenderJob, 0, len(req.Jobs))
	for _, j := range req.Jobs {
		jobs = append(jobs, usecase.RenderJob{
			ListingID: j.ListingID,
			Script:    j.Script,
			Preset:    j.Preset,
		})
	}

	items, err := h.renderService.RenderBatch(ctx, orgID, req.Preset, jobs)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	out := make([]renderBatchItemDTO, 0, len(items))
	for _, item := range items {
		dto := renderBatchItemDTO{ListingID: item.ListingID}
		if item.Err != nil {
			dto.Error = item.Err.Error()
		} else {
			receipt := toRenderReceiptDTO(item.Receipt)
			dto.Receipt = &receipt
		}
		out = append(out, dto)
	}

	writeSuccess(ctx, w, http.StatusAccepted, map[string]any{"items": out})
}

func toRenderReceiptDTO(receipt usecase.RenderReceipt) renderReceiptDTO {
	return renderReceiptDTO{
		JobRef:   receipt.JobRef,
		QueuedAt: receipt.QueuedAt.UTC().Format(time.RFC3339),
	}
}
