package httpapi

import (
	"net/http"
	"time"

	"github.com/brightdoor/listing-studio/internal/usecase"
)

type usageEntryDTO struct {
	Kind      string `json:"kind"`
	Used      int64  `json:"used"`
	Limit     *int64 `json:"limit"`
	Remaining *int64 `json:"remaining"`
}

type usageSnapshotDTO struct {
	OrgID       string          `json:"orgId"`
	Plan        string          `json:"plan"`
	Status      string          `json:"status"`
	PeriodStart string          `json:"periodStart"`
	PeriodEnd   string          `json:"periodEnd"`
	Usage       []usageEntryDTO `json:"usage"`
}

func (h *Handler) GetUsage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GetUsage")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	snap, err := h.billingService.Usage(ctx, orgID)
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, toUsageSnapshotDTO(snap))
}

func toUsageSnapshotDTO(snap usecase.UsageSnapshot) usageSnapshotDTO {
	entries := make([]usageEntryDTO, 0, len(snap.Usage))
	for _, u := range snap.Usage {
		entries = append(entries, usageEntryDTO{
			Kind:      string(u.Kind),
			Used:      u.Used,
			Limit:     u.Limit,
			Remaining: u.Remaining(),
		})
	}

	return usageSnapshotDTO{
		OrgID:       snap.OrgID,
		Plan:        string(snap.Plan),
		Status:      string(snap.Status),
		PeriodStart: snap.PeriodStart.UTC().Format(time.RFC3339),
		PeriodEnd:   snap.PeriodEnd.UTC().Format(time.RFC3339),
		Usage:       entries,
	}
}
