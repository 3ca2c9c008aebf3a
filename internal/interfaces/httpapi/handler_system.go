package httpapi

import (
	"net/http"
	"sort"

	"github.com/brightdoor/listing-studio/internal/platform/resilience"
)

func (h *Handler) ListBreakers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ListBreakers")
	defer span.End()

	stats := h.breakers.AllStats()
	out := make([]resilience.Stats, 0, len(stats))
	for _, s := range stats {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	writeSuccess(ctx, w, http.StatusOK, map[string]any{"breakers": out})
}

func (h *Handler) ResetBreakers(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResetBreakers")
	defer span.End()

	h.breakers.ResetAll()
	h.logger.InfoContext(ctx, "all circuit breakers reset")

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "reset"})
}

func (h *Handler) ResetPeriodUsage(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.ResetPeriodUsage")
	defer span.End()

	if err := h.billingService.ResetPeriodUsage(ctx, r.PathValue("orgID")); err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, map[string]string{"status": "reset"})
}
