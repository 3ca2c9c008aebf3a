package httpapi

import (
	"net/http"

	"github.com/brightdoor/listing-studio/internal/usecase"
)

type generateScriptRequest struct {
	ListingID  string   `json:"listingId" validate:"required"`
	Tone       string   `json:"tone" validate:"omitempty,max=64"`
	MaxWords   int      `json:"maxWords" validate:"omitempty,min=20,max=600"`
	Highlights []string `json:"highlights" validate:"omitempty,max=20,dive,max=200"`
}

type generateScriptResponse struct {
	Script    string `json:"script"`
	WordCount int    `json:"wordCount"`
	Model     string `json:"model"`
	Remaining *int64 `json:"remaining"`
	Degraded  bool   `json:"degraded,omitempty"`
}

func (h *Handler) GenerateScript(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.GenerateScript")
	defer span.End()

	orgID, ok := orgIDFromContext(ctx)
	if !ok {
		writeError(ctx, w, usecase.ErrUnauthorized)
		return
	}

	var req generateScriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(ctx, w, err)
		return
	}
	if err := h.validateRequest(ctx, req); err != nil {
		writeError(ctx, w, err)
		return
	}

	result, err := h.generationService.GenerateScript(ctx, usecase.GenerateScriptInput{
		OrgID:      orgID,
		ListingID:  req.ListingID,
		Tone:       req.Tone,
		MaxWords:   req.MaxWords,
		Highlights: req.Highlights,
	})
	if err != nil {
		writeError(ctx, w, err)
		return
	}

	writeSuccess(ctx, w, http.StatusOK, generateScriptResponse{
		Script:    result.Script.Text,
		WordCount: result.Script.WordCount,
		Model:     result.Script.Model,
		Remaining: result.Remaining,
		Degraded:  result.Degraded,
	})
}
