package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, internalToken string) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	mux.HandleFunc("GET /v1/system/breakers", handler.ListBreakers)
	mux.Handle("POST /v1/system/breakers/reset", RequireInternalToken(internalToken, http.HandlerFunc(handler.ResetBreakers)))
	mux.Handle("POST /v1/internal/billing/{orgID}/reset-period", RequireInternalToken(internalToken, http.HandlerFunc(handler.ResetPeriodUsage)))
}

func registerAPIRoutes(mux *http.ServeMux, handler *Handler, apiKey string) {
	mux.Handle("GET /v1/billing/usage", RequireAPIKey(apiKey, http.HandlerFunc(handler.GetUsage)))
	mux.Handle("POST /v1/ai/script", RequireAPIKey(apiKey, http.HandlerFunc(handler.GenerateScript)))
	mux.Handle("POST /v1/render-jobs", RequireAPIKey(apiKey, http.HandlerFunc(handler.CreateRenderJob)))
	mux.Handle("POST /v1/render-jobs/batch", RequireAPIKey(apiKey, http.HandlerFunc(handler.CreateRenderBatch)))
	mux.Handle("GET /v1/listings", RequireAPIKey(apiKey, http.HandlerFunc(handler.ListListings)))
	mux.Handle("POST /v1/listings", RequireAPIKey(apiKey, http.HandlerFunc(handler.CreateListing)))
	mux.Handle("GET /v1/listings/{listingID}", RequireAPIKey(apiKey, http.HandlerFunc(handler.GetListing)))
}
