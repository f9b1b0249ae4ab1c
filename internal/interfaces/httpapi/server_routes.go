package httpapi

import "net/http"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, swaggerEnabled bool) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if !swaggerEnabled {
		return
	}

	mux.HandleFunc("GET /openapi.yaml", handler.OpenAPI)
	mux.HandleFunc("GET /docs", handler.SwaggerUI)
	mux.HandleFunc("GET /docs/", handler.SwaggerUI)
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/wars", handler.ListWars)
	mux.HandleFunc("GET /v1/wars/{warID}", handler.GetWar)
	mux.HandleFunc("GET /v1/league/seasons", handler.ListLeagueSeasons)
	mux.HandleFunc("GET /v1/league/seasons/{season}/wars", handler.ListLeagueSeasonWars)
	mux.HandleFunc("GET /v1/predictions", handler.ListPredictions)
	mux.HandleFunc("GET /v1/storage/stats", handler.GetStorageStats)
}

func registerInternalJobRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle("POST /v1/internal/jobs/sweep-war", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunWarSweepJob)))
	mux.Handle("POST /v1/internal/jobs/sweep-league", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLeagueSweepJob)))
	mux.Handle("POST /v1/internal/jobs/dedupe-league", RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.RunLeagueDedupeJob)))
}
