package api

import (
	"github.com/gorilla/mux"
)

// SetupRoutes configures all API routes
func SetupRoutes(handler *Handler) *mux.Router {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", handler.HealthCheck).Methods("GET")

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/symbols", handler.GetSymbols).Methods("GET")
	api.HandleFunc("/symbols", handler.AddSymbol).Methods("POST")
	api.HandleFunc("/symbols/{symbol}", handler.RemoveSymbol).Methods("DELETE")
	api.HandleFunc("/state/{id}", handler.GetState).Methods("GET")
	api.HandleFunc("/positions", handler.GetPositions).Methods("GET")

	return r
}
