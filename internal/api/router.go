package api

import (
	"net/http"

	"github.com/cat-engine/backend/internal/models"
	"github.com/gorilla/mux"
)

// RegisterRoutes mounts the CAT endpoints on r. Health lives outside the
// versioned prefix.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Use(requestIDMiddleware, recoverMiddleware(h.log), accessLogMiddleware(h.log))

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/estimate-theta", h.EstimateTheta).Methods("POST")
	api.HandleFunc("/select-item", h.SelectItem).Methods("POST")
	api.HandleFunc("/stopping-criteria", h.StoppingCriteria).Methods("POST")
	api.HandleFunc("/calculate-score", h.CalculateScore).Methods("POST")
	api.HandleFunc("/final-score", h.FinalScore).Methods("POST")
	api.HandleFunc("/item-bank", h.ItemBank).Methods("GET")

	r.HandleFunc("/health", h.Health).Methods("GET")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, models.ErrorResponse{Error: "Endpoint not found"})
	})
}

// NewRouter returns a router with every route registered.
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}
