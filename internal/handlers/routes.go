package handlers

import (
	"github.com/gorilla/mux"
)

// Router registers the page, JSON API and WebSocket routes.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", h.Index).Methods("GET")
	r.HandleFunc("/generate", h.Generate).Methods("POST")
	r.HandleFunc("/image", h.Image).Methods("GET")
	r.HandleFunc("/ws", h.StateWS).Methods("GET")
	r.HandleFunc("/healthz", h.Healthz).Methods("GET")

	api := r.PathPrefix("/v1").Subrouter()
	api.HandleFunc("/state", h.GetState).Methods("GET")
	api.HandleFunc("/generate", h.PostGenerate).Methods("POST")
	api.HandleFunc("/grades", h.ListGrades).Methods("GET")
	return r
}
