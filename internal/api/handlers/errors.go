package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/dom/hero-arena/internal/domain"
)

// writeServiceError maps arena error kinds to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch domain.KindOf(err) {
	case domain.KindAuthorization:
		http.Error(w, err.Error(), http.StatusForbidden)
	case domain.KindState:
		http.Error(w, err.Error(), http.StatusConflict)
	case domain.KindExternalData:
		log.Printf("ERROR [%s] external data: %v", op, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	case domain.KindDataCorruption:
		log.Printf("ERROR [%s] data corruption: %v", op, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	default:
		if errors.Is(err, domain.ErrArenaNotFound) {
			http.Error(w, "Arena not initialized", http.StatusServiceUnavailable)
			return
		}
		log.Printf("ERROR [%s] %v", op, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
