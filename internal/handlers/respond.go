package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/maneesh/labarchive/internal/repository"
	"github.com/maneesh/labarchive/internal/storage"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("labarchive-handlers")

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Warning: failed to encode response: %v", err)
	}
}

// writeError maps the repository and storage error taxonomy onto HTTP
// statuses: not-found vs unavailable must stay distinguishable.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, repository.ErrInvalidInput):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, storage.ErrConfigurationMissing),
		errors.Is(err, storage.ErrBackendUnavailable):
		http.Error(w, "storage service unavailable", http.StatusServiceUnavailable)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}
