package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dom/hero-arena/internal/api/middleware"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/service"
)

type MigrationHandler struct {
	migrationService *service.MigrationService
}

func NewMigrationHandler(migrationService *service.MigrationService) *MigrationHandler {
	return &MigrationHandler{migrationService: migrationService}
}

// Import receives one batch of player stats from the exporting arena.
func (h *MigrationHandler) Import(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var batch domain.ImportBatch
	if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	applied, err := h.migrationService.Import(r.Context(), caller, batch)
	if err != nil {
		writeServiceError(w, "migration.Import", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"applied": applied})
}
