package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dom/hero-arena/internal/api/middleware"
	"github.com/dom/hero-arena/internal/domain"
	"github.com/dom/hero-arena/internal/service"
)

// AdminHandler serves the admin surface. Whether the caller is the arena
// admin is decided by the services.
type AdminHandler struct {
	adminService     *service.AdminService
	migrationService *service.MigrationService
}

func NewAdminHandler(adminService *service.AdminService, migrationService *service.MigrationService) *AdminHandler {
	return &AdminHandler{
		adminService:     adminService,
		migrationService: migrationService,
	}
}

type BattleStatusRequest struct {
	Stop bool `json:"stop"`
}

type BotsRequest struct {
	Bots []string `json:"bots"`
}

type CardContractRequest struct {
	Address string `json:"address"`
	URL     string `json:"url"`
}

type ChangeAdminRequest struct {
	Admin string `json:"admin"`
}

type ExportTargetRequest struct {
	ID    string `json:"id"`
	URL   string `json:"url"`
	Token string `json:"token"`
}

type ImportSourceRequest struct {
	ID string `json:"id"`
}

type ServiceTokenRequest struct {
	Subject string `json:"subject"`
}

func (h *AdminHandler) SetBattleStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req BattleStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.adminService.SetBattleStatus(r.Context(), caller, req.Stop); err != nil {
		writeServiceError(w, "admin.SetBattleStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"battlesHaveHalted": req.Stop})
}

func (h *AdminHandler) AddBots(w http.ResponseWriter, r *http.Request) {
	h.changeBots(w, r, "admin.AddBots", h.adminService.AddBots)
}

func (h *AdminHandler) RemoveBots(w http.ResponseWriter, r *http.Request) {
	h.changeBots(w, r, "admin.RemoveBots", h.adminService.RemoveBots)
}

func (h *AdminHandler) changeBots(w http.ResponseWriter, r *http.Request, op string,
	apply func(ctx context.Context, caller string, bots []string) error) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req BotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if len(req.Bots) == 0 {
		http.Error(w, "At least one bot is required", http.StatusBadRequest)
		return
	}

	if err := apply(r.Context(), caller, req.Bots); err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) AddCardContract(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req CardContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Address == "" || req.URL == "" {
		http.Error(w, "Address and url are required", http.StatusBadRequest)
		return
	}

	contract := domain.CardContract{Address: req.Address, URL: req.URL}
	if err := h.adminService.AddCardContract(r.Context(), caller, contract); err != nil {
		writeServiceError(w, "admin.AddCardContract", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) ChangeAdmin(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ChangeAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Admin == "" {
		http.Error(w, "Admin is required", http.StatusBadRequest)
		return
	}

	if err := h.adminService.ChangeAdmin(r.Context(), caller, req.Admin); err != nil {
		writeServiceError(w, "admin.ChangeAdmin", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) ResetTournament(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := h.adminService.ResetTournament(r.Context(), caller); err != nil {
		writeServiceError(w, "admin.ResetTournament", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) SetExportTarget(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ExportTargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" || req.URL == "" {
		http.Error(w, "Target id and url are required", http.StatusBadRequest)
		return
	}

	err := h.migrationService.SetExportTarget(r.Context(), caller, service.ExportTarget{
		ID:    req.ID,
		URL:   req.URL,
		Token: req.Token,
	})
	if err != nil {
		writeServiceError(w, "admin.SetExportTarget", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) SetImportSource(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ImportSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ID == "" {
		http.Error(w, "Source id is required", http.StatusBadRequest)
		return
	}

	if err := h.migrationService.SetImportSource(r.Context(), caller, req.ID); err != nil {
		writeServiceError(w, "admin.SetImportSource", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	completed, err := h.migrationService.Export(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "admin.Export", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"completed": completed})
}

func (h *AdminHandler) ExportStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	status, err := h.migrationService.ExportStatus(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "admin.ExportStatus", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]*service.ExportStatusView{"status": status})
}

func (h *AdminHandler) DumpStats(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	start, err := uintParam(r, "start", 32)
	if err != nil {
		http.Error(w, "Invalid start", http.StatusBadRequest)
		return
	}
	limit, err := uintParam(r, "limit", 32)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	dump, err := h.adminService.DumpStats(r.Context(), caller, uint32(start), uint32(limit))
	if err != nil {
		writeServiceError(w, "admin.DumpStats", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]service.PlayerDump{"players": dump})
}

func (h *AdminHandler) DumpBattles(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	start, err := uintParam(r, "start", 64)
	if err != nil {
		http.Error(w, "Invalid start", http.StatusBadRequest)
		return
	}
	limit, err := uintParam(r, "limit", 32)
	if err != nil {
		http.Error(w, "Invalid limit", http.StatusBadRequest)
		return
	}

	dump, err := h.adminService.DumpBattles(r.Context(), caller, start, uint32(limit))
	if err != nil {
		writeServiceError(w, "admin.DumpBattles", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]service.BattleDump{"battles": dump})
}

func (h *AdminHandler) IssueServiceToken(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ServiceTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Subject == "" {
		http.Error(w, "Subject is required", http.StatusBadRequest)
		return
	}

	token, err := h.adminService.IssueServiceToken(r.Context(), caller, req.Subject)
	if err != nil {
		writeServiceError(w, "admin.IssueServiceToken", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}
