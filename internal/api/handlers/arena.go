package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/dom/hero-arena/internal/api/middleware"
	"github.com/dom/hero-arena/internal/service"
)

type ArenaHandler struct {
	arenaService *service.ArenaService
}

func NewArenaHandler(arenaService *service.ArenaService) *ArenaHandler {
	return &ArenaHandler{arenaService: arenaService}
}

type ReceiveRequest struct {
	From     string   `json:"from"`
	TokenIDs []string `json:"tokenIds"`
	Entropy  string   `json:"entropy"`
}

type ReceiveResponse struct {
	HeroesWaiting int     `json:"heroesWaiting"`
	BattleNumber  *uint64 `json:"battleNumber,omitempty"`
}

// Receive is called by a card contract when an owner sends a hero to the
// arena.
func (h *ArenaHandler) Receive(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req ReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.From == "" {
		http.Error(w, "Sender is required", http.StatusBadRequest)
		return
	}

	result, err := h.arenaService.Receive(r.Context(), caller, service.ReceiveInput{
		From:     req.From,
		TokenIDs: req.TokenIDs,
		Entropy:  req.Entropy,
	})
	if err != nil {
		writeServiceError(w, "arena.Receive", err)
		return
	}

	resp := ReceiveResponse{HeroesWaiting: result.HeroesWaiting}
	if result.Battle != nil {
		resp.BattleNumber = &result.Battle.BattleNumber
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ArenaHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	message, err := h.arenaService.Withdraw(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "arena.Withdraw", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": message})
}

func (h *ArenaHandler) Bullpen(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.arenaService.Bullpen(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "arena.Bullpen", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) History(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, err := intParam(r, "page", 0)
	if err != nil {
		http.Error(w, "Invalid page", http.StatusBadRequest)
		return
	}
	pageSize, err := intParam(r, "pageSize", service.DefaultHistoryPageSize)
	if err != nil {
		http.Error(w, "Invalid page size", http.StatusBadRequest)
		return
	}

	battles, err := h.arenaService.History(r.Context(), caller, page, pageSize)
	if err != nil {
		writeServiceError(w, "arena.History", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"battles": battles})
}

func (h *ArenaHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, ok := middleware.GetCaller(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	view, err := h.arenaService.PlayerStats(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "arena.Stats", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) Leaderboards(w http.ResponseWriter, r *http.Request) {
	view, err := h.arenaService.Leaderboards(r.Context())
	if err != nil {
		writeServiceError(w, "arena.Leaderboards", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) Tournament(w http.ResponseWriter, r *http.Request) {
	view, err := h.arenaService.Tournament(r.Context())
	if err != nil {
		writeServiceError(w, "arena.Tournament", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	view, err := h.arenaService.Usage(r.Context())
	if err != nil {
		writeServiceError(w, "arena.Usage", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) Config(w http.ResponseWriter, r *http.Request) {
	view, err := h.arenaService.Config(r.Context())
	if err != nil {
		writeServiceError(w, "arena.Config", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ArenaHandler) Bots(w http.ResponseWriter, r *http.Request) {
	bots, err := h.arenaService.Bots(r.Context())
	if err != nil {
		writeServiceError(w, "arena.Bots", err)
		return
	}
	if bots == nil {
		bots = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"bots": bots})
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, strconv.ErrSyntax
	}
	return v, nil
}

func uintParam(r *http.Request, name string, bits int) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseUint(raw, 10, bits)
}
