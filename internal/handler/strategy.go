package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/overhill/internal/auth"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/store"
)

type StrategyHandler struct {
	strategyStore *store.StrategyStore
	childStore    *store.ChildStore
	logger        *slog.Logger
}

func NewStrategyHandler(ss *store.StrategyStore, cs *store.ChildStore, logger *slog.Logger) *StrategyHandler {
	return &StrategyHandler{strategyStore: ss, childStore: cs, logger: logger}
}

type strategyRequest struct {
	ChildID     int64  `json:"child_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Active      *bool  `json:"active"`
}

func (h *StrategyHandler) childInHousehold(r *http.Request, childID int64) (bool, error) {
	child, err := h.childStore.GetByID(childID)
	if err != nil {
		return false, err
	}
	return child != nil && child.HouseholdID == auth.HouseholdID(r.Context()), nil
}

func (h *StrategyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	ok, err := h.childInHousehold(r, req.ChildID)
	if err != nil {
		h.logger.Error("check child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	strategy, err := h.strategyStore.Create(req.ChildID, req.Title, req.Description)
	if err != nil {
		h.logger.Error("create strategy", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create strategy"})
		return
	}

	writeJSON(w, http.StatusCreated, strategy)
}

// ListByChild handles GET /api/children/{id}/strategies
func (h *StrategyHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
	childID, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	ok, err := h.childInHousehold(r, childID)
	if err != nil {
		h.logger.Error("check child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	strategies, err := h.strategyStore.ListByChild(childID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list strategies"})
		return
	}
	if strategies == nil {
		strategies = []model.Strategy{}
	}
	writeJSON(w, http.StatusOK, strategies)
}

// ownedStrategy loads a strategy and verifies household ownership through
// its child.
func (h *StrategyHandler) ownedStrategy(w http.ResponseWriter, r *http.Request) *model.Strategy {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil
	}

	strategy, err := h.strategyStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get strategy"})
		return nil
	}
	if strategy == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "strategy not found"})
		return nil
	}

	ok, err := h.childInHousehold(r, strategy.ChildID)
	if err != nil || !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "strategy not found"})
		return nil
	}
	return strategy
}

func (h *StrategyHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.ownedStrategy(w, r)
	if existing == nil {
		return
	}

	var req strategyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	active := existing.Active
	if req.Active != nil {
		active = *req.Active
	}

	strategy, err := h.strategyStore.Update(existing.ID, req.Title, req.Description, active)
	if err != nil {
		h.logger.Error("update strategy", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update strategy"})
		return
	}

	writeJSON(w, http.StatusOK, strategy)
}

func (h *StrategyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.ownedStrategy(w, r)
	if existing == nil {
		return
	}

	if err := h.strategyStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete strategy", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete strategy"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
