package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/overhill/internal/auth"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/store"
)

const defaultLogLimit = 50

type BehaviorLogHandler struct {
	logStore   *store.BehaviorLogStore
	childStore *store.ChildStore
	logger     *slog.Logger
}

func NewBehaviorLogHandler(ls *store.BehaviorLogStore, cs *store.ChildStore, logger *slog.Logger) *BehaviorLogHandler {
	return &BehaviorLogHandler{logStore: ls, childStore: cs, logger: logger}
}

type behaviorLogRequest struct {
	ChildID    int64      `json:"child_id"`
	Behavior   string     `json:"behavior"`
	Antecedent string     `json:"antecedent"`
	Intensity  int        `json:"intensity"`
	Notes      string     `json:"notes"`
	OccurredAt *time.Time `json:"occurred_at"`
}

// childInHousehold verifies the child belongs to the caller's household.
func (h *BehaviorLogHandler) childInHousehold(r *http.Request, childID int64) (bool, error) {
	child, err := h.childStore.GetByID(childID)
	if err != nil {
		return false, err
	}
	return child != nil && child.HouseholdID == auth.HouseholdID(r.Context()), nil
}

func (h *BehaviorLogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req behaviorLogRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Behavior = strings.TrimSpace(req.Behavior)
	if req.Behavior == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "behavior is required"})
		return
	}
	if req.Intensity < 1 || req.Intensity > 5 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "intensity must be between 1 and 5"})
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

	occurredAt := time.Now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	entry, err := h.logStore.Create(req.ChildID, req.Behavior, req.Antecedent, req.Intensity, req.Notes, occurredAt)
	if err != nil {
		h.logger.Error("create behavior log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create log"})
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// ListByChild handles GET /api/children/{id}/logs?limit=N
func (h *BehaviorLogHandler) ListByChild(w http.ResponseWriter, r *http.Request) {
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

	limit := defaultLogLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	logs, err := h.logStore.ListRecentByChild(childID, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list logs"})
		return
	}
	if logs == nil {
		logs = []model.BehaviorLog{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *BehaviorLogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	entry, err := h.logStore.GetByID(id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get log"})
		return
	}
	if entry == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "log not found"})
		return
	}

	ok, err := h.childInHousehold(r, entry.ChildID)
	if err != nil || !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "log not found"})
		return
	}

	if err := h.logStore.Delete(id); err != nil {
		h.logger.Error("delete behavior log", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete log"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
