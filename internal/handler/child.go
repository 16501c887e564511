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

type ChildHandler struct {
	childStore *store.ChildStore
	logger     *slog.Logger
}

func NewChildHandler(cs *store.ChildStore, logger *slog.Logger) *ChildHandler {
	return &ChildHandler{childStore: cs, logger: logger}
}

type childRequest struct {
	Name      string `json:"name"`
	BirthYear *int   `json:"birth_year"`
}

// ownedChild loads a child and verifies it belongs to the caller's
// household. Returns nil (after writing the response) when it doesn't.
func (h *ChildHandler) ownedChild(w http.ResponseWriter, r *http.Request) *model.Child {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil
	}

	child, err := h.childStore.GetByID(id)
	if err != nil {
		h.logger.Error("get child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get child"})
		return nil
	}
	if child == nil || child.HouseholdID != auth.HouseholdID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return nil
	}
	return child
}

func (h *ChildHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	child, err := h.childStore.Create(auth.HouseholdID(r.Context()), req.Name, req.BirthYear)
	if err != nil {
		h.logger.Error("create child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create child"})
		return
	}

	writeJSON(w, http.StatusCreated, child)
}

func (h *ChildHandler) List(w http.ResponseWriter, r *http.Request) {
	children, err := h.childStore.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list children"})
		return
	}
	if children == nil {
		children = []model.Child{}
	}
	writeJSON(w, http.StatusOK, children)
}

func (h *ChildHandler) Update(w http.ResponseWriter, r *http.Request) {
	existing := h.ownedChild(w, r)
	if existing == nil {
		return
	}

	var req childRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	child, err := h.childStore.Update(existing.ID, req.Name, req.BirthYear)
	if err != nil {
		h.logger.Error("update child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update child"})
		return
	}

	writeJSON(w, http.StatusOK, child)
}

func (h *ChildHandler) Delete(w http.ResponseWriter, r *http.Request) {
	existing := h.ownedChild(w, r)
	if existing == nil {
		return
	}

	if err := h.childStore.Delete(existing.ID); err != nil {
		h.logger.Error("delete child", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete child"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
