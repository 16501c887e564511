package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/overhill/internal/middleware"
	"github.com/dukerupert/overhill/internal/push"
	"github.com/dukerupert/overhill/internal/share"
	"github.com/dukerupert/overhill/internal/store"
	"github.com/dukerupert/overhill/internal/websocket"
)

// PublicShareHandler serves the one unauthenticated endpoint: a recipient
// presenting a token (and possibly a passcode) to open a share packet.
type PublicShareHandler struct {
	gate       *share.Gate
	eventStore *store.AccessEventStore
	hub        *websocket.Hub
	notifier   *push.Notifier
	logger     *slog.Logger
}

func NewPublicShareHandler(gate *share.Gate, es *store.AccessEventStore, hub *websocket.Hub, notifier *push.Notifier, logger *slog.Logger) *PublicShareHandler {
	return &PublicShareHandler{
		gate:       gate,
		eventStore: es,
		hub:        hub,
		notifier:   notifier,
		logger:     logger,
	}
}

type accessRequest struct {
	Token    string `json:"token"`
	Passcode string `json:"passcode"`
}

type accessResponse struct {
	Status        share.Status    `json:"status"`
	RecipientName string          `json:"recipient_name,omitempty"`
	ExpiresAt     *time.Time      `json:"expires_at,omitempty"`
	Content       json.RawMessage `json:"content,omitempty"`
}

// Access handles POST /share/access. Whatever the outcome, the caller only
// ever learns the public status; the precise outcome goes to the audit
// trail. A store failure is a 503, never a denial and never a grant.
func (h *PublicShareHandler) Access(w http.ResponseWriter, r *http.Request) {
	var req accessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	result, err := h.gate.Access(req.Token, req.Passcode)
	if err != nil {
		if errors.Is(err, share.ErrStoreUnavailable) {
			h.logger.Error("share access store failure", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable, try again"})
			return
		}
		h.logger.Error("share access", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	// Audit every evaluation that matched a packet. Unknown tokens have
	// nothing to attach the row to.
	if result.PacketID != "" {
		if err := h.eventStore.Record(result.PacketID, string(result.Outcome), middleware.RealIP(r)); err != nil {
			h.logger.Error("record access event", "error", err)
		}
	}

	if result.Status == share.StatusGranted {
		if h.hub != nil {
			h.hub.Broadcast(result.HouseholdID, websocket.Event{
				Kind:      websocket.EventViewed,
				PacketID:  result.PacketID,
				Recipient: result.RecipientName,
			})
		}
		if h.notifier != nil {
			h.notifier.NotifyShareViewed(result.HouseholdID, result.RecipientName)
		}

		writeJSON(w, http.StatusOK, accessResponse{
			Status:        result.Status,
			RecipientName: result.RecipientName,
			ExpiresAt:     &result.ExpiresAt,
			Content:       result.Content,
		})
		return
	}

	writeJSON(w, http.StatusOK, accessResponse{Status: result.Status})
}
