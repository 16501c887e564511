package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/overhill/internal/auth"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/push"
	"github.com/dukerupert/overhill/internal/share"
	"github.com/dukerupert/overhill/internal/store"
	"github.com/dukerupert/overhill/internal/websocket"
)

// snapshotLogLimit caps how many recent behavior logs are frozen into a
// share packet.
const snapshotLogLimit = 50

type ShareHandler struct {
	issuer        *share.Issuer
	packetStore   *store.SharePacketStore
	eventStore    *store.AccessEventStore
	childStore    *store.ChildStore
	logStore      *store.BehaviorLogStore
	strategyStore *store.StrategyStore
	hub           *websocket.Hub
	notifier      *push.Notifier
	baseURL       string
	logger        *slog.Logger
}

func NewShareHandler(
	issuer *share.Issuer,
	ps *store.SharePacketStore,
	es *store.AccessEventStore,
	cs *store.ChildStore,
	ls *store.BehaviorLogStore,
	ss *store.StrategyStore,
	hub *websocket.Hub,
	notifier *push.Notifier,
	baseURL string,
	logger *slog.Logger,
) *ShareHandler {
	return &ShareHandler{
		issuer:        issuer,
		packetStore:   ps,
		eventStore:    es,
		childStore:    cs,
		logStore:      ls,
		strategyStore: ss,
		hub:           hub,
		notifier:      notifier,
		baseURL:       baseURL,
		logger:        logger,
	}
}

func (h *ShareHandler) broadcast(householdID int64, ev websocket.Event) {
	if h.hub != nil {
		h.hub.Broadcast(householdID, ev)
	}
}

type createShareRequest struct {
	ChildID       int64  `json:"child_id"`
	RecipientName string `json:"recipient_name"`
	Summary       string `json:"summary"`
	Passcode      string `json:"passcode"`
}

type createShareResponse struct {
	PacketID    string    `json:"packet_id"`
	AccessToken string    `json:"access_token"`
	ShareURL    string    `json:"share_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Create handles POST /api/shares. The snapshot is assembled here, from the
// child's current data, and frozen into the packet at issuance. Later edits
// to logs or strategies never show through.
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	householdID := auth.HouseholdID(r.Context())

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	child, err := h.childStore.GetByID(req.ChildID)
	if err != nil {
		h.logger.Error("get child for share", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if child == nil || child.HouseholdID != householdID {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "child not found"})
		return
	}

	snap, err := h.buildSnapshot(child, req.Summary)
	if err != nil {
		h.logger.Error("build snapshot", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	issued, err := h.issuer.Issue(householdID, req.RecipientName, *snap, req.Passcode)
	if err != nil {
		switch {
		case errors.Is(err, share.ErrRecipientRequired):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "recipient name is required"})
		case errors.Is(err, share.ErrPasscodeEmpty):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "passcode must not be blank"})
		default:
			h.logger.Error("issue share packet", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create share"})
		}
		return
	}

	h.broadcast(householdID, websocket.Event{
		Kind:      websocket.EventIssued,
		PacketID:  issued.PacketID,
		Recipient: strings.TrimSpace(req.RecipientName),
	})

	writeJSON(w, http.StatusCreated, createShareResponse{
		PacketID:    issued.PacketID,
		AccessToken: issued.AccessToken,
		ShareURL:    fmt.Sprintf("%s/share#%s", h.baseURL, issued.AccessToken),
		ExpiresAt:   issued.ExpiresAt,
	})
}

func (h *ShareHandler) buildSnapshot(child *model.Child, summary string) (*share.Snapshot, error) {
	logs, err := h.logStore.ListRecentByChild(child.ID, snapshotLogLimit)
	if err != nil {
		return nil, fmt.Errorf("list recent logs: %w", err)
	}
	strategies, err := h.strategyStore.ListActiveByChild(child.ID)
	if err != nil {
		return nil, fmt.Errorf("list active strategies: %w", err)
	}

	snap := share.Snapshot{
		ChildName:  child.Name,
		Summary:    strings.TrimSpace(summary),
		CapturedAt: time.Now().UTC(),
	}
	for _, l := range logs {
		snap.Logs = append(snap.Logs, share.LogEntry{
			Behavior:   l.Behavior,
			Antecedent: l.Antecedent,
			Intensity:  l.Intensity,
			Notes:      l.Notes,
			OccurredAt: l.OccurredAt,
		})
	}
	for _, s := range strategies {
		snap.Strategies = append(snap.Strategies, share.StrategyEntry{
			Title:       s.Title,
			Description: s.Description,
		})
	}
	return &snap, nil
}

// List handles GET /api/shares. Every packet the household ever issued is
// returned, revoked and expired ones included.
func (h *ShareHandler) List(w http.ResponseWriter, r *http.Request) {
	packets, err := h.packetStore.ListByHousehold(auth.HouseholdID(r.Context()))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list shares"})
		return
	}
	if packets == nil {
		packets = []model.SharePacket{}
	}
	writeJSON(w, http.StatusOK, packets)
}

// ownedPacket loads a packet and verifies household ownership.
func (h *ShareHandler) ownedPacket(w http.ResponseWriter, r *http.Request) *model.SharePacket {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return nil
	}

	packet, err := h.packetStore.GetByID(id)
	if err != nil {
		h.logger.Error("get share packet", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get share"})
		return nil
	}
	if packet == nil || packet.HouseholdID != auth.HouseholdID(r.Context()) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "share not found"})
		return nil
	}
	return packet
}

// Revoke handles POST /api/shares/{id}/revoke. Idempotent: revoking an
// already revoked packet succeeds without complaint. The packet row stays
// behind as history; revocation is never deletion.
func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	packet := h.ownedPacket(w, r)
	if packet == nil {
		return
	}

	alreadyRevoked := packet.Revoked
	if !alreadyRevoked {
		if err := h.packetStore.SetRevoked(packet.ID); err != nil {
			h.logger.Error("revoke share packet", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to revoke share"})
			return
		}
		h.logger.Info("share packet revoked", "packet_id", packet.ID)

		h.broadcast(packet.HouseholdID, websocket.Event{
			Kind:      websocket.EventRevoked,
			PacketID:  packet.ID,
			Recipient: packet.RecipientName,
		})
		if h.notifier != nil {
			h.notifier.NotifyShareRevoked(packet.HouseholdID, packet.RecipientName)
		}
	}

	packet.Revoked = true
	writeJSON(w, http.StatusOK, packet)
}

// Events handles GET /api/shares/{id}/events: the packet's full access
// history, precise outcomes included.
func (h *ShareHandler) Events(w http.ResponseWriter, r *http.Request) {
	packet := h.ownedPacket(w, r)
	if packet == nil {
		return
	}

	events, err := h.eventStore.ListByPacket(packet.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list events"})
		return
	}
	if events == nil {
		events = []model.ShareAccessEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}
