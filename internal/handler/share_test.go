package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/overhill/internal/auth"
	"github.com/dukerupert/overhill/internal/database"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/share"
	"github.com/dukerupert/overhill/internal/store"
	"github.com/dukerupert/overhill/internal/token"
)

type shareFixture struct {
	handler     *ShareHandler
	packets     *store.SharePacketStore
	events      *store.AccessEventStore
	logs        *store.BehaviorLogStore
	strategies  *store.StrategyStore
	children    *store.ChildStore
	householdID int64
	child       *model.Child
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupShare(t *testing.T) *shareFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hs := store.NewHouseholdStore(db)
	household, err := hs.Create("Burrows")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}

	cs := store.NewChildStore(db)
	child, err := cs.Create(household.ID, "Pip", nil)
	if err != nil {
		t.Fatalf("create child: %v", err)
	}

	packets := store.NewSharePacketStore(db)
	events := store.NewAccessEventStore(db)
	logs := store.NewBehaviorLogStore(db)
	strategies := store.NewStrategyStore(db)

	issuer := share.NewIssuer(packets, 0, testLogger())
	h := NewShareHandler(issuer, packets, events, cs, logs, strategies, nil, nil, "http://localhost:8080", testLogger())

	return &shareFixture{
		handler:     h,
		packets:     packets,
		events:      events,
		logs:        logs,
		strategies:  strategies,
		children:    cs,
		householdID: household.ID,
		child:       child,
	}
}

func authedRequest(method, target string, body []byte, householdID int64) *http.Request {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	ctx := auth.WithAuth(req.Context(), auth.AuthContext{UserID: 1, HouseholdID: householdID})
	return req.WithContext(ctx)
}

func TestShareCreateFreezesSnapshot(t *testing.T) {
	f := setupShare(t)

	f.logs.Create(f.child.ID, "meltdown", "loud noise", 4, "calmed after 10min", time.Now().UTC())
	f.strategies.Create(f.child.ID, "Quiet corner", "Offer the quiet corner first")
	inactive, _ := f.strategies.Create(f.child.ID, "Old approach", "")
	f.strategies.Update(inactive.ID, inactive.Title, inactive.Description, false)

	body, _ := json.Marshal(createShareRequest{
		ChildID:       f.child.ID,
		RecipientName: "Dr. Maggot",
		Summary:       "Weekly summary",
	})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var resp createShareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.AccessToken) != token.EncodedLen {
		t.Errorf("token length = %d, want %d", len(resp.AccessToken), token.EncodedLen)
	}
	if !strings.Contains(resp.ShareURL, resp.AccessToken) {
		t.Errorf("share url %q should contain the token", resp.ShareURL)
	}

	packet, err := f.packets.GetByID(resp.PacketID)
	if err != nil || packet == nil {
		t.Fatalf("get packet: %v", err)
	}

	var snap share.Snapshot
	if err := json.Unmarshal(packet.ContentSnapshot, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.ChildName != "Pip" {
		t.Errorf("child name = %q", snap.ChildName)
	}
	if len(snap.Logs) != 1 {
		t.Errorf("logs = %d, want 1", len(snap.Logs))
	}
	if len(snap.Strategies) != 1 || snap.Strategies[0].Title != "Quiet corner" {
		t.Errorf("only active strategies belong in the snapshot, got %+v", snap.Strategies)
	}

	// Edits after issuance must not show through the frozen snapshot.
	f.logs.Create(f.child.ID, "new behavior", "", 2, "", time.Now().UTC())
	packet2, _ := f.packets.GetByID(resp.PacketID)
	if !bytes.Equal(packet.ContentSnapshot, packet2.ContentSnapshot) {
		t.Error("snapshot changed after issuance")
	}
}

func TestShareCreateChildNotOwned(t *testing.T) {
	f := setupShare(t)

	body, _ := json.Marshal(createShareRequest{ChildID: f.child.ID, RecipientName: "Dr. Maggot"})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID+99))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestShareCreateValidation(t *testing.T) {
	f := setupShare(t)

	body, _ := json.Marshal(createShareRequest{ChildID: f.child.ID, RecipientName: "   "})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank recipient: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}

	body, _ = json.Marshal(createShareRequest{ChildID: f.child.ID, RecipientName: "Dr. Maggot", Passcode: "  "})
	rec = httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("blank passcode: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestShareList(t *testing.T) {
	f := setupShare(t)

	for _, name := range []string{"Dr. Maggot", "Grandma Took"} {
		body, _ := json.Marshal(createShareRequest{ChildID: f.child.ID, RecipientName: name})
		rec := httptest.NewRecorder()
		f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID))
		if rec.Code != http.StatusCreated {
			t.Fatalf("create share: status = %d", rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	f.handler.List(rec, authedRequest("GET", "/api/shares", nil, f.householdID))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var packets []model.SharePacket
	if err := json.Unmarshal(rec.Body.Bytes(), &packets); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(packets) != 2 {
		t.Errorf("packets = %d, want 2", len(packets))
	}

	// Other households see nothing.
	rec = httptest.NewRecorder()
	f.handler.List(rec, authedRequest("GET", "/api/shares", nil, f.householdID+99))
	var other []model.SharePacket
	json.Unmarshal(rec.Body.Bytes(), &other)
	if len(other) != 0 {
		t.Errorf("other household sees %d packets", len(other))
	}
}

func (f *shareFixture) createPacket(t *testing.T, recipient string) *createShareResponse {
	t.Helper()
	body, _ := json.Marshal(createShareRequest{ChildID: f.child.ID, RecipientName: recipient})
	rec := httptest.NewRecorder()
	f.handler.Create(rec, authedRequest("POST", "/api/shares", body, f.householdID))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create share: status = %d: %s", rec.Code, rec.Body.String())
	}
	var resp createShareResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return &resp
}

func TestShareRevokeIdempotent(t *testing.T) {
	f := setupShare(t)
	created := f.createPacket(t, "Dr. Maggot")

	for i := 0; i < 2; i++ {
		req := authedRequest("POST", "/api/shares/"+created.PacketID+"/revoke", nil, f.householdID)
		req.SetPathValue("id", created.PacketID)
		rec := httptest.NewRecorder()
		f.handler.Revoke(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("revoke %d: status = %d", i+1, rec.Code)
		}
	}

	packet, _ := f.packets.GetByID(created.PacketID)
	if !packet.Revoked {
		t.Error("packet should be revoked")
	}
}

func TestShareRevokeNotOwned(t *testing.T) {
	f := setupShare(t)
	created := f.createPacket(t, "Dr. Maggot")

	req := authedRequest("POST", "/api/shares/"+created.PacketID+"/revoke", nil, f.householdID+99)
	req.SetPathValue("id", created.PacketID)
	rec := httptest.NewRecorder()
	f.handler.Revoke(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
	packet, _ := f.packets.GetByID(created.PacketID)
	if packet.Revoked {
		t.Error("packet must not be revoked by another household")
	}
}

func TestShareEvents(t *testing.T) {
	f := setupShare(t)
	created := f.createPacket(t, "Dr. Maggot")

	f.events.Record(created.PacketID, string(share.OutcomeGranted), "203.0.113.7")
	f.events.Record(created.PacketID, string(share.OutcomePasscodeInvalid), "203.0.113.7")

	req := authedRequest("GET", "/api/shares/"+created.PacketID+"/events", nil, f.householdID)
	req.SetPathValue("id", created.PacketID)
	rec := httptest.NewRecorder()
	f.handler.Events(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var events []model.ShareAccessEvent
	if err := json.Unmarshal(rec.Body.Bytes(), &events); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events = %d, want 2", len(events))
	}
}
