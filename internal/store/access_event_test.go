package store

import (
	"testing"

	"github.com/dukerupert/overhill/internal/database"
)

func setupAccessEventTestDB(t *testing.T) (*AccessEventStore, *SharePacketStore, *HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAccessEventStore(db), NewSharePacketStore(db), NewHouseholdStore(db)
}

func TestAccessEventRecordAndList(t *testing.T) {
	es, ps, hs := setupAccessEventTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-events")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	outcomes := []string{"passcode_required", "passcode_invalid", "granted"}
	for _, outcome := range outcomes {
		if err := es.Record(p.ID, outcome, "203.0.113.9"); err != nil {
			t.Fatalf("record %s: %v", outcome, err)
		}
	}

	events, err := es.ListByPacket(p.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	// Newest first.
	if events[0].Outcome != "granted" {
		t.Errorf("events[0].Outcome = %q, want granted", events[0].Outcome)
	}
	if events[0].RemoteIP != "203.0.113.9" {
		t.Errorf("remote_ip = %q", events[0].RemoteIP)
	}
}

func TestAccessEventListEmpty(t *testing.T) {
	es, ps, hs := setupAccessEventTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-quiet")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	events, err := es.ListByPacket(p.ID)
	if err != nil {
		t.Fatalf("list events: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}
