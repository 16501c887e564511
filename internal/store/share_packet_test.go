package store

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/overhill/internal/database"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/share"
)

func setupShareTestDB(t *testing.T) (*SharePacketStore, *HouseholdStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewSharePacketStore(db), NewHouseholdStore(db)
}

func testPacket(householdID int64, accessToken string) *model.SharePacket {
	now := time.Now().UTC()
	return &model.SharePacket{
		AccessToken:     accessToken,
		HouseholdID:     householdID,
		RecipientName:   "Ms. Johnson",
		ContentSnapshot: []byte(`{"child_name":"Sam","summary":"hello"}`),
		GeneratedAt:     now,
		ExpiresAt:       now.Add(7 * 24 * time.Hour),
	}
}

func TestSharePacketCreateAndGet(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-aaa")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected store-assigned id")
	}

	got, err := ps.GetByToken("token-aaa")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got == nil {
		t.Fatal("expected packet, got nil")
	}
	if got.ID != p.ID {
		t.Errorf("id = %q, want %q", got.ID, p.ID)
	}
	if got.RecipientName != "Ms. Johnson" {
		t.Errorf("recipient = %q", got.RecipientName)
	}
	if string(got.ContentSnapshot) != string(p.ContentSnapshot) {
		t.Errorf("snapshot = %s", got.ContentSnapshot)
	}
	if got.Revoked {
		t.Error("new packet must not be revoked")
	}
	if got.Views != 0 {
		t.Errorf("views = %d, want 0", got.Views)
	}
	if got.HasPasscode() {
		t.Error("no passcode hash was stored")
	}

	byID, err := ps.GetByID(p.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if byID == nil || byID.AccessToken != "token-aaa" {
		t.Errorf("get by id = %+v", byID)
	}
}

func TestSharePacketGetByTokenMiss(t *testing.T) {
	ps, _ := setupShareTestDB(t)

	got, err := ps.GetByToken("nope")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown token")
	}
}

func TestSharePacketTokenUnique(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	household, _ := hs.Create("Burrows")

	if err := ps.Create(testPacket(household.ID, "token-dup")); err != nil {
		t.Fatalf("create first packet: %v", err)
	}
	err := ps.Create(testPacket(household.ID, "token-dup"))
	if err != share.ErrTokenTaken {
		t.Errorf("err = %v, want ErrTokenTaken", err)
	}
}

func TestSharePacketPasscodeHashRoundTrip(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-pass")
	p.PasscodeHash = "aabb$ccdd"
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	got, err := ps.GetByToken("token-pass")
	if err != nil {
		t.Fatalf("get by token: %v", err)
	}
	if !got.HasPasscode() {
		t.Fatal("expected passcode hash")
	}
	if got.PasscodeHash != "aabb$ccdd" {
		t.Errorf("passcode hash = %q", got.PasscodeHash)
	}
}

func TestSharePacketRevokeIdempotent(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-rev")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	if err := ps.SetRevoked(p.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := ps.SetRevoked(p.ID); err != nil {
		t.Fatalf("second revoke should be a no-op success: %v", err)
	}

	got, _ := ps.GetByID(p.ID)
	if !got.Revoked {
		t.Error("expected revoked flag set")
	}
	// Revocation preserves the record; it is never a delete.
	if got.AccessToken != "token-rev" || len(got.ContentSnapshot) == 0 {
		t.Error("revoked packet should keep its data as audit history")
	}
}

func TestSharePacketIncrementViews(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-views")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := ps.IncrementViews(p.ID); err != nil {
			t.Fatalf("increment %d: %v", i, err)
		}
	}

	got, _ := ps.GetByID(p.ID)
	if got.Views != 3 {
		t.Errorf("views = %d, want 3", got.Views)
	}
}

func TestSharePacketConcurrentIncrements(t *testing.T) {
	// File-backed database so concurrent connections share state.
	dbPath := filepath.Join(t.TempDir(), "share_test.db")
	db, err := database.Open(dbPath)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	ps := NewSharePacketStore(db)
	hs := NewHouseholdStore(db)
	household, _ := hs.Create("Burrows")

	p := testPacket(household.ID, "token-conc")
	if err := ps.Create(p); err != nil {
		t.Fatalf("create packet: %v", err)
	}

	const k = 25
	var wg sync.WaitGroup
	errs := make(chan error, k)
	for i := 0; i < k; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := ps.IncrementViews(p.ID); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent increment: %v", err)
	}

	got, _ := ps.GetByID(p.ID)
	if got.Views != k {
		t.Errorf("views = %d, want %d", got.Views, k)
	}
}

func TestSharePacketListByHousehold(t *testing.T) {
	ps, hs := setupShareTestDB(t)
	h1, _ := hs.Create("Burrows")
	h2, _ := hs.Create("Tooks")

	p1 := testPacket(h1.ID, "token-1")
	p1.GeneratedAt = time.Now().UTC().Add(-2 * time.Hour)
	p2 := testPacket(h1.ID, "token-2")
	p3 := testPacket(h2.ID, "token-3")
	for _, p := range []*model.SharePacket{p1, p2, p3} {
		if err := ps.Create(p); err != nil {
			t.Fatalf("create packet: %v", err)
		}
	}

	packets, err := ps.ListByHousehold(h1.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(packets) != 2 {
		t.Fatalf("expected 2 packets, got %d", len(packets))
	}
	// Newest first.
	if packets[0].AccessToken != "token-2" {
		t.Errorf("packets[0].AccessToken = %q, want token-2", packets[0].AccessToken)
	}
}
