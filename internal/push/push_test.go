package push

import (
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dukerupert/overhill/internal/database"
	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/store"
)

func TestGenerateVAPIDKeys(t *testing.T) {
	pub, priv, err := GenerateVAPIDKeys()
	if err != nil {
		t.Fatalf("generate VAPID keys: %v", err)
	}

	if pub == "" {
		t.Error("expected non-empty public key")
	}
	if priv == "" {
		t.Error("expected non-empty private key")
	}

	// Public key should be base64url-encoded, 65 bytes uncompressed P-256 point
	pubBytes, err := base64.RawURLEncoding.DecodeString(pub)
	if err != nil {
		t.Fatalf("decode public key: %v", err)
	}
	if len(pubBytes) != 65 {
		t.Errorf("public key length = %d, want 65", len(pubBytes))
	}

	// Private key should be base64url-encoded, 32 bytes P-256 scalar
	privBytes, err := base64.RawURLEncoding.DecodeString(priv)
	if err != nil {
		t.Fatalf("decode private key: %v", err)
	}
	if len(privBytes) != 32 {
		t.Errorf("private key length = %d, want 32", len(privBytes))
	}

	// Generate again, keys should differ
	pub2, _, _ := GenerateVAPIDKeys()
	if pub == pub2 {
		t.Error("expected different keys on second generation")
	}
}

type fakeSender struct {
	sent    []Payload
	targets []string
	fail    map[string]error // endpoint -> error
}

func (f *fakeSender) Send(sub *model.PushSubscription, payload Payload) error {
	if err, ok := f.fail[sub.Endpoint]; ok {
		return err
	}
	f.sent = append(f.sent, payload)
	f.targets = append(f.targets, sub.Endpoint)
	return nil
}

func setupNotifierDB(t *testing.T) (*store.PushStore, *store.SharePacketStore, int64) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	hs := store.NewHouseholdStore(db)
	us := store.NewUserStore(db)
	household, err := hs.Create("Burrows")
	if err != nil {
		t.Fatalf("create household: %v", err)
	}
	user, err := us.Create(household.ID, "sam@example.com", "hash", "parent")
	if err != nil {
		t.Fatalf("create user: %v", err)
	}

	ps := store.NewPushStore(db)
	if _, err := ps.Create(user.ID, "https://push.example/one", "p256dh", "auth", "phone"); err != nil {
		t.Fatalf("create subscription: %v", err)
	}

	return ps, store.NewSharePacketStore(db), household.ID
}

func TestNotifyShareViewed(t *testing.T) {
	ps, packets, householdID := setupNotifierDB(t)

	sender := &fakeSender{}
	n := NewNotifier(nil, ps, packets)
	n.service = sender

	n.NotifyShareViewed(householdID, "Dr. Maggot")

	if len(sender.sent) != 1 {
		t.Fatalf("sent = %d payloads, want 1", len(sender.sent))
	}
	if sender.sent[0].Tag != "share-viewed" {
		t.Errorf("tag = %q, want share-viewed", sender.sent[0].Tag)
	}
}

func TestNotifyPrunesExpiredSubscriptions(t *testing.T) {
	ps, packets, householdID := setupNotifierDB(t)

	sender := &fakeSender{fail: map[string]error{"https://push.example/one": ErrExpired}}
	n := NewNotifier(nil, ps, packets)
	n.service = sender

	n.NotifyShareViewed(householdID, "Dr. Maggot")

	subs, err := ps.ListByHousehold(householdID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 0 {
		t.Errorf("expired subscription should have been deleted, got %d", len(subs))
	}
}

func TestNotifyOtherHouseholdUnaffected(t *testing.T) {
	ps, packets, householdID := setupNotifierDB(t)

	sender := &fakeSender{}
	n := NewNotifier(nil, ps, packets)
	n.service = sender

	n.NotifyShareViewed(householdID+1, "Dr. Maggot")

	if len(sender.sent) != 0 {
		t.Errorf("sent = %d payloads, want 0", len(sender.sent))
	}
}

func TestSendOtherErrorKeepsSubscription(t *testing.T) {
	ps, packets, householdID := setupNotifierDB(t)

	sender := &fakeSender{fail: map[string]error{"https://push.example/one": errors.New("push service returned 500")}}
	n := NewNotifier(nil, ps, packets)
	n.service = sender

	n.NotifyShareViewed(householdID, "Dr. Maggot")

	subs, err := ps.ListByHousehold(householdID)
	if err != nil {
		t.Fatalf("list subscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Errorf("subscription should survive transient errors, got %d", len(subs))
	}
}
