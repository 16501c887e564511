package share

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/overhill/internal/token"
)

func TestIssueDefaults(t *testing.T) {
	st := newMemStore()
	issuer := NewIssuer(st, 0, testLogger())

	before := time.Now().UTC()
	issued, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	after := time.Now().UTC()

	if issued.PacketID == "" {
		t.Error("expected a store-assigned packet id")
	}
	if len(issued.AccessToken) != token.EncodedLen {
		t.Errorf("token length = %d, want %d", len(issued.AccessToken), token.EncodedLen)
	}

	// 7-day default window, anchored at issuance.
	lo := before.Add(DefaultWindow)
	hi := after.Add(DefaultWindow)
	if issued.ExpiresAt.Before(lo) || issued.ExpiresAt.After(hi) {
		t.Errorf("expires_at = %v, want within [%v, %v]", issued.ExpiresAt, lo, hi)
	}

	p, err := st.GetByToken(issued.AccessToken)
	if err != nil || p == nil {
		t.Fatalf("get by token: %v", err)
	}
	if p.Revoked {
		t.Error("new packet must not be revoked")
	}
	if p.Views != 0 {
		t.Errorf("views = %d, want 0", p.Views)
	}
	if p.HasPasscode() {
		t.Error("no passcode was set")
	}
}

func TestIssueTrimsRecipient(t *testing.T) {
	st := newMemStore()
	issuer := NewIssuer(st, 0, testLogger())

	issued, err := issuer.Issue(1, "  Ms. Johnson  ", testSnapshot(), "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, _ := st.GetByToken(issued.AccessToken)
	if p.RecipientName != "Ms. Johnson" {
		t.Errorf("recipient = %q", p.RecipientName)
	}
}

func TestIssueValidation(t *testing.T) {
	issuer := NewIssuer(newMemStore(), 0, testLogger())

	if _, err := issuer.Issue(1, "", testSnapshot(), ""); !errors.Is(err, ErrRecipientRequired) {
		t.Errorf("empty recipient: err = %v, want ErrRecipientRequired", err)
	}
	if _, err := issuer.Issue(1, "   ", testSnapshot(), ""); !errors.Is(err, ErrRecipientRequired) {
		t.Errorf("blank recipient: err = %v, want ErrRecipientRequired", err)
	}
	if _, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), "   "); !errors.Is(err, ErrPasscodeEmpty) {
		t.Errorf("blank passcode: err = %v, want ErrPasscodeEmpty", err)
	}
}

func TestIssuePasscodeHashedNotStored(t *testing.T) {
	st := newMemStore()
	issuer := NewIssuer(st, 0, testLogger())

	issued, err := issuer.Issue(1, "Dr. Patel", testSnapshot(), "4242")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	p, _ := st.GetByToken(issued.AccessToken)
	if !p.HasPasscode() {
		t.Fatal("expected passcode hash to be set")
	}
	if strings.Contains(p.PasscodeHash, "4242") {
		t.Error("passcode hash must not contain the plaintext")
	}
}

func TestIssueTokensDistinct(t *testing.T) {
	st := newMemStore()
	issuer := NewIssuer(st, 0, testLogger())

	const n = 100
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		issued, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), "")
		if err != nil {
			t.Fatalf("issue %d: %v", i, err)
		}
		if _, dup := seen[issued.AccessToken]; dup {
			t.Fatalf("duplicate token on issuance %d", i)
		}
		seen[issued.AccessToken] = struct{}{}
	}
}

func TestIssueRetriesOnTokenCollision(t *testing.T) {
	st := newMemStore()
	st.collide = 2
	issuer := NewIssuer(st, 0, testLogger())

	issued, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), "")
	if err != nil {
		t.Fatalf("issue with collisions: %v", err)
	}
	if issued.AccessToken == "" {
		t.Error("expected a token after retrying")
	}
}

func TestIssueStoreFailure(t *testing.T) {
	st := newMemStore()
	st.failNext = errors.New("write error")
	issuer := NewIssuer(st, 0, testLogger())

	if _, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), ""); !errors.Is(err, ErrIssuanceFailed) {
		t.Errorf("err = %v, want ErrIssuanceFailed", err)
	}
}

func TestIssueCustomWindow(t *testing.T) {
	st := newMemStore()
	issuer := NewIssuer(st, 48*time.Hour, testLogger())

	issued, err := issuer.Issue(1, "Ms. Johnson", testSnapshot(), "")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	want := time.Now().UTC().Add(48 * time.Hour)
	diff := issued.ExpiresAt.Sub(want)
	if diff < -time.Minute || diff > time.Minute {
		t.Errorf("expires_at = %v, want about %v", issued.ExpiresAt, want)
	}
}
