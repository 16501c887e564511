package share

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukerupert/overhill/internal/passcode"
)

// Status is what the public caller is allowed to learn. A missing,
// revoked, or expired packet all collapse into StatusUnavailable so the
// response cannot be used as an oracle for which of the three it was.
// The passcode statuses stay distinguishable: a caller prompted for a
// passcode already knows the packet exists.
type Status string

const (
	StatusGranted          Status = "granted"
	StatusUnavailable      Status = "unavailable"
	StatusPasscodeRequired Status = "passcode_required"
	StatusPasscodeInvalid  Status = "passcode_invalid"
)

// Outcome is the precise evaluation result, kept for the audit trail and
// owner-facing history. Never returned to the public caller.
type Outcome string

const (
	OutcomeGranted         Outcome = "granted"
	OutcomeTokenInvalid    Outcome = "token_invalid"
	OutcomeRevoked         Outcome = "revoked"
	OutcomeExpired         Outcome = "expired"
	OutcomePasscodeNeeded  Outcome = "passcode_required"
	OutcomePasscodeInvalid Outcome = "passcode_invalid"
)

// Result is one terminal gate evaluation. Content and the packet metadata
// are populated only on a grant. PacketID is set whenever the token matched
// a packet, so denials can still be audited against it.
type Result struct {
	Status        Status
	Outcome       Outcome
	PacketID      string
	HouseholdID   int64
	RecipientName string
	ExpiresAt     time.Time
	Content       json.RawMessage
}

// Gate evaluates unauthenticated access requests. It holds no state across
// requests: every evaluation re-reads the packet, so a completed revocation
// is seen by the very next request.
type Gate struct {
	store  Store
	logger *slog.Logger
}

func NewGate(store Store, logger *slog.Logger) *Gate {
	return &Gate{store: store, logger: logger}
}

// Access runs the verification state machine for a presented token. An
// empty pass means the caller supplied no passcode. The checks run in a
// fixed order: existence, revocation, expiry, passcode. Content is released
// if and only if every check passes, and the view counter is incremented
// exactly once per release via the store's atomic update.
//
// A store failure is returned as an error wrapping ErrStoreUnavailable and
// must be treated as "try again" by the caller, never as a denial category
// and never as a grant.
func (g *Gate) Access(accessToken, pass string) (*Result, error) {
	p, err := g.store.GetByToken(accessToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if p == nil {
		return &Result{Status: StatusUnavailable, Outcome: OutcomeTokenInvalid}, nil
	}

	if p.Revoked {
		return g.deny(p.ID, StatusUnavailable, OutcomeRevoked), nil
	}

	if !time.Now().UTC().Before(p.ExpiresAt) {
		return g.deny(p.ID, StatusUnavailable, OutcomeExpired), nil
	}

	if p.HasPasscode() {
		if pass == "" {
			return g.deny(p.ID, StatusPasscodeRequired, OutcomePasscodeNeeded), nil
		}
		if !passcode.Verify(pass, p.PasscodeHash) {
			return g.deny(p.ID, StatusPasscodeInvalid, OutcomePasscodeInvalid), nil
		}
	}

	// Every check passed. Count the view before releasing; if the counter
	// cannot be written the release does not happen (fail closed).
	if err := g.store.IncrementViews(p.ID); err != nil {
		return nil, fmt.Errorf("%w: increment views: %v", ErrStoreUnavailable, err)
	}

	g.logger.Info("share packet accessed", "packet_id", p.ID)

	return &Result{
		Status:        StatusGranted,
		Outcome:       OutcomeGranted,
		PacketID:      p.ID,
		HouseholdID:   p.HouseholdID,
		RecipientName: p.RecipientName,
		ExpiresAt:     p.ExpiresAt,
		Content:       json.RawMessage(p.ContentSnapshot),
	}, nil
}

func (g *Gate) deny(packetID string, status Status, outcome Outcome) *Result {
	g.logger.Debug("share access denied", "packet_id", packetID, "outcome", string(outcome))
	return &Result{Status: status, Outcome: outcome, PacketID: packetID}
}
