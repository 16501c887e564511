package share

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/passcode"
	"github.com/dukerupert/overhill/internal/token"
)

// Collisions on a 256-bit token are effectively impossible, but the store
// reports them and we retry with a fresh token rather than fail the owner.
const maxCreateAttempts = 3

// Issuer creates share packets: snapshots are frozen, expiry is computed
// from a fixed window, the token is generated, and the optional passcode is
// hashed. The plaintext token exists outside the store only in the return
// value, for the owner to embed in a link. It is never logged.
type Issuer struct {
	store  Store
	window time.Duration
	logger *slog.Logger
}

// NewIssuer creates an Issuer. A non-positive window falls back to
// DefaultWindow.
func NewIssuer(store Store, window time.Duration, logger *slog.Logger) *Issuer {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Issuer{store: store, window: window, logger: logger}
}

// Window returns the configured packet lifetime.
func (i *Issuer) Window() time.Duration {
	return i.window
}

// Issued is what the owner gets back from Issue.
type Issued struct {
	PacketID    string    `json:"packet_id"`
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Issue persists a new packet for the household and returns its id and
// plaintext token. An empty pass means no passcode gate; a pass that is
// blank after trimming is rejected.
func (i *Issuer) Issue(householdID int64, recipientName string, snap Snapshot, pass string) (*Issued, error) {
	recipientName = strings.TrimSpace(recipientName)
	if recipientName == "" {
		return nil, ErrRecipientRequired
	}

	var passcodeHash string
	if pass != "" {
		if strings.TrimSpace(pass) == "" {
			return nil, ErrPasscodeEmpty
		}
		var err error
		passcodeHash, err = passcode.Hash(pass)
		if err != nil {
			return nil, fmt.Errorf("%w: hash passcode: %v", ErrIssuanceFailed, err)
		}
	}

	content, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("%w: marshal snapshot: %v", ErrIssuanceFailed, err)
	}

	now := time.Now().UTC()
	p := &model.SharePacket{
		HouseholdID:     householdID,
		RecipientName:   recipientName,
		ContentSnapshot: content,
		PasscodeHash:    passcodeHash,
		GeneratedAt:     now,
		ExpiresAt:       now.Add(i.window),
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		p.AccessToken = token.Generate()
		err = i.store.Create(p)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrTokenTaken) {
			return nil, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIssuanceFailed, err)
	}

	i.logger.Info("share packet issued",
		"packet_id", p.ID,
		"household_id", householdID,
		"recipient", recipientName,
		"expires_at", p.ExpiresAt,
		"passcode", passcodeHash != "",
	)

	return &Issued{
		PacketID:    p.ID,
		AccessToken: p.AccessToken,
		ExpiresAt:   p.ExpiresAt,
	}, nil
}
