// Package share implements the share-packet core: issuing immutable,
// time-boxed snapshots of a child's data and verifying unauthenticated
// access to them. Every ambiguous or failing path in this package resolves
// to a denial, never to a release.
package share

import (
	"errors"
	"time"

	"github.com/dukerupert/overhill/internal/model"
)

// DefaultWindow is the shipped packet lifetime. Fixed at issuance, never
// extended.
const DefaultWindow = 7 * 24 * time.Hour

var (
	// ErrIssuanceFailed wraps a store write failure during Issue. Retryable
	// by the owner.
	ErrIssuanceFailed = errors.New("share: issuance failed")

	// ErrStoreUnavailable wraps a transient store failure during access
	// evaluation. Surfaced to the caller as "try again", never as a grant
	// or a not-found.
	ErrStoreUnavailable = errors.New("share: store unavailable")

	// ErrTokenTaken is returned by a Store when an insert collides with an
	// existing access token. The issuer regenerates and retries.
	ErrTokenTaken = errors.New("share: access token already exists")

	// ErrRecipientRequired is returned by Issue for a blank recipient name.
	ErrRecipientRequired = errors.New("share: recipient name is required")

	// ErrPasscodeEmpty is returned by Issue when a passcode was supplied
	// but is empty after trimming.
	ErrPasscodeEmpty = errors.New("share: passcode must not be blank")
)

// Store is the persistence boundary the core depends on. Implementations
// must guarantee uniqueness of access tokens on Create and make
// IncrementViews atomic so concurrent grants never lose updates.
//
// GetByToken returns (nil, nil) when no packet exists for the token.
type Store interface {
	Create(p *model.SharePacket) error
	GetByToken(accessToken string) (*model.SharePacket, error)
	SetRevoked(id string) error
	IncrementViews(id string) error
}

// Snapshot is the point-in-time content copied into a packet at issuance.
// It is a value, not a live query: edits or deletions in the owner's data
// after issuance never show through.
type Snapshot struct {
	ChildName  string          `json:"child_name"`
	Summary    string          `json:"summary"`
	Logs       []LogEntry      `json:"logs"`
	Strategies []StrategyEntry `json:"strategies"`
	CapturedAt time.Time       `json:"captured_at"`
}

// LogEntry is one behavior log frozen into a snapshot.
type LogEntry struct {
	Behavior   string    `json:"behavior"`
	Antecedent string    `json:"antecedent,omitempty"`
	Intensity  int       `json:"intensity"`
	Notes      string    `json:"notes,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// StrategyEntry is one active strategy frozen into a snapshot.
type StrategyEntry struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
