package model

import "time"

// SharePacket is an immutable, time-boxed snapshot of a child's data plus
// the access credential handed to an outside recipient. Only Revoked and
// Views ever change after creation.
type SharePacket struct {
	ID              string    `json:"id"`
	AccessToken     string    `json:"access_token"`
	HouseholdID     int64     `json:"household_id"`
	RecipientName   string    `json:"recipient_name"`
	ContentSnapshot []byte    `json:"-"`
	PasscodeHash    string    `json:"-"`
	GeneratedAt     time.Time `json:"generated_at"`
	ExpiresAt       time.Time `json:"expires_at"`
	Revoked         bool      `json:"revoked"`
	Views           int64     `json:"views"`
}

// HasPasscode reports whether a passcode gate was set at issuance.
func (p *SharePacket) HasPasscode() bool {
	return p.PasscodeHash != ""
}

// ShareAccessEvent is one append-only audit row per access evaluation.
type ShareAccessEvent struct {
	ID        int64     `json:"id"`
	PacketID  string    `json:"packet_id"`
	Outcome   string    `json:"outcome"`
	RemoteIP  string    `json:"remote_ip"`
	CreatedAt time.Time `json:"created_at"`
}
