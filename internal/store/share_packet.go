package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/overhill/internal/model"
	"github.com/dukerupert/overhill/internal/share"
)

// SharePacketStore persists share packets. Packets are never deleted:
// revocation flips a flag and the row stays behind as audit history.
type SharePacketStore struct {
	db *sql.DB
}

var _ share.Store = (*SharePacketStore)(nil)

func NewSharePacketStore(db *sql.DB) *SharePacketStore {
	return &SharePacketStore{db: db}
}

func scanSharePacket(scanner interface{ Scan(...any) error }) (*model.SharePacket, error) {
	var p model.SharePacket
	var passcodeHash sql.NullString
	var snapshot string
	var revoked int

	err := scanner.Scan(
		&p.ID, &p.AccessToken, &p.HouseholdID, &p.RecipientName, &snapshot,
		&passcodeHash, &p.GeneratedAt, &p.ExpiresAt, &revoked, &p.Views,
	)
	if err != nil {
		return nil, err
	}

	p.ContentSnapshot = []byte(snapshot)
	p.Revoked = revoked != 0
	if passcodeHash.Valid {
		p.PasscodeHash = passcodeHash.String
	}
	return &p, nil
}

const sharePacketCols = `id, access_token, household_id, recipient_name, content_snapshot, passcode_hash, generated_at, expires_at, revoked, views`

// Create inserts a new packet, assigning its id. A collision on the unique
// access_token index is reported as share.ErrTokenTaken so the issuer can
// regenerate.
func (s *SharePacketStore) Create(p *model.SharePacket) error {
	id := uuid.NewString()

	var passcodeHash sql.NullString
	if p.PasscodeHash != "" {
		passcodeHash = sql.NullString{String: p.PasscodeHash, Valid: true}
	}

	_, err := s.db.Exec(
		`INSERT INTO share_packets (id, access_token, household_id, recipient_name, content_snapshot, passcode_hash, generated_at, expires_at, revoked, views)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		id, p.AccessToken, p.HouseholdID, p.RecipientName, string(p.ContentSnapshot),
		passcodeHash, p.GeneratedAt, p.ExpiresAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "share_packets.access_token") {
			return share.ErrTokenTaken
		}
		return fmt.Errorf("insert share packet: %w", err)
	}

	p.ID = id
	p.Revoked = false
	p.Views = 0
	return nil
}

// GetByToken returns the packet for an access token, or nil when no packet
// exists. No expiry or revocation filtering happens here; the gate owns
// that ordering.
func (s *SharePacketStore) GetByToken(accessToken string) (*model.SharePacket, error) {
	row := s.db.QueryRow(`SELECT `+sharePacketCols+` FROM share_packets WHERE access_token = ?`, accessToken)
	p, err := scanSharePacket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share packet by token: %w", err)
	}
	return p, nil
}

func (s *SharePacketStore) GetByID(id string) (*model.SharePacket, error) {
	row := s.db.QueryRow(`SELECT `+sharePacketCols+` FROM share_packets WHERE id = ?`, id)
	p, err := scanSharePacket(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get share packet: %w", err)
	}
	return p, nil
}

// ListByHousehold returns all packets a household has ever issued, newest
// first, including revoked and expired ones.
func (s *SharePacketStore) ListByHousehold(householdID int64) ([]model.SharePacket, error) {
	rows, err := s.db.Query(
		`SELECT `+sharePacketCols+` FROM share_packets WHERE household_id = ? ORDER BY generated_at DESC`,
		householdID,
	)
	if err != nil {
		return nil, fmt.Errorf("list share packets: %w", err)
	}
	defer rows.Close()

	var packets []model.SharePacket
	for rows.Next() {
		p, err := scanSharePacket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share packet: %w", err)
		}
		packets = append(packets, *p)
	}
	return packets, rows.Err()
}

// ListExpiringBefore returns packets that are still live but will expire
// before the cutoff. Used for owner expiry reminders.
func (s *SharePacketStore) ListExpiringBefore(cutoff time.Time) ([]model.SharePacket, error) {
	rows, err := s.db.Query(
		`SELECT `+sharePacketCols+` FROM share_packets
		 WHERE revoked = 0 AND expires_at > ? AND expires_at <= ?`,
		time.Now().UTC(), cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list expiring share packets: %w", err)
	}
	defer rows.Close()

	var packets []model.SharePacket
	for rows.Next() {
		p, err := scanSharePacket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan share packet: %w", err)
		}
		packets = append(packets, *p)
	}
	return packets, rows.Err()
}

// SetRevoked flips the revoked flag. Idempotent: revoking an already
// revoked packet is a no-op success. The flag never reverts.
func (s *SharePacketStore) SetRevoked(id string) error {
	_, err := s.db.Exec(`UPDATE share_packets SET revoked = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("revoke share packet: %w", err)
	}
	return nil
}

// IncrementViews adds one to the view counter as a single atomic update,
// never a read-modify-write, so concurrent grants cannot lose counts.
func (s *SharePacketStore) IncrementViews(id string) error {
	_, err := s.db.Exec(`UPDATE share_packets SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("increment share packet views: %w", err)
	}
	return nil
}
