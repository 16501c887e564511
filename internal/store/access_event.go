package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/overhill/internal/model"
)

// AccessEventStore appends one audit row per gate evaluation against a
// known packet. Rows are never updated or deleted.
type AccessEventStore struct {
	db *sql.DB
}

func NewAccessEventStore(db *sql.DB) *AccessEventStore {
	return &AccessEventStore{db: db}
}

func scanAccessEvent(scanner interface{ Scan(...any) error }) (*model.ShareAccessEvent, error) {
	var e model.ShareAccessEvent
	err := scanner.Scan(&e.ID, &e.PacketID, &e.Outcome, &e.RemoteIP, &e.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

const accessEventCols = `id, packet_id, outcome, remote_ip, created_at`

func (s *AccessEventStore) Record(packetID, outcome, remoteIP string) error {
	_, err := s.db.Exec(
		`INSERT INTO share_access_events (packet_id, outcome, remote_ip) VALUES (?, ?, ?)`,
		packetID, outcome, remoteIP,
	)
	if err != nil {
		return fmt.Errorf("record access event: %w", err)
	}
	return nil
}

// ListByPacket returns the full access history for a packet, newest first.
func (s *AccessEventStore) ListByPacket(packetID string) ([]model.ShareAccessEvent, error) {
	rows, err := s.db.Query(
		`SELECT `+accessEventCols+` FROM share_access_events WHERE packet_id = ? ORDER BY created_at DESC, id DESC`,
		packetID,
	)
	if err != nil {
		return nil, fmt.Errorf("list access events: %w", err)
	}
	defer rows.Close()

	var events []model.ShareAccessEvent
	for rows.Next() {
		e, err := scanAccessEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan access event: %w", err)
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}
