package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/overhill/internal/model"
)

type BehaviorLogStore struct {
	db *sql.DB
}

func NewBehaviorLogStore(db *sql.DB) *BehaviorLogStore {
	return &BehaviorLogStore{db: db}
}

func scanBehaviorLog(scanner interface{ Scan(...any) error }) (*model.BehaviorLog, error) {
	var l model.BehaviorLog
	err := scanner.Scan(
		&l.ID, &l.ChildID, &l.Behavior, &l.Antecedent, &l.Intensity,
		&l.Notes, &l.OccurredAt, &l.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

const behaviorLogCols = `id, child_id, behavior, antecedent, intensity, notes, occurred_at, created_at`

func (s *BehaviorLogStore) Create(childID int64, behavior, antecedent string, intensity int, notes string, occurredAt time.Time) (*model.BehaviorLog, error) {
	result, err := s.db.Exec(
		`INSERT INTO behavior_logs (child_id, behavior, antecedent, intensity, notes, occurred_at) VALUES (?, ?, ?, ?, ?, ?)`,
		childID, behavior, antecedent, intensity, notes, occurredAt.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert behavior log: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *BehaviorLogStore) GetByID(id int64) (*model.BehaviorLog, error) {
	row := s.db.QueryRow(`SELECT `+behaviorLogCols+` FROM behavior_logs WHERE id = ?`, id)
	l, err := scanBehaviorLog(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get behavior log: %w", err)
	}
	return l, nil
}

// ListRecentByChild returns the most recent logs for a child, newest first,
// capped at limit. This is the selection the share snapshot uses.
func (s *BehaviorLogStore) ListRecentByChild(childID int64, limit int) ([]model.BehaviorLog, error) {
	rows, err := s.db.Query(
		`SELECT `+behaviorLogCols+` FROM behavior_logs WHERE child_id = ? ORDER BY occurred_at DESC LIMIT ?`,
		childID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list recent behavior logs: %w", err)
	}
	defer rows.Close()

	var logs []model.BehaviorLog
	for rows.Next() {
		l, err := scanBehaviorLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan behavior log: %w", err)
		}
		logs = append(logs, *l)
	}
	return logs, rows.Err()
}

func (s *BehaviorLogStore) Update(id int64, behavior, antecedent string, intensity int, notes string, occurredAt time.Time) (*model.BehaviorLog, error) {
	_, err := s.db.Exec(
		`UPDATE behavior_logs SET behavior = ?, antecedent = ?, intensity = ?, notes = ?, occurred_at = ? WHERE id = ?`,
		behavior, antecedent, intensity, notes, occurredAt.UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update behavior log: %w", err)
	}
	return s.GetByID(id)
}

func (s *BehaviorLogStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM behavior_logs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete behavior log: %w", err)
	}
	return nil
}
