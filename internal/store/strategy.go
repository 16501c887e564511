package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/overhill/internal/model"
)

type StrategyStore struct {
	db *sql.DB
}

func NewStrategyStore(db *sql.DB) *StrategyStore {
	return &StrategyStore{db: db}
}

func scanStrategy(scanner interface{ Scan(...any) error }) (*model.Strategy, error) {
	var st model.Strategy
	var active int

	err := scanner.Scan(&st.ID, &st.ChildID, &st.Title, &st.Description, &active, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		return nil, err
	}

	st.Active = active != 0
	return &st, nil
}

const strategyCols = `id, child_id, title, description, active, created_at, updated_at`

func (s *StrategyStore) Create(childID int64, title, description string) (*model.Strategy, error) {
	result, err := s.db.Exec(
		`INSERT INTO strategies (child_id, title, description) VALUES (?, ?, ?)`,
		childID, title, description,
	)
	if err != nil {
		return nil, fmt.Errorf("insert strategy: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *StrategyStore) GetByID(id int64) (*model.Strategy, error) {
	row := s.db.QueryRow(`SELECT `+strategyCols+` FROM strategies WHERE id = ?`, id)
	st, err := scanStrategy(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get strategy: %w", err)
	}
	return st, nil
}

func (s *StrategyStore) ListByChild(childID int64) ([]model.Strategy, error) {
	return s.list(`SELECT `+strategyCols+` FROM strategies WHERE child_id = ? ORDER BY created_at DESC`, childID)
}

// ListActiveByChild returns only the strategies currently in use; this is
// the set frozen into share snapshots.
func (s *StrategyStore) ListActiveByChild(childID int64) ([]model.Strategy, error) {
	return s.list(`SELECT `+strategyCols+` FROM strategies WHERE child_id = ? AND active = 1 ORDER BY created_at DESC`, childID)
}

func (s *StrategyStore) list(query string, args ...any) ([]model.Strategy, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	var strategies []model.Strategy
	for rows.Next() {
		st, err := scanStrategy(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		strategies = append(strategies, *st)
	}
	return strategies, rows.Err()
}

func (s *StrategyStore) Update(id int64, title, description string, active bool) (*model.Strategy, error) {
	a := 0
	if active {
		a = 1
	}

	_, err := s.db.Exec(
		`UPDATE strategies SET title = ?, description = ?, active = ?, updated_at = datetime('now') WHERE id = ?`,
		title, description, a, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update strategy: %w", err)
	}
	return s.GetByID(id)
}

func (s *StrategyStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM strategies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete strategy: %w", err)
	}
	return nil
}
