package store

import (
	"database/sql"
	"fmt"

	"github.com/dukerupert/overhill/internal/model"
)

type ChildStore struct {
	db *sql.DB
}

func NewChildStore(db *sql.DB) *ChildStore {
	return &ChildStore{db: db}
}

func scanChild(scanner interface{ Scan(...any) error }) (*model.Child, error) {
	var c model.Child
	var birthYear sql.NullInt64

	err := scanner.Scan(&c.ID, &c.HouseholdID, &c.Name, &birthYear, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if birthYear.Valid {
		year := int(birthYear.Int64)
		c.BirthYear = &year
	}
	return &c, nil
}

const childCols = `id, household_id, name, birth_year, created_at, updated_at`

func (s *ChildStore) Create(householdID int64, name string, birthYear *int) (*model.Child, error) {
	var by sql.NullInt64
	if birthYear != nil {
		by = sql.NullInt64{Int64: int64(*birthYear), Valid: true}
	}

	result, err := s.db.Exec(
		`INSERT INTO children (household_id, name, birth_year) VALUES (?, ?, ?)`,
		householdID, name, by,
	)
	if err != nil {
		return nil, fmt.Errorf("insert child: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) GetByID(id int64) (*model.Child, error) {
	row := s.db.QueryRow(`SELECT `+childCols+` FROM children WHERE id = ?`, id)
	c, err := scanChild(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get child: %w", err)
	}
	return c, nil
}

func (s *ChildStore) ListByHousehold(householdID int64) ([]model.Child, error) {
	rows, err := s.db.Query(`SELECT `+childCols+` FROM children WHERE household_id = ? ORDER BY name`, householdID)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer rows.Close()

	var children []model.Child
	for rows.Next() {
		c, err := scanChild(rows)
		if err != nil {
			return nil, fmt.Errorf("scan child: %w", err)
		}
		children = append(children, *c)
	}
	return children, rows.Err()
}

func (s *ChildStore) Update(id int64, name string, birthYear *int) (*model.Child, error) {
	var by sql.NullInt64
	if birthYear != nil {
		by = sql.NullInt64{Int64: int64(*birthYear), Valid: true}
	}

	_, err := s.db.Exec(
		`UPDATE children SET name = ?, birth_year = ?, updated_at = datetime('now') WHERE id = ?`,
		name, by, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update child: %w", err)
	}
	return s.GetByID(id)
}

func (s *ChildStore) Delete(id int64) error {
	_, err := s.db.Exec(`DELETE FROM children WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete child: %w", err)
	}
	return nil
}
