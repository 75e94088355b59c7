package storage

import (
	"database/sql"
	"fmt"
)

// CreateGenerator creates a new traffic generator in the database.
func (s *Store) CreateGenerator(g *Generator) error {
	query := `INSERT INTO generators (id, design_id, name, schedule, engine, script, enabled) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.Exec(query, g.ID, g.DesignID, g.Name, g.Schedule, g.Engine, g.Script, g.Enabled)
	if err != nil {
		return fmt.Errorf("failed to create generator: %w", err)
	}
	return nil
}

// GetGeneratorByID retrieves a generator by its ID.
func (s *Store) GetGeneratorByID(id string) (*Generator, error) {
	query := `SELECT id, design_id, name, schedule, engine, script, enabled, created_at, updated_at FROM generators WHERE id = ?`
	row := s.db.QueryRow(query, id)

	g := &Generator{}
	err := row.Scan(&g.ID, &g.DesignID, &g.Name, &g.Schedule, &g.Engine, &g.Script, &g.Enabled, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get generator by ID: %w", err)
	}
	return g, nil
}

// GetGeneratorsByDesignID retrieves all generators for a given design ID.
func (s *Store) GetGeneratorsByDesignID(designID string) ([]Generator, error) {
	query := `SELECT id, design_id, name, schedule, engine, script, enabled, created_at, updated_at FROM generators WHERE design_id = ? ORDER BY created_at DESC`
	rows, err := s.db.Query(query, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to get generators by design id: %w", err)
	}
	defer rows.Close()

	var generators []Generator
	for rows.Next() {
		var g Generator
		if err := rows.Scan(&g.ID, &g.DesignID, &g.Name, &g.Schedule, &g.Engine, &g.Script, &g.Enabled, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generator row: %w", err)
		}
		generators = append(generators, g)
	}
	return generators, nil
}

// GetAllGenerators retrieves all generators from the database.
func (s *Store) GetAllGenerators() ([]Generator, error) {
	query := `SELECT id, design_id, name, schedule, engine, script, enabled, created_at, updated_at FROM generators ORDER BY created_at DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all generators: %w", err)
	}
	defer rows.Close()

	var generators []Generator
	for rows.Next() {
		var g Generator
		if err := rows.Scan(&g.ID, &g.DesignID, &g.Name, &g.Schedule, &g.Engine, &g.Script, &g.Enabled, &g.CreatedAt, &g.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan generator row: %w", err)
		}
		generators = append(generators, g)
	}
	return generators, nil
}

// UpdateGenerator updates an existing generator in the database.
func (s *Store) UpdateGenerator(g *Generator) error {
	query := `UPDATE generators SET name = ?, schedule = ?, engine = ?, script = ?, enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := s.db.Exec(query, g.Name, g.Schedule, g.Engine, g.Script, g.Enabled, g.ID)
	if err != nil {
		return fmt.Errorf("failed to update generator: %w", err)
	}
	return nil
}

// DeleteGenerator deletes a generator by its ID.
func (s *Store) DeleteGenerator(id string) error {
	query := `DELETE FROM generators WHERE id = ?`
	_, err := s.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to delete generator: %w", err)
	}
	return nil
}
