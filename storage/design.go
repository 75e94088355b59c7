package storage

import (
	"database/sql"
	"fmt"
)

// CreateDesign.
func (s *Store) CreateDesign(d *Design) error {
	query := `INSERT INTO designs (id, name, description) VALUES (?, ?, ?)`
	_, err := s.db.Exec(query, d.ID, d.Name, d.Description)
	if err != nil {
		return fmt.Errorf("failed to create design: %w", err)
	}
	return nil
}

// GetDesignByID
func (s *Store) GetDesignByID(id string) (*Design, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM designs WHERE id = ?`
	row := s.db.QueryRow(query, id)

	d := &Design{}
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get design by id: %w", err)
	}
	return d, nil
}

// GetDesignByName
func (s *Store) GetDesignByName(name string) (*Design, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM designs WHERE name = ?`
	row := s.db.QueryRow(query, name)

	d := &Design{}
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get design by name: %w", err)
	}
	return d, nil
}

// GetAllDesigns
func (s *Store) GetAllDesigns() ([]Design, error) {
	query := `SELECT id, name, description, created_at, updated_at FROM designs ORDER BY created_at DESC`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all designs: %w", err)
	}
	defer rows.Close()

	var designs []Design
	for rows.Next() {
		var d Design
		if err := rows.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan design row: %w", err)
		}
		designs = append(designs, d)
	}
	return designs, nil
}

// GetAllDesignInfos returns all designs together with their topology entity counts.
func (s *Store) GetAllDesignInfos() ([]DesignInfo, error) {
	query := `
		SELECT
			d.id, d.name, d.description, d.created_at, d.updated_at,
			(SELECT COUNT(*) FROM exchanges e WHERE e.design_id = d.id),
			(SELECT COUNT(*) FROM queues q WHERE q.design_id = d.id),
			(SELECT COUNT(*) FROM bindings b WHERE b.design_id = d.id),
			(SELECT COUNT(*) FROM policies p WHERE p.design_id = d.id)
		FROM designs d
		ORDER BY d.created_at DESC
	`
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to get design infos: %w", err)
	}
	defer rows.Close()

	var infos []DesignInfo
	for rows.Next() {
		var info DesignInfo
		if err := rows.Scan(
			&info.ID, &info.Name, &info.Description, &info.CreatedAt, &info.UpdatedAt,
			&info.Exchanges, &info.Queues, &info.Bindings, &info.Policies,
		); err != nil {
			return nil, fmt.Errorf("failed to scan design info row: %w", err)
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// UpdateDesign
func (s *Store) UpdateDesign(d *Design) error {
	query := `UPDATE designs SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := s.db.Exec(query, d.Name, d.Description, d.ID)
	if err != nil {
		return fmt.Errorf("failed to update design: %w", err)
	}
	return nil
}

// TouchDesign обновляет updated_at после изменения топологии.
func (s *Store) TouchDesign(id string) error {
	query := `UPDATE designs SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	_, err := s.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to touch design: %w", err)
	}
	return nil
}

// DeleteDesign удаляет дизайн по ID, а также все связанные сущности.
func (s *Store) DeleteDesign(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	// 1. Удаляем связанные сущности топологии
	for _, table := range []string{"bindings", "exchanges", "queues", "policies"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE design_id = ?", id); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to delete associated %s: %w", table, err)
		}
	}

	// 2. Удаляем генераторы и снимки
	if _, err := tx.Exec("DELETE FROM generators WHERE design_id = ?", id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete associated generators: %w", err)
	}
	if _, err := tx.Exec("DELETE FROM snapshots WHERE design_id = ?", id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete associated snapshots: %w", err)
	}

	// 3. Удаляем сам дизайн
	if _, err := tx.Exec("DELETE FROM designs WHERE id = ?", id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("failed to delete design: %w", err)
	}

	return tx.Commit()
}
