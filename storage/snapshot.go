package storage

import (
	"database/sql"
	"fmt"
)

// CreateSnapshot stores a definitions document for a design.
func (s *Store) CreateSnapshot(sn *Snapshot) error {
	query := `INSERT INTO snapshots (id, design_id, document) VALUES (?, ?, ?)`
	_, err := s.db.Exec(query, sn.ID, sn.DesignID, sn.Document)
	if err != nil {
		return fmt.Errorf("failed to create snapshot: %w", err)
	}
	return nil
}

// GetSnapshotByID retrieves a snapshot by its ID.
func (s *Store) GetSnapshotByID(id string) (*Snapshot, error) {
	query := `SELECT id, design_id, document, created_at FROM snapshots WHERE id = ?`
	row := s.db.QueryRow(query, id)

	sn := &Snapshot{}
	err := row.Scan(&sn.ID, &sn.DesignID, &sn.Document, &sn.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get snapshot by ID: %w", err)
	}
	return sn, nil
}

// GetSnapshotsByDesignID retrieves all snapshots for a design, newest first.
func (s *Store) GetSnapshotsByDesignID(designID string) ([]Snapshot, error) {
	query := `SELECT id, design_id, document, created_at FROM snapshots WHERE design_id = ? ORDER BY created_at DESC, rowid DESC`
	rows, err := s.db.Query(query, designID)
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshots by design id: %w", err)
	}
	defer rows.Close()

	var snapshots []Snapshot
	for rows.Next() {
		var sn Snapshot
		if err := rows.Scan(&sn.ID, &sn.DesignID, &sn.Document, &sn.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		snapshots = append(snapshots, sn)
	}
	return snapshots, nil
}

// PruneSnapshots deletes all but the keep most recent snapshots of a design
// and returns how many were removed.
func (s *Store) PruneSnapshots(designID string, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	query := `DELETE FROM snapshots WHERE design_id = ? AND id NOT IN (
		SELECT id FROM snapshots WHERE design_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?)`
	res, err := s.db.Exec(query, designID, designID, keep)
	if err != nil {
		return 0, fmt.Errorf("failed to prune snapshots: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rowsAffected, nil
}
