package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store - абстракция хранилища данных, использующая SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore создает и возвращает новый экземпляр Store.
func NewStore(dbPath string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	store := &Store{
		db:     db,
		logger: logger,
	}

	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	logger.Info("database initialized and migrated successfully", "path", dbPath)
	return store, nil
}

// migrate создает необходимые таблицы.
func (s *Store) migrate() error {
	createDesignsTable := `
	CREATE TABLE IF NOT EXISTS designs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		description TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);`
	if _, err := s.db.Exec(createDesignsTable); err != nil {
		return fmt.Errorf("failed to create designs table: %w", err)
	}

	createExchangesTable := `
	CREATE TABLE IF NOT EXISTS exchanges (
		design_id TEXT NOT NULL,
		name TEXT NOT NULL,
		kind TEXT NOT NULL,
		durable INTEGER NOT NULL DEFAULT 0,
		auto_delete INTEGER NOT NULL DEFAULT 0,
		internal INTEGER NOT NULL DEFAULT 0,
		alternate_exchange TEXT NOT NULL DEFAULT '',
		args TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (design_id, name),
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
	);`
	if _, err := s.db.Exec(createExchangesTable); err != nil {
		return fmt.Errorf("failed to create exchanges table: %w", err)
	}

	createQueuesTable := `
	CREATE TABLE IF NOT EXISTS queues (
		design_id TEXT NOT NULL,
		name TEXT NOT NULL,
		durable INTEGER NOT NULL DEFAULT 0,
		exclusive INTEGER NOT NULL DEFAULT 0,
		auto_delete INTEGER NOT NULL DEFAULT 0,
		max_length INTEGER NOT NULL DEFAULT 0,
		args TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (design_id, name),
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
	);`
	if _, err := s.db.Exec(createQueuesTable); err != nil {
		return fmt.Errorf("failed to create queues table: %w", err)
	}

	createBindingsTable := `
	CREATE TABLE IF NOT EXISTS bindings (
		id TEXT PRIMARY KEY,
		design_id TEXT NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		routing_key TEXT NOT NULL DEFAULT '',
		args TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
	);`
	if _, err := s.db.Exec(createBindingsTable); err != nil {
		return fmt.Errorf("failed to create bindings table: %w", err)
	}

	createPoliciesTable := `
	CREATE TABLE IF NOT EXISTS policies (
		design_id TEXT NOT NULL,
		name TEXT NOT NULL,
		pattern TEXT NOT NULL,
		apply_to TEXT NOT NULL,
		priority INTEGER NOT NULL DEFAULT 0,
		definition TEXT NOT NULL DEFAULT '{}',
		PRIMARY KEY (design_id, name),
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
	);`
	if _, err := s.db.Exec(createPoliciesTable); err != nil {
		return fmt.Errorf("failed to create policies table: %w", err)
	}

	createGeneratorsTable := `
	CREATE TABLE IF NOT EXISTS generators (
		id TEXT PRIMARY KEY,
		design_id TEXT NOT NULL,
		name TEXT NOT NULL,
		schedule TEXT NOT NULL,
		engine TEXT NOT NULL,
		script TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE,
		UNIQUE(design_id, name)
	);`
	if _, err := s.db.Exec(createGeneratorsTable); err != nil {
		return fmt.Errorf("failed to create generators table: %w", err)
	}

	createSnapshotsTable := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id TEXT PRIMARY KEY,
		design_id TEXT NOT NULL,
		document TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (design_id) REFERENCES designs(id) ON DELETE CASCADE
	);`
	if _, err := s.db.Exec(createSnapshotsTable); err != nil {
		return fmt.Errorf("failed to create snapshots table: %w", err)
	}

	createSettingsTable := `
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`
	if _, err := s.db.Exec(createSettingsTable); err != nil {
		return fmt.Errorf("failed to create settings table: %w", err)
	}

	s.logger.Info("database migration completed")
	return nil
}

// Close закрывает соединение с базой данных.
func (s *Store) Close() error {
	return s.db.Close()
}
