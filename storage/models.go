package storage

import "time"

// Design
type Design struct {
	ID          string
	Name        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// DesignInfo
type DesignInfo struct {
	Design
	Exchanges int
	Queues    int
	Bindings  int
	Policies  int
}

// Generator represents a scheduled job that publishes simulated traffic.
type Generator struct {
	ID        string
	DesignID  string
	Name      string
	Schedule  string // Cron string
	Engine    string // "javascript" or "starlark"
	Script    string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Snapshot is a saved definitions document of a design at a point in time.
type Snapshot struct {
	ID        string
	DesignID  string
	Document  string // Definitions JSON
	CreatedAt time.Time
}
