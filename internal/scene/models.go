package scene

import "time"

// NodeID is the stable handle of a persisted node.
type NodeID string

// Node is one persisted scene-graph entry. Parent is empty for roots.
type Node struct {
	ID        NodeID
	Kind      string
	Name      string
	Parent    NodeID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HealthSummary aggregates node counts for diagnostic output.
type HealthSummary struct {
	Total  int
	ByKind map[string]int
}

// DatabaseHealth reports diagnostic information about the scene database.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	TableExists      bool
	NodeCount        int64
	JournalMode      string
	IntegrityOK      bool
	Error            string
}
