package scene

import (
	"context"
	"fmt"
	"os"
	"time"
)

// Stats summarizes the persisted scene graph for status displays.
func (s *Store) Stats(ctx context.Context) (*HealthSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM nodes GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("query node stats: %w", err)
	}
	defer rows.Close()

	summary := &HealthSummary{ByKind: make(map[string]int)}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan node stats: %w", err)
		}
		summary.ByKind[kind] = count
		summary.Total += count
	}
	return summary, rows.Err()
}

// CheckHealth inspects the scene database and reports what it finds rather
// than failing on the first problem.
func (s *Store) CheckHealth(ctx context.Context) *DatabaseHealth {
	health := &DatabaseHealth{DBPath: s.path}

	info, err := os.Stat(s.path)
	if err != nil {
		health.Error = fmt.Sprintf("database file: %v", err)
		return health
	}
	health.DatabaseExists = info.Mode().IsRegular()

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		health.Error = fmt.Sprintf("database ping: %v", err)
		return health
	}
	health.DatabaseReadable = true

	var tableName string
	err = s.db.QueryRowContext(ctx,
		"SELECT name FROM sqlite_master WHERE type='table' AND name='nodes'").Scan(&tableName)
	if err != nil {
		health.Error = fmt.Sprintf("nodes table: %v", err)
		return health
	}
	health.TableExists = tableName == "nodes"

	if err := s.db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&health.JournalMode); err != nil {
		health.Error = fmt.Sprintf("journal mode: %v", err)
		return health
	}

	var integrity string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	health.IntegrityOK = integrity == "ok"
	if !health.IntegrityOK {
		health.Error = fmt.Sprintf("integrity check: %s", integrity)
		return health
	}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM nodes").Scan(&health.NodeCount); err != nil {
		health.Error = fmt.Sprintf("node count: %v", err)
	}
	return health
}
