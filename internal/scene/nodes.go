package scene

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const nodeColumns = "id, kind, name, parent_id, created_at, updated_at"

// CreateNode inserts a root-level node of the given kind and returns it.
func (s *Store) CreateNode(ctx context.Context, kind, name string) (*Node, error) {
	return s.CreateChildNode(ctx, kind, name, "")
}

// CreateChildNode inserts a node parented under the given handle. An empty
// parent creates a root-level node.
func (s *Store) CreateChildNode(ctx context.Context, kind, name string, parent NodeID) (*Node, error) {
	kind = strings.TrimSpace(kind)
	name = strings.TrimSpace(name)
	if kind == "" {
		return nil, errors.New("node kind is required")
	}
	if name == "" {
		return nil, errors.New("node name is required")
	}
	if parent != "" {
		exists, err := s.NodeExists(ctx, parent)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: parent %s", ErrNodeNotFound, parent)
		}
	}

	id := NodeID(uuid.NewString())
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO nodes (id, kind, name, parent_id, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		string(id),
		kind,
		name,
		nullableNodeID(parent),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert node: %w", err)
	}

	return s.Node(ctx, id)
}

// Node fetches a node by handle. Returns (nil, nil) when the node does not exist.
func (s *Store) Node(ctx context.Context, id NodeID) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, string(id))
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query node: %w", err)
	}
	return node, nil
}

// NodeExists reports whether the handle still resolves to a persisted node.
func (s *Store) NodeExists(ctx context.Context, id NodeID) (bool, error) {
	if id == "" {
		return false, nil
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM nodes WHERE id = ?", string(id)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check node: %w", err)
	}
	return count > 0, nil
}

// DeleteNode removes a node. Children and attributes cascade.
func (s *Store) DeleteNode(ctx context.Context, id NodeID) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete node rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// RenameNode updates a node's name.
func (s *Store) RenameNode(ctx context.Context, id NodeID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("node name is required")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET name = ?, updated_at = ? WHERE id = ?",
		name, timestamp, string(id))
	if err != nil {
		return fmt.Errorf("rename node: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rename node rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// SetParent moves a node under a new parent. An empty parent detaches the
// node to the root level. Reparenting under the node's own subtree fails.
func (s *Store) SetParent(ctx context.Context, id NodeID, parent NodeID) error {
	if id == "" {
		return fmt.Errorf("%w: empty handle", ErrNodeNotFound)
	}
	if parent != "" {
		if parent == id {
			return fmt.Errorf("node %s cannot parent itself", id)
		}
		ancestor := parent
		for ancestor != "" {
			node, err := s.Node(ctx, ancestor)
			if err != nil {
				return err
			}
			if node == nil {
				return fmt.Errorf("%w: parent %s", ErrNodeNotFound, parent)
			}
			if node.Parent == id {
				return fmt.Errorf("reparenting %s under %s would create a cycle", id, parent)
			}
			ancestor = node.Parent
		}
	}

	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET parent_id = ?, updated_at = ? WHERE id = ?",
		nullableNodeID(parent), timestamp, string(id))
	if err != nil {
		return fmt.Errorf("set node parent: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set node parent rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// Parent returns a node's parent, or (nil, nil) at the root.
func (s *Store) Parent(ctx context.Context, id NodeID) (*Node, error) {
	node, err := s.Node(ctx, id)
	if err != nil {
		return nil, err
	}
	if node == nil {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	if node.Parent == "" {
		return nil, nil
	}
	return s.Node(ctx, node.Parent)
}

// Children lists a node's direct children in creation order.
func (s *Store) Children(ctx context.Context, id NodeID) ([]*Node, error) {
	return s.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY rowid`, string(id))
}

// ChildrenByKind lists a node's direct children of one kind in creation order.
func (s *Store) ChildrenByKind(ctx context.Context, id NodeID, kind string) ([]*Node, error) {
	return s.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? AND kind = ? ORDER BY rowid`,
		string(id), kind)
}

// NodesByKind lists every node of one kind in creation order. This is the
// typed walk the engine uses to discover rig roots and components.
func (s *Store) NodesByKind(ctx context.Context, kind string) ([]*Node, error) {
	return s.queryNodes(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE kind = ? ORDER BY rowid`, kind)
}

// FindChild returns the first direct child carrying the given name, or
// (nil, nil) when no child matches.
func (s *Store) FindChild(ctx context.Context, id NodeID, name string) (*Node, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? AND name = ? ORDER BY rowid LIMIT 1`,
		string(id), name)
	node, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find child: %w", err)
	}
	return node, nil
}

func (s *Store) queryNodes(ctx context.Context, query string, args ...any) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query nodes: %w", err)
	}
	defer rows.Close()

	var nodes []*Node
	for rows.Next() {
		node, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		nodes = append(nodes, node)
	}
	return nodes, rows.Err()
}

func scanNode(scanner interface{ Scan(dest ...any) error }) (*Node, error) {
	var (
		id         string
		kind       string
		name       string
		parent     sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&id, &kind, &name, &parent, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}

	node := &Node{
		ID:     NodeID(id),
		Kind:   kind,
		Name:   name,
		Parent: NodeID(parent.String),
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		node.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		node.UpdatedAt = updated
	}
	return node, nil
}

func nullableNodeID(id NodeID) any {
	if id == "" {
		return nil
	}
	return string(id)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
