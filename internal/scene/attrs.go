package scene

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SetAttr stores one attribute on a node. Values are marshaled to JSON so
// callers can persist strings, numbers, booleans, and nested documents with
// the same call.
func (s *Store) SetAttr(ctx context.Context, id NodeID, key string, value any) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("attribute key is required")
	}
	exists, err := s.NodeExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal attribute %s: %w", key, err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO node_attrs (node_id, key, value)
         VALUES (?, ?, ?)
         ON CONFLICT(node_id, key) DO UPDATE SET value = excluded.value`,
		string(id), key, string(payload))
	if err != nil {
		return fmt.Errorf("set attribute %s: %w", key, err)
	}
	return s.touchNode(ctx, id)
}

// SetAttrs stores several attributes in one transaction.
func (s *Store) SetAttrs(ctx context.Context, id NodeID, attrs map[string]any) error {
	if len(attrs) == 0 {
		return nil
	}
	exists, err := s.NodeExists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin attribute batch: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for key, value := range attrs {
		key = strings.TrimSpace(key)
		if key == "" {
			return errors.New("attribute key is required")
		}
		payload, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal attribute %s: %w", key, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO node_attrs (node_id, key, value)
             VALUES (?, ?, ?)
             ON CONFLICT(node_id, key) DO UPDATE SET value = excluded.value`,
			string(id), key, string(payload)); err != nil {
			return fmt.Errorf("set attribute %s: %w", key, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit attribute batch: %w", err)
	}
	return s.touchNode(ctx, id)
}

// Attr fetches one attribute's raw JSON. The boolean reports presence so
// callers can tell a missing key from a stored null.
func (s *Store) Attr(ctx context.Context, id NodeID, key string) (json.RawMessage, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM node_attrs WHERE node_id = ? AND key = ?",
		string(id), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("query attribute %s: %w", key, err)
	}
	return json.RawMessage(value), true, nil
}

// AttrString reads a string attribute. Missing keys return the empty string.
func (s *Store) AttrString(ctx context.Context, id NodeID, key string) (string, error) {
	raw, ok, err := s.Attr(ctx, id, key)
	if err != nil || !ok {
		return "", err
	}
	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return value, nil
}

// AttrBool reads a boolean attribute. Missing keys return false.
func (s *Store) AttrBool(ctx context.Context, id NodeID, key string) (bool, error) {
	raw, ok, err := s.Attr(ctx, id, key)
	if err != nil || !ok {
		return false, err
	}
	var value bool
	if err := json.Unmarshal(raw, &value); err != nil {
		return false, fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return value, nil
}

// AttrInt reads an integer attribute. Missing keys return zero.
func (s *Store) AttrInt(ctx context.Context, id NodeID, key string) (int, error) {
	raw, ok, err := s.Attr(ctx, id, key)
	if err != nil || !ok {
		return 0, err
	}
	var value int
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return value, nil
}

// AttrFloat reads a float attribute. Missing keys return zero.
func (s *Store) AttrFloat(ctx context.Context, id NodeID, key string) (float64, error) {
	raw, ok, err := s.Attr(ctx, id, key)
	if err != nil || !ok {
		return 0, err
	}
	var value float64
	if err := json.Unmarshal(raw, &value); err != nil {
		return 0, fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return value, nil
}

// AttrJSON decodes an attribute into the caller's value. The boolean reports
// whether the key existed.
func (s *Store) AttrJSON(ctx context.Context, id NodeID, key string, out any) (bool, error) {
	raw, ok, err := s.Attr(ctx, id, key)
	if err != nil || !ok {
		return ok, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return true, fmt.Errorf("decode attribute %s: %w", key, err)
	}
	return true, nil
}

// Attrs returns every attribute on a node keyed by name.
func (s *Store) Attrs(ctx context.Context, id NodeID) (map[string]json.RawMessage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM node_attrs WHERE node_id = ?", string(id))
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()

	attrs := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		attrs[key] = json.RawMessage(value)
	}
	return attrs, rows.Err()
}

// DeleteAttr removes one attribute. Deleting a missing key is not an error.
func (s *Store) DeleteAttr(ctx context.Context, id NodeID, key string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM node_attrs WHERE node_id = ? AND key = ?", string(id), key)
	if err != nil {
		return fmt.Errorf("delete attribute %s: %w", key, err)
	}
	return nil
}

func (s *Store) touchNode(ctx context.Context, id NodeID) error {
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx,
		"UPDATE nodes SET updated_at = ? WHERE id = ?", timestamp, string(id))
	if err != nil {
		return fmt.Errorf("touch node: %w", err)
	}
	return nil
}
