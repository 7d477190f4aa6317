package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// PutVariable inserts or overwrites one (scope, name) binding.
func (s *Store) PutVariable(ctx context.Context, v ir.VariableEntry) error {
	ghost := 0
	if v.IsGhost {
		ghost = 1
	}
	_, err := s.exec(ctx, `
		INSERT INTO variables (scope, name, value, node_id, is_ghost) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(scope, name) DO UPDATE SET value = excluded.value, node_id = excluded.node_id, is_ghost = excluded.is_ghost
	`, v.Scope, v.Name, v.Value, v.NodeID, ghost)
	if err != nil {
		return fmt.Errorf("put variable %s/%s: %w", v.Scope, v.Name, err)
	}
	return nil
}

// GetVariable looks up one exact (scope, name) pair. Returns (zero, false,
// nil) if absent.
func (s *Store) GetVariable(ctx context.Context, scope, name string) (ir.VariableEntry, bool, error) {
	row := s.conn().QueryRowContext(ctx, `
		SELECT scope, name, value, node_id, is_ghost FROM variables WHERE scope = ? AND name = ?
	`, scope, name)
	v, err := scanVariable(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.VariableEntry{}, false, nil
	}
	if err != nil {
		return ir.VariableEntry{}, false, fmt.Errorf("get variable %s/%s: %w", scope, name, err)
	}
	return v, true, nil
}

func scanVariable(row interface{ Scan(...any) error }) (ir.VariableEntry, error) {
	var v ir.VariableEntry
	var ghost int
	if err := row.Scan(&v.Scope, &v.Name, &v.Value, &v.NodeID, &ghost); err != nil {
		return ir.VariableEntry{}, err
	}
	v.IsGhost = ghost != 0
	return v, nil
}

// DeleteVariable removes one binding, if present.
func (s *Store) DeleteVariable(ctx context.Context, scope, name string) error {
	if _, err := s.exec(ctx, `DELETE FROM variables WHERE scope = ? AND name = ?`, scope, name); err != nil {
		return fmt.Errorf("delete variable %s/%s: %w", scope, name, err)
	}
	return nil
}

// VariablesInScope returns every binding under the given scope, ordered by
// name, for diagnostics and export.
func (s *Store) VariablesInScope(ctx context.Context, scope string) ([]ir.VariableEntry, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT scope, name, value, node_id, is_ghost FROM variables WHERE scope = ? ORDER BY name
	`, scope)
	if err != nil {
		return nil, fmt.Errorf("variables in scope %s: %w", scope, err)
	}
	defer rows.Close()
	var out []ir.VariableEntry
	for rows.Next() {
		v, err := scanVariable(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
