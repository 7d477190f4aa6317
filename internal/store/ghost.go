package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// GhostCandidates returns every node of type ghost that currently has no
// incident links and no variable binding pointing at it, found by a
// full-table query. Ordered by id. The commit-time reaper (component H)
// does not call it; it checks its own candidates with EligibleForReap.
func (s *Store) GhostCandidates(ctx context.Context) ([]ir.Node, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE type = ?
		  AND id NOT IN (SELECT from_id FROM links)
		  AND id NOT IN (SELECT to_id FROM links)
		  AND id NOT IN (SELECT node_id FROM variables)
		ORDER BY id
	`, ir.TypeGhost.String())
	if err != nil {
		return nil, fmt.Errorf("ghost candidates: %w", err)
	}
	defer rows.Close()
	var out []ir.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NodesByType returns every node of the given type, ordered by id. Used
// by exports (component-adjacent tooling, not a hot path) that need the
// full set of e.g. command nodes rather than a single id's neighborhood.
func (s *Store) NodesByType(ctx context.Context, typ ir.NodeType) ([]ir.Node, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes WHERE type = ? ORDER BY id
	`, typ.String())
	if err != nil {
		return nil, fmt.Errorf("nodes by type %s: %w", typ, err)
	}
	defer rows.Close()
	var out []ir.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// EligibleForReap reports whether id is a ghost node with zero incident
// links and no variable entry pointing at it - the commit-time reaper's
// per-candidate check (component H). Unlike GhostCandidates, this never
// scans the nodes/links tables; it probes only rows touching id, so
// calling it once per id collected during a transaction costs O(1)
// indexed lookups rather than a table scan.
func (s *Store) EligibleForReap(ctx context.Context, id ir.Tupid) (bool, error) {
	n, ok, err := s.GetNode(ctx, id)
	if err != nil {
		return false, fmt.Errorf("eligible for reap %d: %w", id, err)
	}
	if !ok || n.Type != ir.TypeGhost {
		return false, nil
	}

	var one int
	err = s.conn().QueryRowContext(ctx, `
		SELECT 1 WHERE EXISTS (SELECT 1 FROM links WHERE from_id = ? OR to_id = ?)
	`, id, id).Scan(&one)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("eligible for reap %d: link probe: %w", id, err)
	}

	err = s.conn().QueryRowContext(ctx, `
		SELECT 1 WHERE EXISTS (SELECT 1 FROM variables WHERE node_id = ?)
	`, id).Scan(&one)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return false, fmt.Errorf("eligible for reap %d: variable probe: %w", id, err)
	}

	for _, kind := range ir.AllFlagKinds {
		in, err := s.FlagContains(ctx, kind, id)
		if err != nil {
			return false, fmt.Errorf("eligible for reap %d: flag probe %s: %w", id, kind, err)
		}
		if in {
			return false, nil
		}
	}

	return true, nil
}

// DebugAddAllGhosts marks every existing ghost node for inspection by
// adding it to the transient flag set, mirroring the original tup db's
// tup_db_debug_add_all_ghosts diagnostic (SPEC_FULL.md 6).
func (s *Store) DebugAddAllGhosts(ctx context.Context) (int, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT id FROM nodes WHERE type = ?`, ir.TypeGhost.String())
	if err != nil {
		return 0, fmt.Errorf("debug add all ghosts: %w", err)
	}
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	for _, id := range ids {
		if err := s.FlagAdd(ctx, ir.FlagTransient, id); err != nil {
			return 0, err
		}
	}
	return len(ids), nil
}
