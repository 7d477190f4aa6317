package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

func flagTable(kind ir.FlagKind) (string, error) {
	switch kind {
	case ir.FlagCreate:
		return "flag_create", nil
	case ir.FlagModify:
		return "flag_modify", nil
	case ir.FlagConfig:
		return "flag_config", nil
	case ir.FlagVariant:
		return "flag_variant", nil
	case ir.FlagTransient:
		return "flag_transient", nil
	default:
		return "", fmt.Errorf("flag table: unknown kind %v", kind)
	}
}

// FlagAdd marks id as a member of the given flag set. Idempotent.
func (s *Store) FlagAdd(ctx context.Context, kind ir.FlagKind, id ir.Tupid) error {
	table, err := flagTable(kind)
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, `INSERT INTO `+table+` (node_id) VALUES (?) ON CONFLICT(node_id) DO NOTHING`, id); err != nil {
		return fmt.Errorf("flag add %s %d: %w", kind, id, err)
	}
	return nil
}

// FlagRemove clears id's membership in the given flag set. A no-op if id
// was never a member.
func (s *Store) FlagRemove(ctx context.Context, kind ir.FlagKind, id ir.Tupid) error {
	table, err := flagTable(kind)
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, `DELETE FROM `+table+` WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("flag remove %s %d: %w", kind, id, err)
	}
	return nil
}

// FlagContains reports whether id is a member of the given flag set.
func (s *Store) FlagContains(ctx context.Context, kind ir.FlagKind, id ir.Tupid) (bool, error) {
	table, err := flagTable(kind)
	if err != nil {
		return false, err
	}
	var one int
	err = s.conn().QueryRowContext(ctx, `SELECT 1 FROM `+table+` WHERE node_id = ?`, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("flag contains %s %d: %w", kind, id, err)
	}
	return true, nil
}

// FlagAny reports whether the given flag set has any member at all; used
// by the graph builder to decide whether a whole pass is a no-op.
func (s *Store) FlagAny(ctx context.Context, kind ir.FlagKind) (bool, error) {
	table, err := flagTable(kind)
	if err != nil {
		return false, err
	}
	var one int
	err = s.conn().QueryRowContext(ctx, `SELECT 1 FROM `+table+` LIMIT 1`).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("flag any %s: %w", kind, err)
	}
	return true, nil
}

// FlagCount returns the number of members of the given flag set.
func (s *Store) FlagCount(ctx context.Context, kind ir.FlagKind) (int, error) {
	table, err := flagTable(kind)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("flag count %s: %w", kind, err)
	}
	return n, nil
}

// FlagIterate calls cb once per member of the given flag set, in ascending
// node-id order. Per spec.md 9, insertions made by cb mid-iteration are
// unspecified whether they are observed, but deletions of not-yet-visited
// members must be honored: this implementation snapshots the id list up
// front (so the ordering and insertion behavior are stable), then
// re-checks each id's membership immediately before calling cb, skipping
// any id cb (or a concurrent caller) has already removed from the set.
func (s *Store) FlagIterate(ctx context.Context, kind ir.FlagKind, cb func(ir.Tupid) error) error {
	table, err := flagTable(kind)
	if err != nil {
		return err
	}
	rows, err := s.conn().QueryContext(ctx, `SELECT node_id FROM `+table+` ORDER BY node_id`)
	if err != nil {
		return fmt.Errorf("flag iterate %s: %w", kind, err)
	}
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, id := range ids {
		in, err := s.FlagContains(ctx, kind, id)
		if err != nil {
			return fmt.Errorf("flag iterate %s: recheck %d: %w", kind, id, err)
		}
		if !in {
			continue
		}
		if err := cb(id); err != nil {
			return err
		}
	}
	return nil
}

// FlagClear empties an entire flag set in one statement, used after a full
// pass has consumed every pending member (the "combo" style from spec.md
// 4.C rather than a per-row delete loop).
func (s *Store) FlagClear(ctx context.Context, kind ir.FlagKind) error {
	table, err := flagTable(kind)
	if err != nil {
		return err
	}
	if _, err := s.exec(ctx, `DELETE FROM `+table); err != nil {
		return fmt.Errorf("flag clear %s: %w", kind, err)
	}
	return nil
}
