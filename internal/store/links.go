package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// CreateLink idempotently inserts the edge (a, b, style). Returns whether
// the row was newly inserted (false if it already existed).
func (s *Store) CreateLink(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO links (from_id, to_id, style) VALUES (?, ?, ?)
		ON CONFLICT(from_id, to_id, style) DO NOTHING
	`, a, b, style.String())
	if err != nil {
		return false, fmt.Errorf("create link %d->%d (%s): %w", a, b, style, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("create link %d->%d (%s): %w", a, b, style, err)
	}
	return n > 0, nil
}

// LinkExists reports whether the exact (a, b, style) edge exists.
func (s *Store) LinkExists(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) (bool, error) {
	var one int
	err := s.conn().QueryRowContext(ctx, `
		SELECT 1 FROM links WHERE from_id = ? AND to_id = ? AND style = ?
	`, a, b, style.String()).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("link exists %d->%d (%s): %w", a, b, style, err)
	}
	return true, nil
}

// Incoming returns the id of the single command producing b via a normal
// or sticky edge, if any (spec.md invariant 3: at most one producer).
func (s *Store) Incoming(ctx context.Context, b ir.Tupid) (ir.Tupid, bool, error) {
	var from ir.Tupid
	err := s.conn().QueryRowContext(ctx, `
		SELECT from_id FROM links
		WHERE to_id = ? AND style IN ('normal', 'sticky')
		ORDER BY from_id LIMIT 1
	`, b).Scan(&from)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("incoming %d: %w", b, err)
	}
	return from, true, nil
}

// OutgoingByStyle calls cb once per outgoing id from a of the given style,
// in ascending id order.
func (s *Store) OutgoingByStyle(ctx context.Context, a ir.Tupid, style ir.LinkStyle, cb func(ir.Tupid) error) error {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT to_id FROM links WHERE from_id = ? AND style = ? ORDER BY to_id
	`, a, style.String())
	if err != nil {
		return fmt.Errorf("outgoing %d (%s): %w", a, style, err)
	}
	defer rows.Close()
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := cb(id); err != nil {
			return err
		}
	}
	return nil
}

// OutgoingAny calls cb for every normal or sticky outgoing edge from a,
// each with the style it was found under.
func (s *Store) OutgoingAny(ctx context.Context, a ir.Tupid, cb func(to ir.Tupid, style ir.LinkStyle) error) error {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT to_id, style FROM links WHERE from_id = ? AND style IN ('normal', 'sticky') ORDER BY to_id
	`, a)
	if err != nil {
		return fmt.Errorf("outgoing-any %d: %w", a, err)
	}
	defer rows.Close()
	type pair struct {
		id    ir.Tupid
		style ir.LinkStyle
	}
	var pairs []pair
	for rows.Next() {
		var id ir.Tupid
		var styleStr string
		if err := rows.Scan(&id, &styleStr); err != nil {
			return err
		}
		style, err := ir.ParseLinkStyle(styleStr)
		if err != nil {
			return err
		}
		pairs = append(pairs, pair{id, style})
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := cb(p.id, p.style); err != nil {
			return err
		}
	}
	return nil
}

// ByGroup calls cb once per (producer command) incoming edge into the
// group node a, in ascending id order. A group may have many producers.
func (s *Store) ByGroup(ctx context.Context, group ir.Tupid, cb func(producer ir.Tupid) error) error {
	return s.OutgoingByStyleReversed(ctx, group, ir.LinkGroup, cb)
}

// OutgoingByStyleReversed calls cb once per incoming id into `to` of the
// given style (i.e. walks the edge backwards), in ascending id order. Used
// for group fan-in: producers -> group is stored as (producer, group,
// group-style), so listing a group's producers means querying by to_id.
func (s *Store) OutgoingByStyleReversed(ctx context.Context, to ir.Tupid, style ir.LinkStyle, cb func(ir.Tupid) error) error {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT from_id FROM links WHERE to_id = ? AND style = ? ORDER BY from_id
	`, to, style.String())
	if err != nil {
		return fmt.Errorf("producers of group %d: %w", to, err)
	}
	defer rows.Close()
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := cb(id); err != nil {
			return err
		}
	}
	return nil
}

// DistinctGroupTargets calls cb once per distinct group reachable as an
// outgoing group-style edge from a, deduplicated, in ascending id order.
func (s *Store) DistinctGroupTargets(ctx context.Context, a ir.Tupid, cb func(group ir.Tupid) error) error {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT DISTINCT to_id FROM links WHERE from_id = ? AND style = ? ORDER BY to_id
	`, a, ir.LinkGroup.String())
	if err != nil {
		return fmt.Errorf("distinct group targets of %d: %w", a, err)
	}
	defer rows.Close()
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for _, id := range ids {
		if err := cb(id); err != nil {
			return err
		}
	}
	return nil
}

// DeleteAllIncident removes every link touching id, in either direction.
func (s *Store) DeleteAllIncident(ctx context.Context, id ir.Tupid) error {
	if _, err := s.exec(ctx, `DELETE FROM links WHERE from_id = ? OR to_id = ?`, id, id); err != nil {
		return fmt.Errorf("delete incident links of %d: %w", id, err)
	}
	return nil
}

// DeleteLink removes one specific edge, if present.
func (s *Store) DeleteLink(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) error {
	if _, err := s.exec(ctx, `DELETE FROM links WHERE from_id = ? AND to_id = ? AND style = ?`, a, b, style.String()); err != nil {
		return fmt.Errorf("delete link %d->%d (%s): %w", a, b, style, err)
	}
	return nil
}

// NormalInputsOf returns the current normal-style edges into cmdid, used
// by the reconciler to diff against a fresh read set.
func (s *Store) NormalInputsOf(ctx context.Context, cmdid ir.Tupid) ([]ir.Tupid, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT from_id FROM links WHERE to_id = ? AND style = ? ORDER BY from_id
	`, cmdid, ir.LinkNormal.String())
	if err != nil {
		return nil, fmt.Errorf("normal inputs of %d: %w", cmdid, err)
	}
	defer rows.Close()
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// StickyInputsOf returns the current sticky-style edges into cmdid.
func (s *Store) StickyInputsOf(ctx context.Context, cmdid ir.Tupid) ([]ir.Tupid, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT from_id FROM links WHERE to_id = ? AND style = ? ORDER BY from_id
	`, cmdid, ir.LinkSticky.String())
	if err != nil {
		return nil, fmt.Errorf("sticky inputs of %d: %w", cmdid, err)
	}
	defer rows.Close()
	var ids []ir.Tupid
	for rows.Next() {
		var id ir.Tupid
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
