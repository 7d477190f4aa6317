package store

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// ErrScanAlreadyOpen is returned by ScanBegin when a scan generation is
// already in progress on this Store.
var ErrScanAlreadyOpen = fmt.Errorf("store: scan already in progress")

// ScanBegin clears the scan_seen set and marks a scan as in progress. Used
// by the scanner (internal/watch) at the start of a directory walk: as
// directories are visited, their children are marked seen, and whatever
// remains unseen at ScanEnd becomes the deletion candidate set.
func (s *Store) ScanBegin(ctx context.Context) error {
	s.mu.Lock()
	if s.scanning {
		s.mu.Unlock()
		return ErrScanAlreadyOpen
	}
	s.scanning = true
	s.mu.Unlock()

	if _, err := s.exec(ctx, `DELETE FROM scan_seen`); err != nil {
		return fmt.Errorf("scan begin: %w", err)
	}
	return nil
}

// ScanMark records id as visited during the current scan generation.
func (s *Store) ScanMark(ctx context.Context, id ir.Tupid) error {
	if _, err := s.exec(ctx, `INSERT INTO scan_seen (node_id) VALUES (?) ON CONFLICT(node_id) DO NOTHING`, id); err != nil {
		return fmt.Errorf("scan mark %d: %w", id, err)
	}
	return nil
}

// ScanSeen reports whether id was marked during the current scan.
func (s *Store) ScanSeen(ctx context.Context, id ir.Tupid) (bool, error) {
	var one int
	err := s.conn().QueryRowContext(ctx, `SELECT 1 FROM scan_seen WHERE node_id = ?`, id).Scan(&one)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// UnseenChildren returns the children of parent that were not marked
// during the current scan - the deletion candidates for that directory.
func (s *Store) UnseenChildren(ctx context.Context, parent ir.Tupid) ([]ir.Node, error) {
	rows, err := s.conn().QueryContext(ctx, `
		SELECT `+nodeColumns+` FROM nodes
		WHERE parent_id = ? AND id NOT IN (SELECT node_id FROM scan_seen)
		ORDER BY id
	`, parent)
	if err != nil {
		return nil, fmt.Errorf("unseen children of %d: %w", parent, err)
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

// ScanEnd closes the current scan generation, leaving scan_seen populated
// for UnseenChildren queries made immediately afterward; callers should
// follow with ScanBegin (which clears it) before the next generation.
func (s *Store) ScanEnd(ctx context.Context) error {
	s.mu.Lock()
	s.scanning = false
	s.mu.Unlock()
	return nil
}
