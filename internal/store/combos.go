package store

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// FlagModifyProducersOf adds to the modify set every command node with a
// normal or sticky edge into id - i.e. every command that produced id and
// must be revisited because id changed. A single relational insert, not a
// per-row loop, per spec.md 4.C.
func (s *Store) FlagModifyProducersOf(ctx context.Context, id ir.Tupid) error {
	_, err := s.exec(ctx, `
		INSERT INTO flag_modify (node_id)
		SELECT l.from_id FROM links l
		JOIN nodes n ON n.id = l.from_id
		WHERE l.to_id = ? AND l.style IN ('normal', 'sticky') AND n.type = 'command'
		ON CONFLICT(node_id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("flag modify producers of %d: %w", id, err)
	}
	return nil
}

// FlagModifyConsumersOf adds to the modify set every command node with a
// normal or sticky edge from id - i.e. every command that consumes id as
// an input and must be revisited because id changed.
func (s *Store) FlagModifyConsumersOf(ctx context.Context, id ir.Tupid) error {
	_, err := s.exec(ctx, `
		INSERT INTO flag_modify (node_id)
		SELECT l.to_id FROM links l
		JOIN nodes n ON n.id = l.to_id
		WHERE l.from_id = ? AND l.style IN ('normal', 'sticky') AND n.type = 'command'
		ON CONFLICT(node_id) DO NOTHING
	`, id)
	if err != nil {
		return fmt.Errorf("flag modify consumers of %d: %w", id, err)
	}
	return nil
}

// PropagateCreateToDescendantDirs adds every descendant directory of dir
// (recursively, directory and generated_directory alike) to the create
// set in one recursive query, used when a directory's structure changed
// and its whole subtree must be rescanned.
func (s *Store) PropagateCreateToDescendantDirs(ctx context.Context, dir ir.Tupid) error {
	_, err := s.exec(ctx, `
		WITH RECURSIVE descendants(id) AS (
			SELECT id FROM nodes WHERE parent_id = ? AND type IN ('directory', 'generated_directory')
			UNION ALL
			SELECT n.id FROM nodes n
			JOIN descendants d ON n.parent_id = d.id
			WHERE n.type IN ('directory', 'generated_directory')
		)
		INSERT INTO flag_create (node_id)
		SELECT id FROM descendants
		ON CONFLICT(node_id) DO NOTHING
	`, dir)
	if err != nil {
		return fmt.Errorf("propagate create to descendants of %d: %w", dir, err)
	}
	return nil
}
