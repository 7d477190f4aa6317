package store

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
)

// DuplicateDirectoryStructure recursively mirrors the directory-only
// subtree rooted at src under a new node newRoot (itself already
// inserted), giving a newly created variant its own tree of directory
// nodes before the scanner populates files under it. Mirrors the original
// tup db's tup_db_duplicate_directory_structure (SPEC_FULL.md 6.2).
func (s *Store) DuplicateDirectoryStructure(ctx context.Context, src, newRoot ir.Tupid) error {
	children, err := s.ChildrenOf(ctx, src)
	if err != nil {
		return fmt.Errorf("duplicate directory structure %d: %w", src, err)
	}
	for _, c := range children {
		if !c.Type.IsDirLike() {
			continue
		}
		dup, err := s.InsertNode(ctx, newRoot, c.Name, c.Type, ir.UnknownMtime(), c.ID)
		if err != nil {
			return fmt.Errorf("duplicate directory structure %d: %w", src, err)
		}
		if err := s.DuplicateDirectoryStructure(ctx, c.ID, dup.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteVariant removes an entire variant's node subtree rooted at root in
// one call, visiting each removed node with visit (which may be nil)
// before deletion so callers can release any out-of-band bookkeeping.
// Mirrors the original tup db's tup_db_delete_variant.
func (s *Store) DeleteVariant(ctx context.Context, root ir.Tupid, visit func(ir.Node) error) error {
	children, err := s.ChildrenOf(ctx, root)
	if err != nil {
		return fmt.Errorf("delete variant %d: %w", root, err)
	}
	for _, c := range children {
		if c.Type.IsDirLike() {
			if err := s.DeleteVariant(ctx, c.ID, visit); err != nil {
				return err
			}
			continue
		}
		if visit != nil {
			if err := visit(c); err != nil {
				return err
			}
		}
		if err := s.RemoveNode(ctx, c.ID, true); err != nil {
			return fmt.Errorf("delete variant %d: %w", root, err)
		}
	}
	n, ok, err := s.GetNode(ctx, root)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}
	if visit != nil {
		if err := visit(n); err != nil {
			return err
		}
	}
	return s.RemoveNode(ctx, root, true)
}
