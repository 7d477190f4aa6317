package export

import (
	"context"
	"fmt"
	"io"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// Gitignore writes one line per generated file or generated directory
// under dt, so build output never enters version control. This is the
// write_gitignore supplement from SPEC_FULL.md 6. When skipSelf is true,
// dt itself is never listed even if it is a generated directory -
// callers building a per-directory .gitignore want only its children.
func Gitignore(ctx context.Context, w io.Writer, s *store.Store, dt ir.Tupid, skipSelf bool) error {
	if !skipSelf {
		n, ok, err := s.GetNode(ctx, dt)
		if err != nil {
			return fmt.Errorf("gitignore %d: %w", dt, err)
		}
		if ok && n.Type.IsDirLike() && n.Type == ir.TypeGeneratedDirectory {
			if _, err := fmt.Fprintln(w, n.Name+"/"); err != nil {
				return err
			}
		}
	}

	children, err := s.ChildrenOf(ctx, dt)
	if err != nil {
		return fmt.Errorf("gitignore %d: %w", dt, err)
	}
	for _, c := range children {
		switch c.Type {
		case ir.TypeGeneratedFile:
			if _, err := fmt.Fprintln(w, c.Name); err != nil {
				return err
			}
		case ir.TypeGeneratedDirectory:
			if _, err := fmt.Fprintln(w, c.Name+"/"); err != nil {
				return err
			}
		case ir.TypeDirectory:
			if err := Gitignore(ctx, w, s, c.ID, true); err != nil {
				return err
			}
		}
	}
	return nil
}
