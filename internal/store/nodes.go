package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/naudhr/tup/internal/ir"
)

// ErrNameTaken is returned by InsertNode when (parent_id, name) already
// exists, per the uniqueness invariant in spec.md 3.1.
var ErrNameTaken = errors.New("store: name already taken under parent")

// ErrNodeNotFound is returned when a queried id or (parent, name) pair is
// absent. Per spec.md 7, "not found" is not treated as an error by most
// callers - GetNode/LookupNode surface it as (zero, false, nil) instead.
var ErrNodeNotFound = errors.New("store: node not found")

// nextID allocates and reserves the next monotonic id.
func (s *Store) nextID(ctx context.Context) (ir.Tupid, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT next_id FROM id_seq`)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	if _, err := s.exec(ctx, `UPDATE id_seq SET next_id = next_id + 1`); err != nil {
		return 0, fmt.Errorf("allocate id: %w", err)
	}
	return ir.Tupid(id), nil
}

// InsertNode allocates a new id and inserts the node under parent/name.
// Returns ErrNameTaken if the (parent, name) pair already exists.
func (s *Store) InsertNode(ctx context.Context, parent ir.Tupid, name string, typ ir.NodeType, mtime ir.Mtime, srcid ir.Tupid) (ir.Node, error) {
	id, err := s.nextID(ctx)
	if err != nil {
		return ir.Node{}, err
	}
	n := ir.Node{ID: id, ParentID: parent, Name: name, Type: typ, Mtime: mtime, SrcID: srcid}
	_, err = s.exec(ctx, `
		INSERT INTO nodes (id, parent_id, name, type, mtime_kind, mtime_sec, mtime_nsec, srcid, display, flags)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, '', '')
	`, n.ID, n.ParentID, n.Name, n.Type.String(), mtime.Kind, mtime.Sec, mtime.Nsec, n.SrcID)
	if err != nil {
		if isUniqueConstraint(err) {
			return ir.Node{}, fmt.Errorf("insert node %s/%s: %w", nameOfParent(parent), name, ErrNameTaken)
		}
		return ir.Node{}, fmt.Errorf("insert node: %w", err)
	}
	return n, nil
}

func nameOfParent(p ir.Tupid) string { return fmt.Sprintf("#%d", p) }

func isUniqueConstraint(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}

func scanNode(row interface{ Scan(...any) error }) (ir.Node, error) {
	var n ir.Node
	var typ string
	var mkind int
	err := row.Scan(&n.ID, &n.ParentID, &n.Name, &typ, &mkind, &n.Mtime.Sec, &n.Mtime.Nsec, &n.SrcID, &n.Display, &n.Flags)
	if err != nil {
		return ir.Node{}, err
	}
	n.Type, err = ir.ParseNodeType(typ)
	if err != nil {
		return ir.Node{}, err
	}
	n.Mtime.Kind = ir.MtimeKind(mkind)
	return n, nil
}

const nodeColumns = `id, parent_id, name, type, mtime_kind, mtime_sec, mtime_nsec, srcid, display, flags`

// GetNode loads one node by id. Returns (zero, false, nil) if absent.
func (s *Store) GetNode(ctx context.Context, id ir.Tupid) (ir.Node, bool, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id = ?`, id)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Node{}, false, nil
	}
	if err != nil {
		return ir.Node{}, false, fmt.Errorf("get node %d: %w", id, err)
	}
	return n, true, nil
}

// LookupNode finds a child by exact byte-identical name under parent.
// Returns (zero, false, nil) if absent.
func (s *Store) LookupNode(ctx context.Context, parent ir.Tupid, name string) (ir.Node, bool, error) {
	row := s.conn().QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? AND name = ?`, parent, name)
	n, err := scanNode(row)
	if errors.Is(err, sql.ErrNoRows) {
		return ir.Node{}, false, nil
	}
	if err != nil {
		return ir.Node{}, false, fmt.Errorf("lookup %s under %d: %w", name, parent, err)
	}
	return n, true, nil
}

// ChildrenOf returns every node directly under parent, ordered by id for
// deterministic iteration.
func (s *Store) ChildrenOf(ctx context.Context, parent ir.Tupid) ([]ir.Node, error) {
	rows, err := s.conn().QueryContext(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE parent_id = ? ORDER BY id`, parent)
	if err != nil {
		return nil, fmt.Errorf("children of %d: %w", parent, err)
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

// RenameNode moves a node to a new parent/name. Fails with ErrNameTaken if
// the destination is occupied.
func (s *Store) RenameNode(ctx context.Context, id, newParent ir.Tupid, newName string) error {
	_, err := s.exec(ctx, `UPDATE nodes SET parent_id = ?, name = ? WHERE id = ?`, newParent, newName, id)
	if err != nil {
		if isUniqueConstraint(err) {
			return fmt.Errorf("rename %d to %s/%s: %w", id, nameOfParent(newParent), newName, ErrNameTaken)
		}
		return fmt.Errorf("rename node %d: %w", id, err)
	}
	return nil
}

// RetypeNode changes a node's type. Refuses the one forbidden transition
// from spec.md 9 (generated_directory -> directory is one-way per commit;
// reverting requires delete-and-recreate).
func (s *Store) RetypeNode(ctx context.Context, id ir.Tupid, newType ir.NodeType) error {
	n, ok, err := s.GetNode(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("retype %d: %w", id, ErrNodeNotFound)
	}
	if n.Type == ir.TypeGeneratedDirectory && newType == ir.TypeDirectory {
		return fmt.Errorf("retype %d: generated_directory -> directory is not allowed within a commit: %w", id, ErrInvariantViolation)
	}
	_, err = s.exec(ctx, `UPDATE nodes SET type = ? WHERE id = ?`, newType.String(), id)
	if err != nil {
		return fmt.Errorf("retype node %d: %w", id, err)
	}
	return nil
}

// SetMtime updates a node's recorded modification time.
func (s *Store) SetMtime(ctx context.Context, id ir.Tupid, mtime ir.Mtime) error {
	_, err := s.exec(ctx, `UPDATE nodes SET mtime_kind = ?, mtime_sec = ?, mtime_nsec = ? WHERE id = ?`,
		mtime.Kind, mtime.Sec, mtime.Nsec, id)
	if err != nil {
		return fmt.Errorf("set mtime %d: %w", id, err)
	}
	return nil
}

// SetDisplay updates a command node's human-readable label.
func (s *Store) SetDisplay(ctx context.Context, id ir.Tupid, display string) error {
	_, err := s.exec(ctx, `UPDATE nodes SET display = ? WHERE id = ?`, display, id)
	if err != nil {
		return fmt.Errorf("set display %d: %w", id, err)
	}
	return nil
}

// SetNodeFlags updates a command node's decorator string (distinct from
// the flags package's create/modify/config/variant/transient sets).
func (s *Store) SetNodeFlags(ctx context.Context, id ir.Tupid, flags string) error {
	_, err := s.exec(ctx, `UPDATE nodes SET flags = ? WHERE id = ?`, flags, id)
	if err != nil {
		return fmt.Errorf("set flags %d: %w", id, err)
	}
	return nil
}

// SetSrcID updates a node's source-node reference.
func (s *Store) SetSrcID(ctx context.Context, id, srcid ir.Tupid) error {
	_, err := s.exec(ctx, `UPDATE nodes SET srcid = ? WHERE id = ?`, srcid, id)
	if err != nil {
		return fmt.Errorf("set srcid %d: %w", id, err)
	}
	return nil
}

// RemoveNode deletes a node, its incident links, and its flag-set
// memberships. If force is false and the node is a directory with
// children, it refuses with ErrInvariantViolation.
func (s *Store) RemoveNode(ctx context.Context, id ir.Tupid, force bool) error {
	if !force {
		children, err := s.ChildrenOf(ctx, id)
		if err != nil {
			return err
		}
		if len(children) > 0 {
			return fmt.Errorf("remove %d: directory not empty: %w", id, ErrInvariantViolation)
		}
	} else {
		children, err := s.ChildrenOf(ctx, id)
		if err != nil {
			return err
		}
		for _, c := range children {
			if err := s.RemoveNode(ctx, c.ID, true); err != nil {
				return err
			}
		}
	}

	if err := s.DeleteAllIncident(ctx, id); err != nil {
		return err
	}
	for _, kind := range ir.AllFlagKinds {
		if err := s.FlagRemove(ctx, kind, id); err != nil {
			return err
		}
	}
	if _, err := s.exec(ctx, `DELETE FROM variables WHERE node_id = ?`, id); err != nil {
		return fmt.Errorf("remove variable backing %d: %w", id, err)
	}
	if _, err := s.exec(ctx, `DELETE FROM nodes WHERE id = ?`, id); err != nil {
		return fmt.Errorf("remove node %d: %w", id, err)
	}
	return nil
}
