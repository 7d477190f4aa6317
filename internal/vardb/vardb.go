package vardb

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// DB wraps a *store.Store with the variant-scoped variable lookup and
// ghost-on-miss rules of spec.md 4.E.
type DB struct {
	store *store.Store
}

// New wraps s.
func New(s *store.Store) *DB {
	return &DB{store: s}
}

// scopeRoot returns the directory node backing scope's variable
// namespace, creating it on first use. GlobalScope maps directly onto
// env_dt; any other scope gets its own subdirectory under env_dt so that
// the same variable name can exist independently in several scopes
// without violating the (parent, name) uniqueness invariant.
func (d *DB) scopeRoot(ctx context.Context, scope string) (ir.Tupid, error) {
	if scope == GlobalScope {
		return ir.EnvDT, nil
	}
	n, ok, err := d.store.LookupNode(ctx, ir.EnvDT, scope)
	if err != nil {
		return 0, fmt.Errorf("vardb: scope root %q: %w", scope, err)
	}
	if ok {
		return n.ID, nil
	}
	n, err = d.store.InsertNode(ctx, ir.EnvDT, scope, ir.TypeDirectory, ir.ExternalMtime(), 0)
	if err != nil {
		return 0, fmt.Errorf("vardb: create scope root %q: %w", scope, err)
	}
	return n.ID, nil
}

// Result is the outcome of a variable Lookup: the resolved value, the
// backing node id, and whether the binding is still a ghost (undefined).
type Result struct {
	Value   string
	NodeID  ir.Tupid
	IsGhost bool
}

// Lookup resolves name, consulting scope first and falling back to
// GlobalScope. If no binding exists in either scope, it creates a ghost
// variable node under scope and records a sticky edge from it to
// requester, so a later definition invalidates requester. Per
// spec.md 4.E, only the failing lookup's own scope gets the new ghost;
// the fallback scope is not written to.
func (d *DB) Lookup(ctx context.Context, scope, name string, requester ir.Tupid) (Result, error) {
	if scope != GlobalScope {
		if v, ok, err := d.store.GetVariable(ctx, scope, name); err != nil {
			return Result{}, err
		} else if ok {
			return Result{Value: v.Value, NodeID: v.NodeID, IsGhost: v.IsGhost}, nil
		}
	}
	if v, ok, err := d.store.GetVariable(ctx, GlobalScope, name); err != nil {
		return Result{}, err
	} else if ok {
		return Result{Value: v.Value, NodeID: v.NodeID, IsGhost: v.IsGhost}, nil
	}

	root, err := d.scopeRoot(ctx, scope)
	if err != nil {
		return Result{}, err
	}
	ghost, err := d.store.InsertNode(ctx, root, name, ir.TypeGhost, ir.UnknownMtime(), 0)
	if err != nil {
		return Result{}, fmt.Errorf("vardb: create ghost %s/%s: %w", scope, name, err)
	}
	if err := d.store.PutVariable(ctx, ir.VariableEntry{Scope: scope, Name: name, NodeID: ghost.ID, IsGhost: true}); err != nil {
		return Result{}, err
	}
	if requester != 0 {
		if _, err := d.store.CreateLink(ctx, ghost.ID, requester, ir.LinkSticky); err != nil {
			return Result{}, fmt.Errorf("vardb: record dependency on ghost %s/%s: %w", scope, name, err)
		}
	}
	return Result{NodeID: ghost.ID, IsGhost: true}, nil
}

// Set defines or redefines (scope, name) = value. If a ghost binding
// already exists (created by a prior Lookup miss), it is promoted in
// place - same node id, retyped from ghost to variable - and every
// command with a sticky dependency on it is flagged modify, matching
// spec.md scenario S3.
func (d *DB) Set(ctx context.Context, scope, name, value string) (ir.Tupid, error) {
	existing, ok, err := d.store.GetVariable(ctx, scope, name)
	if err != nil {
		return 0, err
	}
	if ok {
		if existing.IsGhost {
			if err := d.store.RetypeNode(ctx, existing.NodeID, ir.TypeVariable); err != nil {
				return 0, err
			}
		}
		if err := d.store.PutVariable(ctx, ir.VariableEntry{Scope: scope, Name: name, Value: value, NodeID: existing.NodeID, IsGhost: false}); err != nil {
			return 0, err
		}
		if err := d.store.FlagModifyConsumersOf(ctx, existing.NodeID); err != nil {
			return 0, err
		}
		return existing.NodeID, nil
	}

	root, err := d.scopeRoot(ctx, scope)
	if err != nil {
		return 0, err
	}
	n, err := d.store.InsertNode(ctx, root, name, ir.TypeVariable, ir.ExternalMtime(), 0)
	if err != nil {
		return 0, fmt.Errorf("vardb: create variable %s/%s: %w", scope, name, err)
	}
	if err := d.store.PutVariable(ctx, ir.VariableEntry{Scope: scope, Name: name, Value: value, NodeID: n.ID, IsGhost: false}); err != nil {
		return 0, err
	}
	return n.ID, nil
}

// SnapshotEnvironment captures the sticky dependency edges between cmd and
// every variable entry it declared it reads during execution preparation
// (spec.md 4.E "environment snapshot"): it records a sticky edge from
// each named variable's backing node to cmd, so that later changes to
// any of them flag cmd.
func (d *DB) SnapshotEnvironment(ctx context.Context, scope string, names []string, cmd ir.Tupid) error {
	for _, name := range names {
		res, err := d.Lookup(ctx, scope, name, cmd)
		if err != nil {
			return fmt.Errorf("vardb: snapshot environment %s: %w", name, err)
		}
		if _, err := d.store.CreateLink(ctx, res.NodeID, cmd, ir.LinkSticky); err != nil {
			return fmt.Errorf("vardb: snapshot environment %s: %w", name, err)
		}
	}
	return nil
}

// VariablesInScope returns every binding under scope, for export/debug.
func (d *DB) VariablesInScope(ctx context.Context, scope string) ([]ir.VariableEntry, error) {
	return d.store.VariablesInScope(ctx, scope)
}
