package links

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// CandidateSink receives ids that may have lost their last reference, for
// the ghost reaper (component H) to consider at commit time.
type CandidateSink interface {
	MarkCandidate(id ir.Tupid)
}

// Engine wraps a *store.Store with the link-engine business rules.
type Engine struct {
	store *store.Store
	sink  CandidateSink
}

// Option configures an Engine.
type Option func(*Engine)

// WithCandidateSink registers a ghost reaper to notify whenever a link
// removal may have made one of its endpoints reapable.
func WithCandidateSink(sink CandidateSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// New wraps s.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{store: s}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) markCandidate(id ir.Tupid) {
	if e.sink != nil {
		e.sink.MarkCandidate(id)
	}
}

// CreateLink idempotently inserts (a, b, style); returns whether it was
// newly inserted.
func (e *Engine) CreateLink(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) (bool, error) {
	return e.store.CreateLink(ctx, a, b, style)
}

// CreateUniqueLink asserts that b has no other producer before linking a
// to b as a normal edge, matching spec.md 4.D and invariant 3 (a
// generated_file has exactly one incoming command edge). Fails with a
// *store.Error of kind Conflict if b already has a different producer.
func (e *Engine) CreateUniqueLink(ctx context.Context, a, b ir.Tupid) error {
	existing, ok, err := e.store.Incoming(ctx, b)
	if err != nil {
		return err
	}
	if ok && existing != a {
		return fmt.Errorf("create unique link %d->%d: %w", a, b, store.NewConflict(
			"node already has a producer",
			map[string]any{"target": b, "existing_producer": existing, "attempted_producer": a},
		))
	}
	if _, err := e.store.CreateLink(ctx, a, b, ir.LinkNormal); err != nil {
		return fmt.Errorf("create unique link %d->%d: %w", a, b, err)
	}
	return nil
}

// LinkExists reports whether the exact (a, b, style) edge exists.
func (e *Engine) LinkExists(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) (bool, error) {
	return e.store.LinkExists(ctx, a, b, style)
}

// Incoming returns the single producing command of b, if any.
func (e *Engine) Incoming(ctx context.Context, b ir.Tupid) (ir.Tupid, bool, error) {
	return e.store.Incoming(ctx, b)
}

// OutgoingByStyle calls cb once per outgoing edge from a of the given
// style, ascending by target id.
func (e *Engine) OutgoingByStyle(ctx context.Context, a ir.Tupid, style ir.LinkStyle, cb func(ir.Tupid) error) error {
	return e.store.OutgoingByStyle(ctx, a, style, cb)
}

// ByGroup calls cb once per producing command of the group node a,
// deduplicated and ascending by id. A group may have many producers;
// the engine guarantees each is reported exactly once even though the
// underlying edge direction (producer -> group) naturally deduplicates
// at the table level already - this wrapper is where a future fan-out
// cache would also dedupe if group membership ever became derived rather
// than stored directly.
func (e *Engine) ByGroup(ctx context.Context, group ir.Tupid, cb func(producer ir.Tupid) error) error {
	seen := make(map[ir.Tupid]bool)
	return e.store.ByGroup(ctx, group, func(producer ir.Tupid) error {
		if seen[producer] {
			return nil
		}
		seen[producer] = true
		return cb(producer)
	})
}

// DistinctGroupTargets calls cb once per distinct group reachable from a.
func (e *Engine) DistinctGroupTargets(ctx context.Context, a ir.Tupid, cb func(group ir.Tupid) error) error {
	return e.store.DistinctGroupTargets(ctx, a, cb)
}

// DeleteAllIncident removes every link touching id, in either direction.
// The other endpoint of each removed edge is marked a ghost-reap
// candidate, since it may have just lost its last reference.
func (e *Engine) DeleteAllIncident(ctx context.Context, id ir.Tupid) error {
	if e.sink != nil {
		if err := e.store.OutgoingAny(ctx, id, func(to ir.Tupid, _ ir.LinkStyle) error {
			e.markCandidate(to)
			return nil
		}); err != nil {
			return err
		}
		if err := e.store.OutgoingByStyleReversed(ctx, id, ir.LinkNormal, func(from ir.Tupid) error {
			e.markCandidate(from)
			return nil
		}); err != nil {
			return err
		}
		if err := e.store.OutgoingByStyleReversed(ctx, id, ir.LinkSticky, func(from ir.Tupid) error {
			e.markCandidate(from)
			return nil
		}); err != nil {
			return err
		}
		if err := e.store.OutgoingByStyleReversed(ctx, id, ir.LinkGroup, func(from ir.Tupid) error {
			e.markCandidate(from)
			return nil
		}); err != nil {
			return err
		}
	}
	return e.store.DeleteAllIncident(ctx, id)
}

// DeleteLink removes one specific edge and marks both endpoints as
// possible ghost-reap candidates, since either may have just lost its
// last reference.
func (e *Engine) DeleteLink(ctx context.Context, a, b ir.Tupid, style ir.LinkStyle) error {
	if err := e.store.DeleteLink(ctx, a, b, style); err != nil {
		return err
	}
	e.markCandidate(a)
	e.markCandidate(b)
	return nil
}

// ReplaceGroupMembership sets cmdid's group edges to exactly newGroups,
// adding any missing and removing any stale - the "group membership"
// update from spec.md 4.G step 6.
func (e *Engine) ReplaceGroupMembership(ctx context.Context, cmdid ir.Tupid, newGroups []ir.Tupid) error {
	current := make(map[ir.Tupid]bool)
	if err := e.store.OutgoingByStyle(ctx, cmdid, ir.LinkGroup, func(g ir.Tupid) error {
		current[g] = true
		return nil
	}); err != nil {
		return fmt.Errorf("replace group membership of %d: %w", cmdid, err)
	}

	want := make(map[ir.Tupid]bool, len(newGroups))
	for _, g := range newGroups {
		want[g] = true
		if !current[g] {
			if _, err := e.store.CreateLink(ctx, cmdid, g, ir.LinkGroup); err != nil {
				return fmt.Errorf("replace group membership of %d: %w", cmdid, err)
			}
		}
	}
	for g := range current {
		if !want[g] {
			if err := e.store.DeleteLink(ctx, cmdid, g, ir.LinkGroup); err != nil {
				return fmt.Errorf("replace group membership of %d: %w", cmdid, err)
			}
			e.markCandidate(g)
		}
	}
	return nil
}
