package flags

import (
	"context"
	"fmt"
	"sort"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// CandidateSink receives ids that may have lost their last reference, for
// the ghost reaper (component H) to consider at commit time.
type CandidateSink interface {
	MarkCandidate(id ir.Tupid)
}

// Sets wraps a *store.Store with the flag-set business rules: type
// restrictions on membership, and the cross-flag combo operations.
type Sets struct {
	store *store.Store
	sink  CandidateSink
}

// Option configures a Sets.
type Option func(*Sets)

// WithCandidateSink registers a ghost reaper to notify whenever Remove
// drops a node's last flag-set membership.
func WithCandidateSink(sink CandidateSink) Option {
	return func(s *Sets) { s.sink = sink }
}

// New wraps s.
func New(s *store.Store, opts ...Option) *Sets {
	sets := &Sets{store: s}
	for _, opt := range opts {
		opt(sets)
	}
	return sets
}

// disallowed lists the node types that may never join a given flag set.
// Ghosts are placeholders, not real work items, so they are excluded from
// every set except transient (the debug-ghost-audit tool deliberately
// flags ghosts transient; see store.DebugAddAllGhosts). Groups are pure
// aggregators and never themselves rebuilt.
var disallowed = map[ir.FlagKind]map[ir.NodeType]bool{
	ir.FlagCreate:  {ir.TypeGhost: true, ir.TypeGroup: true},
	ir.FlagModify:  {ir.TypeGhost: true, ir.TypeGroup: true},
	ir.FlagConfig:  {ir.TypeGhost: true, ir.TypeGroup: true},
	ir.FlagVariant: {ir.TypeFile: true, ir.TypeCommand: true, ir.TypeGhost: true, ir.TypeGroup: true},
	ir.FlagTransient: {},
}

// Add unconditionally marks id a member of kind.
func (s *Sets) Add(ctx context.Context, kind ir.FlagKind, id ir.Tupid) error {
	return s.store.FlagAdd(ctx, kind, id)
}

// MaybeAdd adds id to kind unless typ is disallowed for that set (e.g. a
// ghost can never enter modify), matching spec.md 4.C's maybe_add.
func (s *Sets) MaybeAdd(ctx context.Context, kind ir.FlagKind, id ir.Tupid, typ ir.NodeType) error {
	if disallowed[kind][typ] {
		return nil
	}
	return s.store.FlagAdd(ctx, kind, id)
}

// Remove clears id's membership in kind. If a candidate sink is
// registered, id is reported as a possible ghost-reap candidate, since
// leaving a flag set can be the last reference keeping a ghost alive.
func (s *Sets) Remove(ctx context.Context, kind ir.FlagKind, id ir.Tupid) error {
	if err := s.store.FlagRemove(ctx, kind, id); err != nil {
		return err
	}
	if s.sink != nil {
		s.sink.MarkCandidate(id)
	}
	return nil
}

// Contains reports whether id is a member of kind.
func (s *Sets) Contains(ctx context.Context, kind ir.FlagKind, id ir.Tupid) (bool, error) {
	return s.store.FlagContains(ctx, kind, id)
}

// Any reports whether kind has any member at all.
func (s *Sets) Any(ctx context.Context, kind ir.FlagKind) (bool, error) {
	return s.store.FlagAny(ctx, kind)
}

// Count returns the number of members of kind.
func (s *Sets) Count(ctx context.Context, kind ir.FlagKind) (int, error) {
	return s.store.FlagCount(ctx, kind)
}

// Iterate calls cb once per member of kind in ascending node-id order.
// See store.Store.FlagIterate for the snapshot-consistency contract.
func (s *Sets) Iterate(ctx context.Context, kind ir.FlagKind, cb func(ir.Tupid) error) error {
	return s.store.FlagIterate(ctx, kind, cb)
}

// Clear empties kind in one statement.
func (s *Sets) Clear(ctx context.Context, kind ir.FlagKind) error {
	return s.store.FlagClear(ctx, kind)
}

// CheckFlags reports, for id, which of the five sets it currently belongs
// to - a convenience for diagnostics and for the updater's per-node
// status line.
func (s *Sets) CheckFlags(ctx context.Context, id ir.Tupid) (map[ir.FlagKind]bool, error) {
	out := make(map[ir.FlagKind]bool, len(ir.AllFlagKinds))
	for _, kind := range ir.AllFlagKinds {
		in, err := s.store.FlagContains(ctx, kind, id)
		if err != nil {
			return nil, fmt.Errorf("check flags %d: %w", id, err)
		}
		out[kind] = in
	}
	return out, nil
}

// FlagModifyProducersOf adds to modify every command that produced id,
// because id changed underneath them. See spec.md 4.C "given a node, add
// to modify all commands whose outputs include it".
func (s *Sets) FlagModifyProducersOf(ctx context.Context, id ir.Tupid) error {
	return s.store.FlagModifyProducersOf(ctx, id)
}

// FlagModifyConsumersOf adds to modify every command that reads id as an
// input, because id changed. See spec.md 4.C "given a node, add to modify
// all commands whose inputs include it".
func (s *Sets) FlagModifyConsumersOf(ctx context.Context, id ir.Tupid) error {
	return s.store.FlagModifyConsumersOf(ctx, id)
}

// Seeds gathers the current rebuild seed set: the union of every node in
// create and modify, in ascending id order with duplicates removed. This
// is spec.md 4.F's "seeds = create ∪ modify" - the incremental-rebuild
// entry point into the graph builder, as opposed to a full rebuild from
// the root directory.
func (s *Sets) Seeds(ctx context.Context) ([]ir.Tupid, error) {
	seen := make(map[ir.Tupid]bool)
	var out []ir.Tupid
	for _, kind := range []ir.FlagKind{ir.FlagCreate, ir.FlagModify} {
		if err := s.store.FlagIterate(ctx, kind, func(id ir.Tupid) error {
			if !seen[id] {
				seen[id] = true
				out = append(out, id)
			}
			return nil
		}); err != nil {
			return nil, fmt.Errorf("gather seeds: %w", err)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// PropagateCreateToDescendants marks every descendant directory of dir
// for (re)creation in one pass, used after a structural change (a new
// directory appeared, or a generated_directory claimed an existing
// subtree) that invalidates everything below it.
func (s *Sets) PropagateCreateToDescendants(ctx context.Context, dir ir.Tupid) error {
	return s.store.PropagateCreateToDescendantDirs(ctx, dir)
}
