package ghost

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/store"
)

// Reaper tracks, for one open transaction, the set of node ids that lost
// their last reference and so might be eligible for removal. Reap runs
// only over that set at commit time, never over the whole nodes table -
// mirroring the teacher's per-flow CycleDetector history map rather than
// a query against the full table.
type Reaper struct {
	store *store.Store

	mu         sync.Mutex
	candidates map[ir.Tupid]bool
}

// New builds a Reaper over s with an empty candidate set.
func New(s *store.Store) *Reaper {
	return &Reaper{store: s, candidates: make(map[ir.Tupid]bool)}
}

// MarkCandidate records id as having possibly lost its last reference
// this transaction. Callers are the components that remove edges or
// flag memberships: the link engine (links.DeleteAllIncident,
// links.DeleteLink), flags.Remove, and the reconciler's input diff.
func (r *Reaper) MarkCandidate(id ir.Tupid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[id] = true
}

// MarkCandidates is MarkCandidate for a batch of ids.
func (r *Reaper) MarkCandidates(ids ...ir.Tupid) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		r.candidates[id] = true
	}
}

// Pending returns the candidate ids collected so far, ascending, without
// clearing them.
func (r *Reaper) Pending() []ir.Tupid {
	r.mu.Lock()
	defer r.mu.Unlock()
	return sortedKeys(r.candidates)
}

// Reap removes every candidate still eligible (spec.md 4.H's three
// conditions) and clears the candidate set, whether or not the caller is
// about to commit or roll back - on rollback the caller should simply
// discard the Reaper along with the transaction's in-memory state.
func (r *Reaper) Reap(ctx context.Context) ([]ir.Tupid, error) {
	r.mu.Lock()
	ids := sortedKeys(r.candidates)
	r.candidates = make(map[ir.Tupid]bool)
	r.mu.Unlock()

	var removed []ir.Tupid
	for _, id := range ids {
		eligible, err := r.store.EligibleForReap(ctx, id)
		if err != nil {
			return removed, fmt.Errorf("ghost reap %d: %w", id, err)
		}
		if !eligible {
			continue
		}
		if err := r.store.RemoveNode(ctx, id, false); err != nil {
			return removed, fmt.Errorf("ghost reap %d: %w", id, err)
		}
		removed = append(removed, id)
	}
	return removed, nil
}

func sortedKeys(m map[ir.Tupid]bool) []ir.Tupid {
	ids := make([]ir.Tupid, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
