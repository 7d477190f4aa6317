package reconcile

import (
	"context"
	"fmt"

	"github.com/naudhr/tup/internal/flags"
	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/links"
	"github.com/naudhr/tup/internal/store"
)

// Report is one command's sandbox observations, handed to the reconciler
// after the command finished running (spec.md 4.G).
type Report struct {
	WriteSet []ir.Tupid
	ReadSet  []ir.Tupid

	DeclaredOutputSet []ir.Tupid
	DeclaredInputSet  []ir.Tupid // sticky inputs the parser declared
	ExclusionSet      []ir.Tupid

	// GroupMembership maps a declared output id to the group ids the
	// parser recorded it as a member of. Only outputs present in both
	// WriteSet and DeclaredOutputSet contribute to step 6.
	GroupMembership map[ir.Tupid][]ir.Tupid
}

// Options tunes the reconciler's handling of borderline steps.
type Options struct {
	// DoUnlink requests that unexpected writes be listed for deletion
	// rather than merely reported; the reconciler never touches the
	// filesystem itself, it only returns the candidate ids.
	DoUnlink bool
	// ComplainMissing promotes a missing declared output from a
	// transient flag to a hard bork.
	ComplainMissing bool
}

// BorkKind names which of the six steps raised a bork.
type BorkKind string

const (
	BorkUndeclaredOutput BorkKind = "undeclared_output"
	BorkMissingOutput    BorkKind = "missing_output"
)

// Bork is one error raised by a single reconciliation step. A bork aborts
// this command's contribution to the transaction, not the transaction.
type Bork struct {
	Kind    BorkKind
	NodeID  ir.Tupid
	Message string
}

// Result is the reconciler's full report for one command.
type Result struct {
	Borks []Bork

	// Unlink lists ids Options.DoUnlink asked the caller to remove from
	// disk (unexpected writes).
	Unlink []ir.Tupid

	NormalEdgesAdded   []ir.Tupid
	NormalEdgesRemoved []ir.Tupid

	// StickyViolations lists declared sticky inputs neither observed in
	// the read set nor covered by group membership; recorded as a
	// diagnostic only, per spec.md step 4 ("do not delete the sticky
	// edge").
	StickyViolations []ir.Tupid

	ImportantLinkRemoved bool
}

// OK reports whether the command's reconciliation raised no borks.
func (r *Result) OK() bool { return len(r.Borks) == 0 }

// Changes counts the mutations this reconciliation actually made to the
// store, for the "changes() > 0" property in spec.md 8.
func (r *Result) Changes() int {
	return len(r.NormalEdgesAdded) + len(r.NormalEdgesRemoved) + len(r.Unlink)
}

// Reconciler folds one command's sandbox report back into the store.
type Reconciler struct {
	store *store.Store
	links *links.Engine
	flags *flags.Sets
	sink  links.CandidateSink
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithCandidateSink registers a ghost reaper so that normal-edge removal
// (step 3) marks the dropped producer as a ghost-reap candidate.
func WithCandidateSink(sink links.CandidateSink) Option {
	return func(r *Reconciler) { r.sink = sink }
}

// New builds a Reconciler over s.
func New(s *store.Store, opts ...Option) *Reconciler {
	r := &Reconciler{store: s}
	for _, opt := range opts {
		opt(r)
	}
	linkOpts := []links.Option{}
	flagOpts := []flags.Option{}
	if r.sink != nil {
		linkOpts = append(linkOpts, links.WithCandidateSink(r.sink))
		flagOpts = append(flagOpts, flags.WithCandidateSink(r.sink))
	}
	r.links = links.New(s, linkOpts...)
	r.flags = flags.New(s, flagOpts...)
	return r
}

func toSet(ids []ir.Tupid) map[ir.Tupid]bool {
	set := make(map[ir.Tupid]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// Reconcile runs the six ordered steps of spec.md 4.G for one command.
// Every mutation happens in the enclosing store transaction; a bork
// aborts only this command's contribution, so the caller should still
// commit.
func (r *Reconciler) Reconcile(ctx context.Context, cmdid ir.Tupid, rpt Report, opts Options) (*Result, error) {
	res := &Result{}

	writeSet := toSet(rpt.WriteSet)
	declaredOut := toSet(rpt.DeclaredOutputSet)
	exclusion := toSet(rpt.ExclusionSet)
	readSet := toSet(rpt.ReadSet)

	// Step 1: unexpected writes.
	for _, id := range rpt.WriteSet {
		if declaredOut[id] || exclusion[id] {
			continue
		}
		res.Borks = append(res.Borks, Bork{
			Kind:    BorkUndeclaredOutput,
			NodeID:  id,
			Message: "command wrote to an undeclared output",
		})
		if opts.DoUnlink {
			res.Unlink = append(res.Unlink, id)
		}
	}

	// Step 2: missing outputs.
	for _, id := range rpt.DeclaredOutputSet {
		if writeSet[id] {
			continue
		}
		node, ok, err := r.store.GetNode(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reconcile %d: missing-output check of %d: %w", cmdid, id, err)
		}
		if !ok || node.Type != ir.TypeGeneratedFile {
			continue
		}
		if opts.ComplainMissing {
			res.Borks = append(res.Borks, Bork{
				Kind:    BorkMissingOutput,
				NodeID:  id,
				Message: "declared output was not produced",
			})
			continue
		}
		if err := r.flags.Add(ctx, ir.FlagTransient, id); err != nil {
			return nil, fmt.Errorf("reconcile %d: flag missing output %d transient: %w", cmdid, id, err)
		}
	}

	// Step 3: normal inputs, diffed against the previous edge set and
	// applied atomically.
	previous, err := r.store.NormalInputsOf(ctx, cmdid)
	if err != nil {
		return nil, fmt.Errorf("reconcile %d: load previous normal inputs: %w", cmdid, err)
	}
	previousSet := toSet(previous)

	var added, removed []ir.Tupid
	for _, id := range rpt.ReadSet {
		if !previousSet[id] {
			added = append(added, id)
		}
	}
	for _, id := range previous {
		if !readSet[id] {
			removed = append(removed, id)
		}
	}

	// Step 5 needs to inspect each removed edge's producer before it is
	// deleted, so resolve important-link-removal while removed edges
	// still exist.
	for _, id := range removed {
		node, ok, err := r.store.GetNode(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reconcile %d: important-link check of %d: %w", cmdid, id, err)
		}
		if !ok || node.Type != ir.TypeGeneratedFile {
			continue
		}
		producer, hasProducer, err := r.links.Incoming(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("reconcile %d: producer lookup of %d: %w", cmdid, id, err)
		}
		if hasProducer && producer != cmdid {
			res.ImportantLinkRemoved = true
		}
	}

	for _, id := range added {
		if _, err := r.links.CreateLink(ctx, id, cmdid, ir.LinkNormal); err != nil {
			return nil, fmt.Errorf("reconcile %d: add normal edge from %d: %w", cmdid, id, err)
		}
	}
	for _, id := range removed {
		if err := r.store.DeleteLink(ctx, id, cmdid, ir.LinkNormal); err != nil {
			return nil, fmt.Errorf("reconcile %d: remove normal edge from %d: %w", cmdid, id, err)
		}
		if r.sink != nil {
			r.sink.MarkCandidate(id)
		}
	}
	res.NormalEdgesAdded = added
	res.NormalEdgesRemoved = removed

	// Step 4: sticky violations are diagnostics only; the sticky edge
	// itself is never touched here.
	groupCovered := make(map[ir.Tupid]bool)
	for out, groups := range rpt.GroupMembership {
		if len(groups) > 0 {
			groupCovered[out] = true
		}
	}
	for _, id := range rpt.DeclaredInputSet {
		if readSet[id] || groupCovered[id] {
			continue
		}
		res.StickyViolations = append(res.StickyViolations, id)
	}

	// Step 6: group membership reflects only outputs that were both
	// declared and actually produced this run.
	var newGroups []ir.Tupid
	seenGroup := make(map[ir.Tupid]bool)
	for out, groups := range rpt.GroupMembership {
		if !writeSet[out] || !declaredOut[out] {
			continue
		}
		for _, g := range groups {
			if !seenGroup[g] {
				seenGroup[g] = true
				newGroups = append(newGroups, g)
			}
		}
	}
	if err := r.links.ReplaceGroupMembership(ctx, cmdid, newGroups); err != nil {
		return nil, fmt.Errorf("reconcile %d: replace group membership: %w", cmdid, err)
	}

	if res.OK() {
		if err := r.flags.Remove(ctx, ir.FlagCreate, cmdid); err != nil {
			return nil, fmt.Errorf("reconcile %d: clear create flag: %w", cmdid, err)
		}
		if err := r.flags.Remove(ctx, ir.FlagModify, cmdid); err != nil {
			return nil, fmt.Errorf("reconcile %d: clear modify flag: %w", cmdid, err)
		}
	}

	return res, nil
}
