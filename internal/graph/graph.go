package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/naudhr/tup/internal/ir"
	"github.com/naudhr/tup/internal/links"
	"github.com/naudhr/tup/internal/store"
)

// EdgeKind distinguishes a graph edge's origin: the three persisted link
// styles, plus Contains for the directory-fan-out containment edges the
// builder synthesizes (spec.md 4.F step 2c); containment edges are never
// written to the store.
type EdgeKind string

const (
	EdgeNormal   EdgeKind = "normal"
	EdgeSticky   EdgeKind = "sticky"
	EdgeGroup    EdgeKind = "group"
	EdgeContains EdgeKind = "contains"
)

// Edge is one directed edge in a built Graph.
type Edge struct {
	From ir.Tupid
	To   ir.Tupid
	Kind EdgeKind
}

// Graph is the DAG produced by Build: a vertex set plus its edges.
type Graph struct {
	Nodes map[ir.Tupid]ir.Node
	Edges []Edge
}

// SortedIDs returns every vertex id in ascending order, the canonical
// iteration order spec.md 8 requires for deterministic construction.
func (g *Graph) SortedIDs() []ir.Tupid {
	ids := make([]ir.Tupid, 0, len(g.Nodes))
	for id := range g.Nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (g *Graph) addNode(n ir.Node) {
	if g.Nodes == nil {
		g.Nodes = make(map[ir.Tupid]ir.Node)
	}
	g.Nodes[n.ID] = n
}

func (g *Graph) addEdge(e Edge) {
	for _, existing := range g.Edges {
		if existing == e {
			return
		}
	}
	g.Edges = append(g.Edges, e)
}

// PrunePolicy selects which reachability cut Prune applies.
type PrunePolicy int

const (
	PruneNone PrunePolicy = iota
	PruneAll
	PruneUpwards
	PruneDownwards
)

// PruneSpec requests keeping only the nodes reachable from Targets under
// Policy.
type PruneSpec struct {
	Targets []ir.Tupid
	Policy  PrunePolicy
}

// Options configures one Build call.
type Options struct {
	// Stickies requests a top-up pass over the finished vertex set that
	// adds every sticky edge between two included vertices. The primary
	// walk (spec.md 4.F step 2a) already adds each visited vertex's
	// outgoing sticky edges, so the pass re-checks those edges and adds
	// none the walk left out.
	Stickies bool
	Prune    *PruneSpec
}

// Builder expands seed sets into graphs over a store.
type Builder struct {
	store *store.Store
	links *links.Engine
}

// New wraps s with a link engine for group fan-out.
func New(s *store.Store) *Builder {
	return &Builder{store: s, links: links.New(s)}
}

// Build runs spec.md 4.F's algorithm: expand seeds into a DAG, optionally
// top up sticky edges, optionally prune to a reachability cut.
func (b *Builder) Build(ctx context.Context, seeds []ir.Tupid, opts Options) (*Graph, error) {
	g := &Graph{Nodes: make(map[ir.Tupid]ir.Node)}
	w := newWorklist(seeds)

	for id := range w.queued {
		if _, err := b.loadInto(ctx, g, id); err != nil {
			return nil, err
		}
	}

	for !w.empty() {
		n := w.pop()
		node, ok := g.Nodes[n]
		if !ok {
			var err error
			node, err = b.loadInto(ctx, g, n)
			if err != nil {
				return nil, err
			}
		}

		if err := b.store.OutgoingByStyle(ctx, n, ir.LinkNormal, func(m ir.Tupid) error {
			return b.linkTo(ctx, g, w, n, m, EdgeNormal)
		}); err != nil {
			return nil, fmt.Errorf("graph build: %w", err)
		}
		if err := b.store.OutgoingByStyle(ctx, n, ir.LinkSticky, func(m ir.Tupid) error {
			return b.linkTo(ctx, g, w, n, m, EdgeSticky)
		}); err != nil {
			return nil, fmt.Errorf("graph build: %w", err)
		}

		if node.Type == ir.TypeGroup {
			if err := b.links.ByGroup(ctx, n, func(producer ir.Tupid) error {
				if _, ok := g.Nodes[producer]; !ok {
					if _, err := b.loadInto(ctx, g, producer); err != nil {
						return err
					}
					w.enqueue(producer)
				}
				g.addEdge(Edge{From: producer, To: n, Kind: EdgeGroup})
				return nil
			}); err != nil {
				return nil, fmt.Errorf("graph build: group fan-out of %d: %w", n, err)
			}
		}

		// spec.md 4.F step 2c: fan out to a directory's children unless n
		// is the top-level config node. ir.EnvDT/ir.ExclusionDT are that
		// config node's sentinel directories (environment variables,
		// exclusion patterns) - their "children" are bookkeeping ghosts,
		// not real build inputs, so they never fan out into the graph.
		if node.Type.IsDirLike() && n != ir.EnvDT && n != ir.ExclusionDT {
			children, err := b.store.ChildrenOf(ctx, n)
			if err != nil {
				return nil, fmt.Errorf("graph build: children of %d: %w", n, err)
			}
			for _, c := range children {
				g.addNode(c)
				g.addEdge(Edge{From: n, To: c.ID, Kind: EdgeContains})
				w.enqueue(c.ID)
			}
		}
	}

	if opts.Stickies {
		if err := b.topUpStickies(ctx, g); err != nil {
			return nil, err
		}
	}

	if opts.Prune != nil && opts.Prune.Policy != PruneNone {
		b.prune(g, *opts.Prune)
	}

	return g, nil
}

func (b *Builder) loadInto(ctx context.Context, g *Graph, id ir.Tupid) (ir.Node, error) {
	n, ok, err := b.store.GetNode(ctx, id)
	if err != nil {
		return ir.Node{}, fmt.Errorf("graph build: load %d: %w", id, err)
	}
	if !ok {
		return ir.Node{}, fmt.Errorf("graph build: load %d: %w", id, store.ErrNodeNotFound)
	}
	g.addNode(n)
	return n, nil
}

func (b *Builder) linkTo(ctx context.Context, g *Graph, w *worklist, from, to ir.Tupid, kind EdgeKind) error {
	if _, ok := g.Nodes[to]; !ok {
		if _, err := b.loadInto(ctx, g, to); err != nil {
			return err
		}
		w.enqueue(to)
	}
	g.addEdge(Edge{From: from, To: to, Kind: kind})
	return nil
}

// topUpStickies adds any sticky edge between two vertices already present
// in g that the primary expansion did not add an edge for.
func (b *Builder) topUpStickies(ctx context.Context, g *Graph) error {
	for id := range g.Nodes {
		err := b.store.OutgoingByStyle(ctx, id, ir.LinkSticky, func(to ir.Tupid) error {
			if _, ok := g.Nodes[to]; !ok {
				return nil
			}
			g.addEdge(Edge{From: id, To: to, Kind: EdgeSticky})
			return nil
		})
		if err != nil {
			return fmt.Errorf("graph build: sticky top-up of %d: %w", id, err)
		}
	}
	return nil
}
