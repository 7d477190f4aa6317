package graph

import "github.com/naudhr/tup/internal/ir"

// prune keeps only the vertices reachable from spec.Targets under
// spec.Policy, discarding every other vertex and any edge touching one.
// Reachability is pure graph traversal over g's existing edges - no store
// access - so it is deterministic for a fixed g, as spec.md 8 requires.
func (b *Builder) prune(g *Graph, spec PruneSpec) {
	keep := make(map[ir.Tupid]bool)
	forward := adjacency(g, true)
	backward := adjacency(g, false)

	for _, t := range spec.Targets {
		switch spec.Policy {
		case PruneUpwards:
			markReachable(keep, backward, t)
		case PruneDownwards:
			markReachable(keep, forward, t)
		case PruneAll:
			markReachable(keep, backward, t)
			markReachable(keep, forward, t)
		}
	}

	// The config node's sentinel directories are permanent seeds (spec.md
	// 4.F step 2c): once present in the graph they survive pruning even
	// when the reachability cut would otherwise drop them.
	for _, sentinel := range []ir.Tupid{ir.EnvDT, ir.ExclusionDT} {
		if _, ok := g.Nodes[sentinel]; ok {
			keep[sentinel] = true
		}
	}

	for id := range g.Nodes {
		if !keep[id] {
			delete(g.Nodes, id)
		}
	}
	filtered := g.Edges[:0]
	for _, e := range g.Edges {
		if keep[e.From] && keep[e.To] {
			filtered = append(filtered, e)
		}
	}
	g.Edges = filtered
}

// adjacency builds an id -> neighbour-ids map. forward walks From->To
// edges (descendants, i.e. things that depend on the source); !forward
// walks To->From (ancestors, i.e. things the source depends on).
func adjacency(g *Graph, forward bool) map[ir.Tupid][]ir.Tupid {
	adj := make(map[ir.Tupid][]ir.Tupid, len(g.Nodes))
	for _, e := range g.Edges {
		if forward {
			adj[e.From] = append(adj[e.From], e.To)
		} else {
			adj[e.To] = append(adj[e.To], e.From)
		}
	}
	return adj
}

func markReachable(keep map[ir.Tupid]bool, adj map[ir.Tupid][]ir.Tupid, start ir.Tupid) {
	if keep[start] {
		return
	}
	keep[start] = true
	for _, next := range adj[start] {
		markReachable(keep, adj, next)
	}
}
